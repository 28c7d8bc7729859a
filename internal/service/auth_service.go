package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/voice-scheduler/internal/auth"
	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/domain"
)

// ErrInvalidCredentials is returned for any failed admin login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService coordinates admin login.
type AuthService struct {
	tokenMgr     *auth.TokenManager
	username     string
	passwordHash string
}

// NewAuthService builds the service. A plaintext admin password is hashed
// once here; with neither hash nor password configured every login fails.
func NewAuthService(cfg config.AuthConfig) (*AuthService, error) {
	hash := strings.TrimSpace(cfg.AdminPasswordHash)
	if hash == "" && cfg.AdminPassword != "" {
		var err error
		hash, err = auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			return nil, err
		}
	}
	return &AuthService{
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		username:     cfg.AdminUsername,
		passwordHash: hash,
	}, nil
}

// LoginAdmin verifies admin credentials and issues an access token.
func (s *AuthService) LoginAdmin(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" || s.username == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := auth.ComparePassword(s.passwordHash, password)
	if !userOK || passErr != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.tokenMgr.GenerateToken(s.username, domain.SubjectTypeAdmin)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
