package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voice-scheduler/internal/domain"
	apperrors "github.com/spec-kit/voice-scheduler/pkg/util/errorutil"
)

// RequireAdmin ensures an ADMIN principal is authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeAdmin {
			return apperrors.NewForbidden("admin required")
		}
		return c.Next()
	}
}
