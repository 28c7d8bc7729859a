package http

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/voice-scheduler/internal/api/http/handlers"
	"github.com/spec-kit/voice-scheduler/internal/auth"
	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/observability"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/service"
)

type testServer struct {
	app      *fiber.App
	meetings repository.MeetingRepository
	metrics  *observability.Metrics
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	logger := zap.NewNop()
	staff, err := domain.NewStaffDirectory([]domain.StaffMember{
		{Name: "Jackie", Title: "Manager", AvailableTimes: []string{"9:00 AM", "2pm"}},
	})
	require.NoError(t, err)

	meetings := repository.NewMemoryMeetingRepository()
	metrics := observability.NewMetrics()
	info := domain.StoreInfo{Name: "Acme Studio", Description: "Custom furniture."}

	engine, err := service.NewConversationEngine(service.EngineDependencies{
		Staff: staff, Meetings: meetings, StoreInfo: info, Logger: logger,
	})
	require.NoError(t, err)
	dialogue, err := service.NewDialogueService(service.DialogueDependencies{
		Engine:   engine,
		Sessions: repository.NewMemorySessionRepository(0),
		Metrics:  metrics,
		Logger:   logger,
	})
	require.NoError(t, err)
	authSvc, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:     "secret",
		AdminUsername: "admin",
		AdminPassword: "letmein",
		BcryptCost:    bcrypt.MinCost,
	})
	require.NoError(t, err)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("voice-scheduler", "test", nil),
		Dialogue:       handlers.NewDialogueHandler(dialogue, logger),
		Staff:          handlers.NewStaffHandler(staff, meetings, logger),
		Meetings:       handlers.NewMeetingsHandler(meetings),
		Auth:           handlers.NewAuthHandler(authSvc),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager()),
		Metrics:        metrics,
	})
	return testServer{app: app, meetings: meetings, metrics: metrics}
}

func (s testServer) do(t *testing.T, method, path, body, token string) (*nethttp.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

type turnEnvelope struct {
	Data struct {
		Reply   string `json:"reply"`
		Phase   string `json:"phase"`
		Outcome string `json:"outcome"`
		Ended   bool   `json:"ended"`
		Meeting *struct {
			ID        string `json:"id"`
			StaffName string `json:"staff_name"`
			Time      string `json:"time"`
		} `json:"meeting"`
	} `json:"data"`
}

func (s testServer) turn(t *testing.T, session, input string) turnEnvelope {
	t.Helper()
	resp, raw := s.do(t, "POST", "/api/sessions/"+session+"/turns", `{"input":"`+input+`"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	var env turnEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestSessionTurnsBookMeeting(t *testing.T) {
	s := newTestServer(t)

	env := s.turn(t, "call-1", "I'd like to book a meeting")
	assert.Equal(t, "AWAITING_STAFF_SELECTION", env.Data.Phase)
	assert.Contains(t, env.Data.Reply, "Jackie")

	env = s.turn(t, "call-1", "jackie please")
	assert.Equal(t, "AWAITING_TIME", env.Data.Phase)

	env = s.turn(t, "call-1", "two in the afternoon")
	assert.Equal(t, "booked", env.Data.Outcome)
	assert.Equal(t, "IDLE", env.Data.Phase)
	require.NotNil(t, env.Data.Meeting)
	assert.Equal(t, "Jackie", env.Data.Meeting.StaffName)
	assert.Equal(t, "2:00 PM", env.Data.Meeting.Time)

	env = s.turn(t, "call-1", "goodbye")
	assert.True(t, env.Data.Ended)
}

func TestSessionSurvivesInterleavedSessions(t *testing.T) {
	s := newTestServer(t)

	env := s.turn(t, "aaaa", "book a meeting")
	require.Equal(t, "AWAITING_STAFF_SELECTION", env.Data.Phase)

	for i := 0; i < 50; i++ {
		s.turn(t, fmt.Sprintf("b%03d", i), "hello")
	}

	env = s.turn(t, "aaaa", "Jackie")
	assert.Equal(t, "AWAITING_TIME", env.Data.Phase)
	assert.Equal(t, "staff_selected", env.Data.Outcome)
}

func TestQueryStreamsServerSentEvents(t *testing.T) {
	s := newTestServer(t)

	resp, raw := s.do(t, "POST", "/api/query", `{"input":"tell me about your shop","session_id":"web-1"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "data: {\"response\":\"\"}\n\ndata: {\"response\":\"Custom furniture.\"}\n\n", string(raw))
}

func TestQueryRequiresInputAndSession(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{"input":"hi"}`, `{"session_id":"x"}`, `not json`} {
		resp, raw := s.do(t, "POST", "/api/query", body, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, body)
		assert.Contains(t, string(raw), "VALIDATION_FAILED")
	}
}

func TestResetSession(t *testing.T) {
	s := newTestServer(t)
	s.turn(t, "call-1", "schedule a meeting")

	resp, _ := s.do(t, "DELETE", "/api/sessions/call-1", "", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	env := s.turn(t, "call-1", "jackie")
	// a fresh session is idle, so a bare name is not a staff selection
	assert.Equal(t, "IDLE", env.Data.Phase)
}

func TestStoreInfoAndStaff(t *testing.T) {
	s := newTestServer(t)

	resp, raw := s.do(t, "GET", "/api/store_info", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"store_name":"Acme Studio","store_description":"Custom furniture."}`, string(raw))

	s.turn(t, "call-1", "book a meeting")
	s.turn(t, "call-1", "Jackie at 9am")

	resp, raw = s.do(t, "GET", "/api/staff", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"staff":[{"name":"Jackie","title":"Manager","available_times":["9:00 AM","2:00 PM"],"open_times":["2:00 PM"]}]}`, string(raw))
}

func TestMeetingsRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	s.turn(t, "call-1", "book a meeting")
	s.turn(t, "call-1", "Jackie at 9am")

	resp, _ := s.do(t, "GET", "/api/meetings", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, "POST", "/auth/admin/login", `{"username":"admin","password":"nope"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, raw := s.do(t, "POST", "/auth/admin/login", `{"username":"admin","password":"letmein"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var login struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &login))
	require.NotEmpty(t, login.Data.Token)

	resp, raw = s.do(t, "GET", "/api/meetings?staff=jackie", "", login.Data.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Meetings []struct {
			ID        string `json:"id"`
			StaffName string `json:"staff_name"`
			Time      string `json:"time"`
		} `json:"meetings"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Meetings, 1)
	assert.Equal(t, "9:00 AM", list.Meetings[0].Time)

	resp, _ = s.do(t, "GET", "/api/meetings/"+list.Meetings[0].ID, "", login.Data.Token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, raw = s.do(t, "GET", "/api/meetings/missing", "", login.Data.Token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), "NOT_FOUND")

	resp, _ = s.do(t, "GET", "/api/meetings?limit=-1", "", login.Data.Token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, "GET", "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, raw := s.do(t, "GET", "/health/ready", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "ready")

	s.turn(t, "call-1", "hello")
	resp, raw = s.do(t, "GET", "/metrics", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `voicesched_dialogue_turns_total{outcome="unhandled"} 1`)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)
	resp, raw := s.do(t, "GET", "/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), `"code":"NOT_FOUND"`)
}
