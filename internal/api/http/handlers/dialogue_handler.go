package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/api/dto"
	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/service"
	apperrors "github.com/spec-kit/voice-scheduler/pkg/util/errorutil"
)

// DialogueHandler exposes the scheduling dialogue over HTTP.
type DialogueHandler struct {
	dialogue *service.DialogueService
	logger   *zap.Logger
}

// NewDialogueHandler constructs handler.
func NewDialogueHandler(dialogue *service.DialogueService, logger *zap.Logger) *DialogueHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DialogueHandler{dialogue: dialogue, logger: logger}
}

// Query handles POST /api/query. The reply is streamed as server-sent events:
// an empty frame first, then the reply.
func (h *DialogueHandler) Query(c *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Input == "" || strings.TrimSpace(req.SessionID) == "" {
		return apperrors.NewValidationError("Missing input or session_id", nil)
	}

	res, err := h.runTurn(c, req.SessionID, req.Input)
	if err != nil {
		return err
	}

	h.logger.Info("query processed",
		zap.String("session_id", req.SessionID),
		zap.String("outcome", string(res.Outcome)))

	frames := []dto.QueryFrame{{Response: ""}, {Response: res.Reply}}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for _, frame := range frames {
			payload, err := json.Marshal(frame)
			if err != nil {
				return
			}
			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// Turn handles POST /api/sessions/:id/turns.
func (h *DialogueHandler) Turn(c *fiber.Ctx) error {
	var req dto.TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	// Params alias the request buffer, which fiber reuses.
	res, err := h.runTurn(c, utils.CopyString(c.Params("id")), req.Input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TurnResponse{
		Reply:   res.Reply,
		Phase:   res.Phase,
		Outcome: string(res.Outcome),
		Ended:   res.Ended,
		Meeting: dto.NewMeetingResponse(res.Meeting),
	}})
}

// Reset handles DELETE /api/sessions/:id.
func (h *DialogueHandler) Reset(c *fiber.Ctx) error {
	if err := h.dialogue.Reset(c.UserContext(), utils.CopyString(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StoreInfo handles GET /api/store_info.
func (h *DialogueHandler) StoreInfo(c *fiber.Ctx) error {
	return c.JSON(h.dialogue.StoreInfo())
}

// Greeting handles GET /api/greeting.
func (h *DialogueHandler) Greeting(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"greeting": h.dialogue.Greeting()}})
}

// runTurn runs one turn. A booking that could not be persisted still yields
// the apology reply; the failure itself is logged by the engine.
func (h *DialogueHandler) runTurn(c *fiber.Ctx, sessionID, text string) (service.TurnResult, error) {
	res, err := h.dialogue.HandleUtterance(c.UserContext(), sessionID, text)
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return res, err
	}
	return res, nil
}
