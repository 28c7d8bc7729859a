package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voice-scheduler/internal/api/dto"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	apperrors "github.com/spec-kit/voice-scheduler/pkg/util/errorutil"
)

// MeetingsHandler serves the admin view of stored meetings.
type MeetingsHandler struct {
	meetings repository.MeetingRepository
}

// NewMeetingsHandler constructs handler.
func NewMeetingsHandler(meetings repository.MeetingRepository) *MeetingsHandler {
	return &MeetingsHandler{meetings: meetings}
}

// List handles GET /api/meetings.
func (h *MeetingsHandler) List(c *fiber.Ctx) error {
	filter, err := parseMeetingQuery(c)
	if err != nil {
		return err
	}
	meetings, err := h.meetings.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	out := make([]*dto.MeetingResponse, 0, len(meetings))
	for i := range meetings {
		out = append(out, dto.NewMeetingResponse(&meetings[i]))
	}
	return c.JSON(fiber.Map{"meetings": out})
}

// Get handles GET /api/meetings/:id.
func (h *MeetingsHandler) Get(c *fiber.Ctx) error {
	meeting, err := h.meetings.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMeetingResponse(meeting)})
}

func parseMeetingQuery(c *fiber.Ctx) (repository.MeetingFilter, error) {
	var filter repository.MeetingFilter
	if staff := c.Query("staff"); staff != "" {
		filter.StaffName = &staff
	}
	limit, err := parseNonNegative(c.Query("limit"))
	if err != nil {
		return filter, apperrors.NewValidationError("limit must be a non-negative integer", nil)
	}
	offset, err := parseNonNegative(c.Query("offset"))
	if err != nil {
		return filter, apperrors.NewValidationError("offset must be a non-negative integer", nil)
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

func parseNonNegative(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
