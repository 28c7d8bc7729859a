package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/api/dto"
	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/service"
)

// StaffHandler lists bookable staff.
type StaffHandler struct {
	staff    *domain.StaffDirectory
	meetings repository.MeetingRepository
	logger   *zap.Logger
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *domain.StaffDirectory, meetings repository.MeetingRepository, logger *zap.Logger) *StaffHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffHandler{staff: staff, meetings: meetings, logger: logger}
}

// List handles GET /api/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	members := h.staff.Members()
	out := make([]dto.StaffResponse, 0, len(members))
	for _, m := range members {
		slots, _ := service.CanonicalSlots(m.AvailableTimes)
		open, err := service.OpenSlots(c.UserContext(), h.meetings, m)
		if err != nil {
			return err
		}
		out = append(out, dto.StaffResponse{
			Name:           m.Name,
			Title:          m.Title,
			AvailableTimes: slots,
			OpenTimes:      open,
		})
	}
	return c.JSON(fiber.Map{"staff": out})
}
