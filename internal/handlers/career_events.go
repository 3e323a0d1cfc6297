package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type CareerEventsHandler struct {
	DB *gorm.DB
}

func NewCareerEventsHandler(db *gorm.DB) *CareerEventsHandler {
	return &CareerEventsHandler{DB: db}
}

func isValidCareerEventType(value string) bool {
	switch models.CareerEventType(value) {
	case models.CareerEventRaise, models.CareerEventPromotion, models.CareerEventSwitch, models.CareerEventBonus:
		return true
	default:
		return false
	}
}

type careerEventRequest struct {
	PositionID    *string   `json:"positionID"`
	Type          string    `json:"type"`
	EffectiveDate time.Time `json:"effectiveDate"`
	OldSalary     *float64  `json:"oldSalary"`
	NewSalary     *float64  `json:"newSalary"`
	Note          *string   `json:"note"`
}

func (h *CareerEventsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req careerEventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !isValidCareerEventType(req.Type) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event type")
	}
	if req.EffectiveDate.IsZero() {
		return utils.Error(c, fiber.StatusBadRequest, "effectiveDate is required")
	}

	event := models.CareerEvent{
		OwnerID:       currentUser.ID,
		Type:          models.CareerEventType(req.Type),
		EffectiveDate: req.EffectiveDate,
		OldSalary:     req.OldSalary,
		NewSalary:     req.NewSalary,
		Note:          req.Note,
	}

	if req.PositionID != nil {
		positionID, err := parseUUID(*req.PositionID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid position id")
		}
		var position models.Position
		if err := h.DB.First(&position, "id = ? AND owner_id = ?", positionID, currentUser.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "position not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading position")
		}
		event.PositionID = &positionID
	}

	if err := h.DB.Create(&event).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating career event")
	}

	return utils.Success(c, fiber.StatusCreated, event)
}

func (h *CareerEventsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.DB.Preload("Position").Where("owner_id = ?", currentUser.ID)
	if eventType := c.Query("type"); eventType != "" {
		if !isValidCareerEventType(eventType) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid event type")
		}
		query = query.Where("type = ?", eventType)
	}

	var events []models.CareerEvent
	if err := query.Order("effective_date DESC").Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing career events")
	}

	return utils.Success(c, fiber.StatusOK, events)
}

func (h *CareerEventsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	result := h.DB.Delete(&models.CareerEvent{}, "id = ? AND owner_id = ?", eventID, currentUser.ID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting career event")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "career event not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
