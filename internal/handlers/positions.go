package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type PositionsHandler struct {
	DB *gorm.DB
}

func NewPositionsHandler(db *gorm.DB) *PositionsHandler {
	return &PositionsHandler{DB: db}
}

type positionRequest struct {
	CompanyID    string     `json:"companyID"`
	Title        string     `json:"title"`
	Level        string     `json:"level"`
	BaseSalary   float64    `json:"baseSalary"`
	AnnualBonus  float64    `json:"annualBonus"`
	AnnualEquity float64    `json:"annualEquity"`
	Currency     string     `json:"currency"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	IsCurrent    bool       `json:"isCurrent"`
}

func isValidLevel(value string) bool {
	switch models.EmploymentLevel(value) {
	case models.EmploymentLevelJunior, models.EmploymentLevelMid, models.EmploymentLevelSenior,
		models.EmploymentLevelLead, models.EmploymentLevelExecutive:
		return true
	default:
		return false
	}
}

func (h *PositionsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req positionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	if req.BaseSalary < 0 {
		return utils.Error(c, fiber.StatusBadRequest, "baseSalary cannot be negative")
	}
	if req.StartDate.IsZero() {
		return utils.Error(c, fiber.StatusBadRequest, "startDate is required")
	}
	if req.Level == "" {
		req.Level = string(models.EmploymentLevelMid)
	}
	if !isValidLevel(req.Level) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid level")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	companyID, err := parseUUID(req.CompanyID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	if err := h.DB.First(&company, "id = ? AND owner_id = ?", companyID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "company not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading company")
	}

	position := models.Position{
		OwnerID:      currentUser.ID,
		CompanyID:    companyID,
		Title:        req.Title,
		Level:        models.EmploymentLevel(req.Level),
		BaseSalary:   req.BaseSalary,
		AnnualBonus:  req.AnnualBonus,
		AnnualEquity: req.AnnualEquity,
		Currency:     req.Currency,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsCurrent:    req.IsCurrent,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsCurrent {
			// only one current position per user
			if err := tx.Model(&models.Position{}).
				Where("owner_id = ? AND is_current = ?", currentUser.ID, true).
				Update("is_current", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&position).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating position")
	}

	return utils.Success(c, fiber.StatusCreated, position)
}

func (h *PositionsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.DB.Preload("Company").Where("owner_id = ?", currentUser.ID)
	if companyID := strings.TrimSpace(c.Query("companyID")); companyID != "" {
		id, err := parseUUID(companyID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
		}
		query = query.Where("company_id = ?", id)
	}

	var positions []models.Position
	if err := query.Order("start_date DESC").Find(&positions).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing positions")
	}

	return utils.Success(c, fiber.StatusOK, positions)
}

func (h *PositionsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	positionID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid position id")
	}

	var position models.Position
	if err := h.DB.Preload("Company").
		First(&position, "id = ? AND owner_id = ?", positionID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "position not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading position")
	}

	return utils.Success(c, fiber.StatusOK, position)
}

type updatePositionRequest struct {
	Title        *string    `json:"title"`
	Level        *string    `json:"level"`
	BaseSalary   *float64   `json:"baseSalary"`
	AnnualBonus  *float64   `json:"annualBonus"`
	AnnualEquity *float64   `json:"annualEquity"`
	Currency     *string    `json:"currency"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	IsCurrent    *bool      `json:"isCurrent"`
}

func (h *PositionsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	positionID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid position id")
	}

	var req updatePositionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return utils.Error(c, fiber.StatusBadRequest, "title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Level != nil {
		if !isValidLevel(*req.Level) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid level")
		}
		updates["level"] = *req.Level
	}
	if req.BaseSalary != nil {
		if *req.BaseSalary < 0 {
			return utils.Error(c, fiber.StatusBadRequest, "baseSalary cannot be negative")
		}
		updates["base_salary"] = *req.BaseSalary
	}
	if req.AnnualBonus != nil {
		updates["annual_bonus"] = *req.AnnualBonus
	}
	if req.AnnualEquity != nil {
		updates["annual_equity"] = *req.AnnualEquity
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if req.IsCurrent != nil {
		updates["is_current"] = *req.IsCurrent
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsCurrent != nil && *req.IsCurrent {
			if err := tx.Model(&models.Position{}).
				Where("owner_id = ? AND is_current = ? AND id <> ?", currentUser.ID, true, positionID).
				Update("is_current", false).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&models.Position{}).
			Where("id = ? AND owner_id = ?", positionID, currentUser.ID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusNotFound, "position not found")
	}
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating position")
	}

	var updated models.Position
	if err := h.DB.Preload("Company").First(&updated, "id = ?", positionID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated position")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *PositionsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	positionID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid position id")
	}

	result := h.DB.Delete(&models.Position{}, "id = ? AND owner_id = ?", positionID, currentUser.ID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting position")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "position not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
