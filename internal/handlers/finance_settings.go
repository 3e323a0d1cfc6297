package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type FinanceSettingsHandler struct {
	DB *gorm.DB
}

func NewFinanceSettingsHandler(db *gorm.DB) *FinanceSettingsHandler {
	return &FinanceSettingsHandler{DB: db}
}

// Get returns the caller's settings, creating the defaults row on first read.
func (h *FinanceSettingsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var settings models.FinanceSettings
	err := h.DB.First(&settings, "user_id = ?", currentUser.ID).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.FinanceSettings{UserID: currentUser.ID}
		if err := h.DB.Create(&settings).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating finance settings")
		}
	} else if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading finance settings")
	}

	return utils.Success(c, fiber.StatusOK, settings)
}

type updateFinanceSettingsRequest struct {
	Currency         *string  `json:"currency"`
	TaxRate          *float64 `json:"taxRate"`
	SavingsRate      *float64 `json:"savingsRate"`
	AnnualGrowthRate *float64 `json:"annualGrowthRate"`
}

func (h *FinanceSettingsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateFinanceSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Currency != nil {
		if len(*req.Currency) != 3 {
			return utils.Error(c, fiber.StatusBadRequest, "currency must be a 3-letter code")
		}
		updates["currency"] = *req.Currency
	}
	if req.TaxRate != nil {
		if *req.TaxRate < 0 || *req.TaxRate >= 1 {
			return utils.Error(c, fiber.StatusBadRequest, "taxRate must be in [0, 1)")
		}
		updates["tax_rate"] = *req.TaxRate
	}
	if req.SavingsRate != nil {
		if *req.SavingsRate < 0 || *req.SavingsRate > 1 {
			return utils.Error(c, fiber.StatusBadRequest, "savingsRate must be in [0, 1]")
		}
		updates["savings_rate"] = *req.SavingsRate
	}
	if req.AnnualGrowthRate != nil {
		updates["annual_growth_rate"] = *req.AnnualGrowthRate
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	var settings models.FinanceSettings
	err := h.DB.First(&settings, "user_id = ?", currentUser.ID).Error
	if err == gorm.ErrRecordNotFound {
		settings = models.FinanceSettings{UserID: currentUser.ID}
		if err := h.DB.Create(&settings).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed creating finance settings")
		}
	} else if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading finance settings")
	}

	if err := h.DB.Model(&settings).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating finance settings")
	}

	if err := h.DB.First(&settings, "user_id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated settings")
	}

	return utils.Success(c, fiber.StatusOK, settings)
}
