package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type CompaniesHandler struct {
	DB *gorm.DB
}

func NewCompaniesHandler(db *gorm.DB) *CompaniesHandler {
	return &CompaniesHandler{DB: db}
}

type companyRequest struct {
	Name     string  `json:"name"`
	Industry *string `json:"industry"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req companyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	company := models.Company{
		OwnerID:  currentUser.ID,
		Name:     req.Name,
		Industry: req.Industry,
		Location: req.Location,
		Notes:    req.Notes,
	}

	if err := h.DB.Create(&company).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating company")
	}

	logger.InfoWithUser(currentUser.ID.String(), "company_created", map[string]interface{}{
		"company_id": company.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, company)
}

func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var companies []models.Company
	if err := h.DB.
		Where("owner_id = ?", currentUser.ID).
		Order("created_at DESC").
		Find(&companies).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing companies")
	}

	return utils.Success(c, fiber.StatusOK, companies)
}

func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var company models.Company
	if err := h.DB.Preload("Positions").
		First(&company, "id = ? AND owner_id = ?", companyID, currentUser.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "company not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading company")
	}

	return utils.Success(c, fiber.StatusOK, company)
}

type updateCompanyRequest struct {
	Name     *string `json:"name"`
	Industry *string `json:"industry"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	var req updateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Industry != nil {
		updates["industry"] = req.Industry
	}
	if req.Location != nil {
		updates["location"] = req.Location
	}
	if req.Notes != nil {
		updates["notes"] = req.Notes
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	result := h.DB.Model(&models.Company{}).
		Where("id = ? AND owner_id = ?", companyID, currentUser.ID).
		Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating company")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "company not found")
	}

	var updated models.Company
	if err := h.DB.First(&updated, "id = ?", companyID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated company")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *CompaniesHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	companyID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid company id")
	}

	result := h.DB.Delete(&models.Company{}, "id = ? AND owner_id = ?", companyID, currentUser.ID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting company")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "company not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
