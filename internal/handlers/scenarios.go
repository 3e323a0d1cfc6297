package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
)

type ScenariosHandler struct {
	DB *gorm.DB
}

func NewScenariosHandler(db *gorm.DB) *ScenariosHandler {
	return &ScenariosHandler{DB: db}
}

type scenarioRequest struct {
	Name           string   `json:"name"`
	BaseSalary     float64  `json:"baseSalary"`
	AnnualBonus    float64  `json:"annualBonus"`
	AnnualEquity   float64  `json:"annualEquity"`
	Currency       string   `json:"currency"`
	GrowthOverride *float64 `json:"growthOverride"`
}

func (h *ScenariosHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req scenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	if req.BaseSalary < 0 {
		return utils.Error(c, fiber.StatusBadRequest, "baseSalary cannot be negative")
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	scenario := models.Scenario{
		OwnerID:        currentUser.ID,
		Name:           req.Name,
		BaseSalary:     req.BaseSalary,
		AnnualBonus:    req.AnnualBonus,
		AnnualEquity:   req.AnnualEquity,
		Currency:       req.Currency,
		GrowthOverride: req.GrowthOverride,
	}

	if err := h.DB.Create(&scenario).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating scenario")
	}

	return utils.Success(c, fiber.StatusCreated, scenario)
}

func (h *ScenariosHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var scenarios []models.Scenario
	if err := h.DB.
		Where("owner_id = ?", currentUser.ID).
		Order("created_at DESC").
		Find(&scenarios).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing scenarios")
	}

	return utils.Success(c, fiber.StatusOK, scenarios)
}

type updateScenarioRequest struct {
	Name           *string  `json:"name"`
	BaseSalary     *float64 `json:"baseSalary"`
	AnnualBonus    *float64 `json:"annualBonus"`
	AnnualEquity   *float64 `json:"annualEquity"`
	Currency       *string  `json:"currency"`
	GrowthOverride *float64 `json:"growthOverride"`
}

func (h *ScenariosHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	scenarioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid scenario id")
	}

	var req updateScenarioRequest
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
		if len(*req.Currency) != 3 {
			return utils.Error(c, fiber.StatusBadRequest, "currency must be a 3-letter code")
		}
		updates["currency"] = *req.Currency
	}
	if req.GrowthOverride != nil {
		updates["growth_override"] = *req.GrowthOverride
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	result := h.DB.Model(&models.Scenario{}).
		Where("id = ? AND owner_id = ?", scenarioID, currentUser.ID).
		Updates(updates)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating scenario")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "scenario not found")
	}

	var updated models.Scenario
	if err := h.DB.First(&updated, "id = ?", scenarioID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated scenario")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

func (h *ScenariosHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	scenarioID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid scenario id")
	}

	result := h.DB.Delete(&models.Scenario{}, "id = ? AND owner_id = ?", scenarioID, currentUser.ID)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting scenario")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "scenario not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

type scenarioProjection struct {
	ScenarioID   string           `json:"scenarioID"`
	Name         string           `json:"name"`
	Currency     string           `json:"currency"`
	Years        []projectionYear `json:"years"`
	TotalGross   float64          `json:"totalGross"`
	TotalNet     float64          `json:"totalNet"`
	TotalSavings float64          `json:"totalSavings"`
}

type projectionYear struct {
	Year    int     `json:"year"`
	Gross   float64 `json:"gross"`
	Net     float64 `json:"net"`
	Savings float64 `json:"savings"`
}

// Compare builds side-by-side multi-year projections for the caller's
// scenarios using their finance settings. The route sits behind the
// step-up verification gate.
func (h *ScenariosHandler) Compare(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	years := c.QueryInt("years", 5)
	if years < 1 {
		years = 1
	}
	if years > 30 {
		years = 30
	}

	var scenarios []models.Scenario
	if err := h.DB.
		Where("owner_id = ?", currentUser.ID).
		Order("created_at ASC").
		Find(&scenarios).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading scenarios")
	}

	var settings models.FinanceSettings
	if err := h.DB.First(&settings, "user_id = ?", currentUser.ID).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading finance settings")
		}
		settings = models.FinanceSettings{TaxRate: 0.30, SavingsRate: 0.20, AnnualGrowthRate: 0.03}
	}

	projections := make([]scenarioProjection, 0, len(scenarios))
	for _, scenario := range scenarios {
		projections = append(projections, projectScenario(&scenario, &settings, years))
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"years":       years,
		"projections": projections,
	})
}

func projectScenario(scenario *models.Scenario, settings *models.FinanceSettings, years int) scenarioProjection {
	growth := settings.AnnualGrowthRate
	if scenario.GrowthOverride != nil {
		growth = *scenario.GrowthOverride
	}

	projection := scenarioProjection{
		ScenarioID: scenario.ID.String(),
		Name:       scenario.Name,
		Currency:   scenario.Currency,
		Years:      make([]projectionYear, 0, years),
	}

	base := scenario.TotalCompensation()
	for year := 1; year <= years; year++ {
		gross := base * math.Pow(1+growth, float64(year-1))
		net := gross * (1 - settings.TaxRate)
		savings := net * settings.SavingsRate

		projection.Years = append(projection.Years, projectionYear{
			Year:    year,
			Gross:   round2(gross),
			Net:     round2(net),
			Savings: round2(savings),
		})
		projection.TotalGross += gross
		projection.TotalNet += net
		projection.TotalSavings += savings
	}

	projection.TotalGross = round2(projection.TotalGross)
	projection.TotalNet = round2(projection.TotalNet)
	projection.TotalSavings = round2(projection.TotalSavings)
	return projection
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
