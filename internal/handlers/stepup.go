package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/middleware"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/utils"
)

type StepUpHandler struct {
	StepUp *services.StepUpService
}

func NewStepUpHandler(stepUp *services.StepUpService) *StepUpHandler {
	return &StepUpHandler{StepUp: stepUp}
}

type stepUpSendRequest struct {
	RouteKey string `json:"routeKey"`
}

type stepUpVerifyRequest struct {
	RouteKey string `json:"routeKey"`
	Code     string `json:"code"`
}

// Send issues a fresh verification challenge for a protected route and emails
// the code to the caller.
func (h *StepUpHandler) Send(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req stepUpSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.RouteKey == "" {
		return utils.Error(c, fiber.StatusBadRequest, "routeKey is required")
	}

	result, err := h.StepUp.Send(currentUser, req.RouteKey, c.IP(), c.Get("User-Agent"))
	if err != nil {
		return respondStepUpError(c, err, "failed sending verification code")
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// Verify checks a submitted code against the caller's active challenge and, on
// success, records a route access grant.
func (h *StepUpHandler) Verify(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req stepUpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.RouteKey == "" {
		return utils.Error(c, fiber.StatusBadRequest, "routeKey is required")
	}
	if !isValidOTPCode(req.Code) {
		return utils.ErrorWithCode(c, fiber.StatusBadRequest, services.CodeBadRequest, "code must be 6 digits", nil)
	}

	result, err := h.StepUp.Verify(currentUser, req.RouteKey, req.Code, c.IP())
	if err != nil {
		return respondStepUpError(c, err, "failed verifying code")
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// Status reports the caller's current standing for a protected route without
// mutating any state.
func (h *StepUpHandler) Status(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	routeKey := c.Query("routeKey")
	if routeKey == "" {
		return utils.Error(c, fiber.StatusBadRequest, "routeKey is required")
	}

	status, err := h.StepUp.Status(currentUser, routeKey)
	if err != nil {
		return respondStepUpError(c, err, "failed loading verification status")
	}

	return utils.Success(c, fiber.StatusOK, status)
}
