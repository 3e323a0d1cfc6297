package handlers

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/utils"
)

var otpCodePattern = regexp.MustCompile(`^\d{6}$`)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func isValidOTPCode(value string) bool {
	return otpCodePattern.MatchString(value)
}

func getRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals("requestID").(string); ok {
		return value
	}
	return ""
}

// respondStepUpError maps a service-level step-up failure onto the HTTP
// envelope; anything else becomes an opaque 500.
func respondStepUpError(c *fiber.Ctx, err error, fallback string) error {
	if stepErr, ok := err.(*services.StepUpError); ok {
		return utils.ErrorWithCode(c, stepErr.Status, stepErr.Code, stepErr.Message, stepErr.Details())
	}
	return utils.Error(c, fiber.StatusInternalServerError, fallback)
}
