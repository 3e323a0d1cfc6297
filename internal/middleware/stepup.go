package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/salarypath/backend/internal/services"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
)

type StepUpMiddleware struct {
	StepUp *services.StepUpService
}

func NewStepUpMiddleware(stepUp *services.StepUpService) *StepUpMiddleware {
	return &StepUpMiddleware{StepUp: stepUp}
}

// Require gates a route on a valid step-up grant for routeKey. Routes without
// an enabled policy pass through untouched.
func (m *StepUpMiddleware) Require(routeKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}

		if err := m.StepUp.Assert(user, routeKey); err != nil {
			if stepErr, ok := err.(*services.StepUpError); ok {
				logger.Warn("stepup_access_denied", map[string]interface{}{
					"user_id":   user.ID.String(),
					"route_key": routeKey,
					"path":      c.Path(),
				})
				m.StepUp.Audit.LogAsync(services.AuditEntry{
					UserID:       &user.ID,
					Action:       "stepup.access_denied",
					ResourceType: "route_access_grant",
					Details:      map[string]interface{}{"route_key": routeKey, "path": c.Path()},
					IPAddress:    c.IP(),
				})
				return utils.ErrorWithCode(c, stepErr.Status, stepErr.Code, stepErr.Message, stepErr.Details())
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed checking route access")
		}

		return c.Next()
	}
}
