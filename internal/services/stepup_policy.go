package services

import "github.com/salarypath/backend/internal/models"

// StepUpPolicy configures the verification gate for one protected route.
// TTLHours bounds both the challenge window and the resulting grant.
type StepUpPolicy struct {
	RouteKey              string
	Enabled               bool
	Method                models.StepUpMethod
	TTLHours              int
	MaxSendsPer24Hours    int
	ResendCooldownSeconds int
	MaxAttempts           int
}

// RouteKeyComparison guards the scenario comparison feature.
const RouteKeyComparison = "comparison"

// stepUpPolicies is the closed set of routes that require step-up
// verification. Routes absent from this table are always allowed.
var stepUpPolicies = map[string]StepUpPolicy{
	RouteKeyComparison: {
		RouteKey:              RouteKeyComparison,
		Enabled:               true,
		Method:                models.StepUpMethodEmail,
		TTLHours:              5,
		MaxSendsPer24Hours:    3,
		ResendCooldownSeconds: 60,
		MaxAttempts:           5,
	},
}

func PolicyFor(routeKey string) (StepUpPolicy, bool) {
	policy, ok := stepUpPolicies[routeKey]
	return policy, ok
}
