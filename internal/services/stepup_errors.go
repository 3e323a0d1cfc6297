package services

import "time"

const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeDailyLimit          = "ROUTE_OTP_DAILY_LIMIT"
	CodeCooldown            = "ROUTE_OTP_COOLDOWN"
	CodeEmailDeliveryFailed = "EMAIL_DELIVERY_FAILED"
	CodeInvalidCode         = "OTP_INVALID"
	CodeChallengeMissing    = "OTP_CHALLENGE_MISSING"
	CodeStepUpRequired      = "STEP_UP_REQUIRED"
)

// StepUpError is the structured failure every step-up operation returns.
// Handlers map it onto the HTTP envelope without inspecting messages.
type StepUpError struct {
	Code              string
	Message           string
	Status            int
	RetryAt           *time.Time
	RemainingAttempts *int
}

func (e *StepUpError) Error() string {
	return e.Message
}

// Details returns the extra envelope fields carried by this error, if any.
func (e *StepUpError) Details() map[string]interface{} {
	details := map[string]interface{}{}
	if e.RetryAt != nil {
		details["retryAt"] = e.RetryAt.UTC()
	}
	if e.RemainingAttempts != nil {
		details["remainingAttempts"] = *e.RemainingAttempts
	}
	return details
}
