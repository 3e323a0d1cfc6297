package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/salarypath/backend/internal/mailer"
	"github.com/salarypath/backend/internal/models"
	"github.com/salarypath/backend/pkg/logger"
	"github.com/salarypath/backend/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sendWindow = 24 * time.Hour

// StepUpService owns the challenge and grant lifecycle for routes that
// require verification beyond the session login.
type StepUpService struct {
	DB     *gorm.DB
	Mailer mailer.Sender
	Audit  *AuditService
}

func NewStepUpService(db *gorm.DB, sender mailer.Sender, audit *AuditService) *StepUpService {
	return &StepUpService{DB: db, Mailer: sender, Audit: audit}
}

type SendResult struct {
	RouteKey           string    `json:"routeKey"`
	ChallengeExpiresAt time.Time `json:"challengeExpiresAt"`
	ResendAvailableAt  time.Time `json:"resendAvailableAt"`
	RemainingSends24h  int       `json:"remainingSends24h"`
}

type VerifyResult struct {
	RouteKey              string    `json:"routeKey"`
	Verified              bool      `json:"verified"`
	VerificationExpiresAt time.Time `json:"verificationExpiresAt"`
}

type StatusResult struct {
	RouteKey              string     `json:"routeKey"`
	Required              bool       `json:"required"`
	Method                string     `json:"method,omitempty"`
	Verified              bool       `json:"verified"`
	VerificationExpiresAt *time.Time `json:"verificationExpiresAt,omitempty"`
	ChallengeActive       bool       `json:"challengeActive"`
	ChallengeExpiresAt    *time.Time `json:"challengeExpiresAt,omitempty"`
	RemainingSends24h     int        `json:"remainingSends24h"`
	ResendAvailableAt     *time.Time `json:"resendAvailableAt,omitempty"`
}

func enabledPolicy(routeKey string) (StepUpPolicy, *StepUpError) {
	policy, ok := PolicyFor(routeKey)
	if !ok || !policy.Enabled {
		return StepUpPolicy{}, &StepUpError{
			Code:    CodeBadRequest,
			Message: "step-up verification is not configured for this route",
			Status:  fiber.StatusBadRequest,
		}
	}
	return policy, nil
}

// Send issues a fresh challenge for (user, route) and emails the code.
func (s *StepUpService) Send(user *models.User, routeKey, ip, userAgent string) (*SendResult, error) {
	policy, stepErr := enabledPolicy(routeKey)
	if stepErr != nil {
		return nil, stepErr
	}
	if policy.Method != models.StepUpMethodEmail {
		return nil, &StepUpError{
			Code:    CodeBadRequest,
			Message: "this route does not use email verification",
			Status:  fiber.StatusBadRequest,
		}
	}

	now := time.Now().UTC()

	sent, oldestSentAt, err := s.sendsInWindow(user, routeKey, now)
	if err != nil {
		return nil, err
	}
	if sent >= policy.MaxSendsPer24Hours {
		resetAt := oldestSentAt.Add(sendWindow)
		return nil, &StepUpError{
			Code:    CodeDailyLimit,
			Message: "daily verification code limit reached",
			Status:  fiber.StatusTooManyRequests,
			RetryAt: &resetAt,
		}
	}

	latest, err := s.latestChallenge(user, routeKey)
	if err != nil {
		return nil, err
	}
	cooldown := time.Duration(policy.ResendCooldownSeconds) * time.Second
	if latest != nil {
		nextAllowed := latest.CreatedAt.Add(cooldown)
		if now.Before(nextAllowed) {
			return nil, &StepUpError{
				Code:    CodeCooldown,
				Message: "a verification code was sent recently, try again later",
				Status:  fiber.StatusTooManyRequests,
				RetryAt: &nextAllowed,
			}
		}
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	salt, err := generateSalt()
	if err != nil {
		return nil, err
	}

	challenge := models.OtpChallenge{
		UserID:      user.ID,
		RouteKey:    routeKey,
		CodeHash:    hashCode(salt, code),
		CodeSalt:    salt,
		MaxAttempts: policy.MaxAttempts,
		ExpiresAt:   now.Add(time.Duration(policy.TTLHours) * time.Hour),
		RequestIP:   ip,
		UserAgent:   userAgent,
	}

	// Superseding the prior active challenge and inserting the new one must
	// be atomic so a concurrent double-submit cannot leave two active rows.
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OtpChallenge{}).
			Where("user_id = ? AND route_key = ? AND invalidated_at IS NULL AND consumed_at IS NULL", user.ID, routeKey).
			Update("invalidated_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&challenge).Error
	})
	if err != nil {
		return nil, err
	}

	// The email call deliberately does not inherit the request context: an
	// aborted client must not cancel an in-flight delivery.
	msg := mailer.Message{
		To:             user.Email,
		Subject:        "Your Salary Path verification code",
		HTML:           codeEmailHTML(user.FirstName, code, policy.TTLHours),
		IdempotencyKey: fmt.Sprintf("stepup-%s-%s-%s", user.ID, routeKey, challenge.ID),
	}
	if err := s.Mailer.Send(context.Background(), msg); err != nil {
		logger.Error("stepup_email_delivery_failed", err, map[string]interface{}{
			"user_id":   user.ID.String(),
			"route_key": routeKey,
		})
		// No valid challenge may outlive a delivery the user never received.
		if delErr := s.DB.Delete(&challenge).Error; delErr != nil {
			logger.Error("stepup_challenge_rollback_failed", delErr, map[string]interface{}{
				"challenge_id": challenge.ID.String(),
			})
		}
		return nil, &StepUpError{
			Code:    CodeEmailDeliveryFailed,
			Message: "failed to deliver the verification code",
			Status:  fiber.StatusBadGateway,
		}
	}

	s.Audit.LogAsync(AuditEntry{
		UserID:       &user.ID,
		Action:       "stepup.challenge_sent",
		ResourceType: "otp_challenge",
		ResourceID:   &challenge.ID,
		Details:      map[string]interface{}{"route_key": routeKey},
		IPAddress:    ip,
	})

	return &SendResult{
		RouteKey:           routeKey,
		ChallengeExpiresAt: challenge.ExpiresAt,
		ResendAvailableAt:  challenge.CreatedAt.Add(cooldown),
		RemainingSends24h:  policy.MaxSendsPer24Hours - sent - 1,
	}, nil
}

// Verify checks the submitted code and, on success, upserts the grant for
// (user, route, method).
func (s *StepUpService) Verify(user *models.User, routeKey, code, ip string) (*VerifyResult, error) {
	policy, stepErr := enabledPolicy(routeKey)
	if stepErr != nil {
		return nil, stepErr
	}

	now := time.Now().UTC()

	switch policy.Method {
	case models.StepUpMethodEmail:
		if err := s.verifyEmailCode(user, routeKey, code, now); err != nil {
			return nil, err
		}
	case models.StepUpMethodTOTP:
		if err := s.verifyTOTPCode(user, code); err != nil {
			return nil, err
		}
	default:
		return nil, &StepUpError{
			Code:    CodeBadRequest,
			Message: "unsupported verification method",
			Status:  fiber.StatusBadRequest,
		}
	}

	expiresAt := now.Add(time.Duration(policy.TTLHours) * time.Hour)
	grant := models.RouteAccessGrant{
		UserID:     user.ID,
		RouteKey:   routeKey,
		Method:     policy.Method,
		VerifiedAt: now,
		ExpiresAt:  expiresAt,
		RevokedAt:  nil,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "route_key"}, {Name: "method"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"verified_at": now,
			"expires_at":  expiresAt,
			"revoked_at":  nil,
			"updated_at":  now,
		}),
	}).Create(&grant).Error; err != nil {
		return nil, err
	}

	s.Audit.LogAsync(AuditEntry{
		UserID:       &user.ID,
		Action:       "stepup.verified",
		ResourceType: "route_access_grant",
		Details:      map[string]interface{}{"route_key": routeKey, "method": string(policy.Method)},
		IPAddress:    ip,
	})

	return &VerifyResult{
		RouteKey:              routeKey,
		Verified:              true,
		VerificationExpiresAt: expiresAt,
	}, nil
}

func (s *StepUpService) verifyEmailCode(user *models.User, routeKey, code string, now time.Time) error {
	challenge, err := s.activeChallenge(user, routeKey, now)
	if err != nil {
		return err
	}
	if challenge == nil {
		return &StepUpError{
			Code:    CodeChallengeMissing,
			Message: "verification code is invalid or expired",
			Status:  fiber.StatusBadRequest,
		}
	}

	submitted := hashCode(challenge.CodeSalt, code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(challenge.CodeHash)) != 1 {
		// Conditional increment keeps the counter honest under concurrent
		// submits; a row that already hit the cap is left untouched.
		result := s.DB.Model(&models.OtpChallenge{}).
			Where("id = ? AND consumed_at IS NULL AND attempt_count < max_attempts", challenge.ID).
			Update("attempt_count", gorm.Expr("attempt_count + 1"))
		if result.Error != nil {
			return result.Error
		}

		remaining := challenge.RemainingAttempts() - 1
		if remaining < 0 {
			remaining = 0
		}
		stepErr := &StepUpError{
			Code:    CodeInvalidCode,
			Message: "verification code is invalid or expired",
			Status:  fiber.StatusBadRequest,
		}
		if remaining > 0 {
			stepErr.RemainingAttempts = &remaining
		}
		return stepErr
	}

	result := s.DB.Model(&models.OtpChallenge{}).
		Where("id = ? AND consumed_at IS NULL AND attempt_count < max_attempts", challenge.ID).
		Update("consumed_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Lost a race against another verify or the attempt cap.
		return &StepUpError{
			Code:    CodeChallengeMissing,
			Message: "verification code is invalid or expired",
			Status:  fiber.StatusBadRequest,
		}
	}
	return nil
}

func (s *StepUpService) verifyTOTPCode(user *models.User, code string) error {
	var cred models.TOTPCredential
	err := s.DB.First(&cred, "user_id = ? AND enabled = ?", user.ID, true).Error
	if err == gorm.ErrRecordNotFound {
		return &StepUpError{
			Code:    CodeChallengeMissing,
			Message: "authenticator is not enrolled",
			Status:  fiber.StatusBadRequest,
		}
	}
	if err != nil {
		return err
	}

	secret := utils.DecryptOrPlaintext(cred.Secret)
	if !totp.Validate(code, secret) {
		return &StepUpError{
			Code:    CodeInvalidCode,
			Message: "verification code is invalid or expired",
			Status:  fiber.StatusBadRequest,
		}
	}
	return nil
}

// Status is a pure read composing the same challenge and grant predicates
// used by Send and Verify.
func (s *StepUpService) Status(user *models.User, routeKey string) (*StatusResult, error) {
	now := time.Now().UTC()

	policy, ok := PolicyFor(routeKey)
	if !ok || !policy.Enabled {
		return &StatusResult{RouteKey: routeKey, Required: false}, nil
	}

	result := &StatusResult{
		RouteKey: routeKey,
		Required: true,
		Method:   string(policy.Method),
	}

	grant, err := s.validGrant(user, routeKey, policy.Method, now)
	if err != nil {
		return nil, err
	}
	if grant != nil {
		result.Verified = true
		expiresAt := grant.ExpiresAt
		result.VerificationExpiresAt = &expiresAt
	}

	if policy.Method == models.StepUpMethodEmail {
		challenge, err := s.activeChallenge(user, routeKey, now)
		if err != nil {
			return nil, err
		}
		if challenge != nil {
			result.ChallengeActive = true
			expiresAt := challenge.ExpiresAt
			result.ChallengeExpiresAt = &expiresAt
		}

		sent, _, err := s.sendsInWindow(user, routeKey, now)
		if err != nil {
			return nil, err
		}
		remaining := policy.MaxSendsPer24Hours - sent
		if remaining < 0 {
			remaining = 0
		}
		result.RemainingSends24h = remaining

		latest, err := s.latestChallenge(user, routeKey)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			nextAllowed := latest.CreatedAt.Add(time.Duration(policy.ResendCooldownSeconds) * time.Second)
			if now.Before(nextAllowed) {
				result.ResendAvailableAt = &nextAllowed
			}
		}
	}

	return result, nil
}

// Assert is the server-side gate for protected route handlers. A route with
// no enabled policy is always allowed.
func (s *StepUpService) Assert(user *models.User, routeKey string) error {
	policy, ok := PolicyFor(routeKey)
	if !ok || !policy.Enabled {
		return nil
	}

	grant, err := s.validGrant(user, routeKey, policy.Method, time.Now().UTC())
	if err != nil {
		return err
	}
	if grant == nil {
		return &StepUpError{
			Code:    CodeStepUpRequired,
			Message: "verification required for this route",
			Status:  fiber.StatusForbidden,
		}
	}
	return nil
}

// activeChallenge loads the newest challenge for (user, route) that is still
// usable: not expired, not invalidated, not consumed, attempts remaining.
func (s *StepUpService) activeChallenge(user *models.User, routeKey string, now time.Time) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	err := s.DB.
		Where("user_id = ? AND route_key = ? AND invalidated_at IS NULL AND consumed_at IS NULL AND expires_at > ? AND attempt_count < max_attempts",
			user.ID, routeKey, now).
		Order("created_at DESC").
		First(&challenge).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (s *StepUpService) latestChallenge(user *models.User, routeKey string) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	err := s.DB.
		Where("user_id = ? AND route_key = ?", user.ID, routeKey).
		Order("created_at DESC").
		First(&challenge).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// sendsInWindow counts challenges issued in the trailing 24 hours. Superseded
// challenges still count toward the cap; rows rolled back after failed
// delivery do not, because Send deletes them.
func (s *StepUpService) sendsInWindow(user *models.User, routeKey string, now time.Time) (int, time.Time, error) {
	windowStart := now.Add(-sendWindow)

	var challenges []models.OtpChallenge
	err := s.DB.
		Select("created_at").
		Where("user_id = ? AND route_key = ? AND created_at > ?", user.ID, routeKey, windowStart).
		Order("created_at ASC").
		Find(&challenges).Error
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(challenges) == 0 {
		return 0, time.Time{}, nil
	}
	return len(challenges), challenges[0].CreatedAt, nil
}

func (s *StepUpService) validGrant(user *models.User, routeKey string, method models.StepUpMethod, now time.Time) (*models.RouteAccessGrant, error) {
	var grant models.RouteAccessGrant
	err := s.DB.First(&grant, "user_id = ? AND route_key = ? AND method = ?", user.ID, routeKey, method).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !grant.IsValid(now) {
		return nil, nil
	}
	return &grant, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func generateSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}

func hashCode(salt, code string) string {
	sum := sha256.Sum256([]byte(salt + code))
	return hex.EncodeToString(sum[:])
}

func codeEmailHTML(firstName string, code string, ttlHours int) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Your Salary Path verification code is <strong>%s</strong>.</p><p>It expires in %d hours. If you did not request it, you can ignore this email.</p>",
		firstName, code, ttlHours,
	)
}
