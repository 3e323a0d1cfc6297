package models

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus is the resolved state of an OtpChallenge at a point in time.
// All call sites go through OtpChallenge.Status instead of re-deriving the
// compound predicate from the raw columns.
type ChallengeStatus string

const (
	ChallengeStatusActive            ChallengeStatus = "active"
	ChallengeStatusExpired           ChallengeStatus = "expired"
	ChallengeStatusInvalidated       ChallengeStatus = "invalidated"
	ChallengeStatusConsumed          ChallengeStatus = "consumed"
	ChallengeStatusAttemptsExhausted ChallengeStatus = "attempts_exhausted"
)

// OtpChallenge is one issued email-code verification window for a protected
// route. Only the salted hash of the code is stored, never the plaintext.
type OtpChallenge struct {
	BaseModel
	UserID        uuid.UUID  `json:"-" gorm:"type:uuid;not null;index:idx_otp_challenges_user_route"`
	RouteKey      string     `json:"routeKey" gorm:"type:varchar(50);not null;index:idx_otp_challenges_user_route"`
	CodeHash      string     `json:"-" gorm:"type:varchar(64);not null"`
	CodeSalt      string     `json:"-" gorm:"type:varchar(64);not null"`
	AttemptCount  int        `json:"-" gorm:"not null;default:0"`
	MaxAttempts   int        `json:"-" gorm:"not null;default:5"`
	ExpiresAt     time.Time  `json:"expiresAt" gorm:"not null;index"`
	InvalidatedAt *time.Time `json:"-" gorm:"index"`
	ConsumedAt    *time.Time `json:"-" gorm:"index"`
	RequestIP     string     `json:"-" gorm:"type:varchar(45)"`
	UserAgent     string     `json:"-" gorm:"type:varchar(255)"`
	User          User       `json:"-" gorm:"foreignKey:UserID"`
}

func (OtpChallenge) TableName() string {
	return "otp_challenges"
}

// Status resolves the challenge state at the given instant. Consumption and
// invalidation win over passive expiry so a terminated challenge reports why.
func (ch *OtpChallenge) Status(now time.Time) ChallengeStatus {
	switch {
	case ch.ConsumedAt != nil:
		return ChallengeStatusConsumed
	case ch.InvalidatedAt != nil:
		return ChallengeStatusInvalidated
	case ch.AttemptCount >= ch.MaxAttempts:
		return ChallengeStatusAttemptsExhausted
	case now.After(ch.ExpiresAt):
		return ChallengeStatusExpired
	default:
		return ChallengeStatusActive
	}
}

func (ch *OtpChallenge) RemainingAttempts() int {
	remaining := ch.MaxAttempts - ch.AttemptCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
