package models

import (
	"time"

	"github.com/google/uuid"
)

// TOTPCredential holds a user's enrolled authenticator secret, encrypted at
// rest. Routes whose step-up policy uses the totp method verify against it.
type TOTPCredential struct {
	BaseModel
	UserID     uuid.UUID  `json:"userID" gorm:"type:uuid;uniqueIndex;not null"`
	Enabled    bool       `json:"enabled" gorm:"default:false"`
	Secret     string     `json:"-" gorm:"type:text"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	User       User       `json:"-" gorm:"foreignKey:UserID"`
}

func (TOTPCredential) TableName() string {
	return "totp_credentials"
}
