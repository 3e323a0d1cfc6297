package models

import (
	"time"

	"github.com/google/uuid"
)

type StepUpMethod string

const (
	StepUpMethodEmail StepUpMethod = "email"
	StepUpMethodTOTP  StepUpMethod = "totp"
)

// RouteAccessGrant records a satisfied step-up verification. At most one row
// exists per (user, route, method); re-verification overwrites it in place.
type RouteAccessGrant struct {
	BaseModel
	UserID     uuid.UUID    `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_route_access_grants_user_route_method"`
	RouteKey   string       `json:"routeKey" gorm:"type:varchar(50);not null;uniqueIndex:idx_route_access_grants_user_route_method"`
	Method     StepUpMethod `json:"method" gorm:"type:varchar(20);not null;uniqueIndex:idx_route_access_grants_user_route_method"`
	VerifiedAt time.Time    `json:"verifiedAt" gorm:"not null"`
	ExpiresAt  time.Time    `json:"expiresAt" gorm:"not null;index"`
	RevokedAt  *time.Time   `json:"-"`
	User       User         `json:"-" gorm:"foreignKey:UserID"`
}

func (RouteAccessGrant) TableName() string {
	return "route_access_grants"
}

// IsValid reports whether the grant still unlocks its route. Expiry is judged
// at call time; rows are never deleted.
func (g *RouteAccessGrant) IsValid(now time.Time) bool {
	return g.RevokedAt == nil && now.Before(g.ExpiresAt)
}
