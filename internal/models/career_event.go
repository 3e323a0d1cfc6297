package models

import (
	"time"

	"github.com/google/uuid"
)

type CareerEventType string

const (
	CareerEventRaise     CareerEventType = "raise"
	CareerEventPromotion CareerEventType = "promotion"
	CareerEventSwitch    CareerEventType = "switch"
	CareerEventBonus     CareerEventType = "bonus"
)

type CareerEvent struct {
	BaseModel
	OwnerID       uuid.UUID       `json:"ownerID" gorm:"type:uuid;not null;index"`
	PositionID    *uuid.UUID      `json:"positionID,omitempty" gorm:"type:uuid;index"`
	Type          CareerEventType `json:"type" gorm:"type:varchar(20);not null;index"`
	EffectiveDate time.Time       `json:"effectiveDate" gorm:"not null;index"`
	OldSalary     *float64        `json:"oldSalary,omitempty"`
	NewSalary     *float64        `json:"newSalary,omitempty"`
	Note          *string         `json:"note,omitempty" gorm:"type:text"`
	Owner         User            `json:"-" gorm:"foreignKey:OwnerID"`
	Position      *Position       `json:"position,omitempty" gorm:"foreignKey:PositionID"`
}
