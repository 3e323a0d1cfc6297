package models

import "github.com/google/uuid"

// Scenario is a named compensation hypothesis used by the comparison feature.
type Scenario struct {
	BaseModel
	OwnerID        uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	Name           string    `json:"name" gorm:"type:varchar(150);not null"`
	BaseSalary     float64   `json:"baseSalary" gorm:"not null"`
	AnnualBonus    float64   `json:"annualBonus" gorm:"not null;default:0"`
	AnnualEquity   float64   `json:"annualEquity" gorm:"not null;default:0"`
	Currency       string    `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	GrowthOverride *float64  `json:"growthOverride,omitempty"`
	Owner          User      `json:"-" gorm:"foreignKey:OwnerID"`
}

func (s *Scenario) TotalCompensation() float64 {
	return s.BaseSalary + s.AnnualBonus + s.AnnualEquity
}
