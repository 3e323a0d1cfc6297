package models

import "github.com/google/uuid"

// FinanceSettings is a per-user singleton feeding projection math.
type FinanceSettings struct {
	BaseModel
	UserID           uuid.UUID `json:"userID" gorm:"type:uuid;uniqueIndex;not null"`
	Currency         string    `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	TaxRate          float64   `json:"taxRate" gorm:"not null;default:0.30"`
	SavingsRate      float64   `json:"savingsRate" gorm:"not null;default:0.20"`
	AnnualGrowthRate float64   `json:"annualGrowthRate" gorm:"not null;default:0.03"`
	User             User      `json:"-" gorm:"foreignKey:UserID"`
}

func (FinanceSettings) TableName() string {
	return "finance_settings"
}
