package models

import (
	"time"

	"github.com/google/uuid"
)

type EmploymentLevel string

const (
	EmploymentLevelJunior    EmploymentLevel = "junior"
	EmploymentLevelMid       EmploymentLevel = "mid"
	EmploymentLevelSenior    EmploymentLevel = "senior"
	EmploymentLevelLead      EmploymentLevel = "lead"
	EmploymentLevelExecutive EmploymentLevel = "executive"
)

type Position struct {
	BaseModel
	OwnerID      uuid.UUID       `json:"ownerID" gorm:"type:uuid;not null;index"`
	CompanyID    uuid.UUID       `json:"companyID" gorm:"type:uuid;not null;index"`
	Title        string          `json:"title" gorm:"type:varchar(150);not null"`
	Level        EmploymentLevel `json:"level" gorm:"type:varchar(20);not null;default:'mid'"`
	BaseSalary   float64         `json:"baseSalary" gorm:"not null"`
	AnnualBonus  float64         `json:"annualBonus" gorm:"not null;default:0"`
	AnnualEquity float64         `json:"annualEquity" gorm:"not null;default:0"`
	Currency     string          `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	StartDate    time.Time       `json:"startDate" gorm:"not null"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
	IsCurrent    bool            `json:"isCurrent" gorm:"not null;default:false;index"`
	Owner        User            `json:"-" gorm:"foreignKey:OwnerID"`
	Company      Company         `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

// TotalCompensation is the annual gross across all components.
func (p *Position) TotalCompensation() float64 {
	return p.BaseSalary + p.AnnualBonus + p.AnnualEquity
}
