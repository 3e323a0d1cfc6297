package models

import "github.com/google/uuid"

type Company struct {
	BaseModel
	OwnerID   uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	Name      string     `json:"name" gorm:"type:varchar(150);not null"`
	Industry  *string    `json:"industry,omitempty" gorm:"type:varchar(100)"`
	Location  *string    `json:"location,omitempty" gorm:"type:varchar(150)"`
	Notes     *string    `json:"notes,omitempty" gorm:"type:text"`
	Owner     User       `json:"-" gorm:"foreignKey:OwnerID"`
	Positions []Position `json:"positions,omitempty" gorm:"foreignKey:CompanyID"`
}

func (Company) TableName() string {
	return "companies"
}
