package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomRequest is a lead describing a prospective bespoke funnel
// build. Status is driven manually by admins through the request
// transition table.
type CustomRequest struct {
	gorm.Model

	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Name        string        `gorm:"type:varchar(255);not null;<-:create"`
	Email       string        `gorm:"type:varchar(255);not null;<-:create"`
	ProjectType string        `gorm:"type:varchar(128);<-:create"`
	Budget      int64         `gorm:"<-:create"`
	Description string        `gorm:"type:text;<-:create"`
	Status      RequestStatus `gorm:"type:varchar(16);not null;default:'pending'"`
}

func (r *CustomRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// LeaseRequest is a lead asking to lease an existing funnel instead of
// buying it outright.
type LeaseRequest struct {
	gorm.Model

	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	FunnelID       uuid.UUID     `gorm:"type:uuid;not null;<-:create"`
	Name           string        `gorm:"type:varchar(255);not null;<-:create"`
	Email          string        `gorm:"type:varchar(255);not null;<-:create"`
	DurationMonths int           `gorm:"not null;<-:create"`
	MonthlyBudget  int64         `gorm:"<-:create"`
	Message        string        `gorm:"type:text;<-:create"`
	Status         RequestStatus `gorm:"type:varchar(16);not null;default:'pending'"`

	Funnel *Funnel `gorm:"foreignKey:FunnelID"`
}

func (r *LeaseRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}
