package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Funnel is a sellable pre-built sales funnel template. Description
// holds sanitized HTML from the admin editor.
type Funnel struct {
	gorm.Model

	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title          string     `gorm:"type:varchar(255);not null"`
	Description    string     `gorm:"type:text;not null"`
	ImageURL       string     `gorm:"type:text"`
	CategoryID     *uuid.UUID `gorm:"type:uuid"`
	Price          int64      `gorm:"not null"`
	LeaseAvailable bool       `gorm:"not null;default:false"`
	Active         bool       `gorm:"not null;default:true"`

	Category *Category `gorm:"foreignKey:CategoryID"`
}

func (f *Funnel) BeforeCreate(tx *gorm.DB) error {
	if f.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

// Category groups funnels and auctions for browsing.
type Category struct {
	gorm.Model

	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:varchar(128);not null;unique"`
	Slug string    `gorm:"type:varchar(128);not null;unique"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
