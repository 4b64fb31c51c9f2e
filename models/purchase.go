package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Purchase records one transaction: an auction win, a buy-now, or a
// direct funnel sale. The row is created when a payment intent is
// opened and moves through pending → processing → completed/failed as
// the processor reports back.
type Purchase struct {
	gorm.Model

	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BuyerID         uuid.UUID      `gorm:"type:uuid;not null;index;<-:create"`
	FunnelID        uuid.UUID      `gorm:"type:uuid;not null;<-:create"`
	AuctionID       *uuid.UUID     `gorm:"type:uuid;<-:create"`
	Kind            PurchaseKind   `gorm:"type:varchar(16);not null;<-:create"`
	Amount          int64          `gorm:"not null;<-:create"`
	Currency        string         `gorm:"type:varchar(8);not null;default:'usd';<-:create"`
	Status          PurchaseStatus `gorm:"type:varchar(16);not null;default:'pending'"`
	// Empty until the processor intent is attached, so uniqueness only
	// applies to bound rows.
	PaymentIntentID string `gorm:"type:varchar(64);uniqueIndex:idx_purchases_payment_intent,where:payment_intent_id <> ''"`

	Buyer   *User    `gorm:"foreignKey:BuyerID"`
	Funnel  *Funnel  `gorm:"foreignKey:FunnelID"`
	Auction *Auction `gorm:"foreignKey:AuctionID"`
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// WebhookEvent stores processed payment-processor event IDs so webhook
// deliveries can be deduplicated.
type WebhookEvent struct {
	EventID   string `gorm:"type:varchar(128);primaryKey"`
	Type      string `gorm:"type:varchar(64);index"`
	CreatedAt time.Time
}
