package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid is one offer against an auction. Rows are immutable once
// created; the payment intent reference points at the Stripe
// authorization collected before the bid was accepted.
type Bid struct {
	gorm.Model

	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuctionID       uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	BidderID        uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Amount          int64     `gorm:"not null;<-:create"`
	PaymentIntentID string    `gorm:"type:varchar(64);<-:create"`

	Bidder  *User    `gorm:"foreignKey:BidderID"`
	Auction *Auction `gorm:"foreignKey:AuctionID"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) error {
	if b.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}
