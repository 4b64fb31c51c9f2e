package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auction is one funnel offered for competitive bidding. The current
// price is derived: the amount of the current bid when one exists,
// otherwise the starting price, so it can never drop below the
// starting price.
type Auction struct {
	gorm.Model

	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	FunnelID      uuid.UUID     `gorm:"type:uuid;not null;<-:create"`
	CategoryID    *uuid.UUID    `gorm:"type:uuid"`
	CreatedByID   uuid.UUID     `gorm:"type:uuid;<-:create"`
	Title         string        `gorm:"type:varchar(255);not null"`
	Description   string        `gorm:"type:text;not null"`
	StartingPrice int64         `gorm:"not null"`
	BuyNowPrice   *int64        `gorm:""`
	CurrentBidID  *uuid.UUID    `gorm:"type:uuid"`
	WinnerID      *uuid.UUID    `gorm:"type:uuid"`
	Status        AuctionStatus `gorm:"type:varchar(16);not null;default:'draft'"`
	StartTime     time.Time     `gorm:"not null"`
	EndTime       time.Time     `gorm:"not null"`

	Funnel     *Funnel   `gorm:"foreignKey:FunnelID"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
	CreatedBy  *User     `gorm:"foreignKey:CreatedByID"`
	CurrentBid *Bid      `gorm:"foreignKey:CurrentBidID"`
	Winner     *User     `gorm:"foreignKey:WinnerID"`
	BidRecords []Bid     `gorm:"foreignKey:AuctionID"`
}

func (a *Auction) BeforeCreate(tx *gorm.DB) error {
	if a.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// CurrentPrice returns the highest bid amount, or the starting price
// when nobody has bid yet. Requires CurrentBid to be preloaded when
// CurrentBidID is set.
func (a *Auction) CurrentPrice() int64 {
	if a.CurrentBid != nil {
		return a.CurrentBid.Amount
	}
	return a.StartingPrice
}

// BiddableAt reports whether the auction accepts bids at the given
// instant: it must be active and inside its time window.
func (a *Auction) BiddableAt(now time.Time) bool {
	return a.Status == AuctionActive && !now.Before(a.StartTime) && now.Before(a.EndTime)
}
