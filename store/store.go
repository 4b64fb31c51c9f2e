// Package store is the single data-access layer of the marketplace.
// Handlers never touch gorm directly; every entity has exactly one
// canonical access path here.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// Failures callers are expected to branch on. Everything else is an
// internal error wrapped with the operation name.
var (
	ErrNotFound          = errors.New("record not found")
	ErrBidTooLow         = errors.New("bid amount too low")
	ErrBidConflict       = errors.New("bid lost race with a concurrent bid")
	ErrAuctionNotActive  = errors.New("auction is not active")
	ErrAuctionNotStarted = errors.New("auction has not started")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrNoBuyNow          = errors.New("auction has no buy-now price")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotLeasable       = errors.New("funnel is not available for lease")
	ErrDuplicateEvent    = errors.New("event already processed")
)

const DefaultBidIncrement = 25

type Store struct {
	db           *gorm.DB
	bidIncrement int64
}

type Option func(*Store)

// WithBidIncrement overrides the flat minimum bid increment.
func WithBidIncrement(increment int64) Option {
	return func(s *Store) {
		if increment > 0 {
			s.bidIncrement = increment
		}
	}
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:           db,
		bidIncrement: DefaultBidIncrement,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BidIncrement returns the flat amount a new bid must clear the
// current price by.
func (s *Store) BidIncrement() int64 {
	return s.bidIncrement
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
