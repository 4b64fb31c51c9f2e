package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leenicide/bread-made-easy/models"
)

// GetAuction returns one auction with its bid history, newest bid
// first.
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	const op = "GetAuction"
	auction := models.Auction{ID: id}
	result := s.db.WithContext(ctx).
		Preload("BidRecords", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
		}).
		Preload("BidRecords.Bidder").
		Preload("CurrentBid.Bidder").
		Preload("Funnel").
		Preload("Category").
		First(&auction)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find auction, err=%w", op, result.Error)
	}
	return &auction, nil
}

// ListAuctionsParams mirrors the public listing filters. LastID is a
// cursor: results continue after the referenced auction under the
// current sort.
type ListAuctionsParams struct {
	Title        *string
	Status       *models.AuctionStatus
	CategoryID   *uuid.UUID
	PriceFrom    *int64
	PriceTo      *int64
	EndFrom      *time.Time
	EndTo        *time.Time
	ExcludeEnded bool
	SortKey      string
	Desc         bool
	LastID       *uuid.UUID
	Size         int
}

var auctionSortColumns = map[string]string{
	"title":          "title",
	"start_time":     "start_time",
	"end_time":       "end_time",
	"starting_price": "starting_price",
}

// ListAuctions applies filters, sorting and cursor pagination over
// auctions. The current price lives on a joined bid row, so price
// filters fall back to the starting price when nobody has bid.
func (s *Store) ListAuctions(ctx context.Context, params ListAuctionsParams) ([]models.Auction, error) {
	const op = "ListAuctions"
	now := time.Now()
	query := s.db.WithContext(ctx).Joins("CurrentBid").Model(&models.Auction{})
	if params.Title != nil {
		query = query.Where("auctions.title LIKE ?", "%"+*params.Title+"%")
	}
	if params.Status != nil {
		query = query.Where("auctions.status = ?", *params.Status)
	}
	if params.CategoryID != nil {
		query = query.Where("auctions.category_id = ?", *params.CategoryID)
	}
	if params.PriceFrom != nil {
		query = query.Where(`"CurrentBid".amount >= ? OR current_bid_id IS NULL AND starting_price >= ?`, *params.PriceFrom, *params.PriceFrom)
	}
	if params.PriceTo != nil {
		query = query.Where(`"CurrentBid".amount <= ? OR current_bid_id IS NULL AND starting_price <= ?`, *params.PriceTo, *params.PriceTo)
	}
	if params.EndFrom != nil {
		query = query.Where("auctions.end_time >= ?", *params.EndFrom)
	}
	if params.EndTo != nil {
		query = query.Where("auctions.end_time <= ?", *params.EndTo)
	}
	if params.ExcludeEnded {
		query = query.Where("auctions.end_time > ? AND auctions.status <> ?", now, models.AuctionEnded)
	}

	sortKey, ok := auctionSortColumns[params.SortKey]
	if params.SortKey == "" {
		sortKey = "end_time"
	} else if !ok {
		return nil, fmt.Errorf("[%s] Invalid sort key: %s", op, params.SortKey)
	}
	query = query.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: "auctions", Name: sortKey}, Desc: params.Desc},
		{Column: clause.Column{Table: "auctions", Name: "id"}, Desc: false},
	}})

	if params.LastID != nil {
		var cursor string
		result := s.db.WithContext(ctx).Model(&models.Auction{}).Select(sortKey).Where("id = ?", *params.LastID).First(&cursor)
		if result.Error != nil {
			if translateNotFound(result.Error) == ErrNotFound {
				return nil, fmt.Errorf("[%s] Cursor item not found, err=%w", op, ErrNotFound)
			}
			return nil, fmt.Errorf("[%s] Fail to resolve cursor, err=%w", op, result.Error)
		}
		cmp := ">"
		if params.Desc {
			cmp = "<"
		}
		query = query.Where(
			fmt.Sprintf("auctions.%s %s ? OR auctions.%s = ? AND auctions.id > ?", sortKey, cmp, sortKey),
			cursor, cursor, *params.LastID,
		)
	}

	size := params.Size
	if size <= 0 || size > 100 {
		size = 20
	}
	query = query.Limit(size)

	var auctions []models.Auction
	if result := query.Find(&auctions); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list auctions, err=%w", op, result.Error)
	}
	return auctions, nil
}

// CreateAuction stores a new auction in draft or active state.
func (s *Store) CreateAuction(ctx context.Context, auction *models.Auction) error {
	const op = "CreateAuction"
	if !auction.Status.Valid() {
		return fmt.Errorf("[%s] %w: %q", op, ErrInvalidTransition, auction.Status)
	}
	if result := s.db.WithContext(ctx).Create(auction); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create auction, err=%w", op, result.Error)
	}
	return nil
}

// UpdateAuction writes back the mutable columns of an auction. Price,
// status and bid bookkeeping move through their dedicated operations.
func (s *Store) UpdateAuction(ctx context.Context, auction *models.Auction) error {
	const op = "UpdateAuction"
	result := s.db.WithContext(ctx).Model(&models.Auction{ID: auction.ID}).
		Select("title", "description", "category_id", "buy_now_price", "start_time", "end_time").
		Updates(auction)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update auction, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAuctionStatus moves an auction along its lifecycle, rejecting
// transitions that are not in the table. Re-asserting the current
// status is a no-op.
func (s *Store) SetAuctionStatus(ctx context.Context, id uuid.UUID, next models.AuctionStatus) (*models.Auction, error) {
	const op = "SetAuctionStatus"
	var auction models.Auction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction = models.Auction{ID: id}
		if result := tx.First(&auction); result.Error != nil {
			return translateNotFound(result.Error)
		}
		if auction.Status == next {
			return nil
		}
		if !auction.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, auction.Status, next)
		}
		auction.Status = next
		if result := tx.Model(&models.Auction{ID: id}).Update("status", next); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("[%s] Fail to set auction status, err=%w", op, err)
	}
	return &auction, nil
}

// PlaceBid validates and records a bid inside one transaction. The
// current price is read, the bid row inserted, and the auction's
// current_bid_id advanced with a compare-and-set against the value
// read; losing the race rolls the whole bid back with ErrBidConflict
// instead of persisting an out-of-order bid.
func (s *Store) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount int64, paymentIntentID string) (*models.Auction, *models.Bid, error) {
	const op = "PlaceBid"
	var (
		auction models.Auction
		bid     models.Bid
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction = models.Auction{ID: auctionID}
		if result := tx.Preload("CurrentBid").First(&auction); result.Error != nil {
			return translateNotFound(result.Error)
		}
		now := time.Now()
		if auction.Status == models.AuctionEnded || now.After(auction.EndTime) {
			return ErrAuctionEnded
		}
		if auction.Status != models.AuctionActive {
			return ErrAuctionNotActive
		}
		if now.Before(auction.StartTime) {
			return ErrAuctionNotStarted
		}
		minimum := auction.CurrentPrice() + s.bidIncrement
		if amount < minimum {
			return fmt.Errorf("%w: minimum bid is %d", ErrBidTooLow, minimum)
		}

		bid = models.Bid{
			AuctionID:       auctionID,
			BidderID:        bidderID,
			Amount:          amount,
			PaymentIntentID: paymentIntentID,
		}
		if result := tx.Create(&bid); result.Error != nil {
			return result.Error
		}

		// Conditional write: only claim the top spot if nobody moved it
		// since the read above.
		guard := tx.Model(&models.Auction{}).Where("id = ?", auctionID)
		if auction.CurrentBidID == nil {
			guard = guard.Where("current_bid_id IS NULL")
		} else {
			guard = guard.Where("current_bid_id = ?", *auction.CurrentBidID)
		}
		result := guard.Update("current_bid_id", bid.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBidConflict
		}
		auction.CurrentBidID = &bid.ID
		auction.CurrentBid = &bid
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || isDomainErr(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err)
	}
	return &auction, &bid, nil
}

// BuyNow short-circuits an active auction at its buy-now price: the
// auction ends immediately with the buyer as winner and a pending
// purchase is opened. No bid row is written.
func (s *Store) BuyNow(ctx context.Context, auctionID, buyerID uuid.UUID) (*models.Purchase, error) {
	const op = "BuyNow"
	var purchase models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction := models.Auction{ID: auctionID}
		if result := tx.First(&auction); result.Error != nil {
			return translateNotFound(result.Error)
		}
		if auction.BuyNowPrice == nil {
			return ErrNoBuyNow
		}
		now := time.Now()
		if auction.Status == models.AuctionEnded || now.After(auction.EndTime) {
			return ErrAuctionEnded
		}
		if auction.Status != models.AuctionActive {
			return ErrAuctionNotActive
		}
		if now.Before(auction.StartTime) {
			return ErrAuctionNotStarted
		}

		// Compare-and-set on status so two simultaneous buyers cannot
		// both win.
		result := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ?", auctionID, models.AuctionActive).
			Updates(map[string]any{"status": models.AuctionEnded, "winner_id": buyerID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAuctionEnded
		}

		purchase = models.Purchase{
			BuyerID:   buyerID,
			FunnelID:  auction.FunnelID,
			AuctionID: &auction.ID,
			Kind:      models.PurchaseBuyNow,
			Amount:    *auction.BuyNowPrice,
			Currency:  "usd",
			Status:    models.PurchasePending,
		}
		if result := tx.Create(&purchase); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("[%s] Fail to buy now, err=%w", op, err)
	}
	return &purchase, nil
}

// Settlement describes one auction closed by the settlement sweep.
type Settlement struct {
	AuctionID uuid.UUID
	WinnerID  *uuid.UUID
	Amount    int64
	Purchase  *models.Purchase
}

// SettleExpired closes every active auction whose end time has passed:
// status moves to ended, the winner is taken from the current bid, and
// a pending auction-win purchase is opened when there is one.
func (s *Store) SettleExpired(ctx context.Context, now time.Time) ([]Settlement, error) {
	const op = "SettleExpired"
	var expired []models.Auction
	result := s.db.WithContext(ctx).
		Preload("CurrentBid").
		Where("status = ? AND end_time <= ?", models.AuctionActive, now).
		Find(&expired)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to find expired auctions, err=%w", op, result.Error)
	}

	settlements := make([]Settlement, 0, len(expired))
	for i := range expired {
		auction := &expired[i]
		settlement := Settlement{AuctionID: auction.ID, Amount: auction.CurrentPrice()}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			updates := map[string]any{"status": models.AuctionEnded}
			if auction.CurrentBid != nil {
				updates["winner_id"] = auction.CurrentBid.BidderID
				settlement.WinnerID = &auction.CurrentBid.BidderID
			}
			result := tx.Model(&models.Auction{}).
				Where("id = ? AND status = ?", auction.ID, models.AuctionActive).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// Raced with buy-now or another sweeper.
				return ErrAuctionEnded
			}
			if auction.CurrentBid == nil {
				return nil
			}
			purchase := models.Purchase{
				BuyerID:         auction.CurrentBid.BidderID,
				FunnelID:        auction.FunnelID,
				AuctionID:       &auction.ID,
				Kind:            models.PurchaseAuctionWin,
				Amount:          auction.CurrentBid.Amount,
				Currency:        "usd",
				Status:          models.PurchasePending,
				PaymentIntentID: auction.CurrentBid.PaymentIntentID,
			}
			if result := tx.Create(&purchase); result.Error != nil {
				return result.Error
			}
			settlement.Purchase = &purchase
			return nil
		})
		if errors.Is(err, ErrAuctionEnded) {
			continue
		}
		if err != nil {
			return settlements, fmt.Errorf("[%s] Fail to settle auction %s, err=%w", op, auction.ID, err)
		}
		settlements = append(settlements, settlement)
	}
	return settlements, nil
}

// isDomainErr reports whether err is one of the sentinel failures the
// caller branches on, as opposed to an internal database error.
func isDomainErr(err error) bool {
	for _, sentinel := range []error{
		ErrBidTooLow, ErrBidConflict, ErrAuctionNotActive,
		ErrAuctionNotStarted, ErrAuctionEnded, ErrNoBuyNow,
		ErrInvalidTransition, ErrDuplicateEvent,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
