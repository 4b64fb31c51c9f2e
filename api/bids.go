package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	redisAdapter "github.com/leenicide/bread-made-easy/adapters/redis"
	stripeAdapter "github.com/leenicide/bread-made-easy/adapters/stripe"
	"github.com/leenicide/bread-made-easy/store"
)

type PlaceBidRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type PlaceBidResponse struct {
	BidID        uuid.UUID `json:"bidId"`
	CurrentPrice int64     `json:"currentPrice"`
	ClientSecret string    `json:"clientSecret"`
}

// PlaceBid authorizes the bid amount on the bidder's card, then
// records the bid. The authorization is only captured if the bid wins;
// losing authorizations are released at settlement.
func (impl *ServerImpl) PlaceBid(c *gin.Context) {
	const op = "PlaceBid"
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		abortBadRequest(c, "invalid auction id")
		return
	}
	var request PlaceBidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	bidderID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	claims := CurrentClaims(c)

	// Serialize bids per auction so the increment check and the insert
	// act on the same current price.
	lockKey := fmt.Sprintf("%sauction:%s:lock", impl.config.Redis.KeyPrefix, auctionID)
	dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey)
	lockCtx, err := dMutex.Lock(c.Request.Context())
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to acquire bid lock, err=%w", err))
		return
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			slog.Warn("Fail to release bid lock", slog.String("op", op), slog.Any("error", err))
		}
	}()

	intent, err := impl.payments.CreateIntent(lockCtx, stripeAdapter.CreateIntentParams{
		AmountUSD:   request.Amount,
		CaptureMode: stripeAdapter.CaptureManual,
		Metadata: map[string]string{
			"auction_id": auctionID.String(),
			"bidder_id":  bidderID.String(),
		},
	})
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to authorize bid, err=%w", err))
		return
	}

	auction, bid, err := impl.store.PlaceBid(lockCtx, auctionID, bidderID, request.Amount, intent.ID)
	if err != nil {
		if _, cancelErr := impl.payments.CancelIntent(lockCtx, intent.ID); cancelErr != nil {
			slog.Warn("Fail to release rejected bid authorization", slog.String("op", op), slog.Any("error", cancelErr))
		}
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, store.ErrAuctionNotStarted):
			c.JSON(http.StatusForbidden, ErrorResponse{Message: "auction has not started"})
		case errors.Is(err, store.ErrAuctionEnded):
			c.JSON(http.StatusGone, ErrorResponse{Message: "auction has ended"})
		case errors.Is(err, store.ErrAuctionNotActive):
			c.JSON(http.StatusConflict, ErrorResponse{Message: "auction is not active"})
		case errors.Is(err, store.ErrBidTooLow):
			abortBadRequest(c, fmt.Sprintf("bid must be at least %d above the current price", impl.store.BidIncrement()))
		case errors.Is(err, store.ErrBidConflict):
			c.JSON(http.StatusConflict, ErrorResponse{Message: "another bid was placed first"})
		default:
			abortInternal(c, op, err)
		}
		return
	}

	slog.Info("Higher bid occurs", slog.String("user", bidderID.String()), slog.Int64("bid", request.Amount), slog.String("auctionID", auctionID.String()))
	event := BidEvent{
		AuctionID: auctionID,
		Bidder:    claims.Username,
		Amount:    bid.Amount,
		PlacedAt:  time.Now(),
	}
	if err := impl.sseManager.Publish(auctionID.String(), event); err != nil {
		slog.Warn("Fail to publish bid event", slog.String("op", op), slog.Any("error", err))
	}
	c.JSON(http.StatusOK, PlaceBidResponse{
		BidID:        bid.ID,
		CurrentPrice: auction.CurrentPrice(),
		ClientSecret: intent.ClientSecret,
	})
}

type BuyNowResponse struct {
	PurchaseID   uuid.UUID `json:"purchaseId"`
	Amount       int64     `json:"amount"`
	ClientSecret string    `json:"clientSecret"`
}

// BuyNow ends the auction immediately at its buy now price and opens a
// purchase for the buyer to pay.
func (impl *ServerImpl) BuyNow(c *gin.Context) {
	const op = "BuyNow"
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		abortBadRequest(c, "invalid auction id")
		return
	}
	buyerID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	purchase, err := impl.store.BuyNow(c.Request.Context(), auctionID, buyerID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.Status(http.StatusNotFound)
		case errors.Is(err, store.ErrNoBuyNow):
			abortBadRequest(c, "auction has no buy now price")
		case errors.Is(err, store.ErrAuctionNotStarted):
			c.JSON(http.StatusForbidden, ErrorResponse{Message: "auction has not started"})
		case errors.Is(err, store.ErrAuctionEnded):
			c.JSON(http.StatusGone, ErrorResponse{Message: "auction has ended"})
		case errors.Is(err, store.ErrAuctionNotActive):
			c.JSON(http.StatusConflict, ErrorResponse{Message: "auction is not active"})
		default:
			abortInternal(c, op, err)
		}
		return
	}
	intent, err := impl.payments.CreateIntent(c.Request.Context(), stripeAdapter.CreateIntentParams{
		AmountUSD:   purchase.Amount,
		CaptureMode: stripeAdapter.CaptureAutomatic,
		Metadata: map[string]string{
			"purchase_id": purchase.ID.String(),
			"auction_id":  auctionID.String(),
		},
	})
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to create payment intent, err=%w", err))
		return
	}
	if err := impl.store.AttachPaymentIntent(c.Request.Context(), purchase.ID, intent.ID); err != nil {
		abortInternal(c, op, err)
		return
	}
	slog.Info("Buy now accepted", slog.String("user", buyerID.String()), slog.String("auctionID", auctionID.String()), slog.Int64("amount", purchase.Amount))
	c.JSON(http.StatusCreated, BuyNowResponse{
		PurchaseID:   purchase.ID,
		Amount:       purchase.Amount,
		ClientSecret: intent.ClientSecret,
	})
}
