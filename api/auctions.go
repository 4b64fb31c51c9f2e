package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

type ListAuctionsQuery struct {
	Title        *string    `form:"title"`
	Status       *string    `form:"status"`
	CategoryID   *uuid.UUID `form:"categoryId"`
	PriceFrom    *int64     `form:"priceFrom"`
	PriceTo      *int64     `form:"priceTo"`
	EndFrom      *time.Time `form:"endFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTo        *time.Time `form:"endTo" time_format:"2006-01-02T15:04:05Z07:00"`
	ExcludeEnded bool       `form:"excludeEnded"`
	SortKey      string     `form:"sortKey"`
	SortOrder    string     `form:"sortOrder"`
	LastID       *uuid.UUID `form:"lastAuctionId"`
	Size         int        `form:"size"`
}

type AuctionSummary struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	FunnelID      uuid.UUID            `json:"funnelId"`
	CategoryID    *uuid.UUID           `json:"categoryId,omitempty"`
	Status        models.AuctionStatus `json:"status"`
	StartingPrice int64                `json:"startingPrice"`
	BuyNowPrice   *int64               `json:"buyNowPrice,omitempty"`
	CurrentPrice  int64                `json:"currentPrice"`
	StartTime     time.Time            `json:"startTime"`
	EndTime       time.Time            `json:"endTime"`
	IsEnded       bool                 `json:"isEnded"`
}

type BidRecord struct {
	Bidder   string    `json:"bidder"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placedAt"`
}

type AuctionDetail struct {
	AuctionSummary
	Description string      `json:"description"`
	WinnerID    *uuid.UUID  `json:"winnerId,omitempty"`
	MinimumBid  int64       `json:"minimumBid"`
	BidRecords  []BidRecord `json:"bidRecords"`
}

func summarize(auction *models.Auction, now time.Time) AuctionSummary {
	return AuctionSummary{
		ID:            auction.ID,
		Title:         auction.Title,
		FunnelID:      auction.FunnelID,
		CategoryID:    auction.CategoryID,
		Status:        auction.Status,
		StartingPrice: auction.StartingPrice,
		BuyNowPrice:   auction.BuyNowPrice,
		CurrentPrice:  auction.CurrentPrice(),
		StartTime:     auction.StartTime,
		EndTime:       auction.EndTime,
		IsEnded:       auction.Status == models.AuctionEnded || now.After(auction.EndTime),
	}
}

// ListAuctions serves the public auction catalogue with filtering,
// sorting and cursor pagination.
func (impl *ServerImpl) ListAuctions(c *gin.Context) {
	const op = "ListAuctions"
	var query ListAuctionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortBadRequest(c, "invalid query: "+err.Error())
		return
	}
	params := store.ListAuctionsParams{
		Title:        query.Title,
		CategoryID:   query.CategoryID,
		PriceFrom:    query.PriceFrom,
		PriceTo:      query.PriceTo,
		EndFrom:      query.EndFrom,
		EndTo:        query.EndTo,
		ExcludeEnded: query.ExcludeEnded,
		SortKey:      query.SortKey,
		Desc:         query.SortOrder == "desc",
		LastID:       query.LastID,
		Size:         query.Size,
	}
	if query.Status != nil {
		status := models.AuctionStatus(*query.Status)
		if !status.Valid() {
			abortBadRequest(c, "invalid status")
			return
		}
		params.Status = &status
	}
	auctions, err := impl.store.ListAuctions(c.Request.Context(), params)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	now := time.Now()
	items := make([]AuctionSummary, len(auctions))
	for i := range auctions {
		items[i] = summarize(&auctions[i], now)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// GetAuction serves one auction with its bid history.
func (impl *ServerImpl) GetAuction(c *gin.Context) {
	const op = "GetAuction"
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		abortBadRequest(c, "invalid auction id")
		return
	}
	auction, err := impl.store.GetAuction(c.Request.Context(), auctionID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	records := make([]BidRecord, len(auction.BidRecords))
	for i, bid := range auction.BidRecords {
		records[i] = BidRecord{Amount: bid.Amount, PlacedAt: bid.CreatedAt}
		if bid.Bidder != nil {
			records[i].Bidder = bid.Bidder.Username
		}
	}
	c.JSON(http.StatusOK, AuctionDetail{
		AuctionSummary: summarize(auction, time.Now()),
		Description:    auction.Description,
		WinnerID:       auction.WinnerID,
		MinimumBid:     auction.CurrentPrice() + impl.store.BidIncrement(),
		BidRecords:     records,
	})
}

type CreateAuctionRequest struct {
	FunnelID      uuid.UUID  `json:"funnelId" binding:"required"`
	CategoryID    *uuid.UUID `json:"categoryId"`
	Title         string     `json:"title" binding:"required"`
	Description   *string    `json:"description"`
	StartingPrice *int64     `json:"startingPrice"`
	BuyNowPrice   *int64     `json:"buyNowPrice"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       time.Time  `json:"endTime" binding:"required"`
}

// CreateAuction opens a new draft auction for a funnel. Admin only.
func (impl *ServerImpl) CreateAuction(c *gin.Context) {
	const op = "CreateAuction"
	var request CreateAuctionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if request.StartTime == nil {
		request.StartTime = lo.ToPtr(time.Now())
	}
	if request.StartTime.After(request.EndTime) || request.EndTime.Before(time.Now()) {
		abortBadRequest(c, "Invalid auction time")
		return
	}
	if request.Description == nil {
		request.Description = lo.ToPtr("")
	}
	if request.StartingPrice == nil {
		request.StartingPrice = lo.ToPtr(int64(0))
	}
	createdBy, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	if _, err := impl.store.GetFunnel(c.Request.Context(), request.FunnelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			abortBadRequest(c, "funnel not found")
			return
		}
		abortInternal(c, op, err)
		return
	}
	auction := models.Auction{
		FunnelID:      request.FunnelID,
		CategoryID:    request.CategoryID,
		CreatedByID:   createdBy,
		Title:         request.Title,
		Description:   impl.htmlChecker.Sanitize(*request.Description),
		StartingPrice: *request.StartingPrice,
		BuyNowPrice:   request.BuyNowPrice,
		Status:        models.AuctionDraft,
		StartTime:     *request.StartTime,
		EndTime:       request.EndTime,
	}
	if err := impl.store.CreateAuction(c.Request.Context(), &auction); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Header("Location", auction.ID.String())
	c.JSON(http.StatusCreated, gin.H{"id": auction.ID})
}

type UpdateAuctionRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	CategoryID  *uuid.UUID `json:"categoryId"`
	BuyNowPrice *int64     `json:"buyNowPrice"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

// UpdateAuction patches mutable fields of a draft or active auction.
// Admin only.
func (impl *ServerImpl) UpdateAuction(c *gin.Context) {
	const op = "UpdateAuction"
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		abortBadRequest(c, "invalid auction id")
		return
	}
	var request UpdateAuctionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	auction, err := impl.store.GetAuction(c.Request.Context(), auctionID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	if auction.Status == models.AuctionEnded {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "auction has ended"})
		return
	}
	if request.Title != nil {
		auction.Title = *request.Title
	}
	if request.Description != nil {
		auction.Description = impl.htmlChecker.Sanitize(*request.Description)
	}
	if request.CategoryID != nil {
		auction.CategoryID = request.CategoryID
	}
	if request.BuyNowPrice != nil {
		auction.BuyNowPrice = request.BuyNowPrice
	}
	if request.StartTime != nil {
		auction.StartTime = *request.StartTime
	}
	if request.EndTime != nil {
		auction.EndTime = *request.EndTime
	}
	if auction.StartTime.After(auction.EndTime) {
		abortBadRequest(c, "Invalid auction time")
		return
	}
	if err := impl.store.UpdateAuction(c.Request.Context(), auction); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, summarize(auction, time.Now()))
}

type SetAuctionStatusRequest struct {
	Status models.AuctionStatus `json:"status" binding:"required"`
}

// SetAuctionStatus drives the auction lifecycle. Admin only.
func (impl *ServerImpl) SetAuctionStatus(c *gin.Context) {
	const op = "SetAuctionStatus"
	auctionID, err := uuid.Parse(c.Param("auctionID"))
	if err != nil {
		abortBadRequest(c, "invalid auction id")
		return
	}
	var request SetAuctionStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if !request.Status.Valid() {
		abortBadRequest(c, "invalid status")
		return
	}
	auction, err := impl.store.SetAuctionStatus(c.Request.Context(), auctionID, request.Status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "invalid status transition"})
	case err != nil:
		abortInternal(c, op, err)
	default:
		c.JSON(http.StatusOK, summarize(auction, time.Now()))
	}
}

// ExportAuctions streams every auction as CSV. Admin only.
func (impl *ServerImpl) ExportAuctions(c *gin.Context) {
	const op = "ExportAuctions"
	header := []string{"id", "title", "funnel_id", "status", "starting_price", "current_price", "winner_id", "start_time", "end_time"}
	var rows [][]string
	params := store.ListAuctionsParams{SortKey: "end_time", Size: 100}
	for {
		auctions, err := impl.store.ListAuctions(c.Request.Context(), params)
		if err != nil {
			abortInternal(c, op, err)
			return
		}
		for i := range auctions {
			auction := &auctions[i]
			winner := ""
			if auction.WinnerID != nil {
				winner = auction.WinnerID.String()
			}
			rows = append(rows, []string{
				auction.ID.String(),
				auction.Title,
				auction.FunnelID.String(),
				string(auction.Status),
				strconv.FormatInt(auction.StartingPrice, 10),
				strconv.FormatInt(auction.CurrentPrice(), 10),
				winner,
				auction.StartTime.Format(time.RFC3339),
				auction.EndTime.Format(time.RFC3339),
			})
		}
		if len(auctions) < params.Size {
			break
		}
		params.LastID = lo.ToPtr(auctions[len(auctions)-1].ID)
	}
	if err := writeCSV(c, "auctions.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}
