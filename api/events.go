package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/leenicide/bread-made-easy/store"
)

// BidEvent is one entry of an auction's live feed.
type BidEvent struct {
	AuctionID uuid.UUID `json:"auctionId" msgpack:"auctionId"`
	Bidder    string    `json:"bidder" msgpack:"bidder"`
	Amount    int64     `json:"amount" msgpack:"amount"`
	PlacedAt  time.Time `json:"placedAt" msgpack:"placedAt"`
}

// GetAuctionEvents streams bid events for one auction over SSE.
// Connections open five minutes before the start time and are refused
// once the auction has ended.
func (impl *ServerImpl) GetAuctionEvents(c *gin.Context) {
	const op = "GetAuctionEvents"
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
	if time.Now().Before(auction.StartTime.Add(-5 * time.Minute)) {
		c.JSON(http.StatusForbidden, gin.H{"message": lo.ToPtr("Auction has not started")})
		return
	}
	if time.Now().After(auction.EndTime) {
		c.JSON(http.StatusGone, gin.H{"message": lo.ToPtr("Auction has ended")})
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	ch, err := impl.sseManager.Subscribe(auctionID.String())
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	for {
		select {
		case <-w.CloseNotify():
			impl.sseManager.Unsubscribe(auctionID.String(), ch)
			return
		case event := <-ch:
			c.SSEvent("bid", event)
			w.Flush()
		// An empty line every 30 seconds keeps browsers and proxies
		// from dropping the idle connection.
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}
