package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuctionStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    AuctionStatus
		to      AuctionStatus
		allowed bool
	}{
		{"draft to active", AuctionDraft, AuctionActive, true},
		{"active to ended", AuctionActive, AuctionEnded, true},
		{"draft to ended skips activation", AuctionDraft, AuctionEnded, false},
		{"ended is terminal", AuctionEnded, AuctionActive, false},
		{"reasserting current status", AuctionActive, AuctionActive, true},
		{"unknown status", AuctionStatus("archived"), AuctionActive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPurchaseStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    PurchaseStatus
		to      PurchaseStatus
		allowed bool
	}{
		{"pending to processing", PurchasePending, PurchaseProcessing, true},
		{"pending straight to completed", PurchasePending, PurchaseCompleted, true},
		{"pending to failed", PurchasePending, PurchaseFailed, true},
		{"processing to completed", PurchaseProcessing, PurchaseCompleted, true},
		{"completed is terminal", PurchaseCompleted, PurchaseProcessing, false},
		{"failed is terminal", PurchaseFailed, PurchasePending, false},
		{"reasserting current status", PurchaseProcessing, PurchaseProcessing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestPurchaseStatusTerminal(t *testing.T) {
	assert.False(t, PurchasePending.Terminal())
	assert.False(t, PurchaseProcessing.Terminal())
	assert.True(t, PurchaseCompleted.Terminal())
	assert.True(t, PurchaseFailed.Terminal())
}

func TestRequestStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    RequestStatus
		to      RequestStatus
		allowed bool
	}{
		{"pending to reviewing", RequestPending, RequestReviewing, true},
		{"pending to rejected", RequestPending, RequestRejected, true},
		{"pending cannot skip review", RequestPending, RequestApproved, false},
		{"reviewing to approved", RequestReviewing, RequestApproved, true},
		{"approved to in progress", RequestApproved, RequestInProgress, true},
		{"in progress to completed", RequestInProgress, RequestCompleted, true},
		{"rejected is terminal", RequestRejected, RequestReviewing, false},
		{"completed is terminal", RequestCompleted, RequestInProgress, false},
		{"reasserting current status", RequestReviewing, RequestReviewing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("root").Valid())
}
