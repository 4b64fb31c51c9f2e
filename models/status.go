package models

// Status values are persisted as plain text columns but are only ever
// mutated through the transition tables below. Writing the current
// value again is always allowed and treated as a no-op by the store.

type AuctionStatus string

const (
	AuctionDraft  AuctionStatus = "draft"
	AuctionActive AuctionStatus = "active"
	AuctionEnded  AuctionStatus = "ended"
)

var auctionTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionDraft:  {AuctionActive},
	AuctionActive: {AuctionEnded},
	AuctionEnded:  {},
}

func (s AuctionStatus) Valid() bool {
	_, ok := auctionTransitions[s]
	return ok
}

// CanTransition reports whether moving to next is legal. Re-asserting
// the current status is legal and idempotent.
func (s AuctionStatus) CanTransition(next AuctionStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range auctionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PurchaseStatus string

const (
	PurchasePending    PurchaseStatus = "pending"
	PurchaseProcessing PurchaseStatus = "processing"
	PurchaseCompleted  PurchaseStatus = "completed"
	PurchaseFailed     PurchaseStatus = "failed"
)

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchasePending:    {PurchaseProcessing, PurchaseCompleted, PurchaseFailed},
	PurchaseProcessing: {PurchaseCompleted, PurchaseFailed},
	PurchaseCompleted:  {},
	PurchaseFailed:     {},
}

func (s PurchaseStatus) Valid() bool {
	_, ok := purchaseTransitions[s]
	return ok
}

func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseCompleted || s == PurchaseFailed
}

func (s PurchaseStatus) CanTransition(next PurchaseStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range purchaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RequestStatus is shared by custom build requests and lease requests.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestReviewing  RequestStatus = "reviewing"
	RequestApproved   RequestStatus = "approved"
	RequestRejected   RequestStatus = "rejected"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestReviewing, RequestRejected},
	RequestReviewing:  {RequestApproved, RequestRejected},
	RequestApproved:   {RequestInProgress},
	RequestInProgress: {RequestCompleted},
	RequestRejected:   {},
	RequestCompleted:  {},
}

func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// PurchaseKind records how a purchase came to exist.
type PurchaseKind string

const (
	PurchaseAuctionWin PurchaseKind = "auction_win"
	PurchaseBuyNow     PurchaseKind = "buy_now"
	PurchaseDirect     PurchaseKind = "direct"
)

func (k PurchaseKind) Valid() bool {
	return k == PurchaseAuctionWin || k == PurchaseBuyNow || k == PurchaseDirect
}
