package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	stripeAdapter "github.com/leenicide/bread-made-easy/adapters/stripe"
	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

// PaymentEvent is one processor notification queued for persistence.
// Status carries the already mapped purchase status.
type PaymentEvent struct {
	EventID    string    `json:"eventId" msgpack:"eventId"`
	Type       string    `json:"type" msgpack:"type"`
	IntentID   string    `json:"intentId" msgpack:"intentId"`
	Status     string    `json:"status" msgpack:"status"`
	OccurredAt time.Time `json:"occurredAt" msgpack:"occurredAt"`
}

type CreatePurchaseRequest struct {
	FunnelID uuid.UUID `json:"funnelId" binding:"required"`
}

type CreatePurchaseResponse struct {
	PurchaseID   uuid.UUID `json:"purchaseId"`
	Amount       int64     `json:"amount"`
	ClientSecret string    `json:"clientSecret"`
}

// CreatePurchase opens a direct funnel purchase at the listed price
// and returns the client secret for the buyer to confirm payment.
func (impl *ServerImpl) CreatePurchase(c *gin.Context) {
	const op = "CreatePurchase"
	var request CreatePurchaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	buyerID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	funnel, err := impl.store.GetFunnel(c.Request.Context(), request.FunnelID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	if !funnel.Active {
		c.JSON(http.StatusConflict, ErrorResponse{Message: "funnel is not for sale"})
		return
	}
	purchase := models.Purchase{
		BuyerID:  buyerID,
		FunnelID: funnel.ID,
		Kind:     models.PurchaseDirect,
		Amount:   funnel.Price,
		Currency: "usd",
		Status:   models.PurchasePending,
	}
	if err := impl.store.CreatePurchase(c.Request.Context(), &purchase); err != nil {
		abortInternal(c, op, err)
		return
	}
	intent, err := impl.payments.CreateIntent(c.Request.Context(), stripeAdapter.CreateIntentParams{
		AmountUSD:   purchase.Amount,
		CaptureMode: stripeAdapter.CaptureAutomatic,
		Metadata: map[string]string{
			"purchase_id": purchase.ID.String(),
			"funnel_id":   funnel.ID.String(),
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
	c.JSON(http.StatusCreated, CreatePurchaseResponse{
		PurchaseID:   purchase.ID,
		Amount:       purchase.Amount,
		ClientSecret: intent.ClientSecret,
	})
}

// ListMyPurchases lists the caller's purchases.
func (impl *ServerImpl) ListMyPurchases(c *gin.Context) {
	const op = "ListMyPurchases"
	buyerID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	purchases, err := impl.store.ListPurchases(c.Request.Context(), store.ListPurchasesParams{BuyerID: &buyerID})
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(purchases), "items": purchases})
}

// GetPurchase serves one purchase to its buyer or an admin.
func (impl *ServerImpl) GetPurchase(c *gin.Context) {
	const op = "GetPurchase"
	purchaseID, err := uuid.Parse(c.Param("purchaseID"))
	if err != nil {
		abortBadRequest(c, "invalid purchase id")
		return
	}
	purchase, err := impl.store.GetPurchase(c.Request.Context(), purchaseID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	claims := CurrentClaims(c)
	buyerID, _ := currentUserID(c)
	if purchase.BuyerID != buyerID && (claims == nil || claims.Role != models.RoleAdmin) {
		c.Status(http.StatusForbidden)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// VerifyPurchase re-checks a pending purchase against the processor on
// demand, so buyers are not stuck waiting for a webhook.
func (impl *ServerImpl) VerifyPurchase(c *gin.Context) {
	const op = "VerifyPurchase"
	purchaseID, err := uuid.Parse(c.Param("purchaseID"))
	if err != nil {
		abortBadRequest(c, "invalid purchase id")
		return
	}
	purchase, err := impl.store.GetPurchase(c.Request.Context(), purchaseID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	buyerID, _ := currentUserID(c)
	claims := CurrentClaims(c)
	if purchase.BuyerID != buyerID && (claims == nil || claims.Role != models.RoleAdmin) {
		c.Status(http.StatusForbidden)
		return
	}
	if purchase.Status.Terminal() || purchase.PaymentIntentID == "" {
		c.JSON(http.StatusOK, purchase)
		return
	}
	intent, err := impl.payments.GetIntent(c.Request.Context(), purchase.PaymentIntentID)
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to fetch intent, err=%w", err))
		return
	}
	next := stripeAdapter.MapIntentStatus(intent.Status)
	if next == purchase.Status {
		c.JSON(http.StatusOK, purchase)
		return
	}
	updated, err := impl.store.TransitionPurchaseByIntent(c.Request.Context(), purchase.PaymentIntentID, next)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// StripeWebhook verifies a processor notification, deduplicates it and
// queues it on the payment stream. Persistence happens in the payment
// synchronization worker so delivery is acknowledged fast.
func (impl *ServerImpl) StripeWebhook(c *gin.Context) {
	const op = "StripeWebhook"
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortBadRequest(c, "fail to read payload")
		return
	}
	event, err := impl.payments.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		slog.Warn("Reject webhook with bad signature", slog.String("op", op), slog.Any("error", err))
		c.Status(http.StatusBadRequest)
		return
	}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.processing", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		// Unhandled event types are acknowledged without processing.
		c.Status(http.StatusOK)
		return
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		abortBadRequest(c, "fail to parse event payload")
		return
	}
	err = impl.store.MarkWebhookEvent(c.Request.Context(), event.ID, string(event.Type))
	if errors.Is(err, store.ErrDuplicateEvent) {
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	paymentEvent := PaymentEvent{
		EventID:    event.ID,
		Type:       string(event.Type),
		IntentID:   intent.ID,
		Status:     string(stripeAdapter.MapIntentStatus(intent.Status)),
		OccurredAt: time.Unix(event.Created, 0),
	}
	if err := impl.paymentProducer.Publish(paymentEvent); err != nil {
		abortInternal(c, op, fmt.Errorf("fail to queue payment event, err=%w", err))
		return
	}
	c.Status(http.StatusOK)
}

type ListPurchasesQuery struct {
	Status  *string    `form:"status"`
	Kind    *string    `form:"kind"`
	BuyerID *uuid.UUID `form:"buyerId"`
}

// ListPurchases serves the full purchase ledger. Admin only.
func (impl *ServerImpl) ListPurchases(c *gin.Context) {
	const op = "ListPurchases"
	var query ListPurchasesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortBadRequest(c, "invalid query: "+err.Error())
		return
	}
	params := store.ListPurchasesParams{BuyerID: query.BuyerID}
	if query.Status != nil {
		status := models.PurchaseStatus(*query.Status)
		if !status.Valid() {
			abortBadRequest(c, "invalid status")
			return
		}
		params.Status = &status
	}
	if query.Kind != nil {
		kind := models.PurchaseKind(*query.Kind)
		if !kind.Valid() {
			abortBadRequest(c, "invalid kind")
			return
		}
		params.Kind = &kind
	}
	purchases, err := impl.store.ListPurchases(c.Request.Context(), params)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(purchases), "items": purchases})
}

// ExportPurchases streams the purchase ledger as CSV. Admin only.
func (impl *ServerImpl) ExportPurchases(c *gin.Context) {
	const op = "ExportPurchases"
	purchases, err := impl.store.ListPurchases(c.Request.Context(), store.ListPurchasesParams{})
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	header := []string{"id", "buyer_id", "funnel_id", "kind", "amount", "currency", "status", "payment_intent_id", "created_at"}
	rows := make([][]string, len(purchases))
	for i, purchase := range purchases {
		rows[i] = []string{
			purchase.ID.String(),
			purchase.BuyerID.String(),
			purchase.FunnelID.String(),
			string(purchase.Kind),
			strconv.FormatInt(purchase.Amount, 10),
			purchase.Currency,
			string(purchase.Status),
			purchase.PaymentIntentID,
			purchase.CreatedAt.Format(time.RFC3339),
		}
	}
	if err := writeCSV(c, "purchases.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}
