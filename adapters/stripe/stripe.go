// Package stripe wraps the Stripe payment intent API. Amounts are
// whole USD everywhere else in the system; conversion to cents happens
// only at this boundary.
package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/leenicide/bread-made-easy/models"
)

const centsPerDollar = 100

// CaptureMode controls when the charged amount actually moves. Bids
// authorize first and capture on settlement; everything else captures
// immediately.
type CaptureMode string

const (
	CaptureAutomatic CaptureMode = "automatic"
	CaptureManual    CaptureMode = "manual"
)

type Client struct {
	sc            *client.API
	webhookSecret string
}

func NewClient(apiKey, webhookSecret string) *Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Client{sc: sc, webhookSecret: webhookSecret}
}

type CreateIntentParams struct {
	AmountUSD   int64
	Currency    string
	CaptureMode CaptureMode
	Metadata    map[string]string
}

// CreateIntent registers a new payment intent and returns it. The
// returned intent carries the client secret the frontend needs to
// confirm the payment.
func (c *Client) CreateIntent(ctx context.Context, p CreateIntentParams) (*stripe.PaymentIntent, error) {
	const op = "stripe.CreateIntent"
	if p.AmountUSD <= 0 {
		return nil, fmt.Errorf("[%s] amount must be positive, got=%d", op, p.AmountUSD)
	}
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	captureMethod := string(stripe.PaymentIntentCaptureMethodAutomatic)
	if p.CaptureMode == CaptureManual {
		captureMethod = string(stripe.PaymentIntentCaptureMethodManual)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(p.AmountUSD * centsPerDollar),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(captureMethod),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := c.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create payment intent, err=%w", op, err)
	}
	return intent, nil
}

func (c *Client) GetIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	const op = "stripe.GetIntent"
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := c.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to get payment intent %s, err=%w", op, id, err)
	}
	return intent, nil
}

// CaptureIntent captures a manually authorized intent, typically the
// winning bid of a settled auction.
func (c *Client) CaptureIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	const op = "stripe.CaptureIntent"
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	intent, err := c.sc.PaymentIntents.Capture(id, params)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to capture payment intent %s, err=%w", op, id, err)
	}
	return intent, nil
}

// CancelIntent voids an uncaptured authorization, releasing the hold on
// a losing bidder's card.
func (c *Client) CancelIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	const op = "stripe.CancelIntent"
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	intent, err := c.sc.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to cancel payment intent %s, err=%w", op, id, err)
	}
	return intent, nil
}

// VerifyWebhook checks the signature header and returns the parsed event.
func (c *Client) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	const op = "stripe.VerifyWebhook"
	event, err := webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("[%s] Fail to verify webhook signature, err=%w", op, err)
	}
	return event, nil
}

// MapIntentStatus folds Stripe's intent statuses into the purchase
// state machine. A failed attempt returns the intent to
// requires_payment_method, which stays pending so the buyer can retry
// in the payment element; only cancellation fails the purchase.
func MapIntentStatus(status stripe.PaymentIntentStatus) models.PurchaseStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PurchaseCompleted
	case stripe.PaymentIntentStatusProcessing:
		return models.PurchaseProcessing
	case stripe.PaymentIntentStatusCanceled:
		return models.PurchaseFailed
	default:
		return models.PurchasePending
	}
}
