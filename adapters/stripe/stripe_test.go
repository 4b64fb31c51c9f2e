package stripe

import (
	"context"
	"testing"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"

	"github.com/leenicide/bread-made-easy/models"
)

func TestMapIntentStatus(t *testing.T) {
	tests := []struct {
		name   string
		status stripeapi.PaymentIntentStatus
		want   models.PurchaseStatus
	}{
		{
			name:   "succeeded",
			status: stripeapi.PaymentIntentStatusSucceeded,
			want:   models.PurchaseCompleted,
		},
		{
			name:   "processing",
			status: stripeapi.PaymentIntentStatusProcessing,
			want:   models.PurchaseProcessing,
		},
		{
			name:   "canceled",
			status: stripeapi.PaymentIntentStatusCanceled,
			want:   models.PurchaseFailed,
		},
		{
			name:   "requires payment method",
			status: stripeapi.PaymentIntentStatusRequiresPaymentMethod,
			want:   models.PurchasePending,
		},
		{
			name:   "requires capture",
			status: stripeapi.PaymentIntentStatusRequiresCapture,
			want:   models.PurchasePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapIntentStatus(tt.status))
		})
	}
}

func TestCreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	c := NewClient("sk_test_dummy", "whsec_dummy")

	_, err := c.CreateIntent(context.Background(), CreateIntentParams{AmountUSD: 0})
	assert.Error(t, err)

	_, err = c.CreateIntent(context.Background(), CreateIntentParams{AmountUSD: -5})
	assert.Error(t, err)
}
