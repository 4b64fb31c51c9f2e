package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leenicide/bread-made-easy/models"
)

func TestCustomRequestLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	request := models.CustomRequest{
		Name:        "Jordan",
		Email:       "jordan@example.com",
		ProjectType: "webinar",
		Budget:      5000,
		Description: "A funnel for a webinar launch",
	}
	require.NoError(t, s.CreateCustomRequest(ctx, &request))
	assert.Equal(t, models.RequestPending, request.Status)

	// pending -> reviewing -> approved -> in_progress -> completed
	for _, next := range []models.RequestStatus{
		models.RequestReviewing,
		models.RequestApproved,
		models.RequestInProgress,
		models.RequestCompleted,
	} {
		updated, err := s.TransitionCustomRequest(ctx, request.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// Completed is terminal.
	_, err := s.TransitionCustomRequest(ctx, request.ID, models.RequestPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Re-asserting the terminal status stays a no-op.
	updated, err := s.TransitionCustomRequest(ctx, request.ID, models.RequestCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCompleted, updated.Status)
}

func TestCustomRequestListFilter(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	first := models.CustomRequest{Name: "A", Email: "a@example.com"}
	second := models.CustomRequest{Name: "B", Email: "b@example.com"}
	require.NoError(t, s.CreateCustomRequest(ctx, &first))
	require.NoError(t, s.CreateCustomRequest(ctx, &second))
	_, err := s.TransitionCustomRequest(ctx, second.ID, models.RequestRejected)
	require.NoError(t, err)

	pending := models.RequestPending
	requests, err := s.ListCustomRequests(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, first.ID, requests[0].ID)

	requests, err = s.ListCustomRequests(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, requests, 2)
}

func TestLeaseRequest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	leasable := seedFunnel(t, s, 1000, true)
	unleasable := seedFunnel(t, s, 1000, false)

	t.Run("rejects funnels not offered for lease", func(t *testing.T) {
		request := models.LeaseRequest{
			FunnelID:       unleasable.ID,
			Name:           "Sam",
			Email:          "sam@example.com",
			DurationMonths: 6,
		}
		assert.ErrorIs(t, s.CreateLeaseRequest(ctx, &request), ErrNotLeasable)
	})

	t.Run("accepts and transitions", func(t *testing.T) {
		request := models.LeaseRequest{
			FunnelID:       leasable.ID,
			Name:           "Sam",
			Email:          "sam@example.com",
			DurationMonths: 6,
			MonthlyBudget:  200,
		}
		require.NoError(t, s.CreateLeaseRequest(ctx, &request))
		assert.Equal(t, models.RequestPending, request.Status)

		updated, err := s.TransitionLeaseRequest(ctx, request.ID, models.RequestReviewing)
		require.NoError(t, err)
		assert.Equal(t, models.RequestReviewing, updated.Status)

		_, err = s.TransitionLeaseRequest(ctx, request.ID, models.RequestCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}
