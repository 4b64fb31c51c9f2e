package store

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leenicide/bread-made-easy/models"
)

func TestFunnelCRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	funnel := seedFunnel(t, s, 1500, true)

	got, err := s.GetFunnel(ctx, funnel.ID)
	require.NoError(t, err)
	assert.Equal(t, funnel.Title, got.Title)

	got.Price = 2000
	got.Active = false
	require.NoError(t, s.UpdateFunnel(ctx, got))
	reloaded, err := s.GetFunnel(ctx, funnel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), reloaded.Price)
	assert.False(t, reloaded.Active)

	require.NoError(t, s.DeleteFunnel(ctx, funnel.ID))
	_, err = s.GetFunnel(ctx, funnel.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteFunnel(ctx, funnel.ID), ErrNotFound)
}

func TestListFunnels(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	category := models.Category{Name: "Webinars", Slug: "webinars"}
	require.NoError(t, s.CreateCategory(ctx, &category))

	visible := seedFunnel(t, s, 1000, true)
	hidden := seedFunnel(t, s, 1000, false)
	hidden.Active = false
	require.NoError(t, s.UpdateFunnel(ctx, hidden))

	categorized := models.Funnel{Title: "Webinar Pro", Description: "x", Price: 900, CategoryID: &category.ID, Active: true}
	require.NoError(t, s.CreateFunnel(ctx, &categorized))

	t.Run("active only hides inactive funnels", func(t *testing.T) {
		funnels, err := s.ListFunnels(ctx, ListFunnelsParams{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, funnels, 2)
	})

	t.Run("everything for admins", func(t *testing.T) {
		funnels, err := s.ListFunnels(ctx, ListFunnelsParams{})
		require.NoError(t, err)
		assert.Len(t, funnels, 3)
	})

	t.Run("filter by category", func(t *testing.T) {
		funnels, err := s.ListFunnels(ctx, ListFunnelsParams{CategoryID: &category.ID})
		require.NoError(t, err)
		require.Len(t, funnels, 1)
		assert.Equal(t, categorized.ID, funnels[0].ID)
	})

	t.Run("filter by lease availability", func(t *testing.T) {
		funnels, err := s.ListFunnels(ctx, ListFunnelsParams{LeaseAvailable: lo.ToPtr(true), ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, funnels, 1)
		assert.Equal(t, visible.ID, funnels[0].ID)
	})
}

func TestCreateCategoryDuplicate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCategory(ctx, &models.Category{Name: "Webinars", Slug: "webinars"}))
	assert.Error(t, s.CreateCategory(ctx, &models.Category{Name: "Webinars", Slug: "webinars"}))
}
