package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leenicide/bread-made-easy/models"
)

func TestFindOrCreateBySSOIdentity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	_, err := s.EnsureSsoProvider(ctx, "google")
	require.NoError(t, err)

	created, err := s.FindOrCreateBySSOIdentity(ctx, "google", "sub-1", "Jordan", "jordan@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jordan", created.Username)
	assert.Equal(t, models.RoleUser, created.Role)

	// Same identity resolves to the same account.
	found, err := s.FindOrCreateBySSOIdentity(ctx, "google", "sub-1", "Renamed", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Jordan", found.Username)

	// A different subject is a different account.
	other, err := s.FindOrCreateBySSOIdentity(ctx, "google", "sub-2", "Sam", "sam@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)

	_, err = s.FindOrCreateBySSOIdentity(ctx, "unknown", "sub-1", "X", "x@example.com")
	assert.Error(t, err)
}

func TestEnsureSsoProviderIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	first, err := s.EnsureSsoProvider(ctx, "google")
	require.NoError(t, err)
	second, err := s.EnsureSsoProvider(ctx, "google")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSetUserRole(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "jordan")

	require.NoError(t, s.SetUserRole(ctx, user.ID, models.RoleAdmin))
	reloaded, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)

	assert.ErrorIs(t, s.SetUserRole(ctx, user.ID, models.Role("root")), ErrInvalidTransition)
}

func TestCountImagesSince(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	uploader := seedUser(t, s, "uploader")
	other := seedUser(t, s, "other")

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateImage(ctx, &models.Image{UploaderID: uploader.ID, Url: "https://cdn.example.com/a.png"}))
	}
	require.NoError(t, s.CreateImage(ctx, &models.Image{UploaderID: other.ID, Url: "https://cdn.example.com/b.png"}))

	count, err := s.CountImagesSince(ctx, uploader.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = s.CountImagesSince(ctx, uploader.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)
}
