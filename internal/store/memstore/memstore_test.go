package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiskeyshelf/apiserver/internal/scope"
	"github.com/whiskeyshelf/apiserver/internal/store"
	"github.com/whiskeyshelf/apiserver/types"
)

func TestUserUsernameIsUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Users().Create(ctx, types.User{Username: "alice"})
	require.NoError(t, err)

	_, err = s.Users().Create(ctx, types.User{Username: "alice"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestAssignedOnlyFollowsWhiskeyAssignments(t *testing.T) {
	ctx := context.Background()
	s := New()

	smoky, err := s.Tags().Create(ctx, types.Tag{Name: "Smoky", UserID: 1})
	require.NoError(t, err)
	_, err = s.Tags().Create(ctx, types.Tag{Name: "Fruity", UserID: 1})
	require.NoError(t, err)

	for _, brand := range []string{"Lagavulin", "Ardbeg"} {
		_, err := s.Whiskeys().Create(ctx, types.Whiskey{UserID: 1, Brand: brand, Tags: []types.Tag{smoky}})
		require.NoError(t, err)
	}

	assigned, err := s.Tags().List(ctx, scope.AttributeFilter{OwnerID: 1, AssignedOnly: true})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Smoky", assigned[0].Name)

	all, err := s.Tags().List(ctx, scope.AttributeFilter{OwnerID: 1})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	places, err := s.Places().List(ctx, scope.AttributeFilter{OwnerID: 1, AssignedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestWhiskeyOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	s := New()

	w, err := s.Whiskeys().Create(ctx, types.Whiskey{UserID: 1, Brand: "Lagavulin"})
	require.NoError(t, err)

	_, err = s.Whiskeys().Get(ctx, 2, w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Whiskeys().SetImage(ctx, 2, w.ID, "uploads/whiskey/x.png")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Whiskeys().Update(ctx, types.Whiskey{ID: w.ID, UserID: 2, Brand: "Hijacked"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Whiskeys().Delete(ctx, 2, w.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Whiskeys().Get(ctx, 1, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lagavulin", got.Brand)
}

func TestSetImageReturnsPreviousKey(t *testing.T) {
	ctx := context.Background()
	s := New()

	w, err := s.Whiskeys().Create(ctx, types.Whiskey{UserID: 1, Brand: "Lagavulin"})
	require.NoError(t, err)

	prev, err := s.Whiskeys().SetImage(ctx, 1, w.ID, "a.png")
	require.NoError(t, err)
	assert.Empty(t, prev)

	prev, err = s.Whiskeys().SetImage(ctx, 1, w.ID, "b.png")
	require.NoError(t, err)
	assert.Equal(t, "a.png", prev)

	// Update keeps the stored image.
	updated, err := s.Whiskeys().Update(ctx, types.Whiskey{ID: w.ID, UserID: 1, Brand: "Lagavulin 16"})
	require.NoError(t, err)
	assert.Equal(t, "b.png", updated.Image)
}
