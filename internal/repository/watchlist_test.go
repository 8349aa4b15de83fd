package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/movienest/internal/model"
)

func TestWatchlistRepository_AddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	u, err := NewUserRepository(db).Create("alice", "secret1", model.RoleUser, true)
	require.NoError(t, err)
	repo := NewWatchlistRepository(db)

	poster := "/poster.jpg"
	first, err := repo.Add(&model.WatchlistEntry{UserID: u.ID, MovieID: 603, MovieTitle: "The Matrix", PosterPath: &poster})
	require.NoError(t, err)
	second, err := repo.Add(&model.WatchlistEntry{UserID: u.ID, MovieID: 603, MovieTitle: "The Matrix"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.PosterPath)
	assert.Equal(t, poster, *second.PosterPath)

	entries, err := repo.ListByUser(u.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWatchlistRepository_ListNewestFirstAndRemove(t *testing.T) {
	db := newTestDB(t)
	u, err := NewUserRepository(db).Create("alice", "secret1", model.RoleUser, true)
	require.NoError(t, err)
	repo := NewWatchlistRepository(db)

	for _, id := range []int{1, 2, 3} {
		_, err := repo.Add(&model.WatchlistEntry{UserID: u.ID, MovieID: id, MovieTitle: "m"})
		require.NoError(t, err)
	}

	entries, err := repo.ListByUser(u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[0].MovieID)

	n, err := repo.Remove(u.ID, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := repo.Contains(u.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = repo.Remove(u.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, n)
}
