package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/source"
)

func TestSourceRepo_FavoriteCRUD(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	src := &models.FavoriteSource{FID: 42, Path: "favs"}
	require.NoError(t, repo.CreateFavorite(ctx, src))

	got, err := repo.GetFavorite(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "favs", got.Path)
	assert.True(t, got.LatestRowAt.Equal(models.EpochZero()))

	got.Path = "favs/updated"
	got.Enabled = models.BoolPtr(false)
	require.NoError(t, repo.UpdateFavorite(ctx, got))

	got, err = repo.GetFavorite(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "favs/updated", got.Path)
	assert.False(t, models.BoolVal(got.Enabled))

	require.NoError(t, repo.DeleteFavorite(ctx, 42))
	_, err = repo.GetFavorite(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteFavorite(ctx, 42), ErrNotFound)
}

func TestSourceRepo_CollectionCompositeKey(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	season := &models.CollectionSource{SID: 1, MID: 2, Kind: models.CollectionKindSeason, Path: "c1"}
	series := &models.CollectionSource{SID: 1, MID: 2, Kind: models.CollectionKindSeries, Path: "c2"}
	require.NoError(t, repo.CreateCollection(ctx, season))
	require.NoError(t, repo.CreateCollection(ctx, series))

	got, err := repo.GetCollection(ctx, 1, 2, models.CollectionKindSeries)
	require.NoError(t, err)
	assert.Equal(t, "c2", got.Path)

	all, err := repo.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteCollection(ctx, 1, 2, models.CollectionKindSeason))
	all, err = repo.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.CollectionKindSeries, all[0].Kind)
}

func TestSourceRepo_SetWatchLaterPreservesWatermark(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SetWatchLater(ctx, &models.WatchLaterSource{Path: "later"}))

	mark := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.WatchLaterSource{}).
		Where("id = ?", models.WatchLaterID).
		Update("latest_row_at", mark).Error)

	// Reconfiguring the path must not reset the watermark.
	require.NoError(t, repo.SetWatchLater(ctx, &models.WatchLaterSource{Path: "later/moved"}))

	got, err := repo.GetWatchLater(ctx)
	require.NoError(t, err)
	assert.Equal(t, "later/moved", got.Path)
	assert.True(t, got.LatestRowAt.Equal(mark))
}

func TestSourceRepo_UpdateName(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	fav := &models.FavoriteSource{FID: 42, Path: "favs"}
	require.NoError(t, repo.CreateFavorite(ctx, fav))

	adapter := source.NewFavorite(fav)
	require.NoError(t, repo.UpdateName(ctx, adapter, "holiday clips"))

	got, err := repo.GetFavorite(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "holiday clips", got.Name)

	// Watch-later has no remote name; updating it is a no-op.
	require.NoError(t, repo.SetWatchLater(ctx, &models.WatchLaterSource{Path: "later"}))
	wl, err := repo.GetWatchLater(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateName(ctx, source.NewWatchLater(wl), "ignored"))
}

func TestSourceRepo_LoadEnabled(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateFavorite(ctx, &models.FavoriteSource{FID: 42, Path: "favs"}))
	require.NoError(t, repo.CreateFavorite(ctx, &models.FavoriteSource{
		FID: 43, Path: "disabled", Enabled: models.BoolPtr(false),
	}))
	require.NoError(t, repo.CreateCollection(ctx, &models.CollectionSource{
		SID: 1, MID: 2, Kind: models.CollectionKindSeason, Path: "c",
	}))
	require.NoError(t, repo.CreateSubmission(ctx, &models.SubmissionSource{MID: 7, Path: "subs"}))
	require.NoError(t, repo.SetWatchLater(ctx, &models.WatchLaterSource{Path: "later"}))

	sources, err := repo.LoadEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 4)

	types := make([]models.SourceType, 0, len(sources))
	for _, s := range sources {
		types = append(types, s.Type())
	}
	assert.Equal(t, []models.SourceType{
		models.SourceTypeFavorite,
		models.SourceTypeCollection,
		models.SourceTypeSubmission,
		models.SourceTypeWatchLater,
	}, types)

	// The disabled favorite never loads.
	for _, s := range sources {
		assert.NotEqual(t, int64(43), s.SourceID())
	}
}

func TestSourceRepo_LoadEnabledEmpty(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSourceRepository(db)

	sources, err := repo.LoadEnabled(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)
}
