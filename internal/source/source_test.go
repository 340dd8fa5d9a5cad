package source

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// fakeAPI serves canned pages for every listing endpoint and counts how many
// pages were actually fetched.
type fakeAPI struct {
	pages     [][]platform.VideoInfo
	pageErr   error
	errOnPage int
	pageCalls int
}

func (f *fakeAPI) page(page int) ([]platform.VideoInfo, bool, error) {
	f.pageCalls++
	if f.pageErr != nil && page == f.errOnPage {
		return nil, false, f.pageErr
	}
	if page > len(f.pages) {
		return nil, false, nil
	}
	return f.pages[page-1], page < len(f.pages), nil
}

func (f *fakeAPI) FavoriteMeta(ctx context.Context, fid int64) (*platform.ListMeta, error) {
	return &platform.ListMeta{ID: fid, Title: "my favorites"}, nil
}

func (f *fakeAPI) ListFavoriteVideos(ctx context.Context, fid int64, page int) ([]platform.VideoInfo, bool, error) {
	return f.page(page)
}

func (f *fakeAPI) CollectionMeta(ctx context.Context, sid, mid int64, kind string) (*platform.ListMeta, error) {
	return &platform.ListMeta{ID: sid, Title: "my collection"}, nil
}

func (f *fakeAPI) ListCollectionVideos(ctx context.Context, sid, mid int64, kind string, page int) ([]platform.VideoInfo, bool, error) {
	return f.page(page)
}

func (f *fakeAPI) UserMeta(ctx context.Context, mid int64) (*platform.ListMeta, error) {
	return &platform.ListMeta{ID: mid, Title: "creator"}, nil
}

func (f *fakeAPI) ListSubmissionVideos(ctx context.Context, mid int64, page int) ([]platform.VideoInfo, bool, error) {
	return f.page(page)
}

func (f *fakeAPI) ListWatchLater(ctx context.Context, page int) ([]platform.VideoInfo, bool, error) {
	return f.page(page)
}

func (f *fakeAPI) VideoDetail(ctx context.Context, platformID string) (*platform.VideoDetail, error) {
	return &platform.VideoDetail{VideoInfo: platform.VideoInfo{ID: platformID}}, nil
}

func (f *fakeAPI) PlayURL(ctx context.Context, platformID string) (string, error) {
	return "http://media.example/" + platformID + ".mp4", nil
}

var _ platform.API = (*fakeAPI)(nil)

func info(id string, release time.Time) platform.VideoInfo {
	return platform.VideoInfo{ID: id, Title: "video " + id, ReleaseAt: release}
}

func collectItems(t *testing.T, ch <-chan Item) []Item {
	t.Helper()
	var items []Item
	for item := range ch {
		items = append(items, item)
	}
	return items
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFavorite_RefreshStopsAtWatermark(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]platform.VideoInfo{
		{info("v5", base.Add(5 * time.Hour)), info("v4", base.Add(4 * time.Hour))},
		{info("v3", base.Add(3 * time.Hour)), info("v2", base.Add(2 * time.Hour))},
		{info("v1", base.Add(1 * time.Hour))},
	}}

	src := NewFavorite(&models.FavoriteSource{
		FID:         42,
		Path:        "favs",
		LatestRowAt: base.Add(3 * time.Hour),
	})

	items := collectItems(t, src.Refresh(context.Background(), api))
	require.Len(t, items, 2)
	assert.Equal(t, "v5", items[0].Info.ID)
	assert.Equal(t, "v4", items[1].Info.ID)

	// v3 equals the watermark, so page 2 is fetched but page 3 never is.
	assert.Equal(t, 2, api.pageCalls)
}

func TestFavorite_RefreshColdStartWalksAllPages(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]platform.VideoInfo{
		{info("v3", base.Add(3 * time.Hour))},
		{info("v2", base.Add(2 * time.Hour))},
		{info("v1", base.Add(1 * time.Hour))},
	}}

	src := NewFavorite(&models.FavoriteSource{
		FID:         42,
		Path:        "favs",
		LatestRowAt: models.EpochZero(),
	})

	items := collectItems(t, src.Refresh(context.Background(), api))
	assert.Len(t, items, 3)
	assert.Equal(t, 3, api.pageCalls)
}

func TestWatchLater_InclusiveBoundary(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]platform.VideoInfo{
		{info("newer", base.Add(time.Hour)), info("boundary", base), info("older", base.Add(-time.Hour))},
	}}

	src := NewWatchLater(&models.WatchLaterSource{Path: "later", LatestRowAt: base})

	items := collectItems(t, src.Refresh(context.Background(), api))
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Info.ID)
	assert.Equal(t, "boundary", items[1].Info.ID)
}

func TestSubmission_ExclusiveBoundary(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]platform.VideoInfo{
		{info("newer", base.Add(time.Hour)), info("boundary", base)},
	}}

	src := NewSubmission(&models.SubmissionSource{MID: 7, Path: "subs", LatestRowAt: base})

	items := collectItems(t, src.Refresh(context.Background(), api))
	require.Len(t, items, 1)
	assert.Equal(t, "newer", items[0].Info.ID)
}

func TestFavorite_ShouldFilterDropsHidden(t *testing.T) {
	src := NewFavorite(&models.FavoriteSource{FID: 42, Path: "favs"})
	log := testLogger()

	hidden := Item{Info: platform.VideoInfo{ID: "gone", Hidden: true}}
	assert.False(t, src.ShouldFilter(hidden, log))

	visible := Item{Info: platform.VideoInfo{ID: "here"}}
	assert.True(t, src.ShouldFilter(visible, log))
}

func TestWatchLater_ShouldFilterKeepsHidden(t *testing.T) {
	src := NewWatchLater(&models.WatchLaterSource{Path: "later"})
	log := testLogger()

	// Only the favorite variant treats hidden entries specially.
	hidden := Item{Info: platform.VideoInfo{ID: "gone", Hidden: true}}
	assert.True(t, src.ShouldFilter(hidden, log))

	errItem := Item{Err: ErrMalformedItem}
	assert.False(t, src.ShouldFilter(errItem, log))
}

func TestRefresh_MalformedItemDoesNotStopStream(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{pages: [][]platform.VideoInfo{
		{info("v2", base.Add(2 * time.Hour)), {ID: ""}, info("v1", base.Add(time.Hour))},
	}}

	src := NewFavorite(&models.FavoriteSource{FID: 42, Path: "favs", LatestRowAt: models.EpochZero()})

	items := collectItems(t, src.Refresh(context.Background(), api))
	require.Len(t, items, 3)
	assert.Equal(t, "v2", items[0].Info.ID)
	assert.ErrorIs(t, items[1].Err, ErrMalformedItem)
	assert.Equal(t, "v1", items[2].Info.ID)
}

func TestRefresh_PageErrorTerminatesStream(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pageErr := assert.AnError
	api := &fakeAPI{
		pages: [][]platform.VideoInfo{
			{info("v2", base.Add(2 * time.Hour))},
			{info("v1", base.Add(time.Hour))},
		},
		pageErr:   pageErr,
		errOnPage: 2,
	}

	src := NewFavorite(&models.FavoriteSource{FID: 42, Path: "favs", LatestRowAt: models.EpochZero()})

	items := collectItems(t, src.Refresh(context.Background(), api))
	require.Len(t, items, 2)
	assert.Equal(t, "v2", items[0].Info.ID)
	assert.ErrorIs(t, items[1].Err, pageErr)
}

func TestRefresh_CancelStopsProducer(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var pages [][]platform.VideoInfo
	for p := 0; p < 10; p++ {
		var page []platform.VideoInfo
		for i := 0; i < 30; i++ {
			page = append(page, info("v", base))
		}
		pages = append(pages, page)
	}
	api := &fakeAPI{pages: pages}

	src := NewFavorite(&models.FavoriteSource{FID: 42, Path: "favs", LatestRowAt: models.EpochZero()})

	ctx, cancel := context.WithCancel(context.Background())
	ch := src.Refresh(ctx, api)

	<-ch
	cancel()

	// The producer must close the channel rather than block forever.
	for range ch {
	}

	// Pagination stops with the consumer instead of walking the remaining
	// pages into a full buffer.
	assert.LessOrEqual(t, api.pageCalls, 2)
}

func TestStagedWatermark_Commit(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.FavoriteSource{},
		&models.CollectionSource{},
		&models.SubmissionSource{},
		&models.WatchLaterSource{},
	))
	ctx := context.Background()
	at := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)

	t.Run("favorite", func(t *testing.T) {
		require.NoError(t, db.Create(&models.FavoriteSource{FID: 42, Path: "favs"}).Error)

		src := NewFavorite(&models.FavoriteSource{FID: 42, Path: "favs"})
		require.NoError(t, src.StageWatermark(at).Commit(ctx, db))

		var got models.FavoriteSource
		require.NoError(t, db.First(&got, "fid = ?", int64(42)).Error)
		assert.True(t, got.LatestRowAt.Equal(at))
	})

	t.Run("collection", func(t *testing.T) {
		row := &models.CollectionSource{SID: 1, MID: 2, Kind: models.CollectionKindSeason, Path: "c"}
		require.NoError(t, db.Create(row).Error)

		src := NewCollection(row)
		require.NoError(t, src.StageWatermark(at).Commit(ctx, db))

		var got models.CollectionSource
		require.NoError(t, db.First(&got, "sid = ? AND mid = ? AND kind = ?", int64(1), int64(2), models.CollectionKindSeason).Error)
		assert.True(t, got.LatestRowAt.Equal(at))
	})

	t.Run("watch later", func(t *testing.T) {
		require.NoError(t, db.Create(&models.WatchLaterSource{Path: "later"}).Error)

		src := NewWatchLater(&models.WatchLaterSource{Path: "later"})
		require.NoError(t, src.StageWatermark(at).Commit(ctx, db))

		var got models.WatchLaterSource
		require.NoError(t, db.First(&got, "id = ?", models.WatchLaterID).Error)
		assert.True(t, got.LatestRowAt.Equal(at))
	})
}

func TestBindVideoAndFilterExpr(t *testing.T) {
	src := NewCollection(&models.CollectionSource{SID: 9, MID: 4, Kind: models.CollectionKindSeries, Path: "c"})

	var v models.Video
	src.BindVideo(&v)
	assert.Equal(t, models.SourceTypeCollection, v.SourceType)
	assert.Equal(t, int64(9), v.SourceID)

	expr := src.FilterExpr()
	assert.Equal(t, models.SourceTypeCollection, expr["source_type"])
	assert.Equal(t, int64(9), expr["source_id"])
}
