package models

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&Video{},
		&FavoriteSource{},
		&CollectionSource{},
		&SubmissionSource{},
		&WatchLaterSource{},
	)
	require.NoError(t, err)

	return db
}

func TestFavoriteSource_SeedsWatermark(t *testing.T) {
	db := setupModelTestDB(t)

	src := &FavoriteSource{FID: 42, Path: "favs"}
	require.NoError(t, db.Create(src).Error)

	var got FavoriteSource
	require.NoError(t, db.First(&got, "fid = ?", int64(42)).Error)
	assert.True(t, got.LatestRowAt.Equal(EpochZero()))
	assert.True(t, BoolVal(got.Enabled))
}

func TestFavoriteSource_Validation(t *testing.T) {
	db := setupModelTestDB(t)

	err := db.Create(&FavoriteSource{FID: 0, Path: "x"}).Error
	assert.ErrorIs(t, err, ErrSourceIDRequired)

	err = db.Create(&FavoriteSource{FID: 7, Path: "   "}).Error
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestCollectionSource_KindValidation(t *testing.T) {
	db := setupModelTestDB(t)

	err := db.Create(&CollectionSource{SID: 1, MID: 2, Kind: "album", Path: "c"}).Error
	assert.ErrorIs(t, err, ErrInvalidCollectionKind)

	require.NoError(t, db.Create(&CollectionSource{SID: 1, MID: 2, Kind: CollectionKindSeason, Path: "c"}).Error)
	require.NoError(t, db.Create(&CollectionSource{SID: 1, MID: 2, Kind: CollectionKindSeries, Path: "c"}).Error)

	// Same (sid, mid, kind) is the identity and cannot repeat.
	err = db.Create(&CollectionSource{SID: 1, MID: 2, Kind: CollectionKindSeason, Path: "other"}).Error
	assert.Error(t, err)
}

func TestSourceIdentifierColumnNames(t *testing.T) {
	db := setupModelTestDB(t)

	// Raw predicates throughout the repositories and the watermark commit
	// reference these columns by name.
	m := db.Migrator()
	assert.True(t, m.HasColumn(&FavoriteSource{}, "fid"))
	assert.True(t, m.HasColumn(&CollectionSource{}, "sid"))
	assert.True(t, m.HasColumn(&CollectionSource{}, "mid"))
	assert.True(t, m.HasColumn(&SubmissionSource{}, "mid"))
}

func TestWatchLaterSource_SingletonPin(t *testing.T) {
	db := setupModelTestDB(t)

	src := &WatchLaterSource{ID: 99, Path: "later"}
	require.NoError(t, db.Create(src).Error)
	assert.Equal(t, WatchLaterID, src.ID)

	err := db.Create(&WatchLaterSource{Path: "again"}).Error
	assert.Error(t, err)
}

func TestVideo_UniqueSourcePlatformIndex(t *testing.T) {
	db := setupModelTestDB(t)

	v := &Video{
		SourceType: SourceTypeFavorite,
		SourceID:   42,
		PlatformID: "vid-1",
		ReleaseAt:  time.Now(),
	}
	require.NoError(t, db.Create(v).Error)
	assert.False(t, v.ID.IsZero())
	assert.Equal(t, StateDiscovered, v.State)
	assert.False(t, v.IngestedAt.IsZero())

	dup := &Video{
		SourceType: SourceTypeFavorite,
		SourceID:   42,
		PlatformID: "vid-1",
		ReleaseAt:  time.Now(),
	}
	err := db.Create(dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// The same platform id under a different source is a distinct row.
	other := &Video{
		SourceType: SourceTypeWatchLater,
		SourceID:   WatchLaterID,
		PlatformID: "vid-1",
		ReleaseAt:  time.Now(),
	}
	require.NoError(t, db.Create(other).Error)
}

func TestVideo_StateTransitions(t *testing.T) {
	v := &Video{State: StateDiscovered}

	v.MarkMetadataFetched()
	assert.Equal(t, StateMetadataFetched, v.State)

	v.MarkDownloading()
	assert.Equal(t, StateDownloading, v.State)
	assert.Equal(t, 1, v.Attempts)

	v.MarkComplete("video [vid-1].mp4")
	assert.Equal(t, StateComplete, v.State)
	assert.Equal(t, "video [vid-1].mp4", v.RelPath)
	assert.Empty(t, v.LastError)

	v.MarkFailed(assert.AnError)
	assert.Equal(t, StateFailed, v.State)
	assert.Equal(t, assert.AnError.Error(), v.LastError)
}

func TestDownloadState_Valid(t *testing.T) {
	for _, s := range []DownloadState{StateDiscovered, StateMetadataFetched, StateDownloading, StateComplete, StateFailed} {
		assert.True(t, s.Valid())
	}
	assert.False(t, DownloadState("queued").Valid())
}

func TestULID_RoundTrip(t *testing.T) {
	id := NewULID()
	parsed, err := ParseULID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseULID("not-a-ulid")
	assert.Error(t, err)
}
