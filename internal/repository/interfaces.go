// Package repository provides data access interfaces and their GORM
// implementations.
package repository

import (
	"context"
	"errors"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/source"
)

// Common repository errors.
var (
	ErrNotFound = errors.New("record not found")
)

// ListVideosOptions controls video listing queries.
type ListVideosOptions struct {
	// SourceType and SourceID scope the listing to one source when set.
	SourceType models.SourceType
	SourceID   int64

	// State filters by pipeline state when set.
	State models.DownloadState

	// Search matches against the title when set.
	Search string

	// Limit and Offset paginate. Limit 0 means the repository default.
	Limit  int
	Offset int
}

// VideoRepository manages persisted video records.
type VideoRepository interface {
	// Insert persists a discovered video. A row that already exists under
	// the (source_type, source_id, platform_id) unique index is left
	// untouched and Insert reports created=false. This is the dedup
	// mechanism replayed refresh cycles rely on.
	Insert(ctx context.Context, video *models.Video) (created bool, err error)

	// GetByID retrieves a video by its surrogate id.
	GetByID(ctx context.Context, id models.ULID) (*models.Video, error)

	// List returns a filtered page of videos plus the unfiltered total.
	List(ctx context.Context, opts ListVideosOptions) ([]models.Video, int64, error)

	// ListInState returns up to limit videos in the given pipeline state,
	// oldest ingests first.
	ListInState(ctx context.Context, state models.DownloadState, limit int) ([]models.Video, error)

	// Update persists changes to an existing video.
	Update(ctx context.Context, video *models.Video) error

	// CountByState returns per-state video counts for health and stats.
	CountByState(ctx context.Context) (map[models.DownloadState]int64, error)

	// DeleteBySource removes all videos belonging to a source. Used when a
	// source is deleted.
	DeleteBySource(ctx context.Context, sourceType models.SourceType, sourceID int64) (int64, error)
}

// SourceRepository manages the four configured source variants and loads
// them as pipeline adapters.
type SourceRepository interface {
	CreateFavorite(ctx context.Context, s *models.FavoriteSource) error
	GetFavorite(ctx context.Context, fid int64) (*models.FavoriteSource, error)
	ListFavorites(ctx context.Context) ([]models.FavoriteSource, error)
	UpdateFavorite(ctx context.Context, s *models.FavoriteSource) error
	DeleteFavorite(ctx context.Context, fid int64) error

	CreateCollection(ctx context.Context, s *models.CollectionSource) error
	GetCollection(ctx context.Context, sid, mid int64, kind models.CollectionKind) (*models.CollectionSource, error)
	ListCollections(ctx context.Context) ([]models.CollectionSource, error)
	UpdateCollection(ctx context.Context, s *models.CollectionSource) error
	DeleteCollection(ctx context.Context, sid, mid int64, kind models.CollectionKind) error

	CreateSubmission(ctx context.Context, s *models.SubmissionSource) error
	GetSubmission(ctx context.Context, mid int64) (*models.SubmissionSource, error)
	ListSubmissions(ctx context.Context) ([]models.SubmissionSource, error)
	UpdateSubmission(ctx context.Context, s *models.SubmissionSource) error
	DeleteSubmission(ctx context.Context, mid int64) error

	// SetWatchLater creates or replaces the singleton watch-later source.
	SetWatchLater(ctx context.Context, s *models.WatchLaterSource) error
	GetWatchLater(ctx context.Context) (*models.WatchLaterSource, error)
	DeleteWatchLater(ctx context.Context) error

	// UpdateName refreshes the cached display name for a source, matched by
	// the adapter's identity.
	UpdateName(ctx context.Context, src source.VideoSource, name string) error

	// LoadEnabled returns pipeline adapters for every enabled source.
	LoadEnabled(ctx context.Context) ([]source.VideoSource, error)
}
