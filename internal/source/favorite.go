package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// Favorite adapts a configured favorite list to the sync pipeline.
type Favorite struct {
	baseSource
	fid int64
}

// NewFavorite wraps a favorite source row.
func NewFavorite(m *models.FavoriteSource) *Favorite {
	return &Favorite{
		baseSource: baseSource{
			sourceType:  models.SourceTypeFavorite,
			sourceID:    m.FID,
			name:        m.Name,
			path:        m.Path,
			latestRowAt: m.LatestRowAt,
		},
		fid: m.FID,
	}
}

// ShouldFilter drops item-level errors and entries the platform still lists
// but no longer serves. Favorite listings keep tombstones for videos that
// were taken down; downloading them would always fail.
func (s *Favorite) ShouldFilter(item Item, log *slog.Logger) bool {
	if !s.baseSource.ShouldFilter(item, log) {
		return false
	}
	if item.Info.Hidden {
		log.Debug("skipping hidden favorite entry",
			slog.Int64("fid", s.fid),
			slog.String("platform_id", item.Info.ID),
		)
		return false
	}
	return true
}

// Refresh streams the favorite list newest-first until the watermark.
func (s *Favorite) Refresh(ctx context.Context, api platform.API) <-chan Item {
	return streamPages(ctx, s.ShouldTake, func(page int) ([]platform.VideoInfo, bool, error) {
		return api.ListFavoriteVideos(ctx, s.fid, page)
	})
}

// RemoteName fetches the favorite list's current title.
func (s *Favorite) RemoteName(ctx context.Context, api platform.API) (string, error) {
	meta, err := api.FavoriteMeta(ctx, s.fid)
	if err != nil {
		return "", err
	}
	return meta.Title, nil
}

// StageWatermark prepares a watermark advance for this favorite list.
func (s *Favorite) StageWatermark(at time.Time) StagedWatermark {
	return StagedWatermark{sourceType: models.SourceTypeFavorite, fid: s.fid, at: at}
}

var _ VideoSource = (*Favorite)(nil)
