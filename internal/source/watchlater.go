package source

import (
	"context"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// WatchLater adapts the viewer's watch-later queue to the sync pipeline.
// The queue is a singleton; its source id is the fixed row id.
type WatchLater struct {
	baseSource
}

// NewWatchLater wraps the watch-later source row.
func NewWatchLater(m *models.WatchLaterSource) *WatchLater {
	return &WatchLater{
		baseSource: baseSource{
			sourceType:  models.SourceTypeWatchLater,
			sourceID:    models.WatchLaterID,
			name:        "watch later",
			path:        m.Path,
			latestRowAt: m.LatestRowAt,
		},
	}
}

// ShouldTake uses an inclusive boundary. Queue entries keep the timestamp
// they were added with, and the platform batches additions at second
// granularity, so the boundary item can recur across cycles; the unique
// index deduplicates the re-taken rows.
func (s *WatchLater) ShouldTake(release time.Time) bool {
	return !release.Before(s.latestRowAt)
}

// Refresh streams the queue newest-first until the watermark.
func (s *WatchLater) Refresh(ctx context.Context, api platform.API) <-chan Item {
	return streamPages(ctx, s.ShouldTake, func(page int) ([]platform.VideoInfo, bool, error) {
		return api.ListWatchLater(ctx, page)
	})
}

// RemoteName returns the fixed queue label; the platform has no metadata
// endpoint for the watch-later queue.
func (s *WatchLater) RemoteName(ctx context.Context, api platform.API) (string, error) {
	return "watch later", nil
}

// StageWatermark prepares a watermark advance for the queue.
func (s *WatchLater) StageWatermark(at time.Time) StagedWatermark {
	return StagedWatermark{sourceType: models.SourceTypeWatchLater, at: at}
}

var _ VideoSource = (*WatchLater)(nil)
