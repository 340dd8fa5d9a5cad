package source

import (
	"context"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// Submission adapts a configured creator's upload feed to the sync pipeline.
type Submission struct {
	baseSource
	mid int64
}

// NewSubmission wraps a submission source row.
func NewSubmission(m *models.SubmissionSource) *Submission {
	return &Submission{
		baseSource: baseSource{
			sourceType:  models.SourceTypeSubmission,
			sourceID:    m.MID,
			name:        m.Name,
			path:        m.Path,
			latestRowAt: m.LatestRowAt,
		},
		mid: m.MID,
	}
}

// Refresh streams the creator's uploads newest-first until the watermark.
func (s *Submission) Refresh(ctx context.Context, api platform.API) <-chan Item {
	return streamPages(ctx, s.ShouldTake, func(page int) ([]platform.VideoInfo, bool, error) {
		return api.ListSubmissionVideos(ctx, s.mid, page)
	})
}

// RemoteName fetches the creator's current display name.
func (s *Submission) RemoteName(ctx context.Context, api platform.API) (string, error) {
	meta, err := api.UserMeta(ctx, s.mid)
	if err != nil {
		return "", err
	}
	return meta.Title, nil
}

// StageWatermark prepares a watermark advance for this creator feed.
func (s *Submission) StageWatermark(at time.Time) StagedWatermark {
	return StagedWatermark{sourceType: models.SourceTypeSubmission, mid: s.mid, at: at}
}

var _ VideoSource = (*Submission)(nil)
