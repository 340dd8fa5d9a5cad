package source

import (
	"context"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// Collection adapts a configured curated collection (season or series)
// to the sync pipeline.
type Collection struct {
	baseSource
	sid  int64
	mid  int64
	kind models.CollectionKind
}

// NewCollection wraps a collection source row.
func NewCollection(m *models.CollectionSource) *Collection {
	return &Collection{
		baseSource: baseSource{
			sourceType:  models.SourceTypeCollection,
			sourceID:    m.SID,
			name:        m.Name,
			path:        m.Path,
			latestRowAt: m.LatestRowAt,
		},
		sid:  m.SID,
		mid:  m.MID,
		kind: m.Kind,
	}
}

// Kind returns the collection flavour.
func (s *Collection) Kind() models.CollectionKind {
	return s.kind
}

// MID returns the collection owner's member id.
func (s *Collection) MID() int64 {
	return s.mid
}

// Refresh streams the collection newest-first until the watermark.
func (s *Collection) Refresh(ctx context.Context, api platform.API) <-chan Item {
	return streamPages(ctx, s.ShouldTake, func(page int) ([]platform.VideoInfo, bool, error) {
		return api.ListCollectionVideos(ctx, s.sid, s.mid, string(s.kind), page)
	})
}

// RemoteName fetches the collection's current title.
func (s *Collection) RemoteName(ctx context.Context, api platform.API) (string, error) {
	meta, err := api.CollectionMeta(ctx, s.sid, s.mid, string(s.kind))
	if err != nil {
		return "", err
	}
	return meta.Title, nil
}

// StageWatermark prepares a watermark advance for this collection.
func (s *Collection) StageWatermark(at time.Time) StagedWatermark {
	return StagedWatermark{
		sourceType: models.SourceTypeCollection,
		sid:        s.sid,
		mid:        s.mid,
		kind:       s.kind,
		at:         at,
	}
}

var _ VideoSource = (*Collection)(nil)
