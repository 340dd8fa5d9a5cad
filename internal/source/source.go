// Package source defines the adapter layer between configured sync sources
// and the refresh pipeline. Each source variant (favorite list, collection,
// creator submissions, watch-later queue) implements VideoSource, which
// turns platform pagination into a bounded stream of items and encapsulates
// the variant's watermark and filtering rules.
package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
)

// ErrMalformedItem marks a single listing entry that could not be decoded.
// These are skipped at item granularity; the stream stays clean and the
// watermark still advances.
var ErrMalformedItem = errors.New("malformed listing item")

// streamBuffer bounds the refresh channel so a slow consumer applies
// backpressure to pagination instead of buffering whole sources in memory.
const streamBuffer = 16

// Item is one element of a refresh stream. Exactly one of Info and Err is
// meaningful. An Err wrapping ErrMalformedItem is item-level and skippable;
// any other Err terminates the stream and the watermark must not advance.
type Item struct {
	Info platform.VideoInfo
	Err  error
}

// VideoSource is the uniform surface the sync pipeline drives. The four
// variants differ in identity, pagination endpoint, boundary comparison,
// and filtering; everything else is shared.
type VideoSource interface {
	// Type returns the variant discriminator stored on video rows.
	Type() models.SourceType
	// SourceID returns the principal identifier stored on video rows.
	SourceID() int64
	// DisplayName returns a human-readable label for logs and the API.
	DisplayName() string
	// Path returns the local directory downloads for this source land in.
	Path() string
	// LatestRowAt returns the current watermark.
	LatestRowAt() time.Time

	// FilterExpr returns the predicate scoping video queries to this source.
	FilterExpr() map[string]any
	// BindVideo stamps the source identity onto a video row before insert.
	BindVideo(v *models.Video)

	// ShouldTake reports whether an item with the given release timestamp is
	// new relative to the watermark. Pagination stops at the first false.
	ShouldTake(release time.Time) bool
	// ShouldFilter reports whether the item should enter the pipeline.
	// Dropped items are logged and do not dirty the stream.
	ShouldFilter(item Item, log *slog.Logger) bool

	// Refresh streams listing items newest-first until the watermark is
	// reached, pagination ends, or the stream fails. The channel is closed
	// when the producer stops; cancellation of ctx stops it early.
	Refresh(ctx context.Context, api platform.API) <-chan Item

	// RemoteName fetches the source's current title from the platform.
	RemoteName(ctx context.Context, api platform.API) (string, error)

	// StageWatermark prepares (but does not persist) a watermark advance.
	StageWatermark(at time.Time) StagedWatermark

	// Phase log hooks. Each variant logs with its own identity attrs.
	LogRefreshStart(log *slog.Logger)
	LogRefreshEnd(log *slog.Logger, inserted, seen int)
	LogFetchStart(log *slog.Logger)
	LogFetchEnd(log *slog.Logger, fetched int)
	LogDownloadStart(log *slog.Logger)
	LogDownloadEnd(log *slog.Logger, downloaded int)
}

// StagedWatermark is a watermark advance prepared during a refresh and
// committed only after the stream completed cleanly. Commit dispatches on
// the source variant, since each variant persists to its own table.
type StagedWatermark struct {
	sourceType models.SourceType
	at         time.Time

	fid  int64
	sid  int64
	mid  int64
	kind models.CollectionKind
}

// At returns the timestamp the watermark will advance to.
func (w StagedWatermark) At() time.Time {
	return w.at
}

// Commit persists the staged watermark to the owning source's table.
func (w StagedWatermark) Commit(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)

	switch w.sourceType {
	case models.SourceTypeFavorite:
		return tx.Model(&models.FavoriteSource{}).
			Where("fid = ?", w.fid).
			Update("latest_row_at", w.at).Error
	case models.SourceTypeCollection:
		return tx.Model(&models.CollectionSource{}).
			Where("sid = ? AND mid = ? AND kind = ?", w.sid, w.mid, w.kind).
			Update("latest_row_at", w.at).Error
	case models.SourceTypeSubmission:
		return tx.Model(&models.SubmissionSource{}).
			Where("mid = ?", w.mid).
			Update("latest_row_at", w.at).Error
	case models.SourceTypeWatchLater:
		return tx.Model(&models.WatchLaterSource{}).
			Where("id = ?", models.WatchLaterID).
			Update("latest_row_at", w.at).Error
	default:
		return errors.New("unknown source type in staged watermark")
	}
}

// baseSource carries the identity and shared behaviour common to all
// variants. Variants embed it and override the methods they specialize.
type baseSource struct {
	sourceType  models.SourceType
	sourceID    int64
	name        string
	path        string
	latestRowAt time.Time
}

func (b *baseSource) Type() models.SourceType { return b.sourceType }
func (b *baseSource) SourceID() int64         { return b.sourceID }
func (b *baseSource) Path() string            { return b.path }
func (b *baseSource) LatestRowAt() time.Time  { return b.latestRowAt }

func (b *baseSource) DisplayName() string {
	if b.name != "" {
		return b.name
	}
	return string(b.sourceType)
}

func (b *baseSource) FilterExpr() map[string]any {
	return map[string]any{
		"source_type": b.sourceType,
		"source_id":   b.sourceID,
	}
}

func (b *baseSource) BindVideo(v *models.Video) {
	v.SourceType = b.sourceType
	v.SourceID = b.sourceID
}

// ShouldTake is the default boundary comparison: strictly newer than the
// watermark. The watch-later variant overrides this with >= because queue
// entries can share the boundary timestamp across cycles.
func (b *baseSource) ShouldTake(release time.Time) bool {
	return release.After(b.latestRowAt)
}

// ShouldFilter keeps successful items and drops item-level errors.
func (b *baseSource) ShouldFilter(item Item, log *slog.Logger) bool {
	if item.Err != nil {
		log.Warn("skipping undecodable listing item",
			slog.String("source_type", string(b.sourceType)),
			slog.Int64("source_id", b.sourceID),
			slog.String("error", item.Err.Error()),
		)
		return false
	}
	return true
}

func (b *baseSource) logAttrs() []any {
	return []any{
		slog.String("source_type", string(b.sourceType)),
		slog.Int64("source_id", b.sourceID),
		slog.String("name", b.DisplayName()),
	}
}

func (b *baseSource) LogRefreshStart(log *slog.Logger) {
	log.Info("refreshing source", b.logAttrs()...)
}

func (b *baseSource) LogRefreshEnd(log *slog.Logger, inserted, seen int) {
	attrs := append(b.logAttrs(), slog.Int("inserted", inserted), slog.Int("seen", seen))
	log.Info("source refresh complete", attrs...)
}

func (b *baseSource) LogFetchStart(log *slog.Logger) {
	log.Info("fetching video details", b.logAttrs()...)
}

func (b *baseSource) LogFetchEnd(log *slog.Logger, fetched int) {
	attrs := append(b.logAttrs(), slog.Int("fetched", fetched))
	log.Info("video details fetched", attrs...)
}

func (b *baseSource) LogDownloadStart(log *slog.Logger) {
	log.Info("downloading videos", b.logAttrs()...)
}

func (b *baseSource) LogDownloadEnd(log *slog.Logger, downloaded int) {
	attrs := append(b.logAttrs(), slog.Int("downloaded", downloaded))
	log.Info("video downloads complete", attrs...)
}

// pageFunc fetches one page of a listing, newest first.
type pageFunc func(page int) ([]platform.VideoInfo, bool, error)

// streamPages drives reverse-chronological pagination into a bounded channel.
// It stops at the first item the take predicate rejects, since everything
// after it is older than the watermark. Undecodable entries (empty platform
// id) are emitted as item-level errors and do not stop the stream; page
// fetch failures are emitted as-is and terminate it.
func streamPages(ctx context.Context, take func(time.Time) bool, fetch pageFunc) <-chan Item {
	ch := make(chan Item, streamBuffer)

	go func() {
		defer close(ch)

		for page := 1; ; page++ {
			items, hasMore, err := fetch(page)
			if err != nil {
				send(ctx, ch, Item{Err: err})
				return
			}

			for _, info := range items {
				if info.ID == "" {
					if !send(ctx, ch, Item{Err: ErrMalformedItem}) {
						return
					}
					continue
				}
				if !take(info.ReleaseAt) {
					return
				}
				if !send(ctx, ch, Item{Info: info}) {
					return
				}
			}

			if !hasMore {
				return
			}
		}
	}()

	return ch
}

// send delivers an item unless the context is cancelled first.
func send(ctx context.Context, ch chan<- Item, item Item) bool {
	select {
	case ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
