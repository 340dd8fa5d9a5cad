// Package syncer implements the refresh pipeline: it drives every enabled
// source through listing, metadata fetch, and download phases, and advances
// per-source watermarks only after a clean listing pass.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/observability"
	"github.com/vodarr/vodarr/internal/platform"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/source"
)

// ErrCycleInProgress is returned when a refresh cycle is requested while
// one is already running.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

// phaseBatch bounds how many videos a metadata or download pass picks up
// per source per cycle; leftovers are handled next cycle.
const phaseBatch = 200

// CycleStats summarizes one refresh cycle.
type CycleStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Sources    int           `json:"sources"`
	Seen       int           `json:"seen"`
	Inserted   int           `json:"inserted"`
	Fetched    int           `json:"fetched"`
	Downloaded int           `json:"downloaded"`
	Failed     int           `json:"failed"`
	Errors     []string      `json:"errors,omitempty"`
}

// Syncer orchestrates refresh cycles across all enabled sources.
type Syncer struct {
	db         *gorm.DB
	api        platform.API
	videos     repository.VideoRepository
	sources    repository.SourceRepository
	downloader Downloader
	syncCfg    config.SyncConfig
	storageCfg config.StorageConfig
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	lastRun *CycleStats

	statsMu sync.Mutex
}

// New creates a syncer.
func New(
	db *gorm.DB,
	api platform.API,
	videos repository.VideoRepository,
	sources repository.SourceRepository,
	downloader Downloader,
	syncCfg config.SyncConfig,
	storageCfg config.StorageConfig,
	logger *slog.Logger,
) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:         db,
		api:        api,
		videos:     videos,
		sources:    sources,
		downloader: downloader,
		syncCfg:    syncCfg,
		storageCfg: storageCfg,
		logger:     observability.WithComponent(logger, "syncer"),
	}
}

// Running reports whether a cycle is currently in flight.
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns the stats of the most recently completed cycle, or nil.
func (s *Syncer) LastRun() *CycleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// RunCycle runs one refresh cycle over every enabled source. Per-source
// failures are recorded and do not abort the cycle; only cancellation does.
// At most one cycle runs at a time.
func (s *Syncer) RunCycle(ctx context.Context) (*CycleStats, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrCycleInProgress
	}
	s.running = true
	s.mu.Unlock()

	stats := &CycleStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		s.mu.Lock()
		s.running = false
		s.lastRun = stats
		s.mu.Unlock()
	}()

	sources, err := s.sources.LoadEnabled(ctx)
	if err != nil {
		return stats, err
	}
	stats.Sources = len(sources)

	s.logger.Info("refresh cycle starting",
		slog.Int("sources", len(sources)),
		slog.Int("fan_out", s.fanOut()),
	)

	var g errgroup.Group
	g.SetLimit(s.fanOut())

	for _, src := range sources {
		g.Go(func() error {
			s.syncSource(ctx, src, stats)
			return nil
		})
	}
	// Goroutines never return errors; failures land in stats.
	_ = g.Wait()

	s.logger.Info("refresh cycle complete",
		slog.Int("seen", stats.Seen),
		slog.Int("inserted", stats.Inserted),
		slog.Int("fetched", stats.Fetched),
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("errors", len(stats.Errors)),
		slog.Duration("duration", time.Since(stats.StartedAt)),
	)

	return stats, ctx.Err()
}

func (s *Syncer) fanOut() int {
	if s.syncCfg.FanOut < 1 {
		return 1
	}
	return s.syncCfg.FanOut
}

// syncSource runs the three pipeline phases for one source.
func (s *Syncer) syncSource(ctx context.Context, src source.VideoSource, stats *CycleStats) {
	s.refreshNames(ctx, src)

	if err := s.refreshSource(ctx, src, stats); err != nil {
		s.recordError(stats, src, "refresh", err)
		// A fatal listing error (bad credentials, deleted source) makes the
		// later phases pointless for this source.
		if platform.IsFatal(err) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	if err := s.fetchMetadata(ctx, src, stats); err != nil {
		s.recordError(stats, src, "fetch_metadata", err)
	}
	if ctx.Err() != nil {
		return
	}

	if s.syncCfg.DownloadEnabled {
		if err := s.downloadVideos(ctx, src, stats); err != nil {
			s.recordError(stats, src, "download", err)
		}
	}
}

// refreshNames updates the cached source title from the platform. Failures
// are logged and otherwise ignored; a stale name never blocks a refresh.
func (s *Syncer) refreshNames(ctx context.Context, src source.VideoSource) {
	name, err := src.RemoteName(ctx, s.api)
	if err != nil {
		s.logger.Warn("fetching source name failed",
			slog.String("source_type", string(src.Type())),
			slog.Int64("source_id", src.SourceID()),
			slog.String("error", err.Error()),
		)
		return
	}
	if name == "" || name == src.DisplayName() {
		return
	}
	if err := s.sources.UpdateName(ctx, src, name); err != nil {
		s.logger.Warn("updating source name failed",
			slog.String("source_type", string(src.Type())),
			slog.Int64("source_id", src.SourceID()),
			slog.String("error", err.Error()),
		)
	}
}

// refreshSource consumes the source's listing stream, inserting new videos
// and tracking the maximum observed release timestamp. The watermark is
// committed only when the stream completed without a stream-level error,
// every insert succeeded, and the context was not cancelled, so a crashed
// or interrupted pass is simply replayed next cycle and deduplicated by
// the unique index.
func (s *Syncer) refreshSource(ctx context.Context, src source.VideoSource, stats *CycleStats) error {
	src.LogRefreshStart(s.logger)

	// Stopping the stream on exit releases the producer goroutine when the
	// loop below leaves before the channel is drained.
	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	var (
		seen, inserted int
		insertErrs     int
		maxSeen        time.Time
		streamErr      error
	)

	for item := range src.Refresh(streamCtx, s.api) {
		if item.Err != nil {
			if errors.Is(item.Err, source.ErrMalformedItem) {
				src.ShouldFilter(item, s.logger)
				continue
			}
			streamErr = item.Err
			break
		}

		seen++
		if item.Info.ReleaseAt.After(maxSeen) {
			maxSeen = item.Info.ReleaseAt
		}

		if !src.ShouldFilter(item, s.logger) {
			continue
		}

		video := videoFromInfo(item.Info)
		src.BindVideo(video)

		created, err := s.videos.Insert(ctx, video)
		if err != nil {
			// A per-item store failure is logged and skipped. The watermark
			// stays put so the item is listed again next cycle.
			insertErrs++
			s.recordError(stats, src, "insert", err)
			continue
		}
		if created {
			inserted++
		}
	}

	s.addCounts(stats, seen, inserted)

	if streamErr != nil {
		return streamErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if insertErrs == 0 && maxSeen.After(src.LatestRowAt()) {
		if err := src.StageWatermark(maxSeen).Commit(ctx, s.db); err != nil {
			return err
		}
		s.logger.Debug("watermark advanced",
			slog.String("source_type", string(src.Type())),
			slog.Int64("source_id", src.SourceID()),
			slog.Time("latest_row_at", maxSeen),
		)
	}

	src.LogRefreshEnd(s.logger, inserted, seen)
	return nil
}

// videoFromInfo builds the persisted row for a freshly listed video.
func videoFromInfo(info platform.VideoInfo) *models.Video {
	return &models.Video{
		PlatformID:   info.ID,
		Title:        info.Title,
		ReleaseAt:    info.ReleaseAt,
		IngestedAt:   models.Now(),
		OwnerID:      info.OwnerID,
		OwnerName:    info.OwnerName,
		ThumbnailURL: info.ThumbnailURL,
		RawPayload:   string(info.Raw),
		State:        models.StateDiscovered,
	}
}

// fetchMetadata fills detail metadata for videos discovered by src.
// A fatal platform error aborts the phase; per-video failures are logged
// and retried next cycle since the row stays in discovered state.
func (s *Syncer) fetchMetadata(ctx context.Context, src source.VideoSource, stats *CycleStats) error {
	pending, _, err := s.videos.List(ctx, repository.ListVideosOptions{
		SourceType: src.Type(),
		SourceID:   src.SourceID(),
		State:      models.StateDiscovered,
		Limit:      phaseBatch,
	})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	src.LogFetchStart(s.logger)

	fetched := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		video := &pending[i]

		detail, err := s.api.VideoDetail(ctx, video.PlatformID)
		if err != nil {
			if platform.IsFatal(err) {
				src.LogFetchEnd(s.logger, fetched)
				return err
			}
			s.logger.Warn("fetching video detail failed",
				slog.String("platform_id", video.PlatformID),
				slog.String("error", err.Error()),
			)
			continue
		}

		video.Description = detail.Description
		video.DurationSecs = detail.DurationSecs
		if detail.OwnerName != "" {
			video.OwnerID = detail.OwnerID
			video.OwnerName = detail.OwnerName
		}
		video.MarkMetadataFetched()

		if err := s.videos.Update(ctx, video); err != nil {
			return err
		}
		fetched++
	}

	s.addFetched(stats, fetched)
	src.LogFetchEnd(s.logger, fetched)
	return nil
}

func (s *Syncer) recordError(stats *CycleStats, src source.VideoSource, phase string, err error) {
	s.logger.Error("source phase failed",
		slog.String("source_type", string(src.Type())),
		slog.Int64("source_id", src.SourceID()),
		slog.String("phase", phase),
		slog.String("error", err.Error()),
	)
	s.statsMu.Lock()
	stats.Errors = append(stats.Errors, string(src.Type())+"/"+phase+": "+err.Error())
	s.statsMu.Unlock()
}

func (s *Syncer) addCounts(stats *CycleStats, seen, inserted int) {
	s.statsMu.Lock()
	stats.Seen += seen
	stats.Inserted += inserted
	s.statsMu.Unlock()
}

func (s *Syncer) addFetched(stats *CycleStats, fetched int) {
	s.statsMu.Lock()
	stats.Fetched += fetched
	s.statsMu.Unlock()
}

func (s *Syncer) addDownloaded(stats *CycleStats, downloaded, failed int) {
	s.statsMu.Lock()
	stats.Downloaded += downloaded
	stats.Failed += failed
	s.statsMu.Unlock()
}
