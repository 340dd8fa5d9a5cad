package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/platform"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/source"
	"github.com/vodarr/vodarr/pkg/httpclient"
)

// Downloader fetches a video's media to disk. It returns the path of the
// finished file relative to destDir.
type Downloader interface {
	Download(ctx context.Context, video *models.Video, mediaURL, destDir string) (string, error)
}

// HTTPDownloader streams media over HTTP to a partial file and renames it
// into place once complete, so interrupted downloads never leave a file
// that looks finished.
type HTTPDownloader struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewHTTPDownloader creates a downloader backed by the resilient HTTP client.
func NewHTTPDownloader(client *httpclient.Client, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDownloader{client: client, logger: logger}
}

// Download fetches mediaURL into destDir.
func (d *HTTPDownloader) Download(ctx context.Context, video *models.Video, mediaURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	relPath := downloadFileName(video, mediaURL)
	finalPath := filepath.Join(destDir, relPath)
	partPath := finalPath + ".part"

	resp, err := d.client.Get(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("requesting media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media request returned status %d", resp.StatusCode)
	}

	out, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("creating partial file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("writing media: %w", err)
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("finalizing download: %w", err)
	}

	d.logger.Debug("download finished",
		slog.String("platform_id", video.PlatformID),
		slog.String("path", finalPath),
		slog.Int64("bytes", written),
	)
	return relPath, nil
}

// downloadFileName derives a stable file name from the video title and
// platform id, with the extension taken from the media URL when present.
func downloadFileName(video *models.Video, mediaURL string) string {
	ext := path.Ext(strings.SplitN(path.Base(mediaURL), "?", 2)[0])
	if ext == "" || len(ext) > 5 {
		ext = ".mp4"
	}

	base := sanitizeFileName(video.Title)
	if base == "" {
		base = video.PlatformID
	} else {
		base = base + " [" + video.PlatformID + "]"
	}
	return base + ext
}

// sanitizeFileName strips path separators and characters that are invalid
// on common filesystems.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}

var _ Downloader = (*HTTPDownloader)(nil)

// downloadVideos resolves play URLs and downloads media for videos of src
// that have metadata. Downloads within a source run on a bounded worker
// pool; failures either requeue the video for the next cycle or mark it
// failed once retries are exhausted.
func (s *Syncer) downloadVideos(ctx context.Context, src source.VideoSource, stats *CycleStats) error {
	pending, _, err := s.videos.List(ctx, repository.ListVideosOptions{
		SourceType: src.Type(),
		SourceID:   src.SourceID(),
		State:      models.StateMetadataFetched,
		Limit:      phaseBatch,
	})
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	src.LogDownloadStart(s.logger)
	destDir := filepath.Join(s.storageCfg.BaseDir, src.Path())

	var (
		g          errgroup.Group
		downloaded int
		failed     int
	)
	workers := s.syncCfg.DownloadWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := range pending {
		video := &pending[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			ok := s.downloadOne(ctx, video, destDir)
			s.statsMu.Lock()
			if ok {
				downloaded++
			} else {
				failed++
			}
			s.statsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.addDownloaded(stats, downloaded, failed)
	src.LogDownloadEnd(s.logger, downloaded)
	return ctx.Err()
}

// downloadOne runs the full download path for one video and persists the
// resulting state transition. Returns true on success.
func (s *Syncer) downloadOne(ctx context.Context, video *models.Video, destDir string) bool {
	video.MarkDownloading()
	if err := s.videos.Update(ctx, video); err != nil {
		s.logger.Error("persisting downloading state failed",
			slog.String("platform_id", video.PlatformID),
			slog.String("error", err.Error()),
		)
		return false
	}

	mediaURL, err := s.api.PlayURL(ctx, video.PlatformID)
	if err == nil {
		var relPath string
		relPath, err = s.downloader.Download(ctx, video, mediaURL, destDir)
		if err == nil {
			video.MarkComplete(relPath)
			if uerr := s.videos.Update(ctx, video); uerr != nil {
				s.logger.Error("persisting completed state failed",
					slog.String("platform_id", video.PlatformID),
					slog.String("error", uerr.Error()),
				)
				return false
			}
			return true
		}
	}

	s.logger.Warn("video download failed",
		slog.String("platform_id", video.PlatformID),
		slog.Int("attempts", video.Attempts),
		slog.String("error", err.Error()),
	)

	if video.Attempts >= s.syncCfg.DownloadRetries || platform.IsFatal(err) {
		video.MarkFailed(err)
	} else {
		// Requeue for the next cycle; attempts already counted.
		video.State = models.StateMetadataFetched
		video.LastError = err.Error()
	}
	if uerr := s.videos.Update(ctx, video); uerr != nil {
		s.logger.Error("persisting failed state failed",
			slog.String("platform_id", video.PlatformID),
			slog.String("error", uerr.Error()),
		)
	}
	return false
}
