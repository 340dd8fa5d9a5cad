package models

import (
	"time"

	"gorm.io/gorm"
)

// SourceType discriminates which source variant a video belongs to.
type SourceType string

const (
	// SourceTypeFavorite marks videos discovered from a favorite list.
	SourceTypeFavorite SourceType = "favorite"
	// SourceTypeCollection marks videos discovered from a curated collection.
	SourceTypeCollection SourceType = "collection"
	// SourceTypeSubmission marks videos discovered from a creator's uploads.
	SourceTypeSubmission SourceType = "submission"
	// SourceTypeWatchLater marks videos discovered from the watch-later queue.
	SourceTypeWatchLater SourceType = "watch_later"
)

// DownloadState tracks a video through the sync pipeline.
type DownloadState string

const (
	// StateDiscovered means the row was persisted during a refresh cycle.
	StateDiscovered DownloadState = "discovered"
	// StateMetadataFetched means detail metadata has been filled in.
	StateMetadataFetched DownloadState = "metadata_fetched"
	// StateDownloading means a download is in flight.
	StateDownloading DownloadState = "downloading"
	// StateComplete means the media file landed on disk.
	StateComplete DownloadState = "complete"
	// StateFailed means the download exhausted its retries.
	StateFailed DownloadState = "failed"
)

// Valid reports whether s is a known download state.
func (s DownloadState) Valid() bool {
	switch s {
	case StateDiscovered, StateMetadataFetched, StateDownloading, StateComplete, StateFailed:
		return true
	}
	return false
}

// Video is the persisted record for one remote video discovered by a source.
//
// (source_type, source_id, platform_id) is unique; replayed refresh cycles
// rely on this index to deduplicate instead of tracking per-item progress.
type Video struct {
	BaseModel

	// SourceType + SourceID back-reference the owning source variant.
	SourceType SourceType `gorm:"not null;size:20;uniqueIndex:idx_videos_source_platform,priority:1" json:"source_type"`
	SourceID   int64      `gorm:"not null;uniqueIndex:idx_videos_source_platform,priority:2" json:"source_id"`

	// PlatformID is the platform-side video identifier.
	PlatformID string `gorm:"not null;size:64;uniqueIndex:idx_videos_source_platform,priority:3" json:"platform_id"`

	Title string `gorm:"size:512" json:"title"`

	// ReleaseAt is the authoritative ordering key; watermarks advance along it.
	ReleaseAt time.Time `gorm:"not null;index" json:"release_at"`

	// IngestedAt is when the refresh cycle persisted this row.
	IngestedAt time.Time `gorm:"not null" json:"ingested_at"`

	// RelPath is where the media lands, relative to the source path.
	RelPath string `gorm:"size:1024" json:"rel_path"`

	OwnerID      int64  `json:"owner_id"`
	OwnerName    string `gorm:"size:255" json:"owner_name"`
	ThumbnailURL string `gorm:"size:2048" json:"thumbnail_url,omitempty"`
	Description  string `gorm:"size:4096" json:"description,omitempty"`
	DurationSecs int    `json:"duration_secs"`

	State DownloadState `gorm:"not null;default:'discovered';size:20;index" json:"state"`

	// Attempts counts download tries; bounded by sync.download_retries.
	Attempts  int    `gorm:"default:0" json:"attempts"`
	LastError string `gorm:"size:4096" json:"last_error,omitempty"`

	// RawPayload keeps the listing payload for the later pipeline phases.
	RawPayload string `gorm:"type:text" json:"-"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}

// Validate performs basic validation on the video record.
func (v *Video) Validate() error {
	if v.PlatformID == "" {
		return ErrSourceIDRequired
	}
	if v.State != "" && !v.State.Valid() {
		return ErrInvalidDownloadState
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the video and fills defaults.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if err := v.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if v.State == "" {
		v.State = StateDiscovered
	}
	if v.IngestedAt.IsZero() {
		v.IngestedAt = Now()
	}
	return v.Validate()
}

// MarkMetadataFetched transitions the video after the detail fetch phase.
func (v *Video) MarkMetadataFetched() {
	v.State = StateMetadataFetched
	v.LastError = ""
}

// MarkDownloading transitions the video when a download starts.
func (v *Video) MarkDownloading() {
	v.State = StateDownloading
	v.Attempts++
}

// MarkComplete transitions the video when its media file is on disk.
func (v *Video) MarkComplete(relPath string) {
	v.State = StateComplete
	v.RelPath = relPath
	v.LastError = ""
}

// MarkFailed records a download failure. The caller decides whether the
// video goes back to metadata_fetched for a retry or stays failed.
func (v *Video) MarkFailed(err error) {
	v.State = StateFailed
	if err != nil {
		v.LastError = err.Error()
	}
}
