package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// WatchLaterID is the fixed primary key of the singleton watch-later source.
const WatchLaterID int64 = 1

// WatchLaterSource is the viewer's watch-later queue. At most one row exists.
type WatchLaterSource struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false" json:"id"`

	Path        string    `gorm:"not null;size:1024" json:"path"`
	LatestRowAt time.Time `gorm:"not null" json:"latest_row_at"`
	Enabled     *bool     `gorm:"default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for WatchLaterSource.
func (WatchLaterSource) TableName() string {
	return "watch_later_sources"
}

// Validate performs basic validation on the watch-later source.
func (s *WatchLaterSource) Validate() error {
	s.Path = strings.TrimSpace(s.Path)
	if s.Path == "" {
		return ErrPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that pins the singleton id and seeds the watermark.
func (s *WatchLaterSource) BeforeCreate(tx *gorm.DB) error {
	s.ID = WatchLaterID
	if s.LatestRowAt.IsZero() {
		s.LatestRowAt = EpochZero()
	}
	return s.Validate()
}
