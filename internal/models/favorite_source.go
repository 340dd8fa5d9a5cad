package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// FavoriteSource is a configured favorite list to sync.
//
// The primary key is the platform-side favorite list id, so a list can be
// configured at most once.
type FavoriteSource struct {
	// FID is the platform favorite-list identifier.
	FID int64 `gorm:"column:fid;primaryKey;autoIncrement:false" json:"fid"`

	// Name is the list title as last seen on the platform; refreshed each cycle.
	Name string `gorm:"size:255" json:"name"`

	// Path is the local directory downloads for this list land in.
	Path string `gorm:"not null;size:1024" json:"path"`

	// LatestRowAt is the watermark: the newest release timestamp already
	// ingested for this source. Pagination stops once it is reached.
	LatestRowAt time.Time `gorm:"not null" json:"latest_row_at"`

	// Enabled indicates whether this source is included in refresh cycles.
	Enabled *bool `gorm:"default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for FavoriteSource.
func (FavoriteSource) TableName() string {
	return "favorite_sources"
}

// Validate performs basic validation on the favorite source.
func (s *FavoriteSource) Validate() error {
	s.Path = strings.TrimSpace(s.Path)
	if s.FID == 0 {
		return ErrSourceIDRequired
	}
	if s.Path == "" {
		return ErrPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and seeds the watermark.
func (s *FavoriteSource) BeforeCreate(tx *gorm.DB) error {
	if s.LatestRowAt.IsZero() {
		s.LatestRowAt = EpochZero()
	}
	return s.Validate()
}
