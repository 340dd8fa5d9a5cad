package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// CollectionKind distinguishes the two curated collection flavours the
// platform exposes. Seasons are episodic and owner-ordered; series are
// loose groupings paged like a search result.
type CollectionKind string

const (
	CollectionKindSeason CollectionKind = "season"
	CollectionKindSeries CollectionKind = "series"
)

// Valid reports whether k is a known collection kind.
func (k CollectionKind) Valid() bool {
	return k == CollectionKindSeason || k == CollectionKindSeries
}

// CollectionSource is a configured curated collection to sync.
// Identity is (sid, mid, kind): the same collection id can exist for
// different owners and kinds on the platform.
type CollectionSource struct {
	// SID is the platform collection identifier.
	SID int64 `gorm:"column:sid;primaryKey;autoIncrement:false" json:"sid"`
	// MID is the collection owner's member id.
	MID int64 `gorm:"column:mid;primaryKey;autoIncrement:false" json:"mid"`
	// Kind is the collection flavour (season or series).
	Kind CollectionKind `gorm:"primaryKey;size:10" json:"kind"`

	// Name is the collection title as last seen on the platform.
	Name string `gorm:"size:255" json:"name"`

	Path        string    `gorm:"not null;size:1024" json:"path"`
	LatestRowAt time.Time `gorm:"not null" json:"latest_row_at"`
	Enabled     *bool     `gorm:"default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for CollectionSource.
func (CollectionSource) TableName() string {
	return "collection_sources"
}

// Validate performs basic validation on the collection source.
func (s *CollectionSource) Validate() error {
	s.Path = strings.TrimSpace(s.Path)
	if s.SID == 0 || s.MID == 0 {
		return ErrSourceIDRequired
	}
	if !s.Kind.Valid() {
		return ErrInvalidCollectionKind
	}
	if s.Path == "" {
		return ErrPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and seeds the watermark.
func (s *CollectionSource) BeforeCreate(tx *gorm.DB) error {
	if s.LatestRowAt.IsZero() {
		s.LatestRowAt = EpochZero()
	}
	return s.Validate()
}
