package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// SubmissionSource is a configured creator whose uploads are synced.
type SubmissionSource struct {
	// MID is the creator's member id.
	MID int64 `gorm:"column:mid;primaryKey;autoIncrement:false" json:"mid"`

	// Name is the creator's display name as last seen on the platform.
	Name string `gorm:"size:255" json:"name"`

	Path        string    `gorm:"not null;size:1024" json:"path"`
	LatestRowAt time.Time `gorm:"not null" json:"latest_row_at"`
	Enabled     *bool     `gorm:"default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for SubmissionSource.
func (SubmissionSource) TableName() string {
	return "submission_sources"
}

// Validate performs basic validation on the submission source.
func (s *SubmissionSource) Validate() error {
	s.Path = strings.TrimSpace(s.Path)
	if s.MID == 0 {
		return ErrSourceIDRequired
	}
	if s.Path == "" {
		return ErrPathRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and seeds the watermark.
func (s *SubmissionSource) BeforeCreate(tx *gorm.DB) error {
	if s.LatestRowAt.IsZero() {
		s.LatestRowAt = EpochZero()
	}
	return s.Validate()
}
