package models

import "errors"

// Validation errors shared across models.
var (
	ErrPathRequired          = errors.New("download path is required")
	ErrSourceIDRequired      = errors.New("platform source identifier is required")
	ErrInvalidCollectionKind = errors.New("collection kind must be season or series")
	ErrInvalidDownloadState  = errors.New("invalid download state")
)
