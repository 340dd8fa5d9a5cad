package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// SourceHandler handles the configured-source API endpoints for all four
// source variants.
type SourceHandler struct {
	sources repository.SourceRepository
	videos  repository.VideoRepository
}

// NewSourceHandler creates a source handler.
func NewSourceHandler(sources repository.SourceRepository, videos repository.VideoRepository) *SourceHandler {
	return &SourceHandler{sources: sources, videos: videos}
}

// FavoriteSourceRequest is the create/update body for a favorite source.
type FavoriteSourceRequest struct {
	FID     int64  `json:"fid" doc:"Platform favorite-list identifier"`
	Path    string `json:"path" doc:"Local directory downloads land in"`
	Enabled *bool  `json:"enabled,omitempty" doc:"Whether this source is refreshed"`
}

// CollectionSourceRequest is the create/update body for a collection source.
type CollectionSourceRequest struct {
	SID     int64  `json:"sid" doc:"Platform collection identifier"`
	MID     int64  `json:"mid" doc:"Collection owner's member id"`
	Kind    string `json:"kind" enum:"season,series" doc:"Collection flavour"`
	Path    string `json:"path" doc:"Local directory downloads land in"`
	Enabled *bool  `json:"enabled,omitempty" doc:"Whether this source is refreshed"`
}

// SubmissionSourceRequest is the create/update body for a submission source.
type SubmissionSourceRequest struct {
	MID     int64  `json:"mid" doc:"Creator's member id"`
	Path    string `json:"path" doc:"Local directory downloads land in"`
	Enabled *bool  `json:"enabled,omitempty" doc:"Whether this source is refreshed"`
}

// WatchLaterSourceRequest is the body for configuring the watch-later source.
type WatchLaterSourceRequest struct {
	Path    string `json:"path" doc:"Local directory downloads land in"`
	Enabled *bool  `json:"enabled,omitempty" doc:"Whether this source is refreshed"`
}

// translateSourceErr maps repository and validation errors to API errors.
func translateSourceErr(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound(fmt.Sprintf("%s not found", what))
	case errors.Is(err, models.ErrPathRequired),
		errors.Is(err, models.ErrSourceIDRequired),
		errors.Is(err, models.ErrInvalidCollectionKind):
		return huma.Error400BadRequest(err.Error())
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "duplicated key") {
		return huma.Error409Conflict(fmt.Sprintf("%s already exists", what))
	}
	return huma.Error500InternalServerError(fmt.Sprintf("operation on %s failed", what), err)
}

// Register registers the source routes with the API.
func (h *SourceHandler) Register(api huma.API) {
	// Favorite sources.
	huma.Register(api, huma.Operation{
		OperationID: "listFavoriteSources",
		Method:      "GET",
		Path:        "/api/v1/sources/favorites",
		Summary:     "List favorite sources",
		Tags:        []string{"Sources"},
	}, h.ListFavorites)
	huma.Register(api, huma.Operation{
		OperationID: "createFavoriteSource",
		Method:      "POST",
		Path:        "/api/v1/sources/favorites",
		Summary:     "Add a favorite source",
		Tags:        []string{"Sources"},
	}, h.CreateFavorite)
	huma.Register(api, huma.Operation{
		OperationID: "getFavoriteSource",
		Method:      "GET",
		Path:        "/api/v1/sources/favorites/{fid}",
		Summary:     "Get a favorite source",
		Tags:        []string{"Sources"},
	}, h.GetFavorite)
	huma.Register(api, huma.Operation{
		OperationID: "updateFavoriteSource",
		Method:      "PUT",
		Path:        "/api/v1/sources/favorites/{fid}",
		Summary:     "Update a favorite source",
		Tags:        []string{"Sources"},
	}, h.UpdateFavorite)
	huma.Register(api, huma.Operation{
		OperationID: "deleteFavoriteSource",
		Method:      "DELETE",
		Path:        "/api/v1/sources/favorites/{fid}",
		Summary:     "Delete a favorite source and its videos",
		Tags:        []string{"Sources"},
	}, h.DeleteFavorite)

	// Collection sources.
	huma.Register(api, huma.Operation{
		OperationID: "listCollectionSources",
		Method:      "GET",
		Path:        "/api/v1/sources/collections",
		Summary:     "List collection sources",
		Tags:        []string{"Sources"},
	}, h.ListCollections)
	huma.Register(api, huma.Operation{
		OperationID: "createCollectionSource",
		Method:      "POST",
		Path:        "/api/v1/sources/collections",
		Summary:     "Add a collection source",
		Tags:        []string{"Sources"},
	}, h.CreateCollection)
	huma.Register(api, huma.Operation{
		OperationID: "updateCollectionSource",
		Method:      "PUT",
		Path:        "/api/v1/sources/collections/{sid}/{mid}/{kind}",
		Summary:     "Update a collection source",
		Tags:        []string{"Sources"},
	}, h.UpdateCollection)
	huma.Register(api, huma.Operation{
		OperationID: "deleteCollectionSource",
		Method:      "DELETE",
		Path:        "/api/v1/sources/collections/{sid}/{mid}/{kind}",
		Summary:     "Delete a collection source and its videos",
		Tags:        []string{"Sources"},
	}, h.DeleteCollection)

	// Submission sources.
	huma.Register(api, huma.Operation{
		OperationID: "listSubmissionSources",
		Method:      "GET",
		Path:        "/api/v1/sources/submissions",
		Summary:     "List submission sources",
		Tags:        []string{"Sources"},
	}, h.ListSubmissions)
	huma.Register(api, huma.Operation{
		OperationID: "createSubmissionSource",
		Method:      "POST",
		Path:        "/api/v1/sources/submissions",
		Summary:     "Add a submission source",
		Tags:        []string{"Sources"},
	}, h.CreateSubmission)
	huma.Register(api, huma.Operation{
		OperationID: "updateSubmissionSource",
		Method:      "PUT",
		Path:        "/api/v1/sources/submissions/{mid}",
		Summary:     "Update a submission source",
		Tags:        []string{"Sources"},
	}, h.UpdateSubmission)
	huma.Register(api, huma.Operation{
		OperationID: "deleteSubmissionSource",
		Method:      "DELETE",
		Path:        "/api/v1/sources/submissions/{mid}",
		Summary:     "Delete a submission source and its videos",
		Tags:        []string{"Sources"},
	}, h.DeleteSubmission)

	// Watch-later source.
	huma.Register(api, huma.Operation{
		OperationID: "getWatchLaterSource",
		Method:      "GET",
		Path:        "/api/v1/sources/watch-later",
		Summary:     "Get the watch-later source",
		Tags:        []string{"Sources"},
	}, h.GetWatchLater)
	huma.Register(api, huma.Operation{
		OperationID: "setWatchLaterSource",
		Method:      "PUT",
		Path:        "/api/v1/sources/watch-later",
		Summary:     "Configure the watch-later source",
		Tags:        []string{"Sources"},
	}, h.SetWatchLater)
	huma.Register(api, huma.Operation{
		OperationID: "deleteWatchLaterSource",
		Method:      "DELETE",
		Path:        "/api/v1/sources/watch-later",
		Summary:     "Delete the watch-later source and its videos",
		Tags:        []string{"Sources"},
	}, h.DeleteWatchLater)
}

// Favorite source operations.

// ListFavoritesOutput is the output for listing favorite sources.
type ListFavoritesOutput struct {
	Body struct {
		Sources []models.FavoriteSource `json:"sources"`
	}
}

func (h *SourceHandler) ListFavorites(ctx context.Context, input *struct{}) (*ListFavoritesOutput, error) {
	sources, err := h.sources.ListFavorites(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list favorite sources", err)
	}
	resp := &ListFavoritesOutput{}
	resp.Body.Sources = sources
	return resp, nil
}

// CreateFavoriteInput is the input for creating a favorite source.
type CreateFavoriteInput struct {
	Body FavoriteSourceRequest
}

// FavoriteOutput wraps a single favorite source.
type FavoriteOutput struct {
	Body models.FavoriteSource
}

func (h *SourceHandler) CreateFavorite(ctx context.Context, input *CreateFavoriteInput) (*FavoriteOutput, error) {
	src := &models.FavoriteSource{
		FID:     input.Body.FID,
		Path:    input.Body.Path,
		Enabled: input.Body.Enabled,
	}
	if err := h.sources.CreateFavorite(ctx, src); err != nil {
		return nil, translateSourceErr(err, "favorite source")
	}
	return &FavoriteOutput{Body: *src}, nil
}

// GetFavoriteInput identifies a favorite source by list id.
type GetFavoriteInput struct {
	FID int64 `path:"fid" doc:"Platform favorite-list identifier"`
}

func (h *SourceHandler) GetFavorite(ctx context.Context, input *GetFavoriteInput) (*FavoriteOutput, error) {
	src, err := h.sources.GetFavorite(ctx, input.FID)
	if err != nil {
		return nil, translateSourceErr(err, "favorite source")
	}
	return &FavoriteOutput{Body: *src}, nil
}

// UpdateFavoriteInput is the input for updating a favorite source.
type UpdateFavoriteInput struct {
	FID  int64 `path:"fid" doc:"Platform favorite-list identifier"`
	Body FavoriteSourceRequest
}

func (h *SourceHandler) UpdateFavorite(ctx context.Context, input *UpdateFavoriteInput) (*FavoriteOutput, error) {
	src, err := h.sources.GetFavorite(ctx, input.FID)
	if err != nil {
		return nil, translateSourceErr(err, "favorite source")
	}
	if input.Body.Path != "" {
		src.Path = input.Body.Path
	}
	if input.Body.Enabled != nil {
		src.Enabled = input.Body.Enabled
	}
	if err := h.sources.UpdateFavorite(ctx, src); err != nil {
		return nil, translateSourceErr(err, "favorite source")
	}
	return &FavoriteOutput{Body: *src}, nil
}

// DeleteSourceOutput reports how many videos were removed with the source.
type DeleteSourceOutput struct {
	Body struct {
		VideosDeleted int64 `json:"videos_deleted"`
	}
}

func (h *SourceHandler) DeleteFavorite(ctx context.Context, input *GetFavoriteInput) (*DeleteSourceOutput, error) {
	if err := h.sources.DeleteFavorite(ctx, input.FID); err != nil {
		return nil, translateSourceErr(err, "favorite source")
	}
	deleted, err := h.videos.DeleteBySource(ctx, models.SourceTypeFavorite, input.FID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete source videos", err)
	}
	resp := &DeleteSourceOutput{}
	resp.Body.VideosDeleted = deleted
	return resp, nil
}

// Collection source operations.

// ListCollectionsOutput is the output for listing collection sources.
type ListCollectionsOutput struct {
	Body struct {
		Sources []models.CollectionSource `json:"sources"`
	}
}

func (h *SourceHandler) ListCollections(ctx context.Context, input *struct{}) (*ListCollectionsOutput, error) {
	sources, err := h.sources.ListCollections(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list collection sources", err)
	}
	resp := &ListCollectionsOutput{}
	resp.Body.Sources = sources
	return resp, nil
}

// CreateCollectionInput is the input for creating a collection source.
type CreateCollectionInput struct {
	Body CollectionSourceRequest
}

// CollectionOutput wraps a single collection source.
type CollectionOutput struct {
	Body models.CollectionSource
}

func (h *SourceHandler) CreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	src := &models.CollectionSource{
		SID:     input.Body.SID,
		MID:     input.Body.MID,
		Kind:    models.CollectionKind(input.Body.Kind),
		Path:    input.Body.Path,
		Enabled: input.Body.Enabled,
	}
	if err := h.sources.CreateCollection(ctx, src); err != nil {
		return nil, translateSourceErr(err, "collection source")
	}
	return &CollectionOutput{Body: *src}, nil
}

// CollectionKeyInput identifies a collection source.
type CollectionKeyInput struct {
	SID  int64  `path:"sid" doc:"Platform collection identifier"`
	MID  int64  `path:"mid" doc:"Collection owner's member id"`
	Kind string `path:"kind" enum:"season,series" doc:"Collection flavour"`
}

// UpdateCollectionInput is the input for updating a collection source.
type UpdateCollectionInput struct {
	CollectionKeyInput
	Body CollectionSourceRequest
}

func (h *SourceHandler) UpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
	src, err := h.sources.GetCollection(ctx, input.SID, input.MID, models.CollectionKind(input.Kind))
	if err != nil {
		return nil, translateSourceErr(err, "collection source")
	}
	if input.Body.Path != "" {
		src.Path = input.Body.Path
	}
	if input.Body.Enabled != nil {
		src.Enabled = input.Body.Enabled
	}
	if err := h.sources.UpdateCollection(ctx, src); err != nil {
		return nil, translateSourceErr(err, "collection source")
	}
	return &CollectionOutput{Body: *src}, nil
}

func (h *SourceHandler) DeleteCollection(ctx context.Context, input *CollectionKeyInput) (*DeleteSourceOutput, error) {
	if err := h.sources.DeleteCollection(ctx, input.SID, input.MID, models.CollectionKind(input.Kind)); err != nil {
		return nil, translateSourceErr(err, "collection source")
	}
	deleted, err := h.videos.DeleteBySource(ctx, models.SourceTypeCollection, input.SID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete source videos", err)
	}
	resp := &DeleteSourceOutput{}
	resp.Body.VideosDeleted = deleted
	return resp, nil
}

// Submission source operations.

// ListSubmissionsOutput is the output for listing submission sources.
type ListSubmissionsOutput struct {
	Body struct {
		Sources []models.SubmissionSource `json:"sources"`
	}
}

func (h *SourceHandler) ListSubmissions(ctx context.Context, input *struct{}) (*ListSubmissionsOutput, error) {
	sources, err := h.sources.ListSubmissions(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list submission sources", err)
	}
	resp := &ListSubmissionsOutput{}
	resp.Body.Sources = sources
	return resp, nil
}

// CreateSubmissionInput is the input for creating a submission source.
type CreateSubmissionInput struct {
	Body SubmissionSourceRequest
}

// SubmissionOutput wraps a single submission source.
type SubmissionOutput struct {
	Body models.SubmissionSource
}

func (h *SourceHandler) CreateSubmission(ctx context.Context, input *CreateSubmissionInput) (*SubmissionOutput, error) {
	src := &models.SubmissionSource{
		MID:     input.Body.MID,
		Path:    input.Body.Path,
		Enabled: input.Body.Enabled,
	}
	if err := h.sources.CreateSubmission(ctx, src); err != nil {
		return nil, translateSourceErr(err, "submission source")
	}
	return &SubmissionOutput{Body: *src}, nil
}

// SubmissionKeyInput identifies a submission source by creator id.
type SubmissionKeyInput struct {
	MID int64 `path:"mid" doc:"Creator's member id"`
}

// UpdateSubmissionInput is the input for updating a submission source.
type UpdateSubmissionInput struct {
	SubmissionKeyInput
	Body SubmissionSourceRequest
}

func (h *SourceHandler) UpdateSubmission(ctx context.Context, input *UpdateSubmissionInput) (*SubmissionOutput, error) {
	src, err := h.sources.GetSubmission(ctx, input.MID)
	if err != nil {
		return nil, translateSourceErr(err, "submission source")
	}
	if input.Body.Path != "" {
		src.Path = input.Body.Path
	}
	if input.Body.Enabled != nil {
		src.Enabled = input.Body.Enabled
	}
	if err := h.sources.UpdateSubmission(ctx, src); err != nil {
		return nil, translateSourceErr(err, "submission source")
	}
	return &SubmissionOutput{Body: *src}, nil
}

func (h *SourceHandler) DeleteSubmission(ctx context.Context, input *SubmissionKeyInput) (*DeleteSourceOutput, error) {
	if err := h.sources.DeleteSubmission(ctx, input.MID); err != nil {
		return nil, translateSourceErr(err, "submission source")
	}
	deleted, err := h.videos.DeleteBySource(ctx, models.SourceTypeSubmission, input.MID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete source videos", err)
	}
	resp := &DeleteSourceOutput{}
	resp.Body.VideosDeleted = deleted
	return resp, nil
}

// Watch-later source operations.

// WatchLaterOutput wraps the watch-later source.
type WatchLaterOutput struct {
	Body models.WatchLaterSource
}

func (h *SourceHandler) GetWatchLater(ctx context.Context, input *struct{}) (*WatchLaterOutput, error) {
	src, err := h.sources.GetWatchLater(ctx)
	if err != nil {
		return nil, translateSourceErr(err, "watch-later source")
	}
	return &WatchLaterOutput{Body: *src}, nil
}

// SetWatchLaterInput is the input for configuring the watch-later source.
type SetWatchLaterInput struct {
	Body WatchLaterSourceRequest
}

func (h *SourceHandler) SetWatchLater(ctx context.Context, input *SetWatchLaterInput) (*WatchLaterOutput, error) {
	src := &models.WatchLaterSource{
		Path:    input.Body.Path,
		Enabled: input.Body.Enabled,
	}
	if err := h.sources.SetWatchLater(ctx, src); err != nil {
		return nil, translateSourceErr(err, "watch-later source")
	}
	return &WatchLaterOutput{Body: *src}, nil
}

func (h *SourceHandler) DeleteWatchLater(ctx context.Context, input *struct{}) (*DeleteSourceOutput, error) {
	if err := h.sources.DeleteWatchLater(ctx); err != nil {
		return nil, translateSourceErr(err, "watch-later source")
	}
	deleted, err := h.videos.DeleteBySource(ctx, models.SourceTypeWatchLater, models.WatchLaterID)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete source videos", err)
	}
	resp := &DeleteSourceOutput{}
	resp.Body.VideosDeleted = deleted
	return resp, nil
}
