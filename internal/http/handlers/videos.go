package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// VideoHandler handles the video listing endpoints.
type VideoHandler struct {
	videos repository.VideoRepository
}

// NewVideoHandler creates a video handler.
func NewVideoHandler(videos repository.VideoRepository) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// Register registers the video routes with the API.
func (h *VideoHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listVideos",
		Method:      "GET",
		Path:        "/api/v1/videos",
		Summary:     "List videos",
		Description: "Returns synced videos, newest release first, with optional filters",
		Tags:        []string{"Videos"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getVideo",
		Method:      "GET",
		Path:        "/api/v1/videos/{id}",
		Summary:     "Get a video",
		Tags:        []string{"Videos"},
	}, h.GetByID)
}

// ListVideosInput is the input for listing videos.
type ListVideosInput struct {
	SourceType string `query:"source_type" enum:"favorite,collection,submission,watch_later" required:"false" doc:"Filter by source variant"`
	SourceID   int64  `query:"source_id" required:"false" doc:"Filter by source identifier"`
	State      string `query:"state" enum:"discovered,metadata_fetched,downloading,complete,failed" required:"false" doc:"Filter by pipeline state"`
	Search     string `query:"search" required:"false" doc:"Title substring match"`
	Limit      int    `query:"limit" minimum:"1" maximum:"200" required:"false" doc:"Page size"`
	Offset     int    `query:"offset" minimum:"0" required:"false" doc:"Page offset"`
}

// ListVideosOutput is the output for listing videos.
type ListVideosOutput struct {
	Body struct {
		Videos []models.Video `json:"videos"`
		Total  int64          `json:"total"`
	}
}

func (h *VideoHandler) List(ctx context.Context, input *ListVideosInput) (*ListVideosOutput, error) {
	videos, total, err := h.videos.List(ctx, repository.ListVideosOptions{
		SourceType: models.SourceType(input.SourceType),
		SourceID:   input.SourceID,
		State:      models.DownloadState(input.State),
		Search:     input.Search,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list videos", err)
	}

	resp := &ListVideosOutput{}
	resp.Body.Videos = videos
	resp.Body.Total = total
	return resp, nil
}

// GetVideoInput identifies a video by its id.
type GetVideoInput struct {
	ID string `path:"id" doc:"Video ID (ULID)"`
}

// GetVideoOutput wraps a single video.
type GetVideoOutput struct {
	Body models.Video
}

func (h *VideoHandler) GetByID(ctx context.Context, input *GetVideoInput) (*GetVideoOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}

	video, err := h.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, huma.Error404NotFound(fmt.Sprintf("video %s not found", input.ID))
		}
		return nil, huma.Error500InternalServerError("failed to get video", err)
	}

	return &GetVideoOutput{Body: *video}, nil
}
