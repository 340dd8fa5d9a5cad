package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vodarr/vodarr/internal/models"
)

const defaultVideoPageSize = 50

// videoRepository implements VideoRepository using GORM.
type videoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new video repository.
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

// Insert persists a discovered video, ignoring duplicates under the
// (source_type, source_id, platform_id) unique index. RowsAffected tells
// the two cases apart without a prior existence check.
func (r *videoRepository) Insert(ctx context.Context, video *models.Video) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(video)
	if result.Error != nil {
		// Some dialects surface the conflict instead of swallowing it.
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("inserting video: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *videoRepository) GetByID(ctx context.Context, id models.ULID) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting video: %w", err)
	}
	return &video, nil
}

func (r *videoRepository) List(ctx context.Context, opts ListVideosOptions) ([]models.Video, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Video{})

	if opts.SourceType != "" {
		query = query.Where("source_type = ?", opts.SourceType)
		if opts.SourceID != 0 {
			query = query.Where("source_id = ?", opts.SourceID)
		}
	}
	if opts.State != "" {
		query = query.Where("state = ?", opts.State)
	}
	if opts.Search != "" {
		query = query.Where("title LIKE ?", "%"+opts.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting videos: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultVideoPageSize
	}

	var videos []models.Video
	err := query.Order("release_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&videos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing videos: %w", err)
	}
	return videos, total, nil
}

func (r *videoRepository) ListInState(ctx context.Context, state models.DownloadState, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = defaultVideoPageSize
	}
	var videos []models.Video
	err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("ingested_at ASC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("listing videos in state %s: %w", state, err)
	}
	return videos, nil
}

func (r *videoRepository) Update(ctx context.Context, video *models.Video) error {
	result := r.db.WithContext(ctx).Save(video)
	if result.Error != nil {
		return fmt.Errorf("updating video: %w", result.Error)
	}
	return nil
}

func (r *videoRepository) CountByState(ctx context.Context) (map[models.DownloadState]int64, error) {
	type row struct {
		State models.DownloadState
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Select("state, COUNT(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting videos by state: %w", err)
	}

	counts := make(map[models.DownloadState]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.Count
	}
	return counts, nil
}

func (r *videoRepository) DeleteBySource(ctx context.Context, sourceType models.SourceType, sourceID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Delete(&models.Video{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting videos: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure videoRepository implements VideoRepository.
var _ VideoRepository = (*videoRepository)(nil)
