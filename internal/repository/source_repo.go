package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/source"
)

// sourceRepository implements SourceRepository using GORM.
type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func translateGetErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("getting %s: %w", what, err)
}

// Favorite sources.

func (r *sourceRepository) CreateFavorite(ctx context.Context, s *models.FavoriteSource) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("creating favorite source: %w", err)
	}
	return nil
}

func (r *sourceRepository) GetFavorite(ctx context.Context, fid int64) (*models.FavoriteSource, error) {
	var s models.FavoriteSource
	if err := r.db.WithContext(ctx).Where("fid = ?", fid).First(&s).Error; err != nil {
		return nil, translateGetErr(err, "favorite source")
	}
	return &s, nil
}

func (r *sourceRepository) ListFavorites(ctx context.Context) ([]models.FavoriteSource, error) {
	var out []models.FavoriteSource
	if err := r.db.WithContext(ctx).Order("fid").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing favorite sources: %w", err)
	}
	return out, nil
}

func (r *sourceRepository) UpdateFavorite(ctx context.Context, s *models.FavoriteSource) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("updating favorite source: %w", err)
	}
	return nil
}

func (r *sourceRepository) DeleteFavorite(ctx context.Context, fid int64) error {
	result := r.db.WithContext(ctx).Where("fid = ?", fid).Delete(&models.FavoriteSource{})
	if result.Error != nil {
		return fmt.Errorf("deleting favorite source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Collection sources.

func (r *sourceRepository) CreateCollection(ctx context.Context, s *models.CollectionSource) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("creating collection source: %w", err)
	}
	return nil
}

func (r *sourceRepository) GetCollection(ctx context.Context, sid, mid int64, kind models.CollectionKind) (*models.CollectionSource, error) {
	var s models.CollectionSource
	err := r.db.WithContext(ctx).
		Where("sid = ? AND mid = ? AND kind = ?", sid, mid, kind).
		First(&s).Error
	if err != nil {
		return nil, translateGetErr(err, "collection source")
	}
	return &s, nil
}

func (r *sourceRepository) ListCollections(ctx context.Context) ([]models.CollectionSource, error) {
	var out []models.CollectionSource
	if err := r.db.WithContext(ctx).Order("sid, mid, kind").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing collection sources: %w", err)
	}
	return out, nil
}

func (r *sourceRepository) UpdateCollection(ctx context.Context, s *models.CollectionSource) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("updating collection source: %w", err)
	}
	return nil
}

func (r *sourceRepository) DeleteCollection(ctx context.Context, sid, mid int64, kind models.CollectionKind) error {
	result := r.db.WithContext(ctx).
		Where("sid = ? AND mid = ? AND kind = ?", sid, mid, kind).
		Delete(&models.CollectionSource{})
	if result.Error != nil {
		return fmt.Errorf("deleting collection source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Submission sources.

func (r *sourceRepository) CreateSubmission(ctx context.Context, s *models.SubmissionSource) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("creating submission source: %w", err)
	}
	return nil
}

func (r *sourceRepository) GetSubmission(ctx context.Context, mid int64) (*models.SubmissionSource, error) {
	var s models.SubmissionSource
	if err := r.db.WithContext(ctx).Where("mid = ?", mid).First(&s).Error; err != nil {
		return nil, translateGetErr(err, "submission source")
	}
	return &s, nil
}

func (r *sourceRepository) ListSubmissions(ctx context.Context) ([]models.SubmissionSource, error) {
	var out []models.SubmissionSource
	if err := r.db.WithContext(ctx).Order("mid").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing submission sources: %w", err)
	}
	return out, nil
}

func (r *sourceRepository) UpdateSubmission(ctx context.Context, s *models.SubmissionSource) error {
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("updating submission source: %w", err)
	}
	return nil
}

func (r *sourceRepository) DeleteSubmission(ctx context.Context, mid int64) error {
	result := r.db.WithContext(ctx).Where("mid = ?", mid).Delete(&models.SubmissionSource{})
	if result.Error != nil {
		return fmt.Errorf("deleting submission source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Watch-later source (singleton).

func (r *sourceRepository) SetWatchLater(ctx context.Context, s *models.WatchLaterSource) error {
	s.ID = models.WatchLaterID

	existing, err := r.GetWatchLater(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
			return fmt.Errorf("creating watch-later source: %w", err)
		}
		return nil
	}

	// Preserve the watermark across reconfiguration.
	if s.LatestRowAt.IsZero() {
		s.LatestRowAt = existing.LatestRowAt
	}
	s.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		return fmt.Errorf("updating watch-later source: %w", err)
	}
	return nil
}

func (r *sourceRepository) GetWatchLater(ctx context.Context) (*models.WatchLaterSource, error) {
	var s models.WatchLaterSource
	err := r.db.WithContext(ctx).Where("id = ?", models.WatchLaterID).First(&s).Error
	if err != nil {
		return nil, translateGetErr(err, "watch-later source")
	}
	return &s, nil
}

func (r *sourceRepository) DeleteWatchLater(ctx context.Context) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", models.WatchLaterID).
		Delete(&models.WatchLaterSource{})
	if result.Error != nil {
		return fmt.Errorf("deleting watch-later source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateName refreshes the cached display name for the adapter's row.
// The watch-later queue has no remote name and is a no-op.
func (r *sourceRepository) UpdateName(ctx context.Context, src source.VideoSource, name string) error {
	tx := r.db.WithContext(ctx)

	var err error
	switch s := src.(type) {
	case *source.Favorite:
		err = tx.Model(&models.FavoriteSource{}).
			Where("fid = ?", s.SourceID()).
			Update("name", name).Error
	case *source.Collection:
		err = tx.Model(&models.CollectionSource{}).
			Where("sid = ? AND mid = ? AND kind = ?", s.SourceID(), s.MID(), s.Kind()).
			Update("name", name).Error
	case *source.Submission:
		err = tx.Model(&models.SubmissionSource{}).
			Where("mid = ?", s.SourceID()).
			Update("name", name).Error
	case *source.WatchLater:
		return nil
	default:
		return fmt.Errorf("unknown source adapter %T", src)
	}
	if err != nil {
		return fmt.Errorf("updating source name: %w", err)
	}
	return nil
}

// LoadEnabled returns pipeline adapters for every enabled source, in a
// stable order: favorites, collections, submissions, then watch-later.
func (r *sourceRepository) LoadEnabled(ctx context.Context) ([]source.VideoSource, error) {
	var sources []source.VideoSource

	favorites, err := r.ListFavorites(ctx)
	if err != nil {
		return nil, err
	}
	for i := range favorites {
		if models.BoolVal(favorites[i].Enabled) {
			sources = append(sources, source.NewFavorite(&favorites[i]))
		}
	}

	collections, err := r.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	for i := range collections {
		if models.BoolVal(collections[i].Enabled) {
			sources = append(sources, source.NewCollection(&collections[i]))
		}
	}

	submissions, err := r.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range submissions {
		if models.BoolVal(submissions[i].Enabled) {
			sources = append(sources, source.NewSubmission(&submissions[i]))
		}
	}

	watchLater, err := r.GetWatchLater(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else if models.BoolVal(watchLater.Enabled) {
		sources = append(sources, source.NewWatchLater(watchLater))
	}

	return sources, nil
}

// Ensure sourceRepository implements SourceRepository.
var _ SourceRepository = (*sourceRepository)(nil)
