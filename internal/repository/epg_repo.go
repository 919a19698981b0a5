package repository

import (
	"context"
	"fmt"

	"github.com/opendvr/tvcore/internal/models"
	"gorm.io/gorm"
)

type brandRepository struct{ db *gorm.DB }

// NewBrandRepository creates a new BrandRepository.
func NewBrandRepository(db *gorm.DB) BrandRepository { return &brandRepository{db: db} }

func (r *brandRepository) Create(ctx context.Context, brand *models.Brand) error {
	if err := brand.Validate(); err != nil {
		return fmt.Errorf("validating brand: %w", err)
	}
	return r.db.WithContext(ctx).Create(brand).Error
}

func (r *brandRepository) GetByID(ctx context.Context, id models.ULID) (*models.Brand, error) {
	var b models.Brand
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *brandRepository) Update(ctx context.Context, brand *models.Brand) error {
	return r.db.WithContext(ctx).Save(brand).Error
}

type seasonRepository struct{ db *gorm.DB }

// NewSeasonRepository creates a new SeasonRepository.
func NewSeasonRepository(db *gorm.DB) SeasonRepository { return &seasonRepository{db: db} }

func (r *seasonRepository) Create(ctx context.Context, season *models.Season) error {
	return r.db.WithContext(ctx).Create(season).Error
}

func (r *seasonRepository) GetByID(ctx context.Context, id models.ULID) (*models.Season, error) {
	var s models.Season
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *seasonRepository) Update(ctx context.Context, season *models.Season) error {
	return r.db.WithContext(ctx).Save(season).Error
}

type episodeRepository struct{ db *gorm.DB }

// NewEpisodeRepository creates a new EpisodeRepository.
func NewEpisodeRepository(db *gorm.DB) EpisodeRepository { return &episodeRepository{db: db} }

func (r *episodeRepository) Create(ctx context.Context, episode *models.Episode) error {
	return r.db.WithContext(ctx).Create(episode).Error
}

func (r *episodeRepository) GetByID(ctx context.Context, id models.ULID) (*models.Episode, error) {
	var e models.Episode
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *episodeRepository) Update(ctx context.Context, episode *models.Episode) error {
	return r.db.WithContext(ctx).Save(episode).Error
}
