package repository

import (
	"context"
	"fmt"

	"github.com/opendvr/tvcore/internal/models"
	"gorm.io/gorm"
)

type broadcastRepository struct {
	db *gorm.DB
}

// NewBroadcastRepository creates a new BroadcastRepository.
func NewBroadcastRepository(db *gorm.DB) BroadcastRepository {
	return &broadcastRepository{db: db}
}

func (r *broadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	if err := broadcast.Validate(); err != nil {
		return fmt.Errorf("validating broadcast: %w", err)
	}
	return r.db.WithContext(ctx).Create(broadcast).Error
}

func (r *broadcastRepository) GetByID(ctx context.Context, id models.ULID) (*models.Broadcast, error) {
	var b models.Broadcast
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *broadcastRepository) GetScrapable(ctx context.Context, limit int) ([]*models.Broadcast, error) {
	var broadcasts []*models.Broadcast
	q := r.db.WithContext(ctx).
		Where("in_progress = ? AND completed = ?", false, false).
		Order("start ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&broadcasts).Error; err != nil {
		return nil, err
	}
	return broadcasts, nil
}

func (r *broadcastRepository) Update(ctx context.Context, broadcast *models.Broadcast) error {
	if err := broadcast.Validate(); err != nil {
		return fmt.Errorf("validating broadcast: %w", err)
	}
	return r.db.WithContext(ctx).Save(broadcast).Error
}

func (r *broadcastRepository) SetInProgress(ctx context.Context, id models.ULID, inProgress bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Broadcast{}).
		Where("id = ?", id).
		Update("in_progress", inProgress).Error
}

func (r *broadcastRepository) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Delete(&models.Broadcast{}, "id = ?", id).Error
}
