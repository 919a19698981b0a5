package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opendvr/tvcore/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepository struct{ db *gorm.DB }

// NewSettingsRepository creates a new SettingsRepository backed by GORM.
// The core's only key is "scrape/config"; the mapping from key to
// storage path is otherwise opaque to this package.
func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &settingsRepository{db: db} }

func (r *settingsRepository) Save(ctx context.Context, key string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling setting %q: %w", key, err)
	}
	row := models.Setting{Key: key, Value: string(raw), UpdatedAt: models.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (r *settingsRepository) Load(ctx context.Context, key string) (map[string]any, error) {
	var row models.Setting
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var value map[string]any
	if err := json.Unmarshal([]byte(row.Value), &value); err != nil {
		return nil, fmt.Errorf("unmarshaling setting %q: %w", key, err)
	}
	return value, nil
}

type dvbNetworkRepository struct{ db *gorm.DB }

// NewDVBNetworkRepository creates a new DVBNetworkRepository.
func NewDVBNetworkRepository(db *gorm.DB) DVBNetworkRepository { return &dvbNetworkRepository{db: db} }

func (r *dvbNetworkRepository) Create(ctx context.Context, network *models.DVBNetwork) error {
	if err := network.Validate(); err != nil {
		return fmt.Errorf("validating dvb network: %w", err)
	}
	return r.db.WithContext(ctx).Create(network).Error
}

func (r *dvbNetworkRepository) GetAll(ctx context.Context) ([]*models.DVBNetwork, error) {
	var networks []*models.DVBNetwork
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&networks).Error; err != nil {
		return nil, err
	}
	return networks, nil
}

func (r *dvbNetworkRepository) GetByID(ctx context.Context, id models.ULID) (*models.DVBNetwork, error) {
	var n models.DVBNetwork
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *dvbNetworkRepository) Update(ctx context.Context, network *models.DVBNetwork) error {
	return r.db.WithContext(ctx).Save(network).Error
}

func (r *dvbNetworkRepository) Delete(ctx context.Context, id models.ULID) error {
	return r.db.WithContext(ctx).Delete(&models.DVBNetwork{}, "id = ?", id).Error
}
