// Package repository defines data access interfaces for tvarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/opendvr/tvcore/internal/models"
)

// BroadcastRepository defines operations for broadcast persistence, the
// unit enqueued and mutated by the EPG scrape worker (§4.G).
type BroadcastRepository interface {
	Create(ctx context.Context, broadcast *models.Broadcast) error
	GetByID(ctx context.Context, id models.ULID) (*models.Broadcast, error)
	// GetScrapable returns broadcasts eligible for enqueue: neither
	// in-progress nor completed (invariant 8).
	GetScrapable(ctx context.Context, limit int) ([]*models.Broadcast, error)
	Update(ctx context.Context, broadcast *models.Broadcast) error
	// SetInProgress flips the in_progress flag under a row-level update,
	// used by the scrape worker enqueue path.
	SetInProgress(ctx context.Context, id models.ULID, inProgress bool) error
	Delete(ctx context.Context, id models.ULID) error
}

// BrandRepository defines operations for brand (series) persistence.
type BrandRepository interface {
	Create(ctx context.Context, brand *models.Brand) error
	GetByID(ctx context.Context, id models.ULID) (*models.Brand, error)
	Update(ctx context.Context, brand *models.Brand) error
}

// SeasonRepository defines operations for season persistence.
type SeasonRepository interface {
	Create(ctx context.Context, season *models.Season) error
	GetByID(ctx context.Context, id models.ULID) (*models.Season, error)
	Update(ctx context.Context, season *models.Season) error
}

// EpisodeRepository defines operations for episode persistence.
type EpisodeRepository interface {
	Create(ctx context.Context, episode *models.Episode) error
	GetByID(ctx context.Context, id models.ULID) (*models.Episode, error)
	Update(ctx context.Context, episode *models.Episode) error
}

// SettingsRepository defines the two primitives the core settings layer
// needs from a persistent store (§4.H): save a map under a key, load a
// map back out by key. The mapping from key to storage location is
// opaque to callers.
type SettingsRepository interface {
	Save(ctx context.Context, key string, value map[string]any) error
	Load(ctx context.Context, key string) (map[string]any, error)
}

// DVBNetworkRepository defines operations for DVB network configuration
// persistence (external-collaborator scope only: no tuner I/O).
type DVBNetworkRepository interface {
	Create(ctx context.Context, network *models.DVBNetwork) error
	GetAll(ctx context.Context) ([]*models.DVBNetwork, error)
	GetByID(ctx context.Context, id models.ULID) (*models.DVBNetwork, error)
	Update(ctx context.Context, network *models.DVBNetwork) error
	Delete(ctx context.Context, id models.ULID) error
}
