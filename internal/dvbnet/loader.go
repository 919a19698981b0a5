// Package dvbnet loads and saves DVB network configuration records
// (external collaborator scope per spec.md §1: no tuner I/O, PID
// scanning, or mux discovery — just the config record a linuxdvb-style
// network loader keeps on disk). Grounded on
// linuxdvb_network.c's load/save pair, which persists one property map
// per network UUID; here that becomes one GORM row per network, read
// and written through the same property-reflection schema the scrape
// configuration uses (§4.H).
package dvbnet

import (
	"context"
	"fmt"

	"github.com/opendvr/tvcore/internal/models"
	"github.com/opendvr/tvcore/internal/repository"
	"github.com/opendvr/tvcore/internal/settings"
)

// Loader owns DVB network configuration persistence.
type Loader struct {
	repo repository.DVBNetworkRepository
}

// NewLoader constructs a Loader backed by repo.
func NewLoader(repo repository.DVBNetworkRepository) *Loader {
	return &Loader{repo: repo}
}

// Init mirrors linuxdvb_network_init: loads every persisted network
// configuration at startup. Networks that fail validation are skipped
// rather than aborting the whole load, matching the original's
// per-entry htsmsg walk continuing past bad entries.
func (l *Loader) Init(ctx context.Context) ([]*models.DVBNetwork, error) {
	networks, err := l.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dvb networks: %w", err)
	}
	valid := networks[:0]
	for _, n := range networks {
		if n.Validate() == nil {
			valid = append(valid, n)
		}
	}
	return valid, nil
}

// GetConfig returns a network's configuration as a property map
// (§4.H's read_values), suitable for a configuration API surface.
func (l *Loader) GetConfig(ctx context.Context, id models.ULID) (map[string]any, error) {
	n, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("dvb network %s not found", id)
	}
	return settings.ReadValues(settings.DVBNetworkSchema(n)), nil
}

// SetConfig applies values onto an existing network's record
// (§4.H's write_values) and persists it if anything changed. Returns
// the number of fields actually changed.
func (l *Loader) SetConfig(ctx context.Context, id models.ULID, values map[string]any) (int, error) {
	n, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("dvb network %s not found", id)
	}

	changed := settings.WriteValues(settings.DVBNetworkSchema(n), values)
	if changed == 0 {
		return 0, nil
	}
	if err := n.Validate(); err != nil {
		return 0, err
	}
	if err := l.repo.Update(ctx, n); err != nil {
		return 0, fmt.Errorf("saving dvb network %s: %w", id, err)
	}
	return changed, nil
}

// Create validates and persists a brand new network configuration
// (linuxdvb_network_config_save's creation path).
func (l *Loader) Create(ctx context.Context, n *models.DVBNetwork) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return l.repo.Create(ctx, n)
}

// Delete removes a network configuration.
func (l *Loader) Delete(ctx context.Context, id models.ULID) error {
	return l.repo.Delete(ctx, id)
}
