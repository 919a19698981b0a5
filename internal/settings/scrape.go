package settings

import (
	"context"
	"sync"

	"github.com/opendvr/tvcore/internal/repository"
)

// scrapeConfigKey is the one settings-store key the core reads: the
// serialized form is {"enabled": <bool>, "exec": <string>} (§6).
const scrapeConfigKey = "scrape/config"

// ScrapeConfig is the process-wide scrape configuration record (§3
// "Scrape configuration"): enabled flag and executable path, guarded by
// its own mutex rather than the data-model lock; a read waits only for a
// config write already in progress.
type ScrapeConfig struct {
	mu      sync.Mutex
	enabled bool
	exec    string
}

func (c *ScrapeConfig) schema() Schema {
	return Schema{
		{
			Name: "enabled",
			Type: FieldBool,
			Get:  func() any { return c.enabled },
			Set: func(v any) bool {
				b, ok := v.(bool)
				if !ok || b == c.enabled {
					return false
				}
				c.enabled = b
				return true
			},
		},
		{
			Name: "exec",
			Type: FieldString,
			Get:  func() any { return c.exec },
			Set: func(v any) bool {
				s, ok := v.(string)
				if !ok || s == c.exec {
					return false
				}
				c.exec = s
				return true
			},
		},
	}
}

// Snapshot is the read-only view of the scrape config returned by the
// configuration API's get_config operation.
type Snapshot struct {
	Enabled bool
	Exec    string
}

// ScrapeStore persists ScrapeConfig through a SettingsRepository and
// notifies a registered listener whenever a write actually changes a
// field, standing in for the spec's condition-variable signal.
type ScrapeStore struct {
	repo   repository.SettingsRepository
	cfg    ScrapeConfig
	onChange func(Snapshot)
}

// NewScrapeStore constructs a store backed by repo. onChange may be nil;
// when set it is invoked synchronously after every config write that
// changed at least one field (typically wired to Worker.SetEnabled).
func NewScrapeStore(repo repository.SettingsRepository, onChange func(Snapshot)) *ScrapeStore {
	return &ScrapeStore{repo: repo, onChange: onChange}
}

// Load reads the persisted config into memory. A missing key leaves the
// record at its zero value (disabled, no executable).
func (s *ScrapeStore) Load(ctx context.Context) error {
	values, err := s.repo.Load(ctx, scrapeConfigKey)
	if err != nil {
		return err
	}
	s.cfg.mu.Lock()
	WriteValues(s.cfg.schema(), values)
	s.cfg.mu.Unlock()
	return nil
}

// GetConfig returns the current scrape config (§6 "get_config").
func (s *ScrapeStore) GetConfig() Snapshot {
	s.cfg.mu.Lock()
	defer s.cfg.mu.Unlock()
	return Snapshot{Enabled: s.cfg.enabled, Exec: s.cfg.exec}
}

// SetConfig applies values to the record, persists it if anything
// changed, and notifies the registered listener (§6 "set_config").
// Returns whether any field actually changed.
func (s *ScrapeStore) SetConfig(ctx context.Context, values map[string]any) (bool, error) {
	s.cfg.mu.Lock()
	n := WriteValues(s.cfg.schema(), values)
	snapshot := Snapshot{Enabled: s.cfg.enabled, Exec: s.cfg.exec}
	persisted := ReadValues(s.cfg.schema())
	s.cfg.mu.Unlock()

	if n == 0 {
		return false, nil
	}

	if err := s.repo.Save(ctx, scrapeConfigKey, persisted); err != nil {
		return true, err
	}
	if s.onChange != nil {
		s.onChange(snapshot)
	}
	return true, nil
}
