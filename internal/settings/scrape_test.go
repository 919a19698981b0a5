package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettingsRepo struct {
	mu   sync.Mutex
	rows map[string]map[string]any
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]map[string]any)}
}

func (r *fakeSettingsRepo) Save(ctx context.Context, key string, value map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key] = value
	return nil
}

func (r *fakeSettingsRepo) Load(ctx context.Context, key string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.rows[key]; ok {
		return v, nil
	}
	return map[string]any{}, nil
}

func TestScrapeStore_SetConfigPersistsAndNotifies(t *testing.T) {
	repo := newFakeSettingsRepo()
	var notified []Snapshot
	store := NewScrapeStore(repo, func(s Snapshot) { notified = append(notified, s) })

	ctx := context.Background()
	changed, err := store.SetConfig(ctx, map[string]any{"enabled": true, "exec": "/usr/bin/scraper"})
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, notified, 1)
	assert.Equal(t, Snapshot{Enabled: true, Exec: "/usr/bin/scraper"}, notified[0])

	persisted, err := repo.Load(ctx, scrapeConfigKey)
	require.NoError(t, err)
	assert.Equal(t, true, persisted["enabled"])
	assert.Equal(t, "/usr/bin/scraper", persisted["exec"])
}

func TestScrapeStore_SetConfigNoOpWhenUnchanged(t *testing.T) {
	repo := newFakeSettingsRepo()
	calls := 0
	store := NewScrapeStore(repo, func(Snapshot) { calls++ })
	ctx := context.Background()

	changed, err := store.SetConfig(ctx, map[string]any{"enabled": false})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, calls)
}

func TestScrapeStore_Load(t *testing.T) {
	repo := newFakeSettingsRepo()
	require.NoError(t, repo.Save(context.Background(), scrapeConfigKey, map[string]any{
		"enabled": true,
		"exec":    "/bin/echo",
	}))

	store := NewScrapeStore(repo, nil)
	require.NoError(t, store.Load(context.Background()))

	got := store.GetConfig()
	assert.Equal(t, Snapshot{Enabled: true, Exec: "/bin/echo"}, got)
}
