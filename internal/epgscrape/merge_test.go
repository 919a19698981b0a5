package epgscrape

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendvr/tvcore/internal/models"
)

// mergeFixture wires a Worker to in-memory repos for every EPG table, so
// merge tests can inspect brand/season/episode rows directly rather than
// only the episode subtitle (the only thing TestWorker_MergeUpdatesEpisodeSubtitleWhenSupplied
// in worker_test.go exercises).
type mergeFixture struct {
	w          *Worker
	broadcasts *fakeBroadcastRepo
	brands     *fakeBrandRepo
	seasons    *fakeSeasonRepo
	episodes   *fakeEpisodeRepo
}

func newMergeFixture() *mergeFixture {
	broadcasts := newFakeBroadcastRepo()
	brands := newFakeBrandRepo()
	seasons := newFakeSeasonRepo()
	episodes := newFakeEpisodeRepo()
	w := New(Config{
		Enabled:    true,
		Exec:       "/bin/true",
		Broadcasts: broadcasts,
		Brands:     brands,
		Seasons:    seasons,
		Episodes:   episodes,
		YieldAfter: time.Millisecond,
	}, &sync.Mutex{})
	return &mergeFixture{w: w, broadcasts: broadcasts, brands: brands, seasons: seasons, episodes: episodes}
}

func (f *mergeFixture) newBroadcast(t *testing.T) *models.Broadcast {
	t.Helper()
	b := &models.Broadcast{ChannelID: "c1", Title: "Old", Start: time.Now(), Stop: time.Now().Add(time.Hour)}
	require.NoError(t, f.broadcasts.Create(context.Background(), b))
	return b
}

func (f *mergeFixture) episodeOf(t *testing.T, broadcastID models.ULID) *models.Episode {
	t.Helper()
	b, err := f.broadcasts.GetByID(context.Background(), broadcastID)
	require.NoError(t, err)
	require.NotNil(t, b.EpisodeID)
	ep, err := f.episodes.GetByID(context.Background(), *b.EpisodeID)
	require.NoError(t, err)
	return ep
}

func (f *mergeFixture) brandOf(t *testing.T, episode *models.Episode) *models.Brand {
	t.Helper()
	require.NotNil(t, episode.BrandID)
	brand, err := f.brands.GetByID(context.Background(), *episode.BrandID)
	require.NoError(t, err)
	return brand
}

func (f *mergeFixture) seasonOf(t *testing.T, episode *models.Episode) *models.Season {
	t.Helper()
	require.NotNil(t, episode.SeasonID)
	season, err := f.seasons.GetByID(context.Background(), *episode.SeasonID)
	require.NoError(t, err)
	return season
}

func TestMerge_BrandSeasonCountFeedsEpisodeNumbering(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	item := &Item{BroadcastID: b.ID, Output: map[string]any{
		"brand":   map[string]any{"title": "A Show", "season_count": float64(10)},
		"season":  map[string]any{"season_number": float64(2), "episode_count": float64(8)},
		"episode": map[string]any{"episode_number": float64(5)},
	}}
	changed, err := f.w.merge(ctx, item)
	require.NoError(t, err)
	assert.True(t, changed)

	episode := f.episodeOf(t, b.ID)
	brand := f.brandOf(t, episode)
	season := f.seasonOf(t, episode)

	assert.Equal(t, 10, brand.SeasonCount)
	assert.Equal(t, 8, season.EpisodeCount)
	assert.Equal(t, 2, season.SeasonNumber)

	// The numbering record stored on the episode draws its season count
	// from the brand's season_count, not the season's episode_count.
	assert.Equal(t, 5, episode.EpisodeNumber)
	assert.Equal(t, 8, episode.EpisodeCount)
	assert.Equal(t, 2, episode.SeasonNumber)
	assert.Equal(t, 10, episode.SeasonCount)
}

func TestMerge_EpisodeSubobjectOverridesBrandAndSeasonNumbering(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	item := &Item{BroadcastID: b.ID, Output: map[string]any{
		"brand":  map[string]any{"title": "A Show", "season_count": float64(10)},
		"season": map[string]any{"season_number": float64(2), "episode_count": float64(8)},
		"episode": map[string]any{
			"episode_number": float64(5),
			"season_count":   float64(99),
			"season_number":  float64(3),
			"episode_count":  float64(7),
			"part_number":    float64(2),
			"part_count":     float64(3),
		},
	}}
	_, err := f.w.merge(ctx, item)
	require.NoError(t, err)

	episode := f.episodeOf(t, b.ID)
	assert.Equal(t, 99, episode.SeasonCount)
	assert.Equal(t, 3, episode.SeasonNumber)
	assert.Equal(t, 7, episode.EpisodeCount)
	assert.Equal(t, 2, episode.PartNumber)
	assert.Equal(t, 3, episode.PartCount)
}

func TestMerge_AgeAndStarRatingLiveOnEpisodeNotBrand(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	item := &Item{BroadcastID: b.ID, Output: map[string]any{
		"brand":   map[string]any{"title": "A Show"},
		"episode": map[string]any{"age_rating": float64(15), "star_rating": float64(4.5)},
	}}
	_, err := f.w.merge(ctx, item)
	require.NoError(t, err)

	episode := f.episodeOf(t, b.ID)
	require.NotNil(t, episode.AgeRating)
	assert.Equal(t, 15, *episode.AgeRating)
	require.NotNil(t, episode.StarRating)
	assert.Equal(t, 4.5, *episode.StarRating)
}

func TestMerge_SeasonSummaryAndImage(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	item := &Item{BroadcastID: b.ID, Output: map[string]any{
		"brand":  map[string]any{"title": "A Show"},
		"season": map[string]any{"season_number": float64(1), "summary": "season one", "image": "s1.jpg"},
	}}
	_, err := f.w.merge(ctx, item)
	require.NoError(t, err)

	episode := f.episodeOf(t, b.ID)
	season := f.seasonOf(t, episode)
	assert.Equal(t, "season one", season.Summary)
	assert.Equal(t, "s1.jpg", season.Image)
}

func TestMerge_LanguageRecordedOnLocalizedWrite(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	item := &Item{BroadcastID: b.ID, Output: map[string]any{
		"language": "fr",
		"brand":    map[string]any{"title": "Une Série", "summary": "résumé"},
		"episode":  map[string]any{"subtitle": "Episode Un"},
	}}
	_, err := f.w.merge(ctx, item)
	require.NoError(t, err)

	episode := f.episodeOf(t, b.ID)
	brand := f.brandOf(t, episode)
	assert.Equal(t, "fr", brand.Language)
	assert.Equal(t, "fr", episode.Language)
}

func TestMerge_NotifiesOnChange(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	var notified models.ULID
	f.w.cfg.OnEPGUpdated = func(id models.ULID) { notified = id }

	item := &Item{BroadcastID: b.ID, Output: map[string]any{"episode": map[string]any{"subtitle": "Ep1"}}}
	changed, err := f.w.merge(ctx, item)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, b.ID, notified)
}

func TestMerge_NoNotifyWhenNothingChanged(t *testing.T) {
	f := newMergeFixture()
	ctx := context.Background()
	b := f.newBroadcast(t)

	notifyCount := 0
	f.w.cfg.OnEPGUpdated = func(models.ULID) { notifyCount++ }

	item := &Item{BroadcastID: b.ID, Output: map[string]any{}}
	changed, err := f.w.merge(ctx, item)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, notifyCount)
}
