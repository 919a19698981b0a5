package epgscrape

import (
	"context"
	"fmt"
	"time"

	"github.com/opendvr/tvcore/internal/models"
)

// merge applies item.Output into the EPG model under the caller-held
// global data-model lock (§4.G step 5). Fields are written only if the
// output supplies them; an empty output parses successfully and
// changes nothing (monotonic merge). The top-level "language" string
// is recorded on every brand/season/episode row whose title/summary/
// description actually changes in this call, standing in for the
// per-locale string storage a fuller i18n layer would provide.
func (w *Worker) merge(ctx context.Context, item *Item) (bool, error) {
	if item.Output == nil {
		return false, nil
	}

	broadcast, err := w.cfg.Broadcasts.GetByID(ctx, item.BroadcastID)
	if err != nil || broadcast == nil {
		return false, err
	}

	language, _ := item.Output["language"].(string)
	changed := false

	// en accumulates the episode's six numbering fields: brand
	// contributes season_count, season contributes season_number and
	// episode_count, and the episode subobject may override any of
	// those plus contribute episode_number/part_number/part_count.
	// Whatever the episode already has stored seeds en, so a subobject
	// that omits a key leaves the existing number untouched. The result
	// is written back once, at the end, regardless of which subobjects
	// were present in this output (the scraper may update brand data on
	// a later pass without resending season/episode).
	episode, err := w.episodeFor(ctx, broadcast)
	if err != nil {
		return false, err
	}
	// An episode row is the anchor brand/season link onto; create it up
	// front (rather than letting whichever merge* happens to run first
	// create it) so brand/season linking always has somewhere to point.
	if episode == nil && hasEPGSubobject(item.Output) {
		episode = &models.Episode{}
		if err := w.cfg.Episodes.Create(ctx, episode); err != nil {
			return false, fmt.Errorf("creating episode: %w", err)
		}
		id := episode.ID
		broadcast.EpisodeID = &id
		changed = true
	}
	startingEn := numberingFor(episode)
	en := startingEn

	if brandFields, ok := asObject(item.Output["brand"]); ok {
		bChanged, err := w.mergeBrand(ctx, broadcast, brandFields, language, &en)
		if err != nil {
			return changed, err
		}
		changed = changed || bChanged
	}

	if seasonFields, ok := asObject(item.Output["season"]); ok {
		sChanged, err := w.mergeSeason(ctx, broadcast, seasonFields, language, &en)
		if err != nil {
			return changed, err
		}
		changed = changed || sChanged
	}

	if episodeFields, ok := asObject(item.Output["episode"]); ok {
		eChanged, err := w.mergeEpisode(ctx, broadcast, episodeFields, language, &en)
		if err != nil {
			return changed, err
		}
		changed = changed || eChanged
	}

	if en != startingEn {
		nChanged, err := w.applyNumbering(ctx, broadcast, en)
		if err != nil {
			return changed, err
		}
		changed = changed || nChanged
	}

	if changed {
		broadcast.Updated = time.Now()
		if err := w.cfg.Broadcasts.Update(ctx, broadcast); err != nil {
			return changed, err
		}
	}
	if changed && w.cfg.OnEPGUpdated != nil {
		w.cfg.OnEPGUpdated(item.BroadcastID)
	}
	return changed, nil
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func hasEPGSubobject(output map[string]any) bool {
	for _, key := range []string{"brand", "season", "episode"} {
		if _, ok := asObject(output[key]); ok {
			return true
		}
	}
	return false
}

func setString(dst *string, fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	s, ok := v.(string)
	if !ok || s == *dst {
		return false
	}
	*dst = s
	return true
}

func setInt(dst *int, fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	n, ok := v.(float64) // encoding/json decodes numbers as float64
	if !ok || int(n) == *dst {
		return false
	}
	*dst = int(n)
	return true
}

// readInt reads an optional numeric field without comparing it against
// any existing value, for overlaying onto the episode numbering record.
func readInt(fields map[string]any, key string) (int, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// episodeNum is the scraper's six-field numbering record (episode_number,
// episode_count, season_number, season_count, part_number, part_count),
// kept as independent fields rather than combined into one ordinal.
type episodeNum struct {
	EpisodeNumber int
	EpisodeCount  int
	SeasonNumber  int
	SeasonCount   int
	PartNumber    int
	PartCount     int
}

func numberingFor(episode *models.Episode) episodeNum {
	if episode == nil {
		return episodeNum{}
	}
	return episodeNum{
		EpisodeNumber: episode.EpisodeNumber,
		EpisodeCount:  episode.EpisodeCount,
		SeasonNumber:  episode.SeasonNumber,
		SeasonCount:   episode.SeasonCount,
		PartNumber:    episode.PartNumber,
		PartCount:     episode.PartCount,
	}
}

// applyNumbering writes the accumulated numbering record back to the
// broadcast's episode. Only called once en has actually changed, and by
// then merge has already ensured the episode row exists.
func (w *Worker) applyNumbering(ctx context.Context, broadcast *models.Broadcast, en episodeNum) (bool, error) {
	episode, err := w.episodeFor(ctx, broadcast)
	if err != nil {
		return false, err
	}
	if episode == nil {
		return false, nil
	}
	episode.EpisodeNumber = en.EpisodeNumber
	episode.EpisodeCount = en.EpisodeCount
	episode.SeasonNumber = en.SeasonNumber
	episode.SeasonCount = en.SeasonCount
	episode.PartNumber = en.PartNumber
	episode.PartCount = en.PartCount

	if err := w.cfg.Episodes.Update(ctx, episode); err != nil {
		return false, fmt.Errorf("updating episode: %w", err)
	}
	return true, nil
}

func (w *Worker) mergeBrand(ctx context.Context, broadcast *models.Broadcast, fields map[string]any, language string, en *episodeNum) (bool, error) {
	episode, err := w.episodeFor(ctx, broadcast)
	if err != nil {
		return false, err
	}
	var brand *models.Brand
	if episode != nil && episode.BrandID != nil {
		brand, err = w.cfg.Brands.GetByID(ctx, *episode.BrandID)
		if err != nil {
			return false, err
		}
	}
	if brand == nil {
		brand = &models.Brand{}
	}

	localized := setString(&brand.Title, fields, "title")
	localized = setString(&brand.Summary, fields, "summary") || localized
	if localized {
		brand.Language = language
	}
	changed := localized
	changed = setString(&brand.Image, fields, "image") || changed

	if n, ok := readInt(fields, "season_count"); ok {
		if brand.SeasonCount != n {
			brand.SeasonCount = n
			changed = true
		}
		en.SeasonCount = n
	}

	if brand.ID.IsZero() {
		if brand.Title == "" {
			return false, nil // nothing to create yet
		}
		if err := w.cfg.Brands.Create(ctx, brand); err != nil {
			return false, fmt.Errorf("creating brand: %w", err)
		}
	} else if changed {
		if err := w.cfg.Brands.Update(ctx, brand); err != nil {
			return false, fmt.Errorf("updating brand: %w", err)
		}
	}

	if episode != nil && changed {
		id := brand.ID
		episode.BrandID = &id
		if err := w.cfg.Episodes.Update(ctx, episode); err != nil {
			return false, err
		}
	}
	return changed, nil
}

func (w *Worker) mergeSeason(ctx context.Context, broadcast *models.Broadcast, fields map[string]any, language string, en *episodeNum) (bool, error) {
	episode, err := w.episodeFor(ctx, broadcast)
	if err != nil {
		return false, err
	}
	var season *models.Season
	if episode != nil && episode.SeasonID != nil {
		season, err = w.cfg.Seasons.GetByID(ctx, *episode.SeasonID)
		if err != nil {
			return false, err
		}
	}
	if season == nil {
		season = &models.Season{}
	}

	localized := setString(&season.Summary, fields, "summary")
	if localized {
		season.Language = language
	}
	changed := localized
	changed = setString(&season.Image, fields, "image") || changed
	changed = setInt(&season.SeasonNumber, fields, "season_number") || changed
	changed = setInt(&season.EpisodeCount, fields, "episode_count") || changed

	if n, ok := readInt(fields, "season_number"); ok {
		en.SeasonNumber = n
	}
	if n, ok := readInt(fields, "episode_count"); ok {
		en.EpisodeCount = n
	}

	if season.ID.IsZero() {
		if season.SeasonNumber == 0 && season.EpisodeCount == 0 {
			return false, nil
		}
		if err := w.cfg.Seasons.Create(ctx, season); err != nil {
			return false, fmt.Errorf("creating season: %w", err)
		}
	} else if changed {
		if err := w.cfg.Seasons.Update(ctx, season); err != nil {
			return false, fmt.Errorf("updating season: %w", err)
		}
	}

	if episode != nil && changed {
		id := season.ID
		episode.SeasonID = &id
		if err := w.cfg.Episodes.Update(ctx, episode); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// mergeEpisode applies the episode subobject's textual/rating fields and
// overlays its numbering keys (which take priority over brand/season's
// contribution) onto en. The numbering record itself is written back by
// applyNumbering, not here.
func (w *Worker) mergeEpisode(ctx context.Context, broadcast *models.Broadcast, fields map[string]any, language string, en *episodeNum) (bool, error) {
	episode, err := w.episodeFor(ctx, broadcast)
	if err != nil {
		return false, err
	}

	localized := setString(&episode.Subtitle, fields, "subtitle")
	localized = setString(&episode.Description, fields, "description") || localized
	if localized {
		episode.Language = language
	}
	changed := localized
	changed = setString(&episode.Image, fields, "image") || changed

	if v, ok := fields["age_rating"].(float64); ok {
		n := int(v)
		if episode.AgeRating == nil || *episode.AgeRating != n {
			episode.AgeRating = &n
			changed = true
		}
	}
	if v, ok := fields["star_rating"].(float64); ok {
		if episode.StarRating == nil || *episode.StarRating != v {
			episode.StarRating = &v
			changed = true
		}
	}
	if v, ok := fields["first_aired"].(float64); ok {
		t := time.Unix(int64(v), 0)
		if episode.FirstAired == nil || !episode.FirstAired.Equal(t) {
			episode.FirstAired = &t
			changed = true
		}
	}

	if n, ok := readInt(fields, "episode_number"); ok {
		en.EpisodeNumber = n
	}
	if n, ok := readInt(fields, "episode_count"); ok {
		en.EpisodeCount = n
	}
	if n, ok := readInt(fields, "season_number"); ok {
		en.SeasonNumber = n
	}
	if n, ok := readInt(fields, "season_count"); ok {
		en.SeasonCount = n
	}
	if n, ok := readInt(fields, "part_number"); ok {
		en.PartNumber = n
	}
	if n, ok := readInt(fields, "part_count"); ok {
		en.PartCount = n
	}

	if changed {
		if err := w.cfg.Episodes.Update(ctx, episode); err != nil {
			return false, fmt.Errorf("updating episode: %w", err)
		}
	}
	return changed, nil
}

func (w *Worker) episodeFor(ctx context.Context, broadcast *models.Broadcast) (*models.Episode, error) {
	if broadcast.EpisodeID == nil {
		return nil, nil
	}
	return w.cfg.Episodes.GetByID(ctx, *broadcast.EpisodeID)
}
