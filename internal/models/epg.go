package models

// Brand groups seasons of the same programme together (e.g. a series title).
// Brands, seasons and episodes form a cyclic reference graph with
// broadcasts: modeled here as an arena of rows addressed by stable ULIDs
// rather than owning pointers, so that a season can reference its brand
// and a brand can be looked up independently of any season.
type Brand struct {
	BaseModel
	Title       string `gorm:"not null" json:"title"`
	Summary     string `json:"summary"`
	Image       string `json:"image"`
	SeasonCount int    `json:"season_count"`
	// Language is the scrape output's language tag in effect the last
	// time Title/Summary were written.
	Language string `json:"language,omitempty"`
}

func (b *Brand) Validate() error {
	if b.Title == "" {
		return ErrTitleRequired
	}
	return nil
}

// Season belongs to a Brand by reference (BrandID), never by embedding,
// so brand updates never need to cascade through season rows.
type Season struct {
	BaseModel
	BrandID      ULID   `gorm:"index;type:varchar(26)" json:"brand_id"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Summary      string `json:"summary"`
	Image        string `json:"image"`
	// Language is the scrape output's language tag in effect the last
	// time Summary was written.
	Language string `json:"language,omitempty"`
}

// Episode is the leaf of the brand/season hierarchy and the row the scrape
// worker actually mutates; brand/season linkage is optional since many
// broadcasts never resolve to a series at all. AgeRating/StarRating and
// the numbering fields below are read from the episode subobject of the
// scraper's output, never from brand or season.
type Episode struct {
	BaseModel
	BrandID     *ULID    `gorm:"index;type:varchar(26)" json:"brand_id,omitempty"`
	SeasonID    *ULID    `gorm:"index;type:varchar(26)" json:"season_id,omitempty"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	AgeRating   *int     `json:"age_rating,omitempty"`
	StarRating  *float64 `json:"star_rating,omitempty"`
	FirstAired  *Time    `json:"first_aired,omitempty"`
	// Language is the scrape output's language tag in effect the last
	// time Subtitle/Description was written.
	Language string `json:"language,omitempty"`

	// EpisodeNumber, EpisodeCount, SeasonNumber, SeasonCount, PartNumber
	// and PartCount are six independent numbering fields supplied by the
	// scraper (episode_number/episode_count/season_number/season_count
	// default from the brand/season subobjects but the episode subobject
	// may override any of them) and stored verbatim rather than combined
	// into a single ordinal, matching the scraper's own numbering record.
	EpisodeNumber int `json:"episode_number"`
	EpisodeCount  int `json:"episode_count"`
	SeasonNumber  int `json:"season_number"`
	SeasonCount   int `json:"season_count"`
	PartNumber    int `json:"part_number"`
	PartCount     int `json:"part_count"`
}

// Broadcast is one scheduled instance of a programme on a channel; it is
// the unit the EPG scrape worker enqueues and the unit the scrape merge
// step mutates under the global data-model lock.
type Broadcast struct {
	BaseModel
	ChannelID   string  `gorm:"index;not null" json:"channel_id"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description"`
	Summary     string  `json:"summary"`
	ContentType *uint32 `json:"content_type,omitempty"`

	Start   Time `json:"start"`
	Stop    Time `json:"stop"`
	Scraped Time `json:"scraped"`
	Updated Time `json:"updated"`

	EpisodeID *ULID `gorm:"index;type:varchar(26)" json:"episode_id,omitempty"`

	// InProgress and Completed gate scrape-worker enqueue (spec invariant 8).
	InProgress bool `json:"in_progress"`
	Completed  bool `json:"completed"`
}

func (b *Broadcast) Validate() error {
	if b.ChannelID == "" {
		return ErrChannelIDRequired
	}
	if b.Title == "" {
		return ErrTitleRequired
	}
	if b.Stop.Before(b.Start) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Scrapable reports whether the broadcast is eligible for enqueue: neither
// in-progress nor already completed (invariant 8).
func (b *Broadcast) Scrapable() bool {
	return !b.InProgress && !b.Completed
}
