package catalog

import "time"

// Card is a single archived character card. Topics holds the raw
// comma-joined tag field as received from the source platform; TagList
// is the normalized, de-duplicated view derived from it on read.
type Card struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Tagline     string `json:"tagline,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`

	Topics  string   `json:"-"`
	TagList []string `json:"tags,omitempty"`

	Language  string `json:"language,omitempty"`
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`

	TokenCount    int     `json:"tokenCount"`
	ChatCount     int     `json:"chatCount"`
	MessageCount  int     `json:"messageCount"`
	FavoriteCount int     `json:"favoriteCount"`
	StarCount     int     `json:"starCount"`
	Rating        float64 `json:"rating"`
	RatingCount   int     `json:"ratingCount"`

	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	FirstSeenAt time.Time `json:"firstSeenAt"`

	Favorited bool `json:"favorited"`

	NSFW              bool `json:"nsfw"`
	HasGallery        bool `json:"hasGallery"`
	HasLorebook       bool `json:"hasLorebook"`
	HasAltGreetings   bool `json:"hasAltGreetings"`
	HasExampleDialogs bool `json:"hasExampleDialogs"`
	HasScenario       bool `json:"hasScenario"`
	HasSystemPrompt   bool `json:"hasSystemPrompt"`
	HasCreatorNotes   bool `json:"hasCreatorNotes"`
}

// TagMode selects how multiple included tags combine.
type TagMode string

const (
	// TagModeAny matches cards carrying at least one variant of at
	// least one requested tag.
	TagModeAny TagMode = "any"
	// TagModeAll requires every requested tag to be satisfied by one
	// of its own variants.
	TagModeAll TagMode = "all"
)

// FavoriteFilter restricts results by favorite visibility state.
type FavoriteFilter string

const (
	FavoriteAll  FavoriteFilter = ""
	FavoriteOnly FavoriteFilter = "fav"
	FavoriteNone FavoriteFilter = "not_fav"
)

// SortKey names one of the fixed catalog of sort orders.
type SortKey string

const (
	SortRecent          SortKey = "recent"
	SortOldest          SortKey = "oldest"
	SortCreated         SortKey = "created"
	SortFirstSeen       SortKey = "first_seen"
	SortName            SortKey = "name"
	SortNameDesc        SortKey = "name_desc"
	SortTokens          SortKey = "tokens"
	SortStars           SortKey = "stars"
	SortFavorites       SortKey = "favorites"
	SortMessages        SortKey = "messages"
	SortChats           SortKey = "chats"
	SortRating          SortKey = "rating"
	SortOverallRating   SortKey = "overall_rating"
	SortTrending        SortKey = "trending"
	SortEngagement      SortKey = "engagement"
	SortFreshEngagement SortKey = "fresh_engagement"
)

// SearchOptions carries every supported filter. Zero values are no-ops,
// so callers can populate only what they parsed from a request.
//
// AllowedIDs and Creators distinguish nil (unset, no filter) from an
// empty non-nil slice (explicit empty allow-list, zero results).
type SearchOptions struct {
	Query       string
	TitleQuery  string
	AuthorQuery string

	Tags        []string
	TagMode     TagMode
	ExcludeTags []string

	MinTokens int
	Language  string
	Source    string // "" or "all" disables the filter
	Favorite  FavoriteFilter

	NSFWOnly           bool
	GalleryOnly        bool
	LorebookOnly       bool
	AltGreetingsOnly   bool
	ExampleDialogsOnly bool
	ScenarioOnly       bool
	SystemPromptOnly   bool
	CreatorNotesOnly   bool

	AllowedIDs []string
	Creators   []string

	Sort     SortKey
	Page     int
	PageSize int
}

// CardPage is one page of search results together with the total match
// count at the same filter set.
type CardPage struct {
	Cards      []Card `json:"cards"`
	TotalItems int    `json:"totalItems"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// LanguageCount is one row of the per-language aggregation.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// TopicCount is one row of the topic usage aggregation.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}
