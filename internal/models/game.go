package models

import "time"

// Store identifies which storefront a game belongs to
type Store string

const (
	StoreSteam  Store = "steam"
	StoreEpic   Store = "epic"
	StoreGOG    Store = "gog"
	StoreAmazon Store = "amazon"
)

// Game is a base library entry as reported by a storefront adapter.
// ID is the cache key used by the enrichment pipeline.
type Game struct {
	ID        string `boltholdKey:"ID" json:"id"`
	Title     string `json:"title"`
	Store     Store  `boltholdIndex:"Store" json:"store"`
	StoreID   string `json:"store_id"`
	Installed bool   `json:"installed"`

	InstallPath string `json:"install_path,omitempty"`

	// Optional fields the storefront may already know; they act as
	// fallbacks when no metadata source supplies a value.
	Developer   string `json:"developer,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	Description string `json:"description,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`

	CoverURL      string `json:"cover_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`

	PlayTimeMinutes int64      `json:"play_time_minutes"`
	LastPlayed      *time.Time `json:"last_played,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameMetadata is the cached enrichment record for one game, stored in
// metadata.json. Pointer fields are absent when the corresponding source
// has never succeeded for this game.
type GameMetadata struct {
	GameID string `json:"game_id"`

	// Catalog data (IGDB)
	IGDBID           *uint64  `json:"igdb_id,omitempty"`
	Description      string   `json:"description,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	AggregatedRating *float64 `json:"aggregated_rating,omitempty"`
	Developer        string   `json:"developer,omitempty"`
	Publisher        string   `json:"publisher,omitempty"`
	Genres           []string `json:"genres,omitempty"` // display order, not a set
	ReleaseDate      string   `json:"release_date,omitempty"`

	// Duration data (HowLongToBeat), whole hours
	HLTBID        *uint64 `json:"hltb_id,omitempty"`
	HLTBMain      *int    `json:"hltb_main,omitempty"`
	HLTBMainExtra *int    `json:"hltb_main_extra,omitempty"`
	HLTBComplete  *int    `json:"hltb_complete,omitempty"`
	HLTBSpeedrun  *int    `json:"hltb_speedrun,omitempty"`

	// Compatibility data (ProtonDB)
	SteamAppID         *uint32 `json:"steam_app_id,omitempty"`
	ProtonTier         string  `json:"proton_tier,omitempty"`
	ProtonConfidence   string  `json:"proton_confidence,omitempty"`
	ProtonTrendingTier string  `json:"proton_trending_tier,omitempty"`

	// Achievements (Steam Web API)
	AchievementsTotal    *int `json:"achievements_total,omitempty"`
	AchievementsUnlocked *int `json:"achievements_unlocked,omitempty"`

	// Local asset paths (SteamGridDB downloads)
	HeroPath string `json:"hero_path,omitempty"`
	GridPath string `json:"grid_path,omitempty"`
	LogoPath string `json:"logo_path,omitempty"`
	IconPath string `json:"icon_path,omitempty"`

	// FetchedAt is set once on first enrichment; LastUpdated is refreshed
	// on every re-fetch and drives staleness.
	FetchedAt   time.Time `json:"fetched_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// EnrichedGame is the merged view of a base game and its cached metadata.
// It is built on demand and never persisted.
type EnrichedGame struct {
	// Base info
	ID          string `json:"id"`
	Title       string `json:"title"`
	Store       Store  `json:"store"`
	StoreID     string `json:"store_id"`
	Installed   bool   `json:"installed"`
	InstallPath string `json:"install_path,omitempty"`

	// Catalog metadata
	Description      string   `json:"description,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	AggregatedRating *float64 `json:"aggregated_rating,omitempty"`
	Developer        string   `json:"developer,omitempty"`
	Publisher        string   `json:"publisher,omitempty"`
	Genres           []string `json:"genres,omitempty"`
	ReleaseDate      string   `json:"release_date,omitempty"`

	// Completion times
	HLTBMain      *int `json:"hltb_main,omitempty"`
	HLTBMainExtra *int `json:"hltb_main_extra,omitempty"`
	HLTBComplete  *int `json:"hltb_complete,omitempty"`
	HLTBSpeedrun  *int `json:"hltb_speedrun,omitempty"`

	// Linux compatibility
	SteamAppID         *uint32 `json:"steam_app_id,omitempty"`
	ProtonTier         string  `json:"proton_tier,omitempty"`
	ProtonConfidence   string  `json:"proton_confidence,omitempty"`
	ProtonTrendingTier string  `json:"proton_trending_tier,omitempty"`

	// Achievements
	AchievementsTotal    *int `json:"achievements_total,omitempty"`
	AchievementsUnlocked *int `json:"achievements_unlocked,omitempty"`

	// Local asset paths
	HeroPath string `json:"hero_path,omitempty"`
	GridPath string `json:"grid_path,omitempty"`
	LogoPath string `json:"logo_path,omitempty"`
	IconPath string `json:"icon_path,omitempty"`

	// Pass-through storefront URLs
	CoverURL      string `json:"cover_url,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`

	// User data
	PlayTimeMinutes int64      `json:"play_time_minutes"`
	LastPlayed      *time.Time `json:"last_played,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// EnrichedAt is nil for a minimal record built without cache data
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
}
