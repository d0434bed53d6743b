package enricher

import (
	"context"

	"github.com/ludarr/ludarr/internal/services/hltb"
	"github.com/ludarr/ludarr/internal/services/igdb"
	"github.com/ludarr/ludarr/internal/services/protondb"
	"github.com/ludarr/ludarr/internal/services/steam"
	"github.com/ludarr/ludarr/internal/services/steamgriddb"
)

// MetadataSource supplies catalog metadata looked up by title.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, title string) (*igdb.Metadata, error)
}

// DurationSource supplies community completion times looked up by title.
type DurationSource interface {
	FetchDurations(ctx context.Context, title string) (*hltb.Durations, error)
}

// CompatibilitySource supplies Linux compatibility reports for a Steam app.
type CompatibilitySource interface {
	FetchSummary(ctx context.Context, steamAppID uint32) (*protondb.Summary, error)
}

// AchievementSource supplies the player's achievement progress for a
// Steam app.
type AchievementSource interface {
	FetchProgress(ctx context.Context, appID uint32) (*steam.Progress, error)
}

// AssetSource resolves a title to artwork and downloads images.
type AssetSource interface {
	SearchGame(ctx context.Context, title string) (uint64, error)
	FetchArtworkURLs(ctx context.Context, gameID uint64) (*steamgriddb.ArtworkURLs, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error)
}
