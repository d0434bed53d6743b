package enricher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ludarr/ludarr/internal/cache"
	"github.com/ludarr/ludarr/internal/models"
	"github.com/ludarr/ludarr/internal/services/hltb"
	"github.com/ludarr/ludarr/internal/services/igdb"
	"github.com/ludarr/ludarr/internal/services/protondb"
	"github.com/ludarr/ludarr/internal/services/steam"
)

// Config controls which sources run and how enrichment batches behave.
type Config struct {
	MaxAgeDays        int
	FetchAssets       bool
	FetchDurations    bool
	FetchCompat       bool
	FetchAchievements bool
	Workers           int
}

// Sources bundles the external data providers. A nil source disables the
// corresponding enrichment step.
type Sources struct {
	Metadata     MetadataSource
	Durations    DurationSource
	Compat       CompatibilitySource
	Achievements AchievementSource
	Assets       AssetSource
}

// Enricher merges base library entries with data from the configured
// sources, persisting results in the metadata cache. A game whose cached
// record is still fresh is served without touching the network.
type Enricher struct {
	cache   *cache.Cache
	sources Sources
	cfg     Config
	logger  *logrus.Logger
}

// New creates an enricher
func New(c *cache.Cache, sources Sources, cfg Config, logger *logrus.Logger) *Enricher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Enricher{
		cache:   c,
		sources: sources,
		cfg:     cfg,
		logger:  logger,
	}
}

// EnrichGame returns the enriched view of a game, fetching from the
// sources when the cached record is missing or stale. Source failures
// degrade to the prior cached values; only a cache write failure is
// reported as an error, alongside the still-valid enriched view.
func (e *Enricher) EnrichGame(ctx context.Context, game models.Game) (*models.EnrichedGame, error) {
	prior, err := e.cache.GetGame(game.ID)
	if err != nil {
		e.logger.WithField("game_id", game.ID).WithError(err).Warn("Metadata cache unreadable, serving base info only")
		return buildMinimal(game), nil
	}

	if prior != nil && !e.cache.IsStale(game.ID, e.cfg.MaxAgeDays) {
		return build(game, prior), nil
	}

	meta := e.refresh(ctx, game, prior)

	if err := e.cache.SaveGame(meta); err != nil {
		return build(game, meta), fmt.Errorf("failed to persist metadata for %s: %w", game.ID, err)
	}

	return build(game, meta), nil
}

// EnrichGames enriches a batch with a bounded worker pool. The result
// slice matches the input in length and order; a game whose enrichment
// fails still yields a minimal record.
func (e *Enricher) EnrichGames(ctx context.Context, games []models.Game) ([]*models.EnrichedGame, error) {
	results := make([]*models.EnrichedGame, len(games))
	sem := semaphore.NewWeighted(int64(e.cfg.Workers))

	g, gctx := errgroup.WithContext(ctx)
	for i, game := range games {
		i, game := i, game
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)

			enriched, err := e.EnrichGame(gctx, game)
			if err != nil {
				e.logger.WithField("game_id", game.ID).WithError(err).Warn("Enrichment incomplete")
			}
			if enriched == nil {
				enriched = buildMinimal(game)
			}
			results[i] = enriched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ForgetGame drops a game's cached metadata record so the next enrichment
// refetches regardless of staleness. Downloaded assets stay on disk and
// are reused.
func (e *Enricher) ForgetGame(gameID string) error {
	return e.cache.RemoveGame(gameID)
}

// ClearGameCache drops one game's cached metadata and assets
func (e *Enricher) ClearGameCache(gameID string) error {
	return e.cache.ClearGame(gameID)
}

// ClearAllCache drops every cached record and asset
func (e *Enricher) ClearAllCache() error {
	return e.cache.ClearAll()
}

// GetCacheStats reports cache contents
func (e *Enricher) GetCacheStats() (*cache.Stats, error) {
	return e.cache.GetStats()
}

// refresh fetches from every enabled source and merges the results over
// the prior record. Catalog metadata goes first since it resolves the
// Steam app ID the compatibility and achievement sources key on; the
// remaining sources are independent and run concurrently.
func (e *Enricher) refresh(ctx context.Context, game models.Game, prior *models.GameMetadata) *models.GameMetadata {
	meta := models.GameMetadata{GameID: game.ID}
	if prior != nil {
		meta = *prior
		meta.GameID = game.ID
	}

	if e.sources.Metadata != nil {
		m, err := e.sources.Metadata.FetchMetadata(ctx, game.Title)
		switch {
		case err != nil:
			e.logger.WithField("title", game.Title).WithError(err).Warn("Catalog metadata fetch failed")
		case m != nil:
			applyCatalog(&meta, m)
		}
	}

	appID := e.resolveSteamAppID(game, &meta)

	var (
		durations    *hltb.Durations
		compat       *protondb.Summary
		achievements *steam.Progress
		assetPaths   map[cache.AssetKind]string
	)

	g, gctx := errgroup.WithContext(ctx)

	if e.cfg.FetchDurations && e.sources.Durations != nil {
		g.Go(func() error {
			d, err := e.sources.Durations.FetchDurations(gctx, game.Title)
			if err != nil {
				e.logger.WithField("title", game.Title).WithError(err).Warn("Completion time fetch failed")
				return nil
			}
			durations = d
			return nil
		})
	}

	if e.cfg.FetchCompat && e.sources.Compat != nil && appID != nil {
		g.Go(func() error {
			s, err := e.sources.Compat.FetchSummary(gctx, *appID)
			if err != nil {
				e.logger.WithField("steam_app_id", *appID).WithError(err).Warn("Compatibility fetch failed")
				return nil
			}
			compat = s
			return nil
		})
	}

	if e.cfg.FetchAchievements && e.sources.Achievements != nil && appID != nil {
		g.Go(func() error {
			p, err := e.sources.Achievements.FetchProgress(gctx, *appID)
			if err != nil {
				e.logger.WithField("steam_app_id", *appID).WithError(err).Warn("Achievement fetch failed")
				return nil
			}
			achievements = p
			return nil
		})
	}

	if e.cfg.FetchAssets && e.sources.Assets != nil {
		g.Go(func() error {
			assetPaths = e.fetchAssets(gctx, game)
			return nil
		})
	}

	// Goroutines swallow their own errors, Wait only orders the merge.
	g.Wait()

	if appID != nil {
		meta.SteamAppID = appID
	}
	if durations != nil {
		applyDurations(&meta, durations)
	}
	if compat != nil {
		applyCompat(&meta, compat)
	}
	if achievements != nil {
		applyAchievements(&meta, achievements)
	}
	for kind, path := range assetPaths {
		setAssetPath(&meta, kind, path)
	}

	now := time.Now().UTC()
	if meta.FetchedAt.IsZero() {
		meta.FetchedAt = now
	}
	meta.LastUpdated = now

	return &meta
}

// fetchAssets downloads artwork for every asset slot not already on disk.
// Failures are logged and skipped; the returned map holds only what was
// actually saved.
func (e *Enricher) fetchAssets(ctx context.Context, game models.Game) map[cache.AssetKind]string {
	var missing []cache.AssetKind
	for _, kind := range cache.AllAssetKinds {
		if !e.cache.HasAsset(game.ID, kind) {
			missing = append(missing, kind)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sgdbID, err := e.sources.Assets.SearchGame(ctx, game.Title)
	if err != nil {
		e.logger.WithField("title", game.Title).WithError(err).Warn("Artwork lookup failed")
		return nil
	}

	urls, err := e.sources.Assets.FetchArtworkURLs(ctx, sgdbID)
	if err != nil {
		e.logger.WithField("title", game.Title).WithError(err).Warn("Artwork listing failed")
		return nil
	}

	saved := make(map[cache.AssetKind]string)
	for _, kind := range missing {
		imageURL := urls.URLForKind(kind)
		if imageURL == "" {
			continue
		}

		data, ext, err := e.sources.Assets.DownloadImage(ctx, imageURL)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"game_id": game.ID,
				"kind":    kind,
			}).WithError(err).Warn("Artwork download failed")
			continue
		}

		path, err := e.cache.SaveAsset(game.ID, kind, data, ext)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"game_id": game.ID,
				"kind":    kind,
			}).WithError(err).Warn("Artwork save failed")
			continue
		}
		saved[kind] = path
	}

	return saved
}

// resolveSteamAppID prefers the catalog's external-game mapping and falls
// back to the store ID for games that live in the Steam library anyway.
func (e *Enricher) resolveSteamAppID(game models.Game, meta *models.GameMetadata) *uint32 {
	if meta.SteamAppID != nil {
		return meta.SteamAppID
	}
	if game.Store == models.StoreSteam && game.StoreID != "" {
		if id, err := strconv.ParseUint(game.StoreID, 10, 32); err == nil {
			appID := uint32(id)
			return &appID
		}
	}
	return nil
}

func applyCatalog(meta *models.GameMetadata, m *igdb.Metadata) {
	id := m.IGDBID
	meta.IGDBID = &id

	if m.Description != "" {
		meta.Description = m.Description
	}
	if m.Summary != "" {
		meta.Summary = m.Summary
	}
	if m.Rating != nil {
		meta.Rating = m.Rating
	}
	if m.AggregatedRating != nil {
		meta.AggregatedRating = m.AggregatedRating
	}
	if m.Developer != "" {
		meta.Developer = m.Developer
	}
	if m.Publisher != "" {
		meta.Publisher = m.Publisher
	}
	if len(m.Genres) > 0 {
		meta.Genres = m.Genres
	}
	if m.ReleaseDate != "" {
		meta.ReleaseDate = m.ReleaseDate
	}
	if m.SteamAppID != nil {
		meta.SteamAppID = m.SteamAppID
	}
}

func applyDurations(meta *models.GameMetadata, d *hltb.Durations) {
	id := d.HLTBID
	meta.HLTBID = &id

	if d.Main != nil {
		meta.HLTBMain = d.Main
	}
	if d.MainExtra != nil {
		meta.HLTBMainExtra = d.MainExtra
	}
	if d.Complete != nil {
		meta.HLTBComplete = d.Complete
	}
}

func applyCompat(meta *models.GameMetadata, s *protondb.Summary) {
	meta.ProtonTier = string(s.Tier)
	meta.ProtonConfidence = s.Confidence
	meta.ProtonTrendingTier = string(s.TrendingTier)
}

func applyAchievements(meta *models.GameMetadata, p *steam.Progress) {
	total := p.Total
	unlocked := p.Unlocked
	meta.AchievementsTotal = &total
	meta.AchievementsUnlocked = &unlocked
}

func setAssetPath(meta *models.GameMetadata, kind cache.AssetKind, path string) {
	switch kind {
	case cache.AssetHero:
		meta.HeroPath = path
	case cache.AssetGrid:
		meta.GridPath = path
	case cache.AssetLogo:
		meta.LogoPath = path
	case cache.AssetIcon:
		meta.IconPath = path
	}
}

// build merges a base game with its metadata record. Metadata values win
// over whatever the storefront reported.
func build(game models.Game, meta *models.GameMetadata) *models.EnrichedGame {
	enriched := buildMinimal(game)

	if meta.Description != "" {
		enriched.Description = meta.Description
	}
	if meta.Summary != "" {
		enriched.Summary = meta.Summary
	}
	enriched.Rating = meta.Rating
	enriched.AggregatedRating = meta.AggregatedRating
	if meta.Developer != "" {
		enriched.Developer = meta.Developer
	}
	if meta.Publisher != "" {
		enriched.Publisher = meta.Publisher
	}
	enriched.Genres = meta.Genres
	if meta.ReleaseDate != "" {
		enriched.ReleaseDate = meta.ReleaseDate
	}

	enriched.HLTBMain = meta.HLTBMain
	enriched.HLTBMainExtra = meta.HLTBMainExtra
	enriched.HLTBComplete = meta.HLTBComplete
	enriched.HLTBSpeedrun = meta.HLTBSpeedrun

	enriched.SteamAppID = meta.SteamAppID
	enriched.ProtonTier = meta.ProtonTier
	enriched.ProtonConfidence = meta.ProtonConfidence
	enriched.ProtonTrendingTier = meta.ProtonTrendingTier

	enriched.AchievementsTotal = meta.AchievementsTotal
	enriched.AchievementsUnlocked = meta.AchievementsUnlocked

	enriched.HeroPath = meta.HeroPath
	enriched.GridPath = meta.GridPath
	enriched.LogoPath = meta.LogoPath
	enriched.IconPath = meta.IconPath

	enrichedAt := meta.LastUpdated
	enriched.EnrichedAt = &enrichedAt

	return enriched
}

// buildMinimal carries base info only; EnrichedAt stays nil to signal the
// record was served without metadata.
func buildMinimal(game models.Game) *models.EnrichedGame {
	return &models.EnrichedGame{
		ID:              game.ID,
		Title:           game.Title,
		Store:           game.Store,
		StoreID:         game.StoreID,
		Installed:       game.Installed,
		InstallPath:     game.InstallPath,
		Description:     game.Description,
		Developer:       game.Developer,
		Publisher:       game.Publisher,
		ReleaseDate:     game.ReleaseDate,
		CoverURL:        game.CoverURL,
		BackgroundURL:   game.BackgroundURL,
		PlayTimeMinutes: game.PlayTimeMinutes,
		LastPlayed:      game.LastPlayed,
		CreatedAt:       game.CreatedAt,
		UpdatedAt:       game.UpdatedAt,
	}
}
