package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/cache"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/enricher"
	"github.com/ludarr/ludarr/internal/logging"
	"github.com/ludarr/ludarr/internal/models"
	"github.com/ludarr/ludarr/internal/services/hltb"
	"github.com/ludarr/ludarr/internal/services/igdb"
	"github.com/ludarr/ludarr/internal/services/protondb"
	"github.com/ludarr/ludarr/internal/services/steam"
	"github.com/ludarr/ludarr/internal/services/steamgriddb"
)

// app bundles everything a command needs after startup
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *models.Database
	cache    *cache.Cache
	enricher *enricher.Enricher
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApp loads configuration and wires the database, cache, sources and
// enricher. Sources with missing credentials are left nil, which disables
// their pipeline step instead of failing startup.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	metaCache := cache.New(cfg.CacheDir, logger)
	if err := metaCache.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	sources := enricher.Sources{
		Durations: hltb.NewClient(cfg, logger),
		Compat:    protondb.NewClient(cfg, logger),
	}

	if cfg.HasIGDB() {
		igdbClient, err := igdb.NewClient(cfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize IGDB client: %w", err)
		}
		sources.Metadata = igdbClient
	} else {
		logger.Warn("IGDB credentials not configured, catalog metadata disabled")
	}

	if cfg.HasSteamGridDB() {
		sgdbClient, err := steamgriddb.NewClient(cfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize SteamGridDB client: %w", err)
		}
		sources.Assets = sgdbClient
	} else {
		logger.Warn("SteamGridDB API key not configured, artwork disabled")
	}

	if cfg.HasSteam() {
		steamClient, err := steam.NewClient(cfg, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize Steam client: %w", err)
		}
		sources.Achievements = steamClient
	} else {
		logger.Warn("Steam Web API credentials not configured, achievements disabled")
	}

	e := enricher.New(metaCache, sources, enricher.Config{
		MaxAgeDays:        cfg.CacheMaxAgeDays,
		FetchAssets:       cfg.FetchAssets,
		FetchDurations:    cfg.FetchDurations,
		FetchCompat:       cfg.FetchCompat,
		FetchAchievements: cfg.FetchAchievements,
		Workers:           cfg.EnrichWorkers,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		cache:    metaCache,
		enricher: e,
	}, nil
}
