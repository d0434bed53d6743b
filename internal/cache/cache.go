package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ludarr/ludarr/internal/models"
	"github.com/sirupsen/logrus"
)

// CurrentVersion is the metadata document schema version
const CurrentVersion = 1

// ErrCorrupt is returned when metadata.json exists but cannot be parsed.
// The cache never resets a corrupt document on its own.
var ErrCorrupt = errors.New("metadata cache is corrupt")

// Document is the versioned on-disk metadata cache: one record per game ID.
// A missing entry means the game has never been enriched.
type Document struct {
	Version int                            `json:"version"`
	Games   map[string]models.GameMetadata `json:"games"`
}

// NewDocument creates an empty document at the current schema version
func NewDocument() *Document {
	return &Document{
		Version: CurrentVersion,
		Games:   make(map[string]models.GameMetadata),
	}
}

// Cache manages metadata.json and the per-game asset tree under one root:
//
//	<root>/metadata.json
//	<root>/assets/<game_id>/{hero,grid,logo,icon}.<ext>
//
// All document mutations are full read-modify-write cycles serialized by a
// single mutex held for the whole span.
type Cache struct {
	mu           sync.Mutex
	root         string
	metadataPath string
	logger       *logrus.Logger
}

// New creates a cache rooted at dir
func New(dir string, logger *logrus.Logger) *Cache {
	return &Cache{
		root:         dir,
		metadataPath: filepath.Join(dir, "metadata.json"),
		logger:       logger,
	}
}

// Root returns the cache root directory
func (c *Cache) Root() string {
	return c.root
}

// AssetsDir returns the root of the asset tree
func (c *Cache) AssetsDir() string {
	return filepath.Join(c.root, "assets")
}

// Init creates the cache directories and an empty document if absent
func (c *Cache) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.root, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(c.AssetsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create assets directory: %w", err)
	}

	if _, err := os.Stat(c.metadataPath); os.IsNotExist(err) {
		if err := c.save(NewDocument()); err != nil {
			return err
		}
	}

	c.logger.WithField("cache_dir", c.root).Info("Cache initialized")
	return nil
}

// load reads the document without locking; callers hold c.mu
func (c *Cache) load() (*Document, error) {
	data, err := os.ReadFile(c.metadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to read metadata.json: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if doc.Games == nil {
		doc.Games = make(map[string]models.GameMetadata)
	}

	return &doc, nil
}

// save writes the document without locking; callers hold c.mu
func (c *Cache) save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize metadata cache: %w", err)
	}

	if err := os.WriteFile(c.metadataPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata.json: %w", err)
	}

	return nil
}

// Load returns the current document, or an empty version-1 document if the
// file is absent. A corrupt file is an ErrCorrupt, never a silent reset.
func (c *Cache) Load() (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Save serializes and overwrites the whole document
func (c *Cache) Save(doc *Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(doc)
}

// GetGame returns the cached metadata for a game, or nil if never enriched
func (c *Cache) GetGame(gameID string) (*models.GameMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return nil, err
	}

	meta, ok := doc.Games[gameID]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// SaveGame stores a game's metadata record, replacing any prior record
func (c *Cache) SaveGame(meta *models.GameMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return err
	}

	doc.Games[meta.GameID] = *meta
	return c.save(doc)
}

// RemoveGame deletes a game's metadata record
func (c *Cache) RemoveGame(gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return err
	}

	delete(doc.Games, gameID)
	return c.save(doc)
}

// IsStale reports whether a game's metadata is older than maxAgeDays.
// A missing record is stale, and a read error counts as stale so the
// pipeline prefers a re-fetch over serving unknown data. Age exactly equal
// to the threshold is not stale.
func (c *Cache) IsStale(gameID string, maxAgeDays int) bool {
	meta, err := c.GetGame(gameID)
	if err != nil || meta == nil {
		return true
	}

	return time.Since(meta.LastUpdated) > time.Duration(maxAgeDays)*24*time.Hour
}

// ClearAll resets the document and removes the whole asset tree
func (c *Cache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.save(NewDocument()); err != nil {
		return err
	}

	assetsDir := c.AssetsDir()
	if err := os.RemoveAll(assetsDir); err != nil {
		return fmt.Errorf("failed to remove assets directory: %w", err)
	}
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return fmt.Errorf("failed to recreate assets directory: %w", err)
	}

	c.logger.Info("Cache cleared")
	return nil
}

// ClearGame removes one game's metadata record and asset directory
func (c *Cache) ClearGame(gameID string) error {
	if err := c.RemoveGame(gameID); err != nil {
		return err
	}
	if err := c.DeleteGameAssets(gameID); err != nil {
		return err
	}

	c.logger.WithField("game_id", gameID).Info("Cache cleared for game")
	return nil
}

// Stats describes the cache contents
type Stats struct {
	GameCount       int    `json:"game_count"`
	AssetCount      int    `json:"asset_count"`
	TotalAssetBytes int64  `json:"total_asset_bytes"`
	CacheDir        string `json:"cache_dir"`
}

// GetStats walks the asset tree and reports cache totals
func (c *Cache) GetStats() (*Stats, error) {
	doc, err := c.Load()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		GameCount: len(doc.Games),
		CacheDir:  c.root,
	}

	entries, err := os.ReadDir(c.AssetsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to read assets directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		gameDir := filepath.Join(c.AssetsDir(), entry.Name())
		assets, err := os.ReadDir(gameDir)
		if err != nil {
			continue
		}
		for _, asset := range assets {
			info, err := asset.Info()
			if err != nil {
				continue
			}
			stats.AssetCount++
			stats.TotalAssetBytes += info.Size()
		}
	}

	return stats, nil
}
