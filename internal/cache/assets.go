package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AssetKind identifies one of the four visual asset slots per game
type AssetKind string

const (
	AssetHero AssetKind = "hero"
	AssetGrid AssetKind = "grid"
	AssetLogo AssetKind = "logo"
	AssetIcon AssetKind = "icon"
)

// AllAssetKinds lists every asset slot a game can have
var AllAssetKinds = []AssetKind{AssetHero, AssetGrid, AssetLogo, AssetIcon}

// imageExtensions are the recognized on-disk asset extensions, in probe order
var imageExtensions = []string{"jpg", "jpeg", "png", "webp", "gif"}

// GameAssetsDir returns the asset directory for a game
func (c *Cache) GameAssetsDir(gameID string) string {
	return filepath.Join(c.AssetsDir(), sanitizeID(gameID))
}

// HasAsset reports whether any recognized file exists for the asset slot
func (c *Cache) HasAsset(gameID string, kind AssetKind) bool {
	_, ok := c.ExistingAssetPath(gameID, kind)
	return ok
}

// ExistingAssetPath returns the on-disk path of an asset slot, if present
func (c *Cache) ExistingAssetPath(gameID string, kind AssetKind) (string, bool) {
	gameDir := c.GameAssetsDir(gameID)

	for _, ext := range imageExtensions {
		path := filepath.Join(gameDir, fmt.Sprintf("%s.%s", kind, ext))
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

// SaveAsset writes asset bytes as <kind>.<ext>, creating the game directory
// on demand. Prior files for the same kind with a different extension are
// removed so exactly one file per slot remains.
func (c *Cache) SaveAsset(gameID string, kind AssetKind, data []byte, ext string) (string, error) {
	gameDir := c.GameAssetsDir(gameID)
	if err := os.MkdirAll(gameDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create game assets directory: %w", err)
	}

	for _, other := range imageExtensions {
		if other == ext {
			continue
		}
		stale := filepath.Join(gameDir, fmt.Sprintf("%s.%s", kind, other))
		if err := os.Remove(stale); err == nil {
			c.logger.WithField("path", stale).Debug("Removed stale asset variant")
		}
	}

	path := filepath.Join(gameDir, fmt.Sprintf("%s.%s", kind, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"game_id": gameID,
		"kind":    kind,
		"path":    path,
	}).Debug("Saved asset")

	return path, nil
}

// DeleteGameAssets removes the entire per-game asset directory
func (c *Cache) DeleteGameAssets(gameID string) error {
	gameDir := c.GameAssetsDir(gameID)

	if _, err := os.Stat(gameDir); os.IsNotExist(err) {
		return nil
	}

	if err := os.RemoveAll(gameDir); err != nil {
		return fmt.Errorf("failed to delete game assets directory: %w", err)
	}

	c.logger.WithField("game_id", gameID).Debug("Deleted game assets")
	return nil
}

// sanitizeID makes a game identifier safe for use as a directory name
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, id)
}
