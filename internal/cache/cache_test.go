package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ludarr/ludarr/internal/logging"
	"github.com/ludarr/ludarr/internal/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(t.TempDir(), logging.NewLogger("error"))
	if err := c.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}

func intPtr(v int) *int          { return &v }
func u64Ptr(v uint64) *uint64    { return &v }
func f64Ptr(v float64) *float64  { return &v }

func TestInitCreatesEmptyDocument(t *testing.T) {
	c := newTestCache(t)

	doc, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Errorf("Expected version %d, got %d", CurrentVersion, doc.Version)
	}
	if len(doc.Games) != 0 {
		t.Errorf("Expected empty document, got %d games", len(doc.Games))
	}
}

func TestLoadMissingFileReturnsEmptyDocument(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "never-created"), logging.NewLogger("error"))

	doc, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Version != CurrentVersion || len(doc.Games) != 0 {
		t.Errorf("Expected empty version-%d document", CurrentVersion)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	c := newTestCache(t)

	if err := os.WriteFile(filepath.Join(c.Root(), "metadata.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to corrupt file: %v", err)
	}

	_, err := c.Load()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}

	// The corrupt file must not be reset
	if _, err := c.GetGame("any"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt from GetGame, got %v", err)
	}
}

func TestSaveGameRoundTrip(t *testing.T) {
	c := newTestCache(t)

	now := time.Now().UTC().Truncate(time.Second)
	meta := &models.GameMetadata{
		GameID:           "game_1",
		IGDBID:           u64Ptr(1234),
		Description:      "A test game",
		Summary:          "Short summary",
		Rating:           f64Ptr(85.5),
		AggregatedRating: f64Ptr(90.0),
		Developer:        "Dev Studio",
		Publisher:        "Publisher Inc",
		Genres:           []string{"Action", "Adventure"},
		ReleaseDate:      "2021-01-01",
		HLTBMain:         intPtr(25),
		HLTBMainExtra:    intPtr(40),
		HLTBComplete:     intPtr(60),
		SteamAppID:       func() *uint32 { v := uint32(367520); return &v }(),
		ProtonTier:       "platinum",
		AchievementsTotal:    intPtr(63),
		AchievementsUnlocked: intPtr(37),
		HeroPath:         "/cache/assets/game_1/hero.jpg",
		FetchedAt:        now,
		LastUpdated:      now,
	}

	if err := c.SaveGame(meta); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	got, err := c.GetGame("game_1")
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected metadata, got nil")
	}
	if got.GameID != meta.GameID {
		t.Errorf("GameID mismatch: %s", got.GameID)
	}
	if *got.IGDBID != 1234 {
		t.Errorf("IGDBID mismatch: %d", *got.IGDBID)
	}
	if *got.Rating != 85.5 {
		t.Errorf("Rating mismatch: %f", *got.Rating)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Action" || got.Genres[1] != "Adventure" {
		t.Errorf("Genres mismatch: %v", got.Genres)
	}
	if *got.HLTBMain != 25 {
		t.Errorf("HLTBMain mismatch: %d", *got.HLTBMain)
	}
	if got.HLTBSpeedrun != nil {
		t.Errorf("HLTBSpeedrun should stay unset, got %v", *got.HLTBSpeedrun)
	}
	if *got.SteamAppID != 367520 {
		t.Errorf("SteamAppID mismatch: %d", *got.SteamAppID)
	}
	if !got.FetchedAt.Equal(now) || !got.LastUpdated.Equal(now) {
		t.Errorf("Timestamp mismatch: fetched=%v updated=%v", got.FetchedAt, got.LastUpdated)
	}
}

func TestGetGameMissing(t *testing.T) {
	c := newTestCache(t)

	got, err := c.GetGame("never_enriched")
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing game, got %+v", got)
	}
}

func TestRemoveGame(t *testing.T) {
	c := newTestCache(t)

	meta := &models.GameMetadata{GameID: "game_1", FetchedAt: time.Now(), LastUpdated: time.Now()}
	if err := c.SaveGame(meta); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if err := c.RemoveGame("game_1"); err != nil {
		t.Fatalf("RemoveGame failed: %v", err)
	}

	got, err := c.GetGame("game_1")
	if err != nil || got != nil {
		t.Errorf("Expected game removed, got %+v err %v", got, err)
	}
}

func TestIsStaleBoundary(t *testing.T) {
	c := newTestCache(t)

	const maxAge = 7

	// Missing record is stale
	if !c.IsStale("missing", maxAge) {
		t.Error("Missing record should be stale")
	}

	// Exactly at the boundary is not stale (exclusive comparison). Nudge a
	// little inside the window to keep the check robust against the clock
	// advancing between save and check.
	fresh := &models.GameMetadata{
		GameID:      "fresh",
		FetchedAt:   time.Now(),
		LastUpdated: time.Now().Add(-maxAge*24*time.Hour + time.Minute),
	}
	if err := c.SaveGame(fresh); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if c.IsStale("fresh", maxAge) {
		t.Error("Record at the boundary should not be stale")
	}

	stale := &models.GameMetadata{
		GameID:      "stale",
		FetchedAt:   time.Now(),
		LastUpdated: time.Now().Add(-maxAge*24*time.Hour - time.Second),
	}
	if err := c.SaveGame(stale); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if !c.IsStale("stale", maxAge) {
		t.Error("Record one second past the boundary should be stale")
	}
}

func TestClearGameIsolation(t *testing.T) {
	c := newTestCache(t)

	for _, id := range []string{"game_a", "game_b"} {
		meta := &models.GameMetadata{GameID: id, FetchedAt: time.Now(), LastUpdated: time.Now()}
		if err := c.SaveGame(meta); err != nil {
			t.Fatalf("SaveGame failed: %v", err)
		}
		if _, err := c.SaveAsset(id, AssetHero, []byte("img"), "jpg"); err != nil {
			t.Fatalf("SaveAsset failed: %v", err)
		}
	}

	if err := c.ClearGame("game_a"); err != nil {
		t.Fatalf("ClearGame failed: %v", err)
	}

	if got, _ := c.GetGame("game_a"); got != nil {
		t.Error("game_a metadata should be gone")
	}
	if c.HasAsset("game_a", AssetHero) {
		t.Error("game_a assets should be gone")
	}

	if got, _ := c.GetGame("game_b"); got == nil {
		t.Error("game_b metadata should be untouched")
	}
	if !c.HasAsset("game_b", AssetHero) {
		t.Error("game_b assets should be untouched")
	}
}

func TestClearAll(t *testing.T) {
	c := newTestCache(t)

	meta := &models.GameMetadata{GameID: "game_1", FetchedAt: time.Now(), LastUpdated: time.Now()}
	if err := c.SaveGame(meta); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if _, err := c.SaveAsset("game_1", AssetGrid, []byte("img"), "png"); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	if err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	doc, err := c.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Games) != 0 {
		t.Errorf("Expected empty document, got %d games", len(doc.Games))
	}
	if c.HasAsset("game_1", AssetGrid) {
		t.Error("Assets should be gone after ClearAll")
	}
}

func TestGetStats(t *testing.T) {
	c := newTestCache(t)

	meta := &models.GameMetadata{GameID: "game_1", FetchedAt: time.Now(), LastUpdated: time.Now()}
	if err := c.SaveGame(meta); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if _, err := c.SaveAsset("game_1", AssetHero, []byte("12345"), "jpg"); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}
	if _, err := c.SaveAsset("game_1", AssetIcon, []byte("123"), "png"); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.GameCount != 1 {
		t.Errorf("Expected 1 game, got %d", stats.GameCount)
	}
	if stats.AssetCount != 2 {
		t.Errorf("Expected 2 assets, got %d", stats.AssetCount)
	}
	if stats.TotalAssetBytes != 8 {
		t.Errorf("Expected 8 bytes, got %d", stats.TotalAssetBytes)
	}
	if stats.CacheDir != c.Root() {
		t.Errorf("CacheDir mismatch: %s", stats.CacheDir)
	}
}
