package protondb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/config"
)

const (
	defaultAPIBase = "https://www.protondb.com/api/v1/reports/summaries"
	requestTimeout = 15 * time.Second
)

// Tier is a ProtonDB compatibility rating.
type Tier string

const (
	TierNative   Tier = "native"
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
	TierPending  Tier = "pending"
	TierBorked   Tier = "borked"
)

// Score orders tiers from unplayable to flawless. Unknown tiers score 0.
func (t Tier) Score() int {
	switch t {
	case TierNative:
		return 100
	case TierPlatinum:
		return 90
	case TierGold:
		return 75
	case TierSilver:
		return 50
	case TierBronze:
		return 25
	case TierPending:
		return 10
	default:
		return 0
	}
}

// IsPlayable reports whether the tier indicates a reasonable experience.
func (t Tier) IsPlayable() bool {
	switch t {
	case TierNative, TierPlatinum, TierGold, TierSilver:
		return true
	default:
		return false
	}
}

// Summary is the aggregated compatibility report for one Steam app.
type Summary struct {
	Tier         Tier    `json:"tier"`
	Confidence   string  `json:"confidence"`
	Score        float64 `json:"score"`
	Total        int     `json:"total"`
	TrendingTier Tier    `json:"trendingTier"`
	BestReported Tier    `json:"bestReportedTier"`
}

// Client fetches compatibility summaries from ProtonDB.
type Client struct {
	apiBase    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a ProtonDB client. The summaries endpoint is public.
func NewClient(_ *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		apiBase: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// FetchSummary returns the compatibility summary for a Steam app, or
// (nil, nil) when ProtonDB has no reports for it.
func (c *Client) FetchSummary(ctx context.Context, steamAppID uint32) (*Summary, error) {
	url := fmt.Sprintf("%s/%d.json", c.apiBase, steamAppID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.WithField("steam_app_id", steamAppID).Debug("No ProtonDB reports for app")
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("summary request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"steam_app_id": steamAppID,
		"tier":         summary.Tier,
	}).Debug("Fetched compatibility summary")

	return &summary, nil
}
