package hltb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/config"
)

const (
	defaultAPIBase = "https://howlongtobeat.com"
	searchPath     = "/api/search"
	requestTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client queries the HowLongToBeat search endpoint for completion times.
type Client struct {
	apiBase    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Durations holds completion times in whole hours. A nil field means the
// community has not reported that category.
type Durations struct {
	HLTBID    uint64
	Main      *int
	MainExtra *int
	Complete  *int
}

type searchRequest struct {
	SearchType    string        `json:"searchType"`
	SearchTerms   []string      `json:"searchTerms"`
	SearchPage    int           `json:"searchPage"`
	Size          int           `json:"size"`
	SearchOptions searchOptions `json:"searchOptions"`
}

type searchOptions struct {
	Games      gameOptions `json:"games"`
	Users      userOptions `json:"users"`
	Filter     string      `json:"filter"`
	Sort       int         `json:"sort"`
	Randomizer int         `json:"randomizer"`
}

type gameOptions struct {
	UserID        int           `json:"userId"`
	Platform      string        `json:"platform"`
	SortCategory  string        `json:"sortCategory"`
	RangeCategory string        `json:"rangeCategory"`
	RangeTime     rangeTime     `json:"rangeTime"`
	Gameplay      gameplayRange `json:"gameplay"`
	Modifier      string        `json:"modifier"`
}

type rangeTime struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type gameplayRange struct {
	Perspective string `json:"perspective"`
	Flow        string `json:"flow"`
	Genre       string `json:"genre"`
}

type userOptions struct {
	SortCategory string `json:"sortCategory"`
}

type searchResponse struct {
	Data []searchResult `json:"data"`
}

type searchResult struct {
	GameID   uint64  `json:"game_id"`
	GameName string  `json:"game_name"`
	CompMain float64 `json:"comp_main"`
	CompPlus float64 `json:"comp_plus"`
	Comp100  float64 `json:"comp_100"`
}

// NewClient creates a HowLongToBeat client. The endpoint requires no
// credentials but rejects requests without a browser user agent.
func NewClient(_ *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		apiBase: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// FetchDurations searches for the game and returns its completion times,
// or (nil, nil) when no matching entry exists.
func (c *Client) FetchDurations(ctx context.Context, title string) (*Durations, error) {
	results, err := c.search(ctx, title)
	if err != nil {
		return nil, err
	}

	match := selectMatch(title, results)
	if match == nil {
		c.logger.WithField("title", title).Debug("No HowLongToBeat entry found")
		return nil, nil
	}

	durations := &Durations{
		HLTBID:    match.GameID,
		Main:      secondsToHours(match.CompMain),
		MainExtra: secondsToHours(match.CompPlus),
		Complete:  secondsToHours(match.Comp100),
	}

	c.logger.WithFields(logrus.Fields{
		"title":   title,
		"hltb_id": match.GameID,
	}).Debug("Fetched completion times")

	return durations, nil
}

func (c *Client) search(ctx context.Context, title string) ([]searchResult, error) {
	payload := searchRequest{
		SearchType:  "games",
		SearchTerms: strings.Fields(title),
		SearchPage:  1,
		Size:        20,
		SearchOptions: searchOptions{
			Games: gameOptions{
				SortCategory:  "popular",
				RangeCategory: "main",
			},
			Users: userOptions{
				SortCategory: "postcount",
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.apiBase+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return parsed.Data, nil
}

// selectMatch prefers an exact case-insensitive title match, then a result
// whose name contains the query (or vice versa). Returns nil when nothing
// resembles the title.
func selectMatch(title string, results []searchResult) *searchResult {
	lower := strings.ToLower(title)

	for i := range results {
		if strings.ToLower(results[i].GameName) == lower {
			return &results[i]
		}
	}
	for i := range results {
		name := strings.ToLower(results[i].GameName)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return &results[i]
		}
	}
	return nil
}

// secondsToHours rounds a comp_* value to whole hours. Zero means the
// category was never reported and maps to nil; a reported time under half
// an hour rounds to 0.
func secondsToHours(seconds float64) *int {
	if seconds <= 0 {
		return nil
	}
	hours := int(math.Round(seconds / 3600))
	return &hours
}
