package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ludarr/ludarr/internal/config"
)

const (
	defaultAPIBase = "https://api.steampowered.com"
	requestTimeout = 30 * time.Second
)

// Client talks to the Steam Web API for achievement data. It needs an API
// key and the user's 64-bit Steam ID.
type Client struct {
	apiKey     string
	steamID    string
	apiBase    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Achievement is a single achievement joined from the game schema and the
// player's unlock state.
type Achievement struct {
	APIName     string     `json:"api_name"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description,omitempty"`
	IconURL     string     `json:"icon_url,omitempty"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	Hidden      bool       `json:"hidden"`
}

// Progress summarizes a player's achievements for one game.
type Progress struct {
	Total        int
	Unlocked     int
	Achievements []Achievement
}

// CompletionPercentage returns unlocked/total as a percentage, 0 when the
// game has no achievements.
func (p *Progress) CompletionPercentage() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Unlocked) / float64(p.Total) * 100
}

type schemaResponse struct {
	Game struct {
		AvailableGameStats struct {
			Achievements []schemaAchievement `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

type schemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Hidden      int    `json:"hidden"`
}

type playerResponse struct {
	PlayerStats struct {
		Success      bool                `json:"success"`
		Error        string              `json:"error"`
		Achievements []playerAchievement `json:"achievements"`
	} `json:"playerstats"`
}

type playerAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

// NewClient creates a Steam client. Fails when the API key or Steam user
// ID is not configured.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if !cfg.HasSteam() {
		return nil, fmt.Errorf("steam api key and user id are required")
	}
	return &Client{
		apiKey:  cfg.SteamAPIKey,
		steamID: cfg.SteamUserID,
		apiBase: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}, nil
}

// FetchProgress fetches the achievement schema and the player's unlock
// state concurrently and joins them by API name. Returns (nil, nil) when
// the game defines no achievements.
func (c *Client) FetchProgress(ctx context.Context, appID uint32) (*Progress, error) {
	var (
		schema []schemaAchievement
		player *playerResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schema, err = c.fetchSchema(gctx, appID)
		return err
	})
	g.Go(func() error {
		var err error
		player, err = c.fetchPlayerState(gctx, appID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(schema) == 0 {
		c.logger.WithField("app_id", appID).Debug("Game has no achievements")
		return nil, nil
	}

	unlocked := make(map[string]playerAchievement, len(player.PlayerStats.Achievements))
	if player.PlayerStats.Success {
		for _, a := range player.PlayerStats.Achievements {
			unlocked[a.APIName] = a
		}
	}

	progress := &Progress{Total: len(schema)}
	for _, s := range schema {
		ach := Achievement{
			APIName:     s.Name,
			DisplayName: s.DisplayName,
			Description: s.Description,
			IconURL:     s.Icon,
			Hidden:      s.Hidden == 1,
		}
		if p, ok := unlocked[s.Name]; ok && p.Achieved == 1 {
			ach.Unlocked = true
			if p.UnlockTime > 0 {
				ts := time.Unix(p.UnlockTime, 0).UTC()
				ach.UnlockedAt = &ts
			}
			progress.Unlocked++
		}
		progress.Achievements = append(progress.Achievements, ach)
	}

	c.logger.WithFields(logrus.Fields{
		"app_id":   appID,
		"total":    progress.Total,
		"unlocked": progress.Unlocked,
	}).Debug("Fetched achievement progress")

	return progress, nil
}

func (c *Client) fetchSchema(ctx context.Context, appID uint32) ([]schemaAchievement, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("appid", fmt.Sprintf("%d", appID))

	body, err := c.get(ctx, "/ISteamUserStats/GetSchemaForGame/v2/", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game schema: %w", err)
	}

	var parsed schemaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse game schema: %w", err)
	}
	return parsed.Game.AvailableGameStats.Achievements, nil
}

func (c *Client) fetchPlayerState(ctx context.Context, appID uint32) (*playerResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("steamid", c.steamID)
	params.Set("appid", fmt.Sprintf("%d", appID))

	body, err := c.get(ctx, "/ISteamUserStats/GetPlayerAchievements/v1/", params)
	if err != nil {
		// Steam returns 400 with an error body for games the player does
		// not own. Treat that as no unlocks rather than a failure.
		c.logger.WithField("app_id", appID).WithError(err).Debug("Player achievement state unavailable")
		return &playerResponse{}, nil
	}

	var parsed playerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse player achievements: %w", err)
	}
	return &parsed, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
