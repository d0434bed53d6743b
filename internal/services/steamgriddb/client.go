package steamgriddb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ludarr/ludarr/internal/cache"
	"github.com/ludarr/ludarr/internal/config"
)

const (
	defaultAPIBase = "https://www.steamgriddb.com/api/v2"
	requestTimeout = 30 * time.Second
)

// ErrRateLimited indicates the API rejected the request with a 429.
var ErrRateLimited = errors.New("steamgriddb rate limit exceeded")

// Client fetches game artwork from SteamGridDB.
type Client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Image is one artwork candidate for a game.
type Image struct {
	ID    uint64 `json:"id"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	NSFW  bool   `json:"nsfw"`
	Humor bool   `json:"humor"`
}

// ArtworkURLs holds the selected download URL per asset kind. Empty string
// means no suitable image exists for that kind.
type ArtworkURLs struct {
	Hero string
	Grid string
	Logo string
	Icon string
}

// URLForKind returns the selected URL for an asset kind.
func (a *ArtworkURLs) URLForKind(kind cache.AssetKind) string {
	switch kind {
	case cache.AssetHero:
		return a.Hero
	case cache.AssetGrid:
		return a.Grid
	case cache.AssetLogo:
		return a.Logo
	case cache.AssetIcon:
		return a.Icon
	default:
		return ""
	}
}

type searchResult struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type apiResponse[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
}

// NewClient creates a SteamGridDB client. Fails when no API key is
// configured.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if !cfg.HasSteamGridDB() {
		return nil, fmt.Errorf("steamgriddb api key is required")
	}
	return &Client{
		apiKey:  cfg.SteamGridDBAPIKey,
		apiBase: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}, nil
}

// SearchGame resolves a title to a SteamGridDB game ID. Verified entries
// win over unverified ones, shorter names break ties. An unresolvable
// title is a hard error since every artwork call needs the ID.
func (c *Client) SearchGame(ctx context.Context, title string) (uint64, error) {
	body, err := c.get(ctx, "/search/autocomplete/"+url.PathEscape(title))
	if err != nil {
		return 0, err
	}

	var parsed apiResponse[searchResult]
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return 0, fmt.Errorf("no steamgriddb entry for %q", title)
	}

	best := parsed.Data[0]
	for _, r := range parsed.Data[1:] {
		if r.Verified != best.Verified {
			if r.Verified {
				best = r
			}
			continue
		}
		if len(r.Name) < len(best.Name) {
			best = r
		}
	}

	c.logger.WithFields(logrus.Fields{
		"title":   title,
		"sgdb_id": best.ID,
	}).Debug("Resolved SteamGridDB game")

	return best.ID, nil
}

// FetchArtworkURLs fetches the four asset kinds concurrently and picks the
// best candidate for each. Kinds with no candidates are left empty.
func (c *Client) FetchArtworkURLs(ctx context.Context, gameID uint64) (*ArtworkURLs, error) {
	urls := &ArtworkURLs{}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(endpoint string, dest *string) {
		g.Go(func() error {
			images, err := c.fetchImages(gctx, endpoint, gameID)
			if err != nil {
				return err
			}
			if best := selectBestImage(images); best != nil {
				*dest = best.URL
			}
			return nil
		})
	}

	fetch("heroes", &urls.Hero)
	fetch("grids", &urls.Grid)
	fetch("logos", &urls.Logo)
	fetch("icons", &urls.Icon)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// DownloadImage downloads an image and returns its bytes plus the file
// extension derived from the Content-Type header.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	return data, extensionForContentType(resp.Header.Get("Content-Type")), nil
}

func (c *Client) fetchImages(ctx context.Context, endpoint string, gameID uint64) ([]Image, error) {
	path := fmt.Sprintf("/%s/game/%d?nsfw=false&humor=false", endpoint, gameID)

	body, err := c.get(ctx, path)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var parsed apiResponse[Image]
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return parsed.Data, nil
}

var errNotFound = errors.New("steamgriddb resource not found")

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// selectBestImage filters out nsfw and humor images and returns the
// highest scored survivor, nil when none remain.
func selectBestImage(images []Image) *Image {
	var best *Image
	for i := range images {
		img := &images[i]
		if img.NSFW || img.Humor {
			continue
		}
		if best == nil || img.Score > best.Score {
			best = img
		}
	}
	return best
}

func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "gif"):
		return "gif"
	default:
		return "jpg"
	}
}
