package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ludarr/ludarr/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultAPIBase  = "https://api.igdb.com/v4"
	defaultAuthBase = "https://id.twitch.tv/oauth2/token"
	requestTimeout  = 30 * time.Second
)

// ErrRateLimited is returned when IGDB rejects a call with 429. The call is
// not retried.
var ErrRateLimited = errors.New("igdb rate limit exceeded")

// Client handles communication with the IGDB API. Authentication uses
// Twitch client-credentials OAuth; the bearer token is acquired lazily on
// first use and re-acquired once if a request comes back unauthorized.
// One Client is shared by every concurrent enrichment, so the token is
// guarded by a mutex.
type Client struct {
	clientID     string
	clientSecret string
	apiBase      string
	authBase     string
	httpClient   *http.Client
	logger       *logrus.Logger

	mu          sync.Mutex
	accessToken string
}

// NewClient creates a new IGDB API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if !cfg.HasIGDB() {
		return nil, fmt.Errorf("IGDB client id and secret are required")
	}

	return &Client{
		clientID:     cfg.IGDBClientID,
		clientSecret: cfg.IGDBClientSecret,
		apiBase:      defaultAPIBase,
		authBase:     defaultAuthBase,
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
	}, nil
}

// tokenResponse is the Twitch OAuth token response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// authenticate obtains a fresh bearer token via client credentials;
// callers hold c.mu
func (c *Client) authenticate(ctx context.Context) error {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	params.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Twitch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitch authentication failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("failed to parse Twitch token response: %w", err)
	}

	c.accessToken = token.AccessToken
	c.logger.WithField("expires_in", token.ExpiresIn).Debug("IGDB authenticated")

	return nil
}

// ensureAuthenticated acquires a token if none is held, then returns the
// current one. Concurrent callers hitting a cold client serialize on the
// mutex, so only the first performs the token request.
func (c *Client) ensureAuthenticated(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == "" {
		if err := c.authenticate(ctx); err != nil {
			return "", err
		}
	}
	return c.accessToken, nil
}

// invalidateToken clears the held token, but only if it still matches the
// one the failed request used; a token already replaced by another
// goroutine stays.
func (c *Client) invalidateToken(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == stale {
		c.accessToken = ""
	}
}

// query performs an Apicalypse POST against an IGDB endpoint and returns the
// raw response body. An unauthorized response triggers exactly one
// re-authentication and retry.
func (c *Client) query(ctx context.Context, endpoint, body string) ([]byte, error) {
	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.doQuery(ctx, endpoint, body, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logger.Debug("IGDB token rejected, re-authenticating")
		c.invalidateToken(token)
		token, err = c.ensureAuthenticated(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.doQuery(ctx, endpoint, body, token)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("IGDB query failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read IGDB response: %w", err)
	}

	return data, nil
}

func (c *Client) doQuery(ctx context.Context, endpoint, body, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
	}).Debug("Querying IGDB")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("IGDB request failed: %w", err)
	}

	return resp, nil
}
