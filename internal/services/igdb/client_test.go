package igdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ludarr/ludarr/internal/logging"
)

func newTestClient(apiURL, authURL string) *Client {
	return &Client{
		clientID:     "test_id",
		clientSecret: "test_secret",
		apiBase:      apiURL,
		authBase:     authURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		logger:       logging.NewLogger("error"),
	}
}

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST auth request, got %s", r.Method)
		}
		if got := r.URL.Query().Get("grant_type"); got != "client_credentials" {
			t.Errorf("Expected client_credentials grant, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","expires_in":5000,"token_type":"bearer"}`))
	}))
}

const hollowKnightBody = `[{
	"id": 1234,
	"name": "Hollow Knight",
	"summary": "A challenging action adventure.",
	"storyline": "Descend into Hallownest.",
	"rating": 92.3,
	"aggregated_rating": 88.0,
	"first_release_date": 1487894400,
	"genres": [{"id":8,"name":"Platform"},{"id":31,"name":"Adventure"},{"id":32,"name":"Indie"}],
	"involved_companies": [
		{"id":1,"company":{"id":10,"name":"Team Cherry"},"developer":true,"publisher":false},
		{"id":2,"company":{"id":11,"name":"Team Cherry Pub"},"developer":false,"publisher":true}
	],
	"external_games": [
		{"id":1,"category":1,"uid":"367520"},
		{"id":2,"category":5,"uid":"1308320804"},
		{"id":3,"category":26,"uid":"fa702d34"}
	],
	"cover": {"id":99,"image_id":"co93cr"}
}]`

func TestFetchMetadata(t *testing.T) {
	auth := newAuthServer(t)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("Missing bearer token, got %q", got)
		}
		if got := r.Header.Get("Client-ID"); got != "test_id" {
			t.Errorf("Missing client id header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(hollowKnightBody))
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	meta, err := client.FetchMetadata(context.Background(), "Hollow Knight")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("Expected metadata, got nil")
	}

	if meta.IGDBID != 1234 {
		t.Errorf("IGDBID = %d", meta.IGDBID)
	}
	if meta.Developer != "Team Cherry" {
		t.Errorf("Developer = %q", meta.Developer)
	}
	if meta.Publisher != "Team Cherry Pub" {
		t.Errorf("Publisher = %q", meta.Publisher)
	}
	if len(meta.Genres) != 3 || meta.Genres[0] != "Platform" || meta.Genres[2] != "Indie" {
		t.Errorf("Genres = %v (order must match the response)", meta.Genres)
	}
	if meta.ReleaseDate != "2017-02-24" {
		t.Errorf("ReleaseDate = %q", meta.ReleaseDate)
	}
	if meta.SteamAppID == nil || *meta.SteamAppID != 367520 {
		t.Errorf("SteamAppID = %v", meta.SteamAppID)
	}
	if meta.GOGID != "1308320804" {
		t.Errorf("GOGID = %q", meta.GOGID)
	}
	if meta.EpicStoreID != "fa702d34" {
		t.Errorf("EpicStoreID = %q", meta.EpicStoreID)
	}
	if meta.CoverURL != "https://images.igdb.com/igdb/image/upload/t_cover_big/co93cr.jpg" {
		t.Errorf("CoverURL = %q", meta.CoverURL)
	}
	if meta.Description != "Descend into Hallownest." {
		t.Errorf("Description should prefer storyline, got %q", meta.Description)
	}
}

func TestFetchMetadataNotFound(t *testing.T) {
	auth := newAuthServer(t)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	meta, err := client.FetchMetadata(context.Background(), "ThisGameDefinitelyDoesNotExist12345XYZ")
	if err != nil {
		t.Fatalf("Expected no error for a miss, got %v", err)
	}
	if meta != nil {
		t.Errorf("Expected nil metadata, got %+v", meta)
	}
}

func TestRateLimitIsHardError(t *testing.T) {
	auth := newAuthServer(t)
	defer auth.Close()

	var calls int
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	_, err := client.FetchMetadata(context.Background(), "Hollow Knight")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Rate-limited call must not be retried, got %d calls", calls)
	}
}

func TestReauthenticatesOnceOnUnauthorized(t *testing.T) {
	var authCalls int
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","expires_in":5000,"token_type":"bearer"}`))
	}))
	defer auth.Close()

	var apiCalls int
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		if apiCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	_, err := client.FetchMetadata(context.Background(), "Hollow Knight")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if authCalls != 2 {
		t.Errorf("Expected one re-authentication, got %d auth calls", authCalls)
	}
	if apiCalls != 2 {
		t.Errorf("Expected exactly one retry, got %d api calls", apiCalls)
	}
}

func TestConcurrentFetchesShareOneToken(t *testing.T) {
	var authCalls int32
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&authCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","expires_in":5000,"token_type":"bearer"}`))
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("Missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(hollowKnightBody))
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.FetchMetadata(context.Background(), "Hollow Knight")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("FetchMetadata %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&authCalls); got != 1 {
		t.Errorf("Expected one shared authentication, got %d", got)
	}
}

func TestOtherErrorIsHard(t *testing.T) {
	auth := newAuthServer(t)
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer api.Close()

	client := newTestClient(api.URL, auth.URL)

	if _, err := client.FetchMetadata(context.Background(), "Hollow Knight"); err == nil {
		t.Error("Expected error for 500 response")
	}
}
