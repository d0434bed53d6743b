package hltb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ludarr/ludarr/internal/logging"
)

func newTestClient(apiURL string) *Client {
	return &Client{
		apiBase:    apiURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logging.NewLogger("error"),
	}
}

func TestFetchDurations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got == "" || got == "Go-http-client/1.1" {
			t.Errorf("Expected a browser user agent, got %q", got)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.SearchType != "games" {
			t.Errorf("SearchType = %q", req.SearchType)
		}
		if len(req.SearchTerms) != 2 || req.SearchTerms[0] != "Hollow" || req.SearchTerms[1] != "Knight" {
			t.Errorf("SearchTerms = %v", req.SearchTerms)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"game_id":50,"game_name":"Hollow Knight: Silksong","comp_main":0,"comp_plus":0,"comp_100":0},
			{"game_id":26286,"game_name":"Hollow Knight","comp_main":95400,"comp_plus":144000,"comp_100":226800}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	durations, err := client.FetchDurations(context.Background(), "Hollow Knight")
	if err != nil {
		t.Fatalf("FetchDurations failed: %v", err)
	}
	if durations == nil {
		t.Fatal("Expected durations, got nil")
	}

	if durations.HLTBID != 26286 {
		t.Errorf("HLTBID = %d (exact match must win over substring match)", durations.HLTBID)
	}
	if durations.Main == nil || *durations.Main != 27 {
		t.Errorf("Main = %v, expected 27 hours from 95400 seconds", durations.Main)
	}
	if durations.MainExtra == nil || *durations.MainExtra != 40 {
		t.Errorf("MainExtra = %v", durations.MainExtra)
	}
	if durations.Complete == nil || *durations.Complete != 63 {
		t.Errorf("Complete = %v", durations.Complete)
	}
}

func TestFetchDurationsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"game_id":1,"game_name":"Completely Unrelated Title","comp_main":3600,"comp_plus":0,"comp_100":0}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	durations, err := client.FetchDurations(context.Background(), "gfdgfdgfdgsdfsvsdf")
	if err != nil {
		t.Fatalf("Expected no error for a miss, got %v", err)
	}
	if durations != nil {
		t.Errorf("Expected nil durations, got %+v", durations)
	}
}

func TestFetchDurationsServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.FetchDurations(context.Background(), "Hollow Knight"); err == nil {
		t.Error("Expected error for non-2xx response")
	}
}

func TestSelectMatch(t *testing.T) {
	results := []searchResult{
		{GameID: 1, GameName: "Celeste Classic"},
		{GameID: 2, GameName: "Celeste"},
	}

	if match := selectMatch("celeste", results); match == nil || match.GameID != 2 {
		t.Errorf("Expected exact match on game 2, got %+v", match)
	}
	if match := selectMatch("Celeste Cla", results); match == nil || match.GameID != 1 {
		t.Errorf("Expected substring match on game 1, got %+v", match)
	}
	if match := selectMatch("Doom", results); match != nil {
		t.Errorf("Expected no match, got %+v", match)
	}
}

func TestSecondsToHours(t *testing.T) {
	tests := []struct {
		seconds float64
		want    *int
	}{
		{0, nil},
		{-1, nil},
		{3600, intPtr(1)},
		{5400, intPtr(2)},
		{600, intPtr(0)},
		{2100, intPtr(1)},
		{95400, intPtr(27)},
	}

	for _, tt := range tests {
		got := secondsToHours(tt.seconds)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("secondsToHours(%v) = %d, expected nil", tt.seconds, *got)
		case tt.want != nil && got == nil:
			t.Errorf("secondsToHours(%v) = nil, expected %d", tt.seconds, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("secondsToHours(%v) = %d, expected %d", tt.seconds, *got, *tt.want)
		}
	}
}

func intPtr(v int) *int { return &v }
