package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// External game category codes used by IGDB
const (
	CategorySteam  = 1
	CategoryGOG    = 5
	CategoryAmazon = 20
	CategoryEpic   = 26
)

const coverURLTemplate = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"

// Game is the raw IGDB search result
type Game struct {
	ID                uint64            `json:"id"`
	Name              string            `json:"name"`
	Summary           string            `json:"summary,omitempty"`
	Storyline         string            `json:"storyline,omitempty"`
	Rating            *float64          `json:"rating,omitempty"`
	AggregatedRating  *float64          `json:"aggregated_rating,omitempty"`
	FirstReleaseDate  *int64            `json:"first_release_date,omitempty"`
	Genres            []Genre           `json:"genres,omitempty"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies,omitempty"`
	ExternalGames     []ExternalGame    `json:"external_games,omitempty"`
	Cover             *Cover            `json:"cover,omitempty"`
}

// Genre is an IGDB genre reference
type Genre struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// InvolvedCompany links a company to a game with role flags
type InvolvedCompany struct {
	ID        uint64   `json:"id"`
	Company   *Company `json:"company,omitempty"`
	Developer bool     `json:"developer"`
	Publisher bool     `json:"publisher"`
}

// Company is an IGDB company reference
type Company struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ExternalGame maps a game to a storefront identifier
type ExternalGame struct {
	ID       uint64 `json:"id"`
	Category int    `json:"category"`
	UID      string `json:"uid"`
}

// Cover is an IGDB cover image reference
type Cover struct {
	ID      uint64 `json:"id"`
	ImageID string `json:"image_id,omitempty"`
}

// Metadata is the parsed catalog result consumed by the enricher
type Metadata struct {
	IGDBID           uint64
	Name             string
	Description      string
	Summary          string
	Rating           *float64
	AggregatedRating *float64
	ReleaseDate      string
	Developer        string
	Publisher        string
	Genres           []string
	SteamAppID       *uint32
	EpicStoreID      string
	GOGID            string
	CoverURL         string
}

// SearchGame searches IGDB for the best match of a title. A miss returns
// (nil, nil).
func (c *Client) SearchGame(ctx context.Context, name string) (*Game, error) {
	escaped := strings.ReplaceAll(name, `"`, `\"`)
	body := fmt.Sprintf(`search "%s";
fields name, summary, storyline, rating, aggregated_rating, first_release_date,
       genres.name, involved_companies.company.name, involved_companies.developer,
       involved_companies.publisher, external_games.category, external_games.uid,
       cover.image_id;
limit 1;`, escaped)

	data, err := c.query(ctx, "games", body)
	if err != nil {
		return nil, err
	}

	var games []Game
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("failed to parse IGDB search response: %w", err)
	}

	if len(games) == 0 {
		return nil, nil
	}

	return &games[0], nil
}

// FetchMetadata searches for a title and returns parsed metadata, or
// (nil, nil) when the catalog has no match.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	game, err := c.SearchGame(ctx, name)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, nil
	}

	meta := parseMetadata(game)
	c.logger.WithFields(map[string]interface{}{
		"title":   name,
		"igdb_id": meta.IGDBID,
		"name":    meta.Name,
	}).Debug("IGDB match found")

	return meta, nil
}

// parseMetadata converts a raw IGDB game into the enricher's shape
func parseMetadata(game *Game) *Metadata {
	meta := &Metadata{
		IGDBID:           game.ID,
		Name:             game.Name,
		Summary:          game.Summary,
		Rating:           game.Rating,
		AggregatedRating: game.AggregatedRating,
	}

	// Storyline is the long-form text; fall back to the summary
	meta.Description = game.Storyline
	if meta.Description == "" {
		meta.Description = game.Summary
	}

	for _, ic := range game.InvolvedCompanies {
		if ic.Company == nil {
			continue
		}
		if meta.Developer == "" && ic.Developer {
			meta.Developer = ic.Company.Name
		}
		if meta.Publisher == "" && ic.Publisher {
			meta.Publisher = ic.Company.Name
		}
	}

	for _, g := range game.Genres {
		meta.Genres = append(meta.Genres, g.Name)
	}

	if game.FirstReleaseDate != nil {
		meta.ReleaseDate = time.Unix(*game.FirstReleaseDate, 0).UTC().Format("2006-01-02")
	}

	for _, eg := range game.ExternalGames {
		switch eg.Category {
		case CategorySteam:
			if meta.SteamAppID == nil {
				if id, err := strconv.ParseUint(eg.UID, 10, 32); err == nil {
					appID := uint32(id)
					meta.SteamAppID = &appID
				}
			}
		case CategoryEpic:
			if meta.EpicStoreID == "" {
				meta.EpicStoreID = eg.UID
			}
		case CategoryGOG:
			if meta.GOGID == "" {
				meta.GOGID = eg.UID
			}
		}
	}

	if game.Cover != nil && game.Cover.ImageID != "" {
		meta.CoverURL = fmt.Sprintf(coverURLTemplate, game.Cover.ImageID)
	}

	return meta
}
