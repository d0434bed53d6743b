package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludarr/ludarr/internal/models"
)

func newEnrichCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "enrich [gameID...]",
		Short: "Enrich the stored library (or specific games) and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd.Context(), args, refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch from the sources even when the cached metadata is still fresh")

	return cmd
}

func runEnrich(ctx context.Context, gameIDs []string, refresh bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var games []models.Game
	if len(gameIDs) == 0 {
		games, err = a.db.GetAllGames()
		if err != nil {
			return fmt.Errorf("failed to load library: %w", err)
		}
	} else {
		for _, id := range gameIDs {
			game, err := a.db.GetGameByID(id)
			if err != nil {
				if models.IsNotFound(err) {
					return fmt.Errorf("game %q is not in the library", id)
				}
				return fmt.Errorf("failed to load game %q: %w", id, err)
			}
			games = append(games, *game)
		}
	}

	if len(games) == 0 {
		a.logger.Info("Library is empty, nothing to enrich")
		return nil
	}

	if refresh {
		for _, game := range games {
			if err := a.enricher.ForgetGame(game.ID); err != nil {
				return fmt.Errorf("failed to drop cached metadata for %s: %w", game.ID, err)
			}
		}
	}

	enriched, err := a.enricher.EnrichGames(ctx, games)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(enriched)
}
