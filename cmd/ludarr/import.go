package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludarr/ludarr/internal/models"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <games.json>",
		Short: "Import a JSON array of games into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func runImport(path string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var games []models.Game
	if err := json.Unmarshal(data, &games); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, game := range games {
		if game.ID == "" || game.Title == "" {
			return fmt.Errorf("game at index %d is missing id or title", i)
		}
	}

	if err := a.db.ImportGames(games); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	a.logger.WithField("count", len(games)).Info("Games imported")
	return nil
}
