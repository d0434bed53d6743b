package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the metadata cache",
	}

	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print cache statistics",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheStats()
			},
		},
		&cobra.Command{
			Use:   "clear [gameID]",
			Short: "Clear the whole cache, or one game's metadata and assets",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheClear(args)
			},
		},
	)

	return cacheCmd
}

func runCacheStats() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.enricher.GetCacheStats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stats)
}

func runCacheClear(args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if err := a.enricher.ClearGameCache(args[0]); err != nil {
			return fmt.Errorf("failed to clear cache for %s: %w", args[0], err)
		}
		return nil
	}

	if err := a.enricher.ClearAllCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
