package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "ludarr",
		Short: "Game library enrichment service",
		Long: "Ludarr enriches a game library with catalog metadata, completion times,\n" +
			"Linux compatibility reports, achievements and artwork, caching everything\n" +
			"locally so repeat lookups never touch the network.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newEnrichCmd(),
		newImportCmd(),
		newCacheCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
