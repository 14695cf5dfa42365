package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpresets-go/internal/fetch"
	"github.com/wegman-software/osmpresets-go/internal/logger"
)

var forceFetch bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the presets document",
	Long: `Download presets.json from the iD tagging schema (or --url) into the
cache directory. A cached copy is reused unless --force is given.

The local path is printed to stdout so it can feed the other commands:

  osmpresets parse "$(osmpresets fetch)"`,
	Args: cobra.NoArgs,
	Run:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&cfg.PresetsURL, "url", cfg.PresetsURL, "URL of presets.json (env OSMPRESETS_URL)")
	fetchCmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for the downloaded document")
	fetchCmd.Flags().BoolVar(&forceFetch, "force", false, "Download even if a cached copy exists")
}

func runFetch(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	logger.Get().Debug("Fetching presets", zap.String("url", cfg.PresetsURL), zap.String("cache_dir", cfg.CacheDir))

	path, err := fetch.NewFetcher(cfg.PresetsURL, cfg.CacheDir).Fetch(ctx, forceFetch)
	if err != nil {
		exitWithError("fetch failed", err)
	}
	fmt.Println(path)
}
