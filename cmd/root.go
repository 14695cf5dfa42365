package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpresets-go/internal/config"
	"github.com/wegman-software/osmpresets-go/internal/logger"
	"github.com/wegman-software/osmpresets-go/internal/pipeline"
	"github.com/wegman-software/osmpresets-go/internal/presets"
)

// cfg starts from defaults overlaid with the environment (and an optional
// .env file) so that flags registered in init override both
var cfg = loadConfig()

func loadConfig() *config.Config {
	// A missing .env file is not an error
	_ = godotenv.Load(".env")
	c := config.DefaultConfig()
	c.ApplyEnv()
	return c
}

var rootCmd = &cobra.Command{
	Use:   "osmpresets",
	Short: "Build validated OSM feature preset catalogs",
	Long: `osmpresets turns an iD tagging-schema presets.json into a catalog of
validated, immutable feature presets.

Presets whose tags contain wildcards, have no tags, reference unknown
geometries, lack a name or are restricted to regions that are not plain
country codes are dropped. The resulting catalog can be written as JSON,
Parquet or loaded into PostgreSQL.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{Debug: cfg.Verbose, File: cfg.LogFile})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel parse workers")
	rootCmd.PersistentFlags().StringVar(&cfg.FilterFile, "filter", "", "YAML file with catalog filter rules")
	rootCmd.PersistentFlags().StringVar(&cfg.ScriptFile, "script", "", "Lua script defining osmpresets.process_preset")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&cfg.MetricsInterval, "metrics-interval", 0, "Interval for system metrics logging (e.g., 10s, 1m; 0 disables)")
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildCatalog runs the shared read-parse-filter pipeline for a command
func buildCatalog(ctx context.Context, input string) (*presets.Catalog, *pipeline.BuildStats) {
	cfg.InputFile = input
	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	coord, err := pipeline.NewCoordinator(cfg)
	if err != nil {
		exitWithError("failed to create pipeline", err)
	}
	defer coord.Close()

	catalog, stats, err := coord.Build(ctx)
	if err != nil {
		exitWithError("failed to build catalog", err)
	}
	pipeline.LogStats(logger.Get(), stats)
	return catalog, stats
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
