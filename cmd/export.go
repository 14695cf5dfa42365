package cmd

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpresets-go/internal/logger"
	"github.com/wegman-software/osmpresets-go/internal/parquet"
)

var exportCmd = &cobra.Command{
	Use:   "export <presets.json>",
	Short: "Write the preset catalog to Parquet",
	Long: `Build the preset catalog and write it to <output-dir>/presets.parquet.

Tag maps are stored as JSON strings, geometries, terms and country codes
as string lists. The file is Zstd compressed.`,
	Args: cobra.ExactArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for the Parquet file")
	exportCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per Parquet record batch")
}

func runExport(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	catalog, _ := buildCatalog(ctx, args[0])

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		exitWithError("failed to create output directory", err)
	}
	path := filepath.Join(cfg.OutputDir, "presets.parquet")

	start := time.Now()
	rows, err := parquet.WriteCatalog(path, catalog, cfg.BatchSize)
	if err != nil {
		exitWithError("failed to write parquet", err)
	}

	logger.Get().Info("Export complete",
		zap.String("path", path),
		zap.Int64("rows", rows),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)
}
