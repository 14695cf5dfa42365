package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpresets-go/internal/logger"
	"github.com/wegman-software/osmpresets-go/internal/presets"
)

var parseCmd = &cobra.Command{
	Use:   "parse <presets.json>",
	Short: "Parse and validate a presets document",
	Long: `Parse a presets document (plain or .gz), validate every preset and
report how many were kept and rejected.

With --output the resolved catalog is written as a JSON array, one object
per preset with all defaults applied. Use "-" to write to stdout.`,
	Args: cobra.ExactArgs(1),
	Run:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Write the catalog as JSON to this file (\"-\" for stdout)")
}

func runParse(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	catalog, _ := buildCatalog(ctx, args[0])

	if cfg.OutputFile == "" {
		return
	}
	if err := writeCatalogJSON(cfg.OutputFile, catalog); err != nil {
		exitWithError("failed to write catalog", err)
	}
	if cfg.OutputFile != "-" {
		logger.Get().Info("Catalog written",
			zap.String("path", cfg.OutputFile),
			zap.Int("presets", catalog.Len()))
	}
}

func writeCatalogJSON(path string, c *presets.Catalog) (err error) {
	var out io.Writer = os.Stdout
	if path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("failed to create output file: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		out = f
	}

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Features()); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}
