package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpresets-go/internal/loader"
	"github.com/wegman-software/osmpresets-go/internal/logger"
)

var dropExisting bool

var loadCmd = &cobra.Command{
	Use:   "load <presets.json>",
	Short: "Load the preset catalog into PostgreSQL",
	Long: `Build the preset catalog and replace the contents of <schema>.<table>
with it in a single transaction.

The loader:
  1. Creates the presets table if needed (tags as JSONB)
  2. Uses COPY into a temporary table
  3. Inserts into the target table and commits`,
	Args: cobra.ExactArgs(1),
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Drop the presets table before loading")
	loadCmd.Flags().StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host (env OSMPRESETS_DB_HOST)")
	loadCmd.Flags().IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	loadCmd.Flags().StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	loadCmd.Flags().StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	loadCmd.Flags().StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password (env OSMPRESETS_DB_PASSWORD)")
	loadCmd.Flags().StringVar(&cfg.DBSchema, "db-schema", cfg.DBSchema, "PostgreSQL schema")
	loadCmd.Flags().StringVar(&cfg.DBTable, "db-table", cfg.DBTable, "Target table")
}

func runLoad(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	catalog, _ := buildCatalog(ctx, args[0])

	log := logger.Get()
	log.Info("Starting PostgreSQL load",
		zap.String("database", cfg.DBName),
		zap.String("host", cfg.DBHost),
		zap.Int("port", cfg.DBPort),
		zap.String("user", cfg.DBUser),
		zap.String("table", cfg.QualifiedTable()),
	)

	start := time.Now()

	ldr, err := loader.NewLoader(ctx, cfg, dropExisting)
	if err != nil {
		exitWithError("failed to create loader", err)
	}
	defer ldr.Close()

	stats, err := ldr.Load(ctx, catalog)
	if err != nil {
		exitWithError("load failed", err)
	}

	log.Info("Load complete",
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)),
		zap.Int64("rows", stats.RowsLoaded),
	)
}
