package loader

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpresets-go/internal/config"
	"github.com/wegman-software/osmpresets-go/internal/logger"
	"github.com/wegman-software/osmpresets-go/internal/parquet"
	"github.com/wegman-software/osmpresets-go/internal/presets"
)

const tempTable = "osm_presets_load_tmp"

// copyColumns are the temp table columns filled by COPY
var copyColumns = []string{
	"id", "name", "tags", "geometry", "icon", "image_url", "terms",
	"include_countries", "exclude_countries", "searchable", "match_score",
	"suggestion", "add_tags", "remove_tags",
}

// Stats holds loader statistics
type Stats struct {
	RowsLoaded int64
}

// Loader loads a preset catalog into PostgreSQL
type Loader struct {
	cfg          *config.Config
	pool         *pgxpool.Pool
	dropExisting bool
}

// NewLoader creates a new PostgreSQL loader
func NewLoader(ctx context.Context, cfg *config.Config, dropExisting bool) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{
		cfg:          cfg,
		pool:         pool,
		dropExisting: dropExisting,
	}, nil
}

// Close closes connections
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

// Load replaces the contents of the presets table with the catalog
func (l *Loader) Load(ctx context.Context, c *presets.Catalog) (*Stats, error) {
	log := logger.Get()
	table := l.cfg.QualifiedTable()

	if l.cfg.DBSchema != "public" {
		if _, err := l.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", l.cfg.DBSchema)); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if l.dropExisting {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return nil, fmt.Errorf("failed to drop table: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, createTableSQL(table)); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", table)); err != nil {
		return nil, fmt.Errorf("failed to truncate table: %w", err)
	}
	if _, err := tx.Exec(ctx, tempTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create temp table: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, copyColumns, newFeatureSource(c.Features()))
	if err != nil {
		return nil, fmt.Errorf("COPY failed: %w", err)
	}

	if _, err := tx.Exec(ctx, insertSQL(table)); err != nil {
		return nil, fmt.Errorf("failed to insert from temp table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.Info("Presets loaded", zap.String("table", table), zap.Int64("rows", copied))
	return &Stats{RowsLoaded: copied}, nil
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tags JSONB NOT NULL,
			geometry TEXT[] NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			terms TEXT[] NOT NULL DEFAULT '{}',
			include_countries CHAR(2)[] NOT NULL DEFAULT '{}',
			exclude_countries CHAR(2)[] NOT NULL DEFAULT '{}',
			searchable BOOLEAN NOT NULL DEFAULT TRUE,
			match_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			suggestion BOOLEAN NOT NULL DEFAULT FALSE,
			add_tags JSONB NOT NULL,
			remove_tags JSONB NOT NULL
		)
	`, table)
}

var tempTableSQL = fmt.Sprintf(`
	CREATE TEMP TABLE %s (
		id TEXT,
		name TEXT,
		tags TEXT,
		geometry TEXT[],
		icon TEXT,
		image_url TEXT,
		terms TEXT[],
		include_countries TEXT[],
		exclude_countries TEXT[],
		searchable BOOLEAN,
		match_score DOUBLE PRECISION,
		suggestion BOOLEAN,
		add_tags TEXT,
		remove_tags TEXT
	) ON COMMIT DROP
`, tempTable)

func insertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, name, tags, geometry, icon, image_url, terms,
			include_countries, exclude_countries, searchable, match_score,
			suggestion, add_tags, remove_tags)
		SELECT id, name, tags::jsonb, geometry, icon, image_url, terms,
			include_countries::char(2)[], exclude_countries::char(2)[],
			searchable, match_score, suggestion, add_tags::jsonb, remove_tags::jsonb
		FROM %s
	`, table, tempTable)
}

// featureSource implements pgx.CopyFromSource over parsed features
type featureSource struct {
	features []*presets.Feature
	idx      int
}

func newFeatureSource(features []*presets.Feature) *featureSource {
	return &featureSource{features: features, idx: -1}
}

func (s *featureSource) Next() bool {
	s.idx++
	return s.idx < len(s.features)
}

func (s *featureSource) Values() ([]interface{}, error) {
	return featureRow(s.features[s.idx]), nil
}

func (s *featureSource) Err() error {
	return nil
}

// featureRow returns the COPY values of f in copyColumns order
func featureRow(f *presets.Feature) []interface{} {
	return []interface{}{
		f.ID(),
		f.Name(),
		parquet.TagsToJSON(f.TagsOSM()),
		parquet.GeometryNames(f),
		f.Icon(),
		f.ImageURL(),
		f.Terms(),
		f.IncludeCountryCodes(),
		f.ExcludeCountryCodes(),
		f.Searchable(),
		f.MatchScore(),
		f.Suggestion(),
		parquet.TagsToJSON(f.AddTagsOSM()),
		parquet.TagsToJSON(f.RemoveTagsOSM()),
	}
}
