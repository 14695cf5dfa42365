package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// DefaultPresetsURL is the published iD tagging schema presets file
const DefaultPresetsURL = "https://raw.githubusercontent.com/openstreetmap/id-tagging-schema/main/dist/presets.json"

// Environment variables read by ApplyEnv
const (
	EnvPresetsURL = "OSMPRESETS_URL"
	EnvDBPassword = "OSMPRESETS_DB_PASSWORD"
	EnvDBHost     = "OSMPRESETS_DB_HOST"
)

// Config holds the global configuration for building a preset catalog
type Config struct {
	// Input settings
	InputFile  string // Path to presets.json (optionally .gz)
	PresetsURL string // Source for the fetch command
	CacheDir   string // Where fetched documents are stored

	// Catalog shaping
	FilterFile string // YAML filter rules
	ScriptFile string // Lua script with osmpresets.process_preset

	// Output settings
	OutputDir  string
	OutputFile string // JSON catalog output for the parse command ("-" = stdout)

	// Database settings
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
	DBTable    string

	// Processing settings
	Workers   int
	BatchSize int

	Verbose bool

	// Logging and metrics
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // 0 disables periodic metrics
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PresetsURL:      DefaultPresetsURL,
		CacheDir:        "./cache",
		OutputDir:       "./osm_presets",
		DBHost:          "localhost",
		DBPort:          5432,
		DBName:          "osm",
		DBUser:          "postgres",
		DBSchema:        "public",
		DBTable:         "presets",
		Workers:         runtime.NumCPU(),
		BatchSize:       10000,
		MetricsInterval: 0,
	}
}

// ApplyEnv overrides settings from the environment where set
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPresetsURL); v != "" {
		c.PresetsURL = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv(EnvDBHost); v != "" {
		c.DBHost = v
	}
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// QualifiedTable returns schema.table for the presets table
func (c *Config) QualifiedTable() string {
	return c.DBSchema + "." + c.DBTable
}

// Validate checks that the configuration can drive a catalog build
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	for _, ident := range []string{c.DBSchema, c.DBTable} {
		if !isIdentifier(ident) {
			return fmt.Errorf("invalid SQL identifier %q", ident)
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) < 0
}
