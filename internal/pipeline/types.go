package pipeline

import (
	"time"

	"github.com/wegman-software/osmpresets-go/internal/presets"
)

// BuildStats holds statistics for one catalog build
type BuildStats struct {
	Parse        presets.Stats
	FilteredOut  int64 // dropped by YAML filter rules
	ScriptedOut  int64 // dropped by the Lua hook
	Catalog      int64 // features in the final catalog
	ReadDuration time.Duration
	Duration     time.Duration
}
