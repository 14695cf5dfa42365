package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osmpresets-go/internal/config"
	"github.com/wegman-software/osmpresets-go/internal/flex"
	"github.com/wegman-software/osmpresets-go/internal/logger"
	"github.com/wegman-software/osmpresets-go/internal/metrics"
	"github.com/wegman-software/osmpresets-go/internal/presets"
	"github.com/wegman-software/osmpresets-go/internal/style"
)

// Coordinator builds a preset catalog: read, parse, filter, script
type Coordinator struct {
	cfg     *config.Config
	log     *zap.Logger
	filter  *style.Filter
	runtime *flex.Runtime // nil without a script
}

// NewCoordinator creates a coordinator, loading filter rules and the Lua
// script named in cfg
func NewCoordinator(cfg *config.Config) (*Coordinator, error) {
	log := logger.Get()

	filterCfg := style.DefaultConfig()
	if cfg.FilterFile != "" {
		var err error
		filterCfg, err = style.LoadConfig(cfg.FilterFile)
		if err != nil {
			return nil, err
		}
	}
	filter, err := style.NewFilter(filterCfg)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:    cfg,
		log:    log,
		filter: filter,
	}

	if cfg.ScriptFile != "" {
		c.runtime = flex.NewRuntime(log)
		if err := c.runtime.LoadFile(cfg.ScriptFile); err != nil {
			c.runtime.Close()
			return nil, err
		}
		if !c.runtime.HasProcessPreset() {
			log.Warn("Lua script defines no osmpresets.process_preset", zap.String("script", cfg.ScriptFile))
		}
	}

	return c, nil
}

// Close releases the Lua runtime
func (c *Coordinator) Close() error {
	if c.runtime != nil {
		c.runtime.Close()
	}
	return nil
}

// Build reads the input document and returns the resulting catalog. Only a
// document that cannot be read or decoded, a failing script or a cancelled
// ctx produce an error; bad presets are dropped and counted.
func (c *Coordinator) Build(ctx context.Context) (*presets.Catalog, *BuildStats, error) {
	start := time.Now()
	stats := &BuildStats{}

	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(c.cfg.MetricsInterval, c.log)
		go collector.Start(metricsCtx)
	}

	doc, err := presets.ReadDocument(c.cfg.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read presets document: %w", err)
	}
	stats.ReadDuration = time.Since(start)
	c.log.Debug("Document read",
		zap.Int("entries", doc.Len()),
		zap.Duration("duration", stats.ReadDuration))

	catalog, err := c.BuildDocument(ctx, doc, stats)
	if err != nil {
		return nil, nil, err
	}

	stats.Duration = time.Since(start)
	return catalog, stats, nil
}

// BuildDocument runs parse, filter and script over an already decoded
// document, accumulating into stats
func (c *Coordinator) BuildDocument(ctx context.Context, doc *presets.Document, stats *BuildStats) (*presets.Catalog, error) {
	outcomes, err := presets.ParseParallel(ctx, doc, c.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("parse cancelled: %w", err)
	}

	for _, o := range outcomes {
		if o.Rejected() {
			c.log.Debug("Preset rejected", zap.String("id", o.ID), zap.Error(o.Reason))
		}
	}
	features, parseStats := presets.Collect(outcomes)
	stats.Parse = parseStats

	kept := make([]*presets.Feature, 0, len(features))
	for _, f := range features {
		if !c.filter.Match(f) {
			stats.FilteredOut++
			continue
		}
		if c.runtime != nil {
			keep, err := c.runtime.Keep(f)
			if err != nil {
				return nil, err
			}
			if !keep {
				stats.ScriptedOut++
				continue
			}
		}
		kept = append(kept, f)
	}

	catalog := presets.NewCatalog(kept)
	stats.Catalog = int64(catalog.Len())
	return catalog, nil
}

// LogStats writes a summary of a build
func LogStats(log *zap.Logger, stats *BuildStats) {
	log.Info("Catalog built",
		zap.Int64("entries", stats.Parse.Entries),
		zap.Int64("parsed", stats.Parse.Parsed),
		zap.Int64("rejected_structural", stats.Parse.Structural),
		zap.Int64("rejected_policy", stats.Parse.Policy),
		zap.Int64("filtered_out", stats.FilteredOut),
		zap.Int64("scripted_out", stats.ScriptedOut),
		zap.Int64("catalog", stats.Catalog),
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)),
	)
	log.Debug("Resource usage", metrics.SelfSnapshot().Fields()...)
}
