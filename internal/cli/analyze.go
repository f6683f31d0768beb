package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/runnerr0/apachestats/internal/analytics"
	"github.com/runnerr0/apachestats/internal/config"
	"github.com/runnerr0/apachestats/internal/geo"
	"github.com/runnerr0/apachestats/internal/input"
	"github.com/runnerr0/apachestats/internal/logrecord"
	"github.com/runnerr0/apachestats/internal/report"
	"github.com/runnerr0/apachestats/internal/storage"
	"github.com/runnerr0/apachestats/internal/traffic"
)

// analyzer runs one batch analysis over a set of log sources.
type analyzer struct {
	cfg     *config.Config
	logger  *slog.Logger
	stdin   io.Reader
	stdout  io.Writer
	jsonOut bool
}

// scanStats counts lines across all sources of a run.
type scanStats struct {
	lines   int
	records int
	skipped int
}

func (a *analyzer) run(ctx context.Context, paths []string) error {
	start := time.Now()

	tok, err := logrecord.NewTokenizer(a.cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build tokenizer: %w", err)
	}

	sources, err := input.Open(paths, a.stdin)
	if err != nil {
		return err
	}
	defer sources.Close()

	var (
		tally   *analytics.Tally
		records []logrecord.Record
		stats   scanStats
	)
	switch a.cfg.Engine {
	case config.EngineSQLite:
		tally, records, stats, err = a.tallySQLite(ctx, sources, tok)
	default:
		tally, records, stats, err = a.tallyMemory(sources, tok)
	}
	if err != nil {
		return err
	}

	a.logger.Info("parsed input",
		"sources", len(sources),
		"lines", stats.lines,
		"records", stats.records,
		"skipped", stats.skipped,
		"engine", a.cfg.Engine,
	)

	mmdb, err := a.cfg.MaxMindPath()
	if err != nil {
		return err
	}
	locator, closeLocator := geo.Open(mmdb, a.logger)
	defer closeLocator()

	rep := analytics.Build(tally, analytics.Options{
		TopK:       a.cfg.TopK,
		SiteDomain: a.cfg.SiteDomain,
		Locator:    locator,
	})

	if a.jsonOut {
		err = report.JSON(a.stdout, rep)
	} else {
		err = report.Text(a.stdout, rep)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if a.cfg.Verbose {
		if err := report.Records(a.stdout, records); err != nil {
			return err
		}
	}

	a.logger.Debug("analysis complete",
		"humans", rep.Humans,
		"robots", rep.Robots,
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// scan parses every source in order and hands records to emit in batches
// of at most storage.DefaultBatchSize.
func (a *analyzer) scan(sources input.Sources, tok logrecord.Tokenizer, emit func([]logrecord.Record) error) (scanStats, error) {
	var stats scanStats
	batch := make([]logrecord.Record, 0, storage.DefaultBatchSize)

	for _, src := range sources {
		opts := logrecord.ScannerOptions{Source: src.Name}
		if a.cfg.Verbose {
			opts.Logger = a.logger
		}
		sc := logrecord.NewScanner(src, tok, opts)
		for sc.Scan() {
			batch = append(batch, sc.Record())
			stats.records++
			if len(batch) == cap(batch) {
				if err := emit(batch); err != nil {
					return stats, err
				}
				batch = batch[:0]
			}
		}
		stats.lines += sc.Lines()
		stats.skipped += sc.Skipped()
		if err := sc.Err(); err != nil {
			return stats, err
		}
	}

	if len(batch) > 0 {
		if err := emit(batch); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (a *analyzer) tallyMemory(sources input.Sources, tok logrecord.Tokenizer) (*analytics.Tally, []logrecord.Record, scanStats, error) {
	var records []logrecord.Record
	stats, err := a.scan(sources, tok, func(batch []logrecord.Record) error {
		records = append(records, batch...)
		return nil
	})
	if err != nil {
		return nil, nil, stats, err
	}

	set := traffic.Classify(records, a.cfg.Rules())
	a.logger.Debug("classified traffic",
		"humans", len(set.HumanHosts),
		"robots", len(set.RobotHosts),
	)
	return analytics.Count(set, a.cfg.SiteDomain), records, stats, nil
}

func (a *analyzer) tallySQLite(ctx context.Context, sources input.Sources, tok logrecord.Tokenizer) (*analytics.Tally, []logrecord.Record, scanStats, error) {
	store, err := storage.Open(a.cfg.SQLite.Path)
	if err != nil {
		return nil, nil, scanStats{}, err
	}
	defer store.Close()

	stats, err := a.scan(sources, tok, func(batch []logrecord.Record) error {
		return store.AddRecords(ctx, batch)
	})
	if err != nil {
		return nil, nil, stats, err
	}

	tally, err := store.Tally(ctx, a.cfg.Rules(), a.cfg.SiteDomain)
	if err != nil {
		return nil, nil, stats, fmt.Errorf("tally: %w", err)
	}

	var records []logrecord.Record
	if a.cfg.Verbose {
		if records, err = store.Records(ctx); err != nil {
			return nil, nil, stats, fmt.Errorf("read records: %w", err)
		}
	}
	return tally, records, stats, nil
}
