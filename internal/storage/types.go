package storage

import (
	"context"

	"github.com/runnerr0/apachestats/internal/analytics"
	"github.com/runnerr0/apachestats/internal/logrecord"
	"github.com/runnerr0/apachestats/internal/traffic"
)

// Store stages parsed records and groups them with SQL.
type Store interface {
	AddRecords(ctx context.Context, records []logrecord.Record) error
	Count(ctx context.Context) (int64, error)
	Tally(ctx context.Context, rules traffic.Rules, siteDomain string) (*analytics.Tally, error)
	Records(ctx context.Context) ([]logrecord.Record, error)
	Close() error
}

// DefaultBatchSize is how many records callers buffer per AddRecords call.
const DefaultBatchSize = 1000
