package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/apachestats/internal/analytics"
	"github.com/runnerr0/apachestats/internal/logrecord"
	"github.com/runnerr0/apachestats/internal/referrer"
	"github.com/runnerr0/apachestats/internal/traffic"
)

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	insertRequest *sql.Stmt

	// set when Open created the database; Close then owns it
	ownsDB      bool
	scratchPath string
}

// Open creates a scratch store. An empty path keeps everything in memory;
// otherwise the file at path is created and removed again on Close.
func Open(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("scratch database %s already exists", path)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create store: %w", err)
	}
	s.ownsDB = true
	s.scratchPath = path
	return s, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertRequest, err = s.db.Prepare(`
		INSERT INTO requests (host, ts, ts_unix_nano, day, hour, request_line, status, bytes_sent, headers, referer_domain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	return err
}

// AddRecords inserts a batch of records in one transaction. The referrer
// domain is classified on the way in.
func (s *SQLiteStore) AddRecords(ctx context.Context, records []logrecord.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.insertRequest)
	defer stmt.Close()

	for _, r := range records {
		headers := "{}"
		if len(r.Headers) > 0 {
			b, err := sonic.Marshal(r.Headers)
			if err != nil {
				return fmt.Errorf("encode headers: %w", err)
			}
			headers = string(b)
		}

		var domain sql.NullString
		if d, ok := referrer.Classify(r.Referer()); ok {
			domain = sql.NullString{String: d, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			r.RemoteHost, r.RequestTime.Format(time.RFC3339Nano), r.RequestTime.UnixNano(),
			r.Date, r.Hour, r.RequestLine, r.FinalStatus, r.BytesSent, headers, domain,
		); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the number of staged records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests").Scan(&n); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// filters holds the SQL conditions that mirror traffic.Rules.
type filters struct {
	humanHost string
	humanReq  string
	robotArgs []interface{}
	humanArgs []interface{}
	reqArgs   []interface{}
}

func buildFilters(rules traffic.Rules) filters {
	var f filters

	// instr(x, '') is 1 in SQLite, so an empty marker must not reach SQL.
	robotCond := "0"
	if rules.RobotMarker != "" {
		robotCond = "instr(request_line, ?) > 0"
		f.robotArgs = []interface{}{rules.RobotMarker}
	}
	f.humanHost = "host NOT IN (SELECT host FROM requests WHERE " + robotCond + ")"
	f.humanArgs = append(f.humanArgs, f.robotArgs...)

	clauses := []string{f.humanHost}
	f.reqArgs = append(f.reqArgs, f.humanArgs...)
	for _, m := range rules.NoiseMarkers {
		if m == "" {
			continue
		}
		clauses = append(clauses, "instr(request_line, ?) = 0")
		f.reqArgs = append(f.reqArgs, m)
	}
	f.humanReq = strings.Join(clauses, " AND ")
	return f
}

// Tally groups the staged records the same way analytics.Count does.
func (s *SQLiteStore) Tally(ctx context.Context, rules traffic.Rules, siteDomain string) (*analytics.Tally, error) {
	t := analytics.NewTally()
	f := buildFilters(rules)

	var total int64
	var minTS, maxTS sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(ts_unix_nano), MAX(ts_unix_nano) FROM requests",
	).Scan(&total, &minTS, &maxTS)
	if err != nil {
		return nil, fmt.Errorf("time range: %w", err)
	}
	if total > 0 && minTS.Valid && maxTS.Valid {
		t.Earliest = time.Unix(0, minTS.Int64).UTC()
		t.Latest = time.Unix(0, maxTS.Int64).UTC()
	}

	if t.Days, err = s.column(ctx, "SELECT DISTINCT day FROM requests ORDER BY day"); err != nil {
		return nil, fmt.Errorf("distinct days: %w", err)
	}

	if rules.RobotMarker != "" {
		t.RobotHosts, err = s.column(ctx,
			"SELECT DISTINCT host FROM requests WHERE instr(request_line, ?) > 0 ORDER BY host",
			f.robotArgs...)
		if err != nil {
			return nil, fmt.Errorf("robot hosts: %w", err)
		}
	}

	t.HumanHosts, err = s.column(ctx,
		"SELECT DISTINCT host FROM requests WHERE "+f.humanHost+" ORDER BY host",
		f.humanArgs...)
	if err != nil {
		return nil, fmt.Errorf("human hosts: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM requests WHERE "+f.humanReq, f.reqArgs...,
	).Scan(&t.HumanRequests)
	if err != nil {
		return nil, fmt.Errorf("human requests: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT hour, COUNT(*) FROM requests WHERE "+f.humanReq+" GROUP BY hour", f.reqArgs...)
	if err != nil {
		return nil, fmt.Errorf("hours: %w", err)
	}
	if err := scanCounts(rows, func(hour int, n int) { t.Hours[hour] = n }); err != nil {
		return nil, fmt.Errorf("hours: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT day, COUNT(DISTINCT host) FROM requests WHERE "+f.humanReq+" GROUP BY day", f.reqArgs...)
	if err != nil {
		return nil, fmt.Errorf("humans per day: %w", err)
	}
	if err := scanCounts(rows, func(day string, n int) { t.HumansPerDay[day] = n }); err != nil {
		return nil, fmt.Errorf("humans per day: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT referer_domain, COUNT(*) FROM requests WHERE "+f.humanReq+
			" AND referer_domain IS NOT NULL GROUP BY referer_domain", f.reqArgs...)
	if err != nil {
		return nil, fmt.Errorf("referrers: %w", err)
	}
	err = scanCounts(rows, func(domain string, n int) {
		if !analytics.IsSelfReferral(domain, siteDomain) {
			t.Referrers[domain] = n
		}
	})
	if err != nil {
		return nil, fmt.Errorf("referrers: %w", err)
	}

	return t, nil
}

// column runs a single-column query.
func (s *SQLiteStore) column(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// SQLite's BINARY collation already sorts bytewise; keep Go's order explicit.
	sort.Strings(out)
	return out, nil
}

// scanCounts reads (key, count) rows and closes them.
func scanCounts[K int | string](rows *sql.Rows, put func(K, int)) error {
	defer rows.Close()
	for rows.Next() {
		var k K
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return err
		}
		put(k, n)
	}
	return rows.Err()
}

// Records reads staged records back in insertion order.
func (s *SQLiteStore) Records(ctx context.Context) ([]logrecord.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT host, ts, day, hour, request_line, status, bytes_sent, headers
		FROM requests ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	records := []logrecord.Record{}
	for rows.Next() {
		var r logrecord.Record
		var ts, headers string
		if err := rows.Scan(
			&r.RemoteHost, &ts, &r.Date, &r.Hour, &r.RequestLine,
			&r.FinalStatus, &r.BytesSent, &headers,
		); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		if r.RequestTime, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse stored time %q: %w", ts, err)
		}
		if headers != "{}" {
			if err := sonic.UnmarshalString(headers, &r.Headers); err != nil {
				return nil, fmt.Errorf("decode headers: %w", err)
			}
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Close releases the prepared statement. When the store was created by
// Open it also closes the database and removes its scratch file; otherwise
// the *sql.DB is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	if s.insertRequest != nil {
		s.insertRequest.Close()
	}
	if !s.ownsDB {
		return nil
	}
	err := s.db.Close()
	if s.scratchPath != "" {
		for _, p := range []string{s.scratchPath, s.scratchPath + "-wal", s.scratchPath + "-shm"} {
			if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
				err = fmt.Errorf("remove scratch database: %w", rmErr)
			}
		}
	}
	return err
}
