package storage

import "database/sql"

// migrateV001 creates the requests staging table and the indexes the
// tally queries group on.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			host           TEXT NOT NULL,
			ts             TEXT NOT NULL,
			ts_unix_nano   INTEGER NOT NULL,
			day            TEXT NOT NULL,
			hour           INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
			request_line   TEXT NOT NULL DEFAULT '',
			status         INTEGER NOT NULL,
			bytes_sent     INTEGER NOT NULL DEFAULT 0,
			headers        TEXT NOT NULL DEFAULT '{}',
			referer_domain TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_requests_host     ON requests(host)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_day_host ON requests(day, host)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_hour     ON requests(hour)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_referer  ON requests(referer_domain)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
