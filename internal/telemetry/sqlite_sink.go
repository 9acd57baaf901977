// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createTelemetryTable = `
CREATE TABLE IF NOT EXISTS telemetry (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_ms     INTEGER NOT NULL,
	fore      TEXT,
	mizzen    TEXT,
	heading   REAL,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	speed     REAL NOT NULL,
	track     REAL NOT NULL
)`

const insertTelemetry = `
INSERT INTO telemetry (ts_ms, fore, mizzen, heading, latitude, longitude, speed, track)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink stores records in a telemetry table. Unavailable readings are
// stored as NULL.
type SQLiteSink struct {
	db   *sql.DB
	stmt *sql.Stmt
}

func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, "_journal_mode=WAL&_synchronous=NORMAL"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: open sqlite %s: %w", path, err)
	}
	// One writer; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTelemetryTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: create table: %w", err)
	}
	stmt, err := db.Prepare(insertTelemetry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: prepare insert: %w", err)
	}
	return &SQLiteSink{db: db, stmt: stmt}, nil
}

func (s *SQLiteSink) Write(rec Record) error {
	var fore, mizzen sql.NullString
	if rec.Fore.Available {
		fore = sql.NullString{String: rec.Fore.Text, Valid: true}
	}
	if rec.Mizzen.Available {
		mizzen = sql.NullString{String: rec.Mizzen.Text, Valid: true}
	}
	var heading sql.NullFloat64
	if rec.Heading.Available {
		heading = sql.NullFloat64{Float64: rec.Heading.Degrees, Valid: true}
	}

	_, err := s.stmt.Exec(
		rec.Timestamp.UnixMilli(),
		fore, mizzen, heading,
		rec.Fix.Latitude, rec.Fix.Longitude, rec.Fix.Speed, rec.Fix.Track,
	)
	if err != nil {
		return fmt.Errorf("telemetry: sqlite insert: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	s.stmt.Close()
	return s.db.Close()
}
