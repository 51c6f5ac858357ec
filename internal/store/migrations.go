package store

import "fmt"

// schema lists the migration steps in order. Step i moves the database from user_version i
// to i+1; existing steps must never be edited, only appended to.
var schema = [][]string{
	{
		`CREATE TABLE rounds (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL CHECK(difficulty IN ('easy', 'normal', 'hard')),
			score INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL,
			skips_used INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,
		`CREATE TABLE round_finds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id TEXT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			found_at DATETIME NOT NULL
		)`,
		`CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX idx_rounds_leaderboard ON rounds(difficulty, completed, score DESC, ended_at)`,
		`CREATE INDEX idx_round_finds_round_id ON round_finds(round_id)`,
	},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(schema)

// migrate applies every step past the database's current user_version, one transaction per
// step.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(schema) {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, len(schema))
	}

	for v := version; v < len(schema); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range schema[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", v+1, err)
			}
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}
