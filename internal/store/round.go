package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultListLimit caps leaderboard queries that do not set a limit.
const DefaultListLimit = 10

// Round is a played round as recorded when it ended.
type Round struct {
	ID         string
	Player     string
	Difficulty string
	Score      int
	Duration   time.Duration
	SkipsUsed  int
	// Completed is false when the player quit before the timer ran out.
	Completed bool
	StartedAt time.Time
	EndedAt   time.Time
}

// Find is one object found during a round.
type Find struct {
	RoundID    string
	Sequence   int
	Label      string
	Confidence float64
	FoundAt    time.Time
}

// RoundRepository provides access to rounds and their finds.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create inserts a new round into the database.
func (r *RoundRepository) Create(rd *Round) error {
	_, err := r.db.Exec(
		`INSERT INTO rounds (id, player, difficulty, score, duration_ms, skips_used, completed, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ID, rd.Player, rd.Difficulty, rd.Score, rd.Duration.Milliseconds(), rd.SkipsUsed,
		rd.Completed, rd.StartedAt.UTC(), rd.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

const roundColumns = `id, player, difficulty, score, duration_ms, skips_used, completed, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(sc scanner) (*Round, error) {
	rd := &Round{}
	var durationMs int64

	err := sc.Scan(&rd.ID, &rd.Player, &rd.Difficulty, &rd.Score, &durationMs, &rd.SkipsUsed,
		&rd.Completed, &rd.StartedAt, &rd.EndedAt)
	if err != nil {
		return nil, err
	}

	rd.Duration = time.Duration(durationMs) * time.Millisecond
	return rd, nil
}

// GetByID retrieves a round by its ID.
func (r *RoundRepository) GetByID(id string) (*Round, error) {
	rd, err := scanRound(r.db.QueryRow(`SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rd, nil
}

// List returns the leaderboard: completed rounds ordered by score, earliest first on ties.
// An empty difficulty lists every difficulty.
func (r *RoundRepository) List(difficulty string, limit int) ([]*Round, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT `+roundColumns+` FROM rounds
		 WHERE completed = 1 AND (? = '' OR difficulty = ?)
		 ORDER BY score DESC, ended_at ASC
		 LIMIT ?`,
		difficulty, difficulty, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*Round
	for rows.Next() {
		rd, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rounds, nil
}

// Best returns the highest completed score for difficulty, or 0 when none was recorded.
func (r *RoundRepository) Best(difficulty string) (int, error) {
	var best sql.NullInt64
	err := r.db.QueryRow(
		`SELECT MAX(score) FROM rounds WHERE completed = 1 AND difficulty = ?`,
		difficulty,
	).Scan(&best)
	if err != nil {
		return 0, err
	}
	return int(best.Int64), nil
}

// Delete removes a round and its finds.
func (r *RoundRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM rounds WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// AddFinds stores the finds of a round. Sequence numbers are assigned in slice order.
func (r *RoundRepository) AddFinds(roundID string, finds []Find) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO round_finds (round_id, sequence, label, confidence, found_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range finds {
		if _, err := stmt.Exec(roundID, i, f.Label, f.Confidence, f.FoundAt.UTC()); err != nil {
			return fmt.Errorf("insert find %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Finds returns the finds of a round in the order they happened.
func (r *RoundRepository) Finds(roundID string) ([]Find, error) {
	rows, err := r.db.Query(
		`SELECT round_id, sequence, label, confidence, found_at
		 FROM round_finds WHERE round_id = ? ORDER BY sequence`,
		roundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var finds []Find
	for rows.Next() {
		var f Find
		if err := rows.Scan(&f.RoundID, &f.Sequence, &f.Label, &f.Confidence, &f.FoundAt); err != nil {
			return nil, err
		}
		finds = append(finds, f)
	}

	return finds, rows.Err()
}
