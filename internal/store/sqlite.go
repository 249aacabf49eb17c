// internal/store/sqlite.go
//
// SQLite persistence for top scores and finished games.
// Responsibilities:
//   - Opening SQLite database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Top score load/save, results log and the per-day leaderboard.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/game"
)

// defaultProfile is the single top-score row the server reads and writes.
const defaultProfile = "default"

// timeLayout is fixed-width so finished_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// OpenSQLite opens (and creates if missing) a SQLite database file.
// The parent directory of dsn is created when needed.
func OpenSQLite(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// Migrate applies every *.sql file in migrations, in lexical order, each in
// its own transaction. Applied files are recorded in _migrations and skipped
// on later runs.
func Migrate(ctx context.Context, db *sql.DB, migrations fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	var files []string
	if err := fs.WalkDir(migrations, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(migrations, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// SQLStore implements Scores on a migrated database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps db. The caller runs Migrate first and owns db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) LoadTopScore(ctx context.Context) (int, bool, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM top_scores WHERE profile=?`, defaultProfile).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load top score: %w", err)
	}
	return score, true, nil
}

// SaveTopScore raises the stored top score to score; a lower score is ignored.
func (s *SQLStore) SaveTopScore(ctx context.Context, score int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO top_scores (profile, score, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(profile) DO UPDATE SET score=MAX(score, excluded.score), updated_at=excluded.updated_at`,
		defaultProfile, score, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save top score: %w", err)
	}
	return nil
}

// RecordResult inserts a finished game. A repeated GameID is ignored.
func (s *SQLStore) RecordResult(ctx context.Context, r game.Result) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO game_results
            (game_id, session_id, mode, date, score, level, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, r.SessionID, r.Mode, r.Date, r.Score, r.Level,
		r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *SQLStore) Leaderboard(ctx context.Context, date string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT session_id, mode, score, level, finished_at
        FROM game_results
        WHERE date=?
        ORDER BY score DESC, finished_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var r LeaderboardRow
		var finished string
		if err := rows.Scan(&r.SessionID, &r.Mode, &r.Score, &r.Level, &finished); err != nil {
			return nil, err
		}
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
