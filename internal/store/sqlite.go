package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/shared"
	_ "modernc.org/sqlite"
)

const entryColumns = `id, username, score, subject_id, position, skill, conversation_id`

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	updateMu sync.Mutex // serializes bucket rewrites within the process to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS leaderboard_entries (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		score INTEGER NOT NULL,
		subject_id TEXT NOT NULL,
		position TEXT NOT NULL,
		skill TEXT NOT NULL,
		conversation_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leaderboard_bucket ON leaderboard_entries(subject_id, skill, score DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Entries returns every entry grouped by bucket, each bucket by descending score.
func (s *SQLiteStore) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM leaderboard_entries ORDER BY subject_id, skill, score DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return scanEntries(rows)
}

// Bucket returns one bucket sorted by descending score.
func (s *SQLiteStore) Bucket(ctx context.Context, bucket domain.Bucket) ([]domain.LeaderboardEntry, error) {
	return queryBucket(ctx, s.db, bucket)
}

// UpdateBucket replaces one bucket inside a single transaction.
// Implements retry logic with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) UpdateBucket(ctx context.Context, bucket domain.Bucket, fn BucketFunc) ([]domain.LeaderboardEntry, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; ; i++ {
		updated, err := s.updateBucketOnce(ctx, bucket, fn)
		if err == nil {
			return updated, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return nil, err
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("UpdateBucket failed with SQLITE_BUSY, retrying",
			"subject_id", bucket.SubjectID,
			"skill", bucket.Skill,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (s *SQLiteStore) updateBucketOnce(ctx context.Context, bucket domain.Bucket, fn BucketFunc) (_ []domain.LeaderboardEntry, err error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("failed to roll back bucket update", "error", rbErr)
			}
		}
	}()

	current, err := queryBucket(ctx, tx, bucket)
	if err != nil {
		return nil, err
	}

	var maxID int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM leaderboard_entries`).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("query max id: %w", err)
	}

	updated, err := fn(current, maxID+1)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM leaderboard_entries WHERE subject_id = ? AND skill = ?`,
		bucket.SubjectID, string(bucket.Skill)); err != nil {
		return nil, fmt.Errorf("clear bucket: %w", err)
	}

	now := time.Now().Unix()
	for _, e := range updated {
		if e.Bucket() != bucket {
			return nil, fmt.Errorf("entry %d does not belong to bucket %s/%s", e.ID, bucket.SubjectID, bucket.Skill)
		}
		var conversationID any
		if e.ConversationID != "" {
			conversationID = e.ConversationID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboard_entries (`+entryColumns+`, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Username, e.Score, e.SubjectID, string(e.Position), string(e.Skill), conversationID, now,
		); err != nil {
			return nil, fmt.Errorf("insert entry %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bucket update: %w", err)
	}
	return updated, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBucket(ctx context.Context, q queryer, bucket domain.Bucket) ([]domain.LeaderboardEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM leaderboard_entries
		WHERE subject_id = ? AND skill = ?
		ORDER BY score DESC, id ASC`,
		bucket.SubjectID, string(bucket.Skill))
	if err != nil {
		return nil, fmt.Errorf("query bucket: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.LeaderboardEntry, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leaderboard rows", "error", closeErr)
		}
	}()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		var position, skill string
		var conversationID sql.NullString
		if err := rows.Scan(&e.ID, &e.Username, &e.Score, &e.SubjectID, &position, &skill, &conversationID); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		e.Position = domain.Position(position)
		e.Skill = domain.Skill(skill)
		e.ConversationID = conversationID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
