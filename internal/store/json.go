package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/arguewith/arena/internal/domain"
)

type leaderboardFile struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// JSONFileStore implements Repository over a single {"entries": [...]} file.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile creates a JSON-file-backed repository. The file is created on first write.
func NewJSONFile(path string) (*JSONFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create leaderboard directory: %w", err)
	}
	return &JSONFileStore{path: path}, nil
}

// Entries returns every entry in file order.
func (s *JSONFileStore) Entries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Bucket returns one bucket sorted by descending score.
func (s *JSONFileStore) Bucket(ctx context.Context, bucket domain.Bucket) ([]domain.LeaderboardEntry, error) {
	all, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return filterBucket(all, bucket), nil
}

// UpdateBucket rewrites the file with the bucket replaced by fn's result.
// Other buckets keep their relative order and the updated bucket is written after them.
func (s *JSONFileStore) UpdateBucket(ctx context.Context, bucket domain.Bucket, fn BucketFunc) ([]domain.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}

	var others []domain.LeaderboardEntry
	for _, e := range all {
		if e.Bucket() != bucket {
			others = append(others, e)
		}
	}

	updated, err := fn(filterBucket(all, bucket), nextID(all))
	if err != nil {
		return nil, err
	}
	for _, e := range updated {
		if e.Bucket() != bucket {
			return nil, fmt.Errorf("entry %d does not belong to bucket %s/%s", e.ID, bucket.SubjectID, bucket.Skill)
		}
	}

	if err := s.write(append(others, updated...)); err != nil {
		return nil, err
	}
	return updated, nil
}

// Ping checks that the leaderboard file is readable or absent.
func (s *JSONFileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat leaderboard: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *JSONFileStore) Close() error {
	return nil
}

func (s *JSONFileStore) read() ([]domain.LeaderboardEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	var f leaderboardFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return f.Entries, nil
}

func (s *JSONFileStore) write(entries []domain.LeaderboardEntry) error {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	data, err := json.MarshalIndent(leaderboardFile{Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".leaderboard-*.json")
	if err != nil {
		return fmt.Errorf("create temp leaderboard: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp leaderboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp leaderboard: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}
