package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/arguewith/arena/internal/domain"
)

var (
	_ Repository = (*JSONFileStore)(nil)
	_ Repository = (*SQLiteStore)(nil)
)

type repoFactory func(t *testing.T) Repository

func backends() map[string]repoFactory {
	return map[string]repoFactory{
		"json": func(t *testing.T) Repository {
			s, err := NewJSONFile(filepath.Join(t.TempDir(), "leaderboard.json"))
			if err != nil {
				t.Fatalf("NewJSONFile failed: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Repository {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "arena.db"))
			if err != nil {
				t.Fatalf("NewSQLite failed: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func appendEntry(username string, score int, bucket domain.Bucket) BucketFunc {
	return func(current []domain.LeaderboardEntry, nextID int) ([]domain.LeaderboardEntry, error) {
		return append(current, domain.LeaderboardEntry{
			ID:        nextID,
			Username:  username,
			Score:     score,
			SubjectID: bucket.SubjectID,
			Position:  domain.PositionFor,
			Skill:     bucket.Skill,
		}), nil
	}
}

func TestUpdateBucketAssignsIDsAndIsolatesBuckets(t *testing.T) {
	for name, newRepo := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := newRepo(t)

			a := domain.Bucket{SubjectID: "S1", Skill: domain.SkillEasy}
			b := domain.Bucket{SubjectID: "S1", Skill: domain.SkillHard}

			if _, err := repo.UpdateBucket(ctx, a, appendEntry("ann", 60, a)); err != nil {
				t.Fatalf("UpdateBucket a: %v", err)
			}
			if _, err := repo.UpdateBucket(ctx, b, appendEntry("bob", 80, b)); err != nil {
				t.Fatalf("UpdateBucket b: %v", err)
			}
			if _, err := repo.UpdateBucket(ctx, a, appendEntry("cat", 90, a)); err != nil {
				t.Fatalf("UpdateBucket a again: %v", err)
			}

			gotA, err := repo.Bucket(ctx, a)
			if err != nil {
				t.Fatalf("Bucket a: %v", err)
			}
			if len(gotA) != 2 || gotA[0].Username != "cat" || gotA[0].ID != 3 || gotA[1].Username != "ann" {
				t.Fatalf("bucket a = %+v", gotA)
			}

			gotB, err := repo.Bucket(ctx, b)
			if err != nil {
				t.Fatalf("Bucket b: %v", err)
			}
			if len(gotB) != 1 || gotB[0].Username != "bob" || gotB[0].ID != 2 {
				t.Fatalf("bucket b = %+v", gotB)
			}

			all, err := repo.Entries(ctx)
			if err != nil {
				t.Fatalf("Entries: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(all))
			}
		})
	}
}

func TestUpdateBucketErrorLeavesStorageUntouched(t *testing.T) {
	for name, newRepo := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := newRepo(t)
			bucket := domain.Bucket{SubjectID: "S2", Skill: domain.SkillMedium}

			if _, err := repo.UpdateBucket(ctx, bucket, appendEntry("ann", 10, bucket)); err != nil {
				t.Fatalf("seed: %v", err)
			}

			boom := errors.New("boom")
			_, err := repo.UpdateBucket(ctx, bucket, func([]domain.LeaderboardEntry, int) ([]domain.LeaderboardEntry, error) {
				return nil, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}

			got, err := repo.Bucket(ctx, bucket)
			if err != nil {
				t.Fatalf("Bucket: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("bucket should be untouched, got %+v", got)
			}
		})
	}
}

func TestUpdateBucketRejectsForeignEntries(t *testing.T) {
	for name, newRepo := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := newRepo(t)
			bucket := domain.Bucket{SubjectID: "S1", Skill: domain.SkillEasy}
			other := domain.Bucket{SubjectID: "S9", Skill: domain.SkillEasy}

			if _, err := repo.UpdateBucket(ctx, bucket, appendEntry("x", 1, other)); err == nil {
				t.Fatal("expected error for entry outside bucket")
			}
			all, err := repo.Entries(ctx)
			if err != nil {
				t.Fatalf("Entries: %v", err)
			}
			if len(all) != 0 {
				t.Fatalf("expected no entries, got %+v", all)
			}
		})
	}
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	for name, newRepo := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo := newRepo(t)
			bucket := domain.Bucket{SubjectID: "S1", Skill: domain.SkillEasy}

			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(score int) {
					defer wg.Done()
					if _, err := repo.UpdateBucket(ctx, bucket, appendEntry("p", score, bucket)); err != nil {
						errs <- err
					}
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				t.Fatalf("concurrent update failed: %v", err)
			}

			got, err := repo.Bucket(ctx, bucket)
			if err != nil {
				t.Fatalf("Bucket: %v", err)
			}
			if len(got) != 10 {
				t.Fatalf("expected 10 entries, got %d", len(got))
			}
			seen := map[int]bool{}
			for _, e := range got {
				if seen[e.ID] {
					t.Fatalf("duplicate id %d", e.ID)
				}
				seen[e.ID] = true
			}
		})
	}
}

func TestJSONFileFormat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	repo, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	bucket := domain.Bucket{SubjectID: "S1", Skill: domain.SkillEasy}
	if _, err := repo.UpdateBucket(ctx, bucket, appendEntry("ann", 42, bucket)); err != nil {
		t.Fatalf("UpdateBucket: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string][]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entries := raw["entries"]
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %s", data)
	}
	if entries[0]["subjectId"] != "S1" || entries[0]["username"] != "ann" || entries[0]["score"] != float64(42) {
		t.Fatalf("unexpected entry shape: %v", entries[0])
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".leaderboard-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestJSONFileCorrupt(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err := NewJSONFile(path)
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	if _, err := repo.Entries(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
