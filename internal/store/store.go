// Package store provides leaderboard persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/arguewith/arena/internal/domain"
)

// BucketFunc computes the new contents of a bucket from its current entries.
// current is sorted by descending score; nextID is one past the highest id
// in the whole leaderboard. The returned slice replaces the bucket. Returning
// an error aborts the update and leaves storage untouched.
type BucketFunc func(current []domain.LeaderboardEntry, nextID int) ([]domain.LeaderboardEntry, error)

// Repository defines the interface for persisting leaderboard entries.
type Repository interface {
	// Entries returns every entry, buckets in storage order.
	Entries(ctx context.Context) ([]domain.LeaderboardEntry, error)

	// Bucket returns the entries of one bucket sorted by descending score.
	Bucket(ctx context.Context, bucket domain.Bucket) ([]domain.LeaderboardEntry, error)

	// UpdateBucket atomically replaces one bucket with the result of fn.
	// Entries of other buckets are never modified.
	UpdateBucket(ctx context.Context, bucket domain.Bucket, fn BucketFunc) ([]domain.LeaderboardEntry, error)

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

func filterBucket(entries []domain.LeaderboardEntry, bucket domain.Bucket) []domain.LeaderboardEntry {
	var out []domain.LeaderboardEntry
	for _, e := range entries {
		if e.Bucket() == bucket {
			out = append(out, e)
		}
	}
	domain.SortByScore(out)
	return out
}

func nextID(entries []domain.LeaderboardEntry) int {
	maxID := 0
	for _, e := range entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	return maxID + 1
}
