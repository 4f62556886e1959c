// Package leaderboard decides which finished debates earn a high-score slot
// and maintains the top-N list of every (subject, skill) bucket.
package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arguewith/arena/internal/diag"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/store"
)

// TranscriptRemover deletes every stored transcript of a conversation.
type TranscriptRemover interface {
	Delete(ctx context.Context, conversationID string) (int, error)
}

// Filter narrows List to one subject and/or skill. Empty fields match everything.
type Filter struct {
	SubjectID string
	Skill     domain.Skill
}

// Manager maintains the leaderboard.
type Manager struct {
	repo        store.Repository
	transcripts TranscriptRemover
	limit       int
	diag        *diag.Logger
	logger      *slog.Logger
}

// NewManager creates a Manager keeping limit entries per bucket.
// A non-positive limit means domain.DefaultLeaderboardSize.
func NewManager(repo store.Repository, transcripts TranscriptRemover, limit int, dl *diag.Logger, logger *slog.Logger) *Manager {
	if limit <= 0 {
		limit = domain.DefaultLeaderboardSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, transcripts: transcripts, limit: limit, diag: dl, logger: logger}
}

// Limit returns the number of entries kept per bucket.
func (m *Manager) Limit() int {
	return m.limit
}

// CheckAndUpdateHighScore reports whether score earns a slot in the bucket.
// It qualifies when the bucket has free slots or score is strictly greater
// than the lowest kept score. When it does not qualify, the conversation's
// transcript files are deleted.
func (m *Manager) CheckAndUpdateHighScore(ctx context.Context, score int, subjectID string, skill domain.Skill, position domain.Position, conversationID string) (bool, error) {
	bucket := domain.Bucket{SubjectID: subjectID, Skill: skill}
	entries, err := m.repo.Bucket(ctx, bucket)
	if err != nil {
		return false, m.fail("load leaderboard", err)
	}

	if len(entries) < m.limit || score > entries[m.limit-1].Score {
		m.diag.Printf("score %d qualifies for %s/%s (%s), conversation %s", score, subjectID, skill, position, conversationID)
		return true, nil
	}

	m.diag.Printf("score %d does not qualify for %s/%s (cutoff %d), conversation %s", score, subjectID, skill, entries[m.limit-1].Score, conversationID)
	if conversationID != "" {
		if _, err := m.transcripts.Delete(ctx, conversationID); err != nil {
			return false, m.fail("delete transcript "+conversationID, err)
		}
	}
	return false, nil
}

// AddHighScore inserts a new entry into its bucket, keeps the top N by
// score and deletes the transcripts of evicted entries before the
// leaderboard is rewritten. The returned entry carries its assigned id.
func (m *Manager) AddHighScore(ctx context.Context, username string, score int, subjectID string, skill domain.Skill, position domain.Position, conversationID string) (*domain.LeaderboardEntry, error) {
	bucket := domain.Bucket{SubjectID: subjectID, Skill: skill}
	var added domain.LeaderboardEntry

	_, err := m.repo.UpdateBucket(ctx, bucket, func(current []domain.LeaderboardEntry, nextID int) ([]domain.LeaderboardEntry, error) {
		added = domain.LeaderboardEntry{
			ID:             nextID,
			Username:       username,
			Score:          score,
			SubjectID:      subjectID,
			Position:       position,
			Skill:          skill,
			ConversationID: conversationID,
		}
		kept := append(append([]domain.LeaderboardEntry(nil), current...), added)
		domain.SortByScore(kept)
		if len(kept) <= m.limit {
			return kept, nil
		}

		evicted := kept[m.limit:]
		kept = kept[:m.limit]
		for _, e := range evicted {
			m.diag.Printf("evicting entry %d (%s, %d) from %s/%s", e.ID, e.Username, e.Score, subjectID, skill)
			if e.ConversationID == "" {
				continue
			}
			if _, err := m.transcripts.Delete(ctx, e.ConversationID); err != nil {
				return nil, fmt.Errorf("delete transcript %s: %w", e.ConversationID, err)
			}
		}
		return kept, nil
	})
	if err != nil {
		return nil, m.fail("update leaderboard", err)
	}

	m.logger.Info("High score recorded",
		"entry_id", added.ID,
		"score", score,
		"subject_id", subjectID,
		"skill", skill,
	)
	return &added, nil
}

// List returns leaderboard entries matching f, grouped by bucket with each
// bucket sorted by descending score.
func (m *Manager) List(ctx context.Context, f Filter) ([]domain.LeaderboardEntry, error) {
	if f.SubjectID != "" && f.Skill != "" {
		entries, err := m.repo.Bucket(ctx, domain.Bucket{SubjectID: f.SubjectID, Skill: f.Skill})
		if err != nil {
			return nil, m.fail("load leaderboard", err)
		}
		return entries, nil
	}

	all, err := m.repo.Entries(ctx)
	if err != nil {
		return nil, m.fail("load leaderboard", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(all))
	for _, e := range all {
		if f.SubjectID != "" && e.SubjectID != f.SubjectID {
			continue
		}
		if f.Skill != "" && e.Skill != f.Skill {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		if a.Skill != b.Skill {
			return a.Skill < b.Skill
		}
		return a.Score > b.Score
	})
	return out, nil
}

func (m *Manager) fail(op string, err error) error {
	m.diag.Printf("leaderboard: %s failed: %v", op, err)
	m.logger.Error("Leaderboard operation failed", "op", op, "error", err)
	return fmt.Errorf("leaderboard: %s: %w", op, err)
}
