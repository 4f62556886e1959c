package domain

import "sort"

// DefaultLeaderboardSize is the number of entries kept per bucket.
const DefaultLeaderboardSize = 5

// Bucket partitions the leaderboard into independent top-N lists.
type Bucket struct {
	SubjectID string `json:"subjectId"`
	Skill     Skill  `json:"skill"`
}

// LeaderboardEntry is one persisted high score.
type LeaderboardEntry struct {
	ID             int      `json:"id"`
	Username       string   `json:"username"`
	Score          int      `json:"score"`
	SubjectID      string   `json:"subjectId"`
	Position       Position `json:"position"`
	Skill          Skill    `json:"skill"`
	ConversationID string   `json:"conversationId,omitempty"`
}

// Bucket returns the partition the entry belongs to.
func (e LeaderboardEntry) Bucket() Bucket {
	return Bucket{SubjectID: e.SubjectID, Skill: e.Skill}
}

// SortByScore orders entries by descending score. Equal scores keep their relative order.
func SortByScore(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
}
