// Package output renders debates and leaderboards for the terminal client.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/game"
)

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	AnsiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
)

// Colorize wraps s with an ANSI color code and reset.
func Colorize(color, s string) string { return color + s + ansiReset }

// Bold wraps s with ANSI bold and reset.
func Bold(s string) string { return ansiBold + s + ansiReset }

// ScoreBar draws the audience split as a width-character bar, user share first.
func ScoreBar(score domain.AudienceScore, width int) string {
	if width <= 0 {
		return ""
	}
	filled := score.User * width / 100
	return strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
}

// PrintMessage prints one debate message.
func PrintMessage(w io.Writer, m game.Message) {
	color := ansiCyan
	if m.Role == domain.RoleAI {
		color = AnsiMagenta
	}
	name := m.Name
	if name == "" {
		name = string(m.Role)
	}
	fmt.Fprintf(w, "%s: %s\n", Colorize(ansiBold+color, name), m.Content)
}

// PrintScore prints the audience split.
func PrintScore(w io.Writer, score domain.AudienceScore) {
	fmt.Fprintf(w, "%s [%s] %s\n",
		Colorize(ansiCyan, fmt.Sprintf("you %3d%%", score.User)),
		ScoreBar(score, 30),
		Colorize(AnsiMagenta, fmt.Sprintf("%d%% opponent", score.Opponent)),
	)
}

// PrintHint prints advice for the next argument.
func PrintHint(w io.Writer, hint string) {
	fmt.Fprintf(w, "%s %s\n", Colorize(ansiYellow, "Hint:"), hint)
}

// PrintError prints a user-facing failure.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, Colorize(ansiRed, msg))
}

// PrintSummary prints the end-of-debate result.
func PrintSummary(w io.Writer, s *game.Summary) {
	fmt.Fprintf(w, "\n%s\n", Colorize(ansiBold+ansiCyan, "=== Debate over ==="))
	fmt.Fprintf(w, "Final audience: %s\n", Colorize(ansiYellow, fmt.Sprintf("%d%%", s.FinalScore)))
	if s.IsHighScore {
		fmt.Fprintln(w, Colorize(ansiBold+ansiGreen, "New high score!"))
	}
	if s.ConversationID != "" {
		fmt.Fprintf(w, "Conversation: %s\n", s.ConversationID)
	}
	ev := s.Evaluation
	if ev == nil {
		return
	}
	fmt.Fprintf(w, "Judge score: %d/100\n", ev.Score)
	if ev.Feedback != "" {
		fmt.Fprintf(w, "%s\n", ev.Feedback)
	}
	printList(w, "Strengths", ansiGreen, ev.Strengths)
	printList(w, "Improvements", ansiYellow, ev.Improvements)
}

func printList(w io.Writer, title, color string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, Colorize(color, title+":"))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

// PrintLeaderboard prints entries grouped by bucket, in the order given.
func PrintLeaderboard(w io.Writer, entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No high scores yet.")
		return
	}
	var current domain.Bucket
	rank := 0
	for i, e := range entries {
		if i == 0 || e.Bucket() != current {
			current = e.Bucket()
			rank = 0
			fmt.Fprintf(w, "\n%s\n", Bold(fmt.Sprintf("%s (%s)", e.SubjectID, e.Skill)))
		}
		rank++
		fmt.Fprintf(w, "%2d. %3d  %-20s %s\n", rank, e.Score, e.Username, e.Position)
	}
}
