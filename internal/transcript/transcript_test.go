package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arguewith/arena/internal/domain"
)

func sampleConversation(id string) *domain.Conversation {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &domain.Conversation{
		ID:        id,
		StartTime: start,
		GameSetup: domain.GameSetup{
			Topic:      "X",
			Difficulty: 5,
			Participants: []domain.Participant{
				{ID: "user", Name: "You", Role: domain.RoleHuman},
				{ID: "ai", Name: "Bot", Role: domain.RoleAI},
			},
			SubjectID: "S1",
			Position:  domain.PositionFor,
			Skill:     domain.SkillEasy,
		},
		Events: []domain.Event{
			domain.NewMessageEvent("user", "Test", start.Add(time.Second)),
			domain.NewScoreEvent("user", 95, start.Add(2*time.Second)),
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "conversations"))

	path, err := s.Save(ctx, sampleConversation("abc123xyz"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != "2026-03-14-conversation-abc123xyz.json" {
		t.Fatalf("unexpected file name %q", filepath.Base(path))
	}

	got, err := s.Load(ctx, "abc123xyz")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.GameSetup.Topic != "X" || len(got.Events) != 2 {
		t.Fatalf("unexpected conversation: %+v", got)
	}
	if got.FinalScore() != 95 {
		t.Fatalf("FinalScore = %d, want 95", got.FinalScore())
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	s := NewFileStore(filepath.Join(t.TempDir(), "never-created"))
	got, err := s.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("Load of missing id = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2026-01-01-conversation-bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "2026-01-01-conversation-typed.json"), []byte(`{"events": 3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(dir)

	for _, id := range []string{"bad", "typed"} {
		_, err := s.Load(context.Background(), id)
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("Load(%s) error = %v, want ErrCorrupt", id, err)
		}
	}
}

func TestDeleteRemovesAllMatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{
		"2026-01-01-conversation-dup.json",
		"2026-01-02-conversation-dup.json",
		"2026-01-02-conversation-keep.json",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := NewFileStore(dir)

	n, err := s.Delete(ctx, "dup")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed %d files, want 2", n)
	}
	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "keep" {
		t.Fatalf("List = %v, want [keep]", ids)
	}
}

func TestDeleteMissingDirectory(t *testing.T) {
	t.Parallel()
	s := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	n, err := s.Delete(context.Background(), "x")
	if err != nil || n != 0 {
		t.Fatalf("Delete = (%d, %v), want (0, nil)", n, err)
	}
}
