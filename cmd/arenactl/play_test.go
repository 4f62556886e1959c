package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/game"
)

type stubBackend struct{ scores []int }

func (s *stubBackend) StartConversation(context.Context, domain.GameSetup) (string, error) {
	return "conv-1", nil
}

func (s *stubBackend) RecordMessage(context.Context, string, string, string) error { return nil }

func (s *stubBackend) RecordScore(_ context.Context, _, _ string, score int) error {
	s.scores = append(s.scores, score)
	return nil
}

func (s *stubBackend) EndConversation(_ context.Context, id string) (*domain.EndResult, error) {
	return &domain.EndResult{ConversationID: id, IsHighScore: true}, nil
}

type stubAgent struct{}

func (stubAgent) Respond(context.Context, agent.ResponseRequest) (*agent.Argument, error) {
	return &agent.Argument{Content: "I disagree."}, nil
}

func (stubAgent) Score(_ context.Context, req agent.EvaluateRequest) (*agent.Evaluation, error) {
	if req.Speaker == domain.RoleHuman {
		return &agent.Evaluation{NewScore: 60}, nil
	}
	return &agent.Evaluation{NewScore: 45}, nil
}

func (stubAgent) Hint(context.Context, agent.HintRequest) (*agent.Hint, error) {
	return &agent.Hint{Hint: "Cite a study."}, nil
}

func (stubAgent) FinalEvaluation(context.Context, agent.FinalEvaluationRequest) (*agent.FinalEvaluation, error) {
	return &agent.FinalEvaluation{Score: 70, Feedback: "Good."}, nil
}

func newStubDebate(t *testing.T) *game.Debate {
	t.Helper()
	d, err := game.New(&stubBackend{}, stubAgent{}, domain.GameSetup{
		Topic: "Homework should be banned",
		Participants: []domain.Participant{
			{ID: "user", Name: "You", Role: domain.RoleHuman},
			{ID: "ai", Name: "Bot", Role: domain.RoleAI},
		},
		SubjectID: "education",
	}, agent.Persona{Name: "Bot"}, nil)
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return d
}

func TestDebateLoopCommands(t *testing.T) {
	d := newStubDebate(t)
	var out bytes.Buffer
	shown := printNew(&out, d, 0)
	if shown != 1 {
		t.Fatalf("opening shown = %d, want 1", shown)
	}

	in := strings.NewReader("/hint\n\nKids need rest.\n/score\n/end\nignored\n")
	summary, err := debateLoop(context.Background(), in, &out, d, shown)
	if err != nil {
		t.Fatalf("debateLoop: %v", err)
	}
	if summary.Evaluation == nil || summary.Evaluation.Score != 70 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if d.Phase() != game.PhaseEnded {
		t.Fatalf("phase = %s", d.Phase())
	}
	got := out.String()
	for _, want := range []string{"I disagree.", "Cite a study.", "Kids need rest."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("input after /end was processed:\n%s", got)
	}
}

func TestDebateLoopEndsOnEOF(t *testing.T) {
	d := newStubDebate(t)
	var out bytes.Buffer
	summary, err := debateLoop(context.Background(), strings.NewReader(""), &out, d, 1)
	if err != nil {
		t.Fatalf("debateLoop: %v", err)
	}
	if summary.ConversationID != "conv-1" || !summary.IsHighScore {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
