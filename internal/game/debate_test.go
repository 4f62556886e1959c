package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/domain"
)

type recordedScore struct {
	participantID string
	score         int
}

type fakeBackend struct {
	mu        sync.Mutex
	startErr  error
	recordErr error
	messages  []string
	scores    []recordedScore
	ended     bool
	highScore bool
}

func (f *fakeBackend) StartConversation(context.Context, domain.GameSetup) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return "conv1", nil
}

func (f *fakeBackend) RecordMessage(_ context.Context, _, participantID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.messages = append(f.messages, participantID+":"+message)
	return nil
}

func (f *fakeBackend) RecordScore(_ context.Context, _, participantID string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, recordedScore{participantID, score})
	return nil
}

func (f *fakeBackend) EndConversation(_ context.Context, id string) (*domain.EndResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	return &domain.EndResult{ConversationID: id, IsHighScore: f.highScore}, nil
}

// fakeAgent scores each speaker with the next value of its queue.
type fakeAgent struct {
	userScores []int
	aiScores   []int
	respondErr error
	scoreErr   error
	hintErr    error
	finalErr   error
	requests   []agent.EvaluateRequest
}

func (f *fakeAgent) Respond(_ context.Context, req agent.ResponseRequest) (*agent.Argument, error) {
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	return &agent.Argument{Content: "rebuttal " + string(req.Position)}, nil
}

func (f *fakeAgent) Score(_ context.Context, req agent.EvaluateRequest) (*agent.Evaluation, error) {
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	f.requests = append(f.requests, req)
	queue := &f.userScores
	if req.Speaker == domain.RoleAI {
		queue = &f.aiScores
	}
	next := 50
	if len(*queue) > 0 {
		next = (*queue)[0]
		*queue = (*queue)[1:]
	}
	return &agent.Evaluation{NewScore: next}, nil
}

func (f *fakeAgent) Hint(context.Context, agent.HintRequest) (*agent.Hint, error) {
	if f.hintErr != nil {
		return nil, f.hintErr
	}
	return &agent.Hint{Hint: "cite a study"}, nil
}

func (f *fakeAgent) FinalEvaluation(_ context.Context, req agent.FinalEvaluationRequest) (*agent.FinalEvaluation, error) {
	if f.finalErr != nil {
		return nil, f.finalErr
	}
	return &agent.FinalEvaluation{Score: req.FinalScore, Feedback: "good"}, nil
}

func testSetup() domain.GameSetup {
	return domain.GameSetup{
		Topic:      "X",
		Difficulty: 5,
		Participants: []domain.Participant{
			{ID: "user", Name: "You", Role: domain.RoleHuman},
			{ID: "ai", Name: "Socrates", Role: domain.RoleAI},
		},
		SubjectID: "S1",
		Position:  domain.PositionFor,
		Skill:     domain.SkillEasy,
	}
}

func newTestDebate(t *testing.T, b Backend, a Agent) *Debate {
	t.Helper()
	d, err := New(b, a, testSetup(), agent.Persona{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func assertComplementary(t *testing.T, s domain.AudienceScore) {
	t.Helper()
	if s.User+s.Opponent != 100 {
		t.Fatalf("score %+v does not sum to 100", s)
	}
}

func TestFullDebateFlow(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{highScore: true}
	a := &fakeAgent{aiScores: []int{55, 45}, userScores: []int{70}}
	d := newTestDebate(t, b, a)

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d.Phase() != PhaseAwaitingUser {
		t.Fatalf("phase = %s", d.Phase())
	}
	if got := d.Score(); got.Opponent != 55 || got.User != 45 {
		t.Fatalf("score after opening = %+v", got)
	}

	if err := d.SendArgument(context.Background(), "Cats are independent."); err != nil {
		t.Fatalf("SendArgument: %v", err)
	}
	got := d.Score()
	assertComplementary(t, got)
	if got.User != 55 || got.Opponent != 45 {
		t.Fatalf("score after round = %+v", got)
	}

	wantMsgs := []string{"ai:rebuttal against", "user:Cats are independent.", "ai:rebuttal against"}
	if len(b.messages) != len(wantMsgs) {
		t.Fatalf("messages = %v", b.messages)
	}
	for i := range wantMsgs {
		if b.messages[i] != wantMsgs[i] {
			t.Fatalf("message %d = %q, want %q", i, b.messages[i], wantMsgs[i])
		}
	}
	// Every recorded score is the user's share.
	wantScores := []recordedScore{{"user", 45}, {"user", 70}, {"user", 55}}
	for i, s := range wantScores {
		if b.scores[i] != s {
			t.Fatalf("score %d = %+v, want %+v", i, b.scores[i], s)
		}
	}
	if a.requests[1].CurrentScore != 45 || a.requests[2].CurrentScore != 30 {
		t.Fatalf("judge saw wrong current scores: %+v", a.requests)
	}

	summary, err := d.GenerateSummary(context.Background())
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if !b.ended || !summary.IsHighScore || summary.FinalScore != 55 || len(summary.Messages) != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Evaluation == nil || summary.Evaluation.Score != 55 {
		t.Fatalf("evaluation = %+v", summary.Evaluation)
	}
	if d.Phase() != PhaseEnded {
		t.Fatalf("phase = %s", d.Phase())
	}
}

func TestScoresAreClampedAndComplementary(t *testing.T) {
	t.Parallel()

	d := newTestDebate(t, &fakeBackend{}, &fakeAgent{aiScores: []int{150, -20}, userScores: []int{130}})
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := d.Score(); got.Opponent != 100 || got.User != 0 {
		t.Fatalf("score = %+v", got)
	}
	if err := d.SendArgument(context.Background(), "point"); err != nil {
		t.Fatalf("SendArgument: %v", err)
	}
	got := d.Score()
	assertComplementary(t, got)
	if got.Opponent != 0 {
		t.Fatalf("score = %+v", got)
	}
}

func TestWrongPhase(t *testing.T) {
	t.Parallel()

	d := newTestDebate(t, &fakeBackend{}, &fakeAgent{})
	if err := d.SendArgument(context.Background(), "early"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("SendArgument before Initialize: %v", err)
	}
	if _, err := d.GenerateSummary(context.Background()); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("GenerateSummary before Initialize: %v", err)
	}
	if _, ok := d.RequestHint(context.Background()); ok {
		t.Fatal("hint before Initialize should fail")
	}
}

func TestFailureSetsErrorAndRestoresPhase(t *testing.T) {
	t.Parallel()

	a := &fakeAgent{}
	d := newTestDebate(t, &fakeBackend{}, a)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	before := d.Score()

	a.scoreErr = errors.New("judge down")
	if err := d.SendArgument(context.Background(), "point"); err == nil {
		t.Fatal("expected error")
	}
	if d.Phase() != PhaseAwaitingUser {
		t.Fatalf("phase = %s, want %s", d.Phase(), PhaseAwaitingUser)
	}
	if d.Err() == "" {
		t.Fatal("expected user-facing error")
	}
	if d.Score() != before {
		t.Fatalf("score changed on failure: %+v -> %+v", before, d.Score())
	}

	a.scoreErr = nil
	if err := d.SendArgument(context.Background(), "again"); err != nil {
		t.Fatalf("retry by caller: %v", err)
	}
	if d.Err() != "" {
		t.Fatalf("error not cleared: %q", d.Err())
	}
}

func TestInitializeFailure(t *testing.T) {
	t.Parallel()

	d := newTestDebate(t, &fakeBackend{startErr: errors.New("offline")}, &fakeAgent{})
	if err := d.Initialize(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if d.Phase() != PhaseIdle || d.Err() == "" {
		t.Fatalf("phase/err = %s/%q", d.Phase(), d.Err())
	}
}

func TestHintDoesNotTouchScore(t *testing.T) {
	t.Parallel()

	a := &fakeAgent{aiScores: []int{60}}
	d := newTestDebate(t, &fakeBackend{}, a)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	before := d.Score()

	hint, ok := d.RequestHint(context.Background())
	if !ok || hint == "" {
		t.Fatalf("hint = %q, ok = %v", hint, ok)
	}
	a.hintErr = errors.New("down")
	if hint, ok := d.RequestHint(context.Background()); ok || hint != "" {
		t.Fatalf("failed hint = %q, ok = %v", hint, ok)
	}
	if d.Score() != before || d.Phase() != PhaseAwaitingUser {
		t.Fatal("hint changed debate state")
	}
}

func TestSummaryWithoutEvaluation(t *testing.T) {
	t.Parallel()

	d := newTestDebate(t, &fakeBackend{}, &fakeAgent{finalErr: errors.New("down")})
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	summary, err := d.GenerateSummary(context.Background())
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if summary.Evaluation != nil || d.Err() == "" || d.Phase() != PhaseEnded {
		t.Fatalf("summary = %+v, err = %q, phase = %s", summary, d.Err(), d.Phase())
	}
}
