// Package game drives one debate through its turn cycle: arguments, judge
// scoring, opponent rebuttals and the final summary.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/domain"
)

// ErrWrongPhase is returned when an operation is not valid in the current phase.
var ErrWrongPhase = errors.New("operation not allowed in current phase")

// Phase is a step of the debate state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseAwaitingUser Phase = "awaiting-user-turn"
	PhaseScoringUser  Phase = "scoring-user-turn"
	PhaseAwaitingAI   Phase = "awaiting-ai-turn"
	PhaseScoringAI    Phase = "scoring-ai-turn"
	PhaseEnding       Phase = "ending"
	PhaseEnded        Phase = "ended"
)

// Backend persists the conversation record.
type Backend interface {
	StartConversation(ctx context.Context, setup domain.GameSetup) (string, error)
	RecordMessage(ctx context.Context, conversationID, participantID, message string) error
	RecordScore(ctx context.Context, conversationID, participantID string, score int) error
	EndConversation(ctx context.Context, conversationID string) (*domain.EndResult, error)
}

// Agent produces opponent arguments, judge scores, hints and the final review.
type Agent interface {
	Respond(ctx context.Context, req agent.ResponseRequest) (*agent.Argument, error)
	Score(ctx context.Context, req agent.EvaluateRequest) (*agent.Evaluation, error)
	Hint(ctx context.Context, req agent.HintRequest) (*agent.Hint, error)
	FinalEvaluation(ctx context.Context, req agent.FinalEvaluationRequest) (*agent.FinalEvaluation, error)
}

// Message is one visible utterance of the debate.
type Message struct {
	ParticipantID string      `json:"participantId"`
	Name          string      `json:"name"`
	Role          domain.Role `json:"role"`
	Content       string      `json:"content"`
	Timestamp     time.Time   `json:"timestamp"`
}

// Summary is the end-of-debate result. Replays produce the same shape.
type Summary struct {
	ConversationID string                 `json:"conversationId"`
	FinalScore     int                    `json:"finalScore"`
	AudienceScore  domain.AudienceScore   `json:"audienceScore"`
	Messages       []Message              `json:"messages"`
	IsHighScore    bool                   `json:"isHighScore"`
	Evaluation     *agent.FinalEvaluation `json:"evaluation,omitempty"`
}

// Debate is one debate in progress. Operations run one at a time; state
// accessors are safe to call from other goroutines.
type Debate struct {
	backend Backend
	agent   Agent
	setup   domain.GameSetup
	persona agent.Persona
	logger  *slog.Logger
	now     func() time.Time

	mu             sync.Mutex
	phase          Phase
	conversationID string
	score          domain.AudienceScore
	messages       []Message
	err            string
}

// New creates a debate for a validated setup.
func New(backend Backend, ag Agent, setup domain.GameSetup, persona agent.Persona, logger *slog.Logger) (*Debate, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if persona.Name == "" {
		persona.Name = setup.Opponent().Name
	}
	return &Debate{
		backend: backend,
		agent:   ag,
		setup:   setup,
		persona: persona,
		logger:  logger,
		now:     time.Now,
		phase:   PhaseIdle,
		score:   domain.EvenScore(),
	}, nil
}

// Phase returns the current phase.
func (d *Debate) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Score returns the current audience split.
func (d *Debate) Score() domain.AudienceScore {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.score
}

// ConversationID returns the server-side record id, empty before Initialize.
func (d *Debate) ConversationID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conversationID
}

// Messages returns a copy of the visible messages.
func (d *Debate) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Message(nil), d.messages...)
}

// Err returns the user-facing message of the last failed operation.
func (d *Debate) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Initialize starts the server-side record and plays the opponent's opening argument.
func (d *Debate) Initialize(ctx context.Context) error {
	if err := d.enter(PhaseIdle, PhaseInitializing); err != nil {
		return err
	}

	id, err := d.backend.StartConversation(ctx, d.setup)
	if err != nil {
		return d.fail(PhaseIdle, "Could not start the debate", err)
	}
	d.mu.Lock()
	d.conversationID = id
	d.score = domain.EvenScore()
	d.messages = nil
	d.mu.Unlock()

	if err := d.opponentTurn(ctx); err != nil {
		return d.fail(PhaseIdle, "The opponent could not open the debate", err)
	}
	d.setPhase(PhaseAwaitingUser)
	return nil
}

// SendArgument plays one full round: the user's argument and its score, then
// the opponent's rebuttal and its score.
func (d *Debate) SendArgument(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("argument is empty")
	}
	if err := d.enter(PhaseAwaitingUser, PhaseScoringUser); err != nil {
		return err
	}

	human := d.setup.Human()
	id := d.ConversationID()
	if err := d.backend.RecordMessage(ctx, id, human.ID, text); err != nil {
		return d.fail(PhaseAwaitingUser, "Could not record your argument", err)
	}
	d.appendMessage(human, text)

	current := d.Score()
	eval, err := d.agent.Score(ctx, agent.EvaluateRequest{
		ConversationID: id,
		Topic:          d.setup.Topic,
		Position:       d.setup.Position,
		Speaker:        domain.RoleHuman,
		Argument:       text,
		CurrentScore:   current.User,
		Difficulty:     string(d.setup.Skill),
		History:        d.history(),
	})
	if err != nil {
		return d.fail(PhaseAwaitingUser, "Could not score your argument", err)
	}
	if err := d.applyScore(ctx, current.WithUser(eval.NewScore)); err != nil {
		return d.fail(PhaseAwaitingUser, "Could not record the score", err)
	}

	d.setPhase(PhaseAwaitingAI)
	if err := d.opponentTurn(ctx); err != nil {
		return d.fail(PhaseAwaitingUser, "The opponent could not respond", err)
	}
	d.setPhase(PhaseAwaitingUser)
	return nil
}

// RequestHint asks for advice without touching the score. It reports false on failure.
func (d *Debate) RequestHint(ctx context.Context) (string, bool) {
	if d.Phase() != PhaseAwaitingUser {
		return "", false
	}
	hint, err := d.agent.Hint(ctx, agent.HintRequest{
		ConversationID: d.ConversationID(),
		Topic:          d.setup.Topic,
		Position:       d.setup.Position,
		Difficulty:     string(d.setup.Skill),
		History:        d.history(),
	})
	if err != nil {
		d.logger.Warn("hint request failed", "conversation_id", d.ConversationID(), "error", err)
		d.setErr("Could not get a hint")
		return "", false
	}
	return hint.Hint, true
}

// GenerateSummary ends the conversation on the server and asks for the final review.
func (d *Debate) GenerateSummary(ctx context.Context) (*Summary, error) {
	if err := d.enter(PhaseAwaitingUser, PhaseEnding); err != nil {
		return nil, err
	}

	id := d.ConversationID()
	result, err := d.backend.EndConversation(ctx, id)
	if err != nil {
		return nil, d.fail(PhaseAwaitingUser, "Could not end the debate", err)
	}

	score := d.Score()
	summary := &Summary{
		ConversationID: id,
		FinalScore:     score.User,
		AudienceScore:  score,
		Messages:       d.Messages(),
		IsHighScore:    result.IsHighScore,
	}

	eval, err := d.agent.FinalEvaluation(ctx, agent.FinalEvaluationRequest{
		ConversationID: id,
		Topic:          d.setup.Topic,
		Position:       d.setup.Position,
		Difficulty:     string(d.setup.Skill),
		FinalScore:     score.User,
		History:        d.history(),
	})
	if err != nil {
		// The server record is closed; the debate ends without a review.
		d.logger.Warn("final evaluation failed", "conversation_id", id, "error", err)
		d.setErr("Could not generate the final evaluation")
	} else {
		summary.Evaluation = eval
	}

	d.setPhase(PhaseEnded)
	return summary, nil
}

// opponentTurn asks for the opponent's next argument, records it and scores it.
func (d *Debate) opponentTurn(ctx context.Context) error {
	opponent := d.setup.Opponent()
	id := d.ConversationID()

	arg, err := d.agent.Respond(ctx, agent.ResponseRequest{
		ConversationID: id,
		Topic:          d.setup.Topic,
		Position:       d.setup.Position.Opposite(),
		Persona:        d.persona,
		Difficulty:     string(d.setup.Skill),
		History:        d.history(),
	})
	if err != nil {
		return err
	}
	if err := d.backend.RecordMessage(ctx, id, opponent.ID, arg.Content); err != nil {
		return err
	}
	d.appendMessage(opponent, arg.Content)

	d.setPhase(PhaseScoringAI)
	current := d.Score()
	eval, err := d.agent.Score(ctx, agent.EvaluateRequest{
		ConversationID: id,
		Topic:          d.setup.Topic,
		Position:       d.setup.Position.Opposite(),
		Speaker:        domain.RoleAI,
		Argument:       arg.Content,
		CurrentScore:   current.Opponent,
		Difficulty:     string(d.setup.Skill),
		History:        d.history(),
	})
	if err != nil {
		return err
	}
	return d.applyScore(ctx, current.WithOpponent(eval.NewScore))
}

// applyScore stores the new split and records the user's share, which is what
// the transcript's final score reads back.
func (d *Debate) applyScore(ctx context.Context, next domain.AudienceScore) error {
	d.mu.Lock()
	d.score = next
	d.mu.Unlock()
	return d.backend.RecordScore(ctx, d.ConversationID(), d.setup.Human().ID, next.User)
}

func (d *Debate) history() []agent.Turn {
	d.mu.Lock()
	defer d.mu.Unlock()
	turns := make([]agent.Turn, len(d.messages))
	for i, m := range d.messages {
		turns[i] = agent.Turn{Role: m.Role, Name: m.Name, Content: m.Content}
	}
	return turns
}

func (d *Debate) appendMessage(p domain.Participant, content string) {
	role := p.Role
	if role == "" {
		role = domain.RoleHuman
		if p.ID == d.setup.Opponent().ID {
			role = domain.RoleAI
		}
	}
	d.mu.Lock()
	d.messages = append(d.messages, Message{
		ParticipantID: p.ID,
		Name:          p.Name,
		Role:          role,
		Content:       content,
		Timestamp:     d.now(),
	})
	d.mu.Unlock()
}

// enter moves from the expected phase to the working phase and clears the last error.
func (d *Debate) enter(from, to Phase) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != from {
		return fmt.Errorf("%w: %s", ErrWrongPhase, d.phase)
	}
	d.phase = to
	d.err = ""
	return nil
}

func (d *Debate) setPhase(p Phase) {
	d.mu.Lock()
	d.phase = p
	d.mu.Unlock()
}

func (d *Debate) setErr(msg string) {
	d.mu.Lock()
	d.err = msg
	d.mu.Unlock()
}

// fail records a user-facing message, rolls back to a stable phase and returns err.
func (d *Debate) fail(stable Phase, msg string, err error) error {
	d.logger.Error(msg, "conversation_id", d.ConversationID(), "error", err)
	d.mu.Lock()
	d.phase = stable
	d.err = msg
	d.mu.Unlock()
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}
