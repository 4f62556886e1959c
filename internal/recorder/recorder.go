// Package recorder tracks in-flight debates and persists the ones that finish
// with a high score.
package recorder

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arguewith/arena/internal/diag"
	"github.com/arguewith/arena/internal/domain"
)

// ErrNoActiveConversation is returned when an id does not name an in-flight conversation.
var ErrNoActiveConversation = errors.New("no active conversation")

const (
	idLength   = 9
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// HighScoreChecker decides whether a final score earns a leaderboard slot.
type HighScoreChecker interface {
	CheckAndUpdateHighScore(ctx context.Context, score int, subjectID string, skill domain.Skill, position domain.Position, conversationID string) (bool, error)
}

// TranscriptStore persists and loads finished conversations.
type TranscriptStore interface {
	Save(ctx context.Context, conv *domain.Conversation) (string, error)
	Load(ctx context.Context, id string) (*domain.Conversation, error)
}

type activeConversation struct {
	conv    *domain.Conversation
	touched time.Time
}

// Recorder holds every in-flight conversation keyed by id. Transcript I/O
// happens outside the lock.
type Recorder struct {
	checker     HighScoreChecker
	transcripts TranscriptStore
	diag        *diag.Logger
	logger      *slog.Logger

	now   func() time.Time
	newID func() (string, error)

	mu     sync.Mutex
	active map[string]*activeConversation
}

// New creates a Recorder.
func New(checker HighScoreChecker, transcripts TranscriptStore, dl *diag.Logger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		checker:     checker,
		transcripts: transcripts,
		diag:        dl,
		logger:      logger,
		now:         time.Now,
		newID:       NewID,
		active:      make(map[string]*activeConversation),
	}
}

// NewID returns a random 9-character base36 identifier.
func NewID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate conversation id: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf), nil
}

// Start opens a new conversation in memory and returns its id. Nothing is written to disk.
func (r *Recorder) Start(ctx context.Context, setup domain.GameSetup) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := setup.Validate(); err != nil {
		return "", err
	}
	setup.Participants = append([]domain.Participant(nil), setup.Participants...)

	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for {
		var err error
		if id, err = r.newID(); err != nil {
			return "", err
		}
		if _, taken := r.active[id]; !taken {
			break
		}
	}

	now := r.now()
	r.active[id] = &activeConversation{
		conv: &domain.Conversation{
			ID:        id,
			StartTime: now,
			GameSetup: setup,
			Events:    []domain.Event{},
		},
		touched: now,
	}
	r.diag.Printf("started conversation %s on %q (%s/%s)", id, setup.Topic, setup.SubjectID, setup.Skill)
	return id, nil
}

// RecordMessage appends a message event.
func (r *Recorder) RecordMessage(id, speakerID, content string) error {
	return r.appendEvent(id, func(at time.Time) domain.Event {
		return domain.NewMessageEvent(speakerID, content, at)
	})
}

// RecordScore appends a score event.
func (r *Recorder) RecordScore(id, participantID string, newScore int) error {
	return r.appendEvent(id, func(at time.Time) domain.Event {
		return domain.NewScoreEvent(participantID, newScore, at)
	})
}

func (r *Recorder) appendEvent(id string, build func(time.Time) domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ac, ok := r.active[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoActiveConversation, id)
	}
	now := r.now()
	ac.conv.Events = append(ac.conv.Events, build(now))
	ac.touched = now
	return nil
}

// End finalizes a conversation. The conversation leaves memory whatever the
// outcome; its transcript is written only when the final score qualifies.
func (r *Recorder) End(ctx context.Context, id string) (*domain.EndResult, error) {
	r.mu.Lock()
	ac, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveConversation, id)
	}

	conv := ac.conv
	end := r.now()
	conv.EndTime = &end
	final := conv.FinalScore()
	setup := conv.GameSetup

	qualifies, err := r.checker.CheckAndUpdateHighScore(ctx, final, setup.SubjectID, setup.Skill, setup.Position, id)
	if err != nil {
		r.diag.Printf("end conversation %s: high score check failed: %v", id, err)
		return nil, fmt.Errorf("check high score: %w", err)
	}

	if qualifies {
		path, err := r.transcripts.Save(ctx, conv)
		if err != nil {
			r.diag.Printf("end conversation %s: save transcript failed: %v", id, err)
			return nil, fmt.Errorf("save transcript: %w", err)
		}
		r.diag.Printf("saved conversation %s to %s", id, path)
	}

	r.logger.Info("Conversation ended",
		"conversation_id", id,
		"final_score", final,
		"events", len(conv.Events),
		"high_score", qualifies,
	)
	return &domain.EndResult{ConversationID: id, IsHighScore: qualifies, FinalScore: final}, nil
}

// Get returns the conversation with id, from memory if it is in flight or
// from its transcript otherwise. It returns nil, nil when neither exists.
func (r *Recorder) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	if ac, ok := r.active[id]; ok {
		conv := ac.conv.Clone()
		r.mu.Unlock()
		return conv, nil
	}
	r.mu.Unlock()

	conv, err := r.transcripts.Load(ctx, id)
	if err != nil {
		r.diag.Printf("load conversation %s failed: %v", id, err)
		return nil, err
	}
	return conv, nil
}

// Active returns the number of in-flight conversations.
func (r *Recorder) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
