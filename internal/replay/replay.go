// Package replay plays a stored conversation back with its original pacing.
package replay

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/game"
)

// Frame kinds.
const (
	FrameMessage = "message"
	FrameScore   = "score"
	FrameSummary = "summary"
)

// Frame is the state after one replayed event.
type Frame struct {
	Kind          string               `json:"kind"`
	Index         int                  `json:"index"`
	Total         int                  `json:"total"`
	Message       *game.Message        `json:"message,omitempty"`
	AudienceScore domain.AudienceScore `json:"audienceScore"`
	Summary       *game.Summary        `json:"summary,omitempty"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Player replays conversations.
type Player struct {
	Sleep SleepFunc
}

// NewPlayer returns a player that waits in real time.
func NewPlayer() *Player {
	return &Player{Sleep: sleepContext}
}

type eventKey struct {
	typ       domain.EventType
	timestamp int64
	content   string
	speaker   string
}

// Normalize orders events by timestamp and drops exact duplicates of
// (type, timestamp, content, speaker). Events with equal timestamps keep their order.
func Normalize(events []domain.Event) []domain.Event {
	sorted := append([]domain.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	seen := make(map[eventKey]struct{}, len(sorted))
	out := sorted[:0]
	for _, e := range sorted {
		k := eventKey{typ: e.Type, timestamp: e.Timestamp.UnixNano(), content: e.Content, speaker: speakerOf(e)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Play emits one frame per normalized event, waiting the original gap before
// each, then returns the summary. The final frame is not a summary frame; callers
// that stream frames send the returned summary themselves.
func (p *Player) Play(ctx context.Context, conv *domain.Conversation, emit func(Frame) error) (*game.Summary, error) {
	if conv == nil {
		return nil, errors.New("replay: nil conversation")
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	events := Normalize(conv.Events)
	participants := make(map[string]domain.Participant, len(conv.GameSetup.Participants))
	for _, pt := range conv.GameSetup.Participants {
		participants[pt.ID] = pt
	}
	opponentID := conv.GameSetup.Opponent().ID

	score := domain.EvenScore()
	var messages []game.Message
	var prev time.Time

	for i, e := range events {
		if i > 0 {
			if gap := e.Timestamp.Sub(prev); gap > 0 {
				if err := sleep(ctx, gap); err != nil {
					return nil, err
				}
			}
		}
		prev = e.Timestamp

		frame := Frame{Index: i, Total: len(events)}
		switch e.Type {
		case domain.EventMessage:
			pt := participants[e.SpeakerID]
			role := pt.Role
			if role == "" {
				role = domain.RoleHuman
				if e.SpeakerID == opponentID {
					role = domain.RoleAI
				}
			}
			msg := game.Message{
				ParticipantID: e.SpeakerID,
				Name:          pt.Name,
				Role:          role,
				Content:       e.Content,
				Timestamp:     e.Timestamp,
			}
			messages = append(messages, msg)
			frame.Kind = FrameMessage
			frame.Message = &msg
		case domain.EventScore:
			if e.ParticipantID == opponentID {
				score = score.WithOpponent(e.Score())
			} else {
				score = score.WithUser(e.Score())
			}
			frame.Kind = FrameScore
		default:
			continue
		}
		frame.AudienceScore = score

		if emit != nil {
			if err := emit(frame); err != nil {
				return nil, err
			}
		}
	}

	return &game.Summary{
		ConversationID: conv.ID,
		FinalScore:     score.User,
		AudienceScore:  score,
		Messages:       messages,
	}, nil
}

func speakerOf(e domain.Event) string {
	if e.Type == domain.EventScore {
		return e.ParticipantID
	}
	return e.SpeakerID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
