package domain

import "time"

// EventType tags the variant carried by an Event.
type EventType string

const (
	EventMessage EventType = "message"
	EventScore   EventType = "score"
)

// Event is one entry of a conversation timeline: either a spoken message or a score change.
type Event struct {
	Type          EventType `json:"type"`
	SpeakerID     string    `json:"speakerId,omitempty"`
	Content       string    `json:"content,omitempty"`
	ParticipantID string    `json:"participantId,omitempty"`
	NewScore      *int      `json:"newScore,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewMessageEvent builds a message event.
func NewMessageEvent(speakerID, content string, at time.Time) Event {
	return Event{Type: EventMessage, SpeakerID: speakerID, Content: content, Timestamp: at}
}

// NewScoreEvent builds a score event.
func NewScoreEvent(participantID string, newScore int, at time.Time) Event {
	return Event{Type: EventScore, ParticipantID: participantID, NewScore: &newScore, Timestamp: at}
}

// Score returns the score carried by a score event, 0 otherwise.
func (e Event) Score() int {
	if e.NewScore == nil {
		return 0
	}
	return *e.NewScore
}

// Conversation is one debate session: its setup plus the ordered event timeline.
type Conversation struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	GameSetup GameSetup  `json:"gameSetup"`
	Events    []Event    `json:"events"`
}

// FinalScore returns the newScore of the last score event, or 0 if there is none.
func (c *Conversation) FinalScore() int {
	for i := len(c.Events) - 1; i >= 0; i-- {
		if c.Events[i].Type == EventScore {
			return c.Events[i].Score()
		}
	}
	return 0
}

// Clone returns a deep copy safe to hand out while the original keeps being appended to.
func (c *Conversation) Clone() *Conversation {
	out := *c
	if c.EndTime != nil {
		end := *c.EndTime
		out.EndTime = &end
	}
	out.GameSetup.Participants = append([]Participant(nil), c.GameSetup.Participants...)
	out.Events = make([]Event, len(c.Events))
	for i, e := range c.Events {
		if e.NewScore != nil {
			score := *e.NewScore
			e.NewScore = &score
		}
		out.Events[i] = e
	}
	return &out
}

// EndResult is returned when a conversation is finalized.
type EndResult struct {
	ConversationID string `json:"conversationId"`
	IsHighScore    bool   `json:"isHighScore"`
	FinalScore     int    `json:"finalScore"`
}
