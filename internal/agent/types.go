// Package agent turns debate state into LLM prompts and exposes them as the
// /api/debate proxy endpoints.
package agent

import "github.com/arguewith/arena/internal/domain"

// Turn is one past utterance given to the model as context.
type Turn struct {
	Role    domain.Role `json:"role"`
	Name    string      `json:"name,omitempty"`
	Content string      `json:"content"`
}

// Persona describes the AI opponent.
type Persona struct {
	Name  string `json:"name"`
	Style string `json:"style,omitempty"`
}

// TopicRequest asks for a fresh debate motion.
type TopicRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	SubjectID      string `json:"subjectId,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
}

// Topic is a generated motion.
type Topic struct {
	Topic string `json:"topic"`
}

// ResponseRequest asks the opponent for its next argument.
type ResponseRequest struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Topic          string          `json:"topic"`
	Position       domain.Position `json:"position"`
	Persona        Persona         `json:"persona"`
	Difficulty     string          `json:"difficulty,omitempty"`
	History        []Turn          `json:"history,omitempty"`
}

// Argument is the opponent's answer.
type Argument struct {
	Content string `json:"content"`
}

// EvaluateRequest asks the judge to rescore the audience after one argument.
// CurrentScore is the speaker's share before the argument.
type EvaluateRequest struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Topic          string          `json:"topic"`
	Position       domain.Position `json:"position"`
	Speaker        domain.Role     `json:"speaker"`
	Argument       string          `json:"argument"`
	CurrentScore   int             `json:"currentScore"`
	Difficulty     string          `json:"difficulty,omitempty"`
	History        []Turn          `json:"history,omitempty"`
}

// Evaluation is the judge's verdict: the speaker's new share of the audience.
type Evaluation struct {
	NewScore  int    `json:"newScore"`
	Reasoning string `json:"reasoning"`
}

// HintRequest asks for strategic advice for the human player.
type HintRequest struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Topic          string          `json:"topic"`
	Position       domain.Position `json:"position"`
	Difficulty     string          `json:"difficulty,omitempty"`
	History        []Turn          `json:"history,omitempty"`
}

// Hint is one piece of advice.
type Hint struct {
	Hint string `json:"hint"`
}

// FinalEvaluationRequest asks for the end-of-debate review.
type FinalEvaluationRequest struct {
	ConversationID string          `json:"conversationId,omitempty"`
	Topic          string          `json:"topic"`
	Position       domain.Position `json:"position"`
	Difficulty     string          `json:"difficulty,omitempty"`
	FinalScore     int             `json:"finalScore"`
	History        []Turn          `json:"history,omitempty"`
}

// FinalEvaluation is the end-of-debate review.
type FinalEvaluation struct {
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}
