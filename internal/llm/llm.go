// Package llm defines the completion provider abstraction and its
// OpenAI-compatible and Gemini implementations.
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Purpose tags why a completion was requested.
type Purpose string

const (
	PurposeDebateMessage Purpose = "debate_message"
	PurposeScoring       Purpose = "scoring"
	PurposeHint          Purpose = "hint"
	PurposeFinalScoring  Purpose = "final_scoring"
	PurposeTopic         Purpose = "topic"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Purpose     Purpose   `json:"purpose"`
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
}

// Usage is the token accounting returned with a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the model's answer.
type Completion struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   Usage  `json:"usage"`
}

// Provider produces completions.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (*Completion, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}

// StatusError is a non-success HTTP answer from the upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
