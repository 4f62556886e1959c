// Package client is a typed HTTP client for the arena server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/identity"
)

const defaultTimeout = 2 * time.Minute

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("arena: %d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("arena: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to one arena server. It keeps the anonymous player cookie
// across calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sessionID  string
}

// New creates a client for baseURL. sessionID may be empty.
func New(baseURL, sessionID string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionID:  sessionID,
	}
}

// StartConversation opens a server-side conversation record.
func (c *Client) StartConversation(ctx context.Context, setup domain.GameSetup) (string, error) {
	var out struct {
		ConversationID string `json:"conversationId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/debate/start-conversation", setup, &out); err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

// RecordMessage appends a message to the conversation.
func (c *Client) RecordMessage(ctx context.Context, conversationID, participantID, message string) error {
	return c.do(ctx, http.MethodPost, "/api/debate/record-message", map[string]string{
		"conversationId": conversationID,
		"participantId":  participantID,
		"message":        message,
	}, nil)
}

// RecordScore appends a score change to the conversation.
func (c *Client) RecordScore(ctx context.Context, conversationID, participantID string, score int) error {
	return c.do(ctx, http.MethodPost, "/api/debate/record-score", map[string]any{
		"conversationId": conversationID,
		"participantId":  participantID,
		"score":          score,
	}, nil)
}

// EndConversation finalizes the conversation.
func (c *Client) EndConversation(ctx context.Context, conversationID string) (*domain.EndResult, error) {
	var out domain.EndResult
	if err := c.do(ctx, http.MethodPost, "/api/debate/end-conversation", map[string]string{
		"conversationId": conversationID,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversation fetches an in-flight or stored conversation.
func (c *Client) Conversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var out domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/debate/conversation/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTopic asks the server for a debate motion.
func (c *Client) GenerateTopic(ctx context.Context, req agent.TopicRequest) (*agent.Topic, error) {
	var out agent.Topic
	if err := c.do(ctx, http.MethodPost, "/api/debate/topic", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Respond asks for the opponent's next argument.
func (c *Client) Respond(ctx context.Context, req agent.ResponseRequest) (*agent.Argument, error) {
	var out agent.Argument
	if err := c.do(ctx, http.MethodPost, "/api/debate/response", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Score asks the judge for the speaker's new share.
func (c *Client) Score(ctx context.Context, req agent.EvaluateRequest) (*agent.Evaluation, error) {
	var out agent.Evaluation
	if err := c.do(ctx, http.MethodPost, "/api/debate/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Hint asks for advice.
func (c *Client) Hint(ctx context.Context, req agent.HintRequest) (*agent.Hint, error) {
	var out agent.Hint
	if err := c.do(ctx, http.MethodPost, "/api/debate/hint", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinalEvaluation asks for the end-of-debate review.
func (c *Client) FinalEvaluation(ctx context.Context, req agent.FinalEvaluationRequest) (*agent.FinalEvaluation, error) {
	var out agent.FinalEvaluation
	if err := c.do(ctx, http.MethodPost, "/api/debate/final-evaluation", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard lists entries. Empty arguments match everything.
func (c *Client) Leaderboard(ctx context.Context, subjectID string, skill domain.Skill) ([]domain.LeaderboardEntry, error) {
	q := url.Values{}
	if subjectID != "" {
		q.Set("subjectId", subjectID)
	}
	if skill != "" {
		q.Set("skill", string(skill))
	}
	path := "/api/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// HighScore is the body of a leaderboard submission.
type HighScore struct {
	Username       string          `json:"username,omitempty"`
	Score          int             `json:"score"`
	SubjectID      string          `json:"subjectId"`
	Skill          domain.Skill    `json:"skill,omitempty"`
	Position       domain.Position `json:"position,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
}

// AddHighScore submits a leaderboard entry.
func (c *Client) AddHighScore(ctx context.Context, hs HighScore) (*domain.LeaderboardEntry, error) {
	var out domain.LeaderboardEntry
	if err := c.do(ctx, http.MethodPost, "/api/leaderboard", hs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplayURL returns the websocket URL that streams conversation id.
func (c *Client) ReplayURL(id string) string {
	u := c.baseURL + "/ws/replay/" + url.PathEscape(id)
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("arena: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set(identity.SessionHeaderName, c.sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("arena: decode %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
