package apilog

import (
	"context"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/arguewith/arena/internal/llm"
)

// Session is one debate's API log file.
type Session struct {
	id    string
	path  string
	owner *Logger

	mu       sync.Mutex
	purposes map[string]llm.Purpose
}

// ID returns the 8-character session id.
func (s *Session) ID() string {
	return s.id
}

// Path returns the session's log file.
func (s *Session) Path() string {
	return s.path
}

// LogRequest records an outbound request and returns the id that links its
// response. An empty purpose is classified from the request's system text.
func (s *Session) LogRequest(ctx context.Context, endpoint, method string, purpose llm.Purpose, data any) string {
	requestID := uuid.NewString()
	if purpose == "" {
		purpose = ClassifyPurpose(systemText(data))
	}

	s.mu.Lock()
	s.purposes[requestID] = purpose
	s.mu.Unlock()

	s.owner.enqueue(s.path, Entry{
		Kind:          KindRequest,
		RequestID:     requestID,
		SessionID:     s.id,
		HTTPRequestID: middleware.GetReqID(ctx),
		Timestamp:     s.owner.now().UTC(),
		Endpoint:      endpoint,
		Method:        method,
		FunctionType:  purpose,
		Data:          data,
	})
	return requestID
}

// LogResponse records the answer to a request logged with LogRequest.
// Completions are reduced to their content and token usage.
func (s *Session) LogResponse(ctx context.Context, requestID, endpoint, method string, data any) {
	s.mu.Lock()
	purpose, ok := s.purposes[requestID]
	delete(s.purposes, requestID)
	s.mu.Unlock()
	if !ok {
		purpose = llm.PurposeDebateMessage
	}

	s.owner.enqueue(s.path, Entry{
		Kind:          KindResponse,
		RequestID:     requestID,
		SessionID:     s.id,
		HTTPRequestID: middleware.GetReqID(ctx),
		Timestamp:     s.owner.now().UTC(),
		Endpoint:      endpoint,
		Method:        method,
		FunctionType:  purpose,
		Data:          normalizeResponse(data),
	})
}

type normalizedResponse struct {
	Content string    `json:"content"`
	Usage   llm.Usage `json:"usage"`
}

func normalizeResponse(data any) any {
	switch v := data.(type) {
	case *llm.Completion:
		if v == nil {
			return nil
		}
		return normalizedResponse{Content: v.Content, Usage: v.Usage}
	case llm.Completion:
		return normalizedResponse{Content: v.Content, Usage: v.Usage}
	default:
		return data
	}
}

// ClassifyPurpose infers a request's purpose from its system message. It is
// the fallback for callers that do not tag requests explicitly.
func ClassifyPurpose(system string) llm.Purpose {
	s := strings.ToLower(system)
	switch {
	case strings.Contains(s, "final") && (strings.Contains(s, "evaluat") || strings.Contains(s, "score")):
		return llm.PurposeFinalScoring
	case strings.Contains(s, "hint"):
		return llm.PurposeHint
	case strings.Contains(s, "score") || strings.Contains(s, "judge") || strings.Contains(s, "evaluat"):
		return llm.PurposeScoring
	default:
		return llm.PurposeDebateMessage
	}
}

func systemText(data any) string {
	var req llm.Request
	switch v := data.(type) {
	case llm.Request:
		req = v
	case *llm.Request:
		if v == nil {
			return ""
		}
		req = *v
	default:
		return ""
	}
	if req.System != "" {
		return req.System
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			return m.Content
		}
	}
	return ""
}

type sessionKey struct{}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session carried by ctx, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}
