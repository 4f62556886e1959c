package apilog

import (
	"context"
	"net/http"

	"github.com/arguewith/arena/internal/llm"
)

// Provider logs every completion passing through it.
type Provider struct {
	next     llm.Provider
	log      *Logger
	endpoint string
}

// NewProvider wraps next. endpoint is recorded on every entry.
func NewProvider(next llm.Provider, log *Logger, endpoint string) *Provider {
	return &Provider{next: next, log: log, endpoint: endpoint}
}

// Complete logs req, calls the wrapped provider and logs its answer or error.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	s := SessionFromContext(ctx)
	if s == nil {
		s = p.log.Default()
	}

	requestID := s.LogRequest(ctx, p.endpoint, http.MethodPost, req.Purpose, req)
	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		s.LogResponse(ctx, requestID, p.endpoint, http.MethodPost, map[string]string{"error": err.Error()})
		return nil, err
	}
	s.LogResponse(ctx, requestID, p.endpoint, http.MethodPost, resp)
	return resp, nil
}
