package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/api"
	"github.com/arguewith/arena/internal/apilog"
	"github.com/arguewith/arena/internal/identity"
)

// Handler exposes the agent service as the /api/debate LLM proxy endpoints.
type Handler struct {
	service     *Service
	apiLog      *apilog.Logger
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewHandler creates an agent handler. A nil limiter disables throttling.
func NewHandler(service *Service, apiLog *apilog.Logger, limiter *RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if apiLog == nil {
		apiLog = apilog.Disabled()
	}
	return &Handler{service: service, apiLog: apiLog, rateLimiter: limiter, logger: logger}
}

// RegisterRoutes registers the LLM proxy routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	// Shares the /api/debate prefix with the recording routes, so no subrouter.
	r.Post("/api/debate/topic", h.HandleTopic)
	r.Post("/api/debate/response", h.HandleResponse)
	r.Post("/api/debate/evaluate", h.HandleEvaluate)
	r.Post("/api/debate/hint", h.HandleHint)
	r.Post("/api/debate/final-evaluation", h.HandleFinalEvaluation)
}

// HandleTopic handles POST /api/debate/topic.
func (h *Handler) HandleTopic(w http.ResponseWriter, r *http.Request) {
	var req TopicRequest
	if !h.begin(w, r, &req) {
		return
	}
	h.finish(w, "topic", func() (any, error) {
		return h.service.GenerateTopic(h.sessionContext(r.Context(), req.ConversationID), req)
	})
}

// HandleResponse handles POST /api/debate/response.
func (h *Handler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	var req ResponseRequest
	if !h.begin(w, r, &req) {
		return
	}
	h.finish(w, "response", func() (any, error) {
		return h.service.Respond(h.sessionContext(r.Context(), req.ConversationID), req)
	})
}

// HandleEvaluate handles POST /api/debate/evaluate.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !h.begin(w, r, &req) {
		return
	}
	h.finish(w, "evaluate", func() (any, error) {
		return h.service.Score(h.sessionContext(r.Context(), req.ConversationID), req)
	})
}

// HandleHint handles POST /api/debate/hint.
func (h *Handler) HandleHint(w http.ResponseWriter, r *http.Request) {
	var req HintRequest
	if !h.begin(w, r, &req) {
		return
	}
	h.finish(w, "hint", func() (any, error) {
		return h.service.Hint(h.sessionContext(r.Context(), req.ConversationID), req)
	})
}

// HandleFinalEvaluation handles POST /api/debate/final-evaluation.
func (h *Handler) HandleFinalEvaluation(w http.ResponseWriter, r *http.Request) {
	var req FinalEvaluationRequest
	if !h.begin(w, r, &req) {
		return
	}
	h.finish(w, "final_evaluation", func() (any, error) {
		return h.service.FinalEvaluation(h.sessionContext(r.Context(), req.ConversationID), req)
	})
}

// begin applies the per-player rate limit and decodes the body.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, v any) bool {
	if h.rateLimiter != nil {
		key := identity.PlayerIDFromContext(r.Context())
		if key == "" {
			key = identity.IPFromRequest(r)
		}
		if !h.rateLimiter.Allow(key) {
			api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return false
		}
	}
	if err := api.Decode(w, r, v); err != nil {
		api.ErrorWithDetails(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) finish(w http.ResponseWriter, op string, call func() (any, error)) {
	res, err := call()
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, res)
	case errors.Is(err, ErrInvalidRequest):
		api.ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
	case errors.Is(err, context.Canceled):
		h.logger.Info("agent request canceled", "op", op)
	default:
		h.logger.Error("agent request failed", "op", op, "error", err)
		api.ErrorWithDetails(w, http.StatusBadGateway, "Language model request failed", err)
	}
}

// sessionContext routes API log entries to the conversation's session when one exists.
func (h *Handler) sessionContext(ctx context.Context, conversationID string) context.Context {
	if !h.apiLog.Enabled() {
		return ctx
	}
	s := h.apiLog.Session(conversationID)
	if s == nil {
		s = h.apiLog.Default()
	}
	return apilog.WithSession(ctx, s)
}
