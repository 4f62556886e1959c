package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/apilog"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/recorder"
	"github.com/arguewith/arena/internal/transcript"
)

// ConversationRecorder records debates and finalizes them.
type ConversationRecorder interface {
	Start(ctx context.Context, setup domain.GameSetup) (string, error)
	RecordMessage(id, speakerID, content string) error
	RecordScore(id, participantID string, newScore int) error
	End(ctx context.Context, id string) (*domain.EndResult, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
}

// DebateHandler handles the conversation recording endpoints.
type DebateHandler struct {
	recorder ConversationRecorder
	apiLog   *apilog.Logger
	logger   *slog.Logger
}

// NewDebateHandler creates a debate handler.
func NewDebateHandler(rec ConversationRecorder, apiLog *apilog.Logger, logger *slog.Logger) *DebateHandler {
	if apiLog == nil {
		apiLog = apilog.Disabled()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DebateHandler{recorder: rec, apiLog: apiLog, logger: logger}
}

// RegisterRoutes registers the conversation routes.
func (h *DebateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/debate/start-conversation", h.StartConversation)
	r.Post("/api/debate/record-message", h.RecordMessage)
	r.Post("/api/debate/record-score", h.RecordScore)
	r.Post("/api/debate/end-conversation", h.EndConversation)
	r.Get("/api/debate/conversation/{id}", h.GetConversation)
}

type recordMessageRequest struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
	Message        string `json:"message"`
}

type recordScoreRequest struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
	Score          *int   `json:"score"`
}

type endConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

var success = map[string]bool{"success": true}

// StartConversation handles POST /api/debate/start-conversation.
func (h *DebateHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var setup domain.GameSetup
	if err := Decode(w, r, &setup); err != nil {
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	id, err := h.recorder.Start(r.Context(), setup)
	switch {
	case errors.Is(err, domain.ErrInvalidSetup):
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	case err != nil:
		h.logger.Error("Failed to start conversation", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "Failed to start conversation", err)
		return
	}

	h.apiLog.StartSession(id)
	JSON(w, http.StatusOK, map[string]string{"conversationId": id})
}

// RecordMessage handles POST /api/debate/record-message.
func (h *DebateHandler) RecordMessage(w http.ResponseWriter, r *http.Request) {
	var req recordMessageRequest
	if err := Decode(w, r, &req); err != nil ||
		req.ConversationID == "" || req.ParticipantID == "" || strings.TrimSpace(req.Message) == "" {
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}
	if err := h.recorder.RecordMessage(req.ConversationID, req.ParticipantID, req.Message); err != nil {
		h.recordError(w, "Failed to record message", err)
		return
	}
	JSON(w, http.StatusOK, success)
}

// RecordScore handles POST /api/debate/record-score.
func (h *DebateHandler) RecordScore(w http.ResponseWriter, r *http.Request) {
	var req recordScoreRequest
	if err := Decode(w, r, &req); err != nil ||
		req.ConversationID == "" || req.ParticipantID == "" || req.Score == nil {
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}
	if err := h.recorder.RecordScore(req.ConversationID, req.ParticipantID, *req.Score); err != nil {
		h.recordError(w, "Failed to record score", err)
		return
	}
	JSON(w, http.StatusOK, success)
}

// EndConversation handles POST /api/debate/end-conversation.
func (h *DebateHandler) EndConversation(w http.ResponseWriter, r *http.Request) {
	var req endConversationRequest
	if err := Decode(w, r, &req); err != nil || req.ConversationID == "" {
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	result, err := h.recorder.End(r.Context(), req.ConversationID)
	if err != nil {
		h.recordError(w, "Failed to end conversation", err)
		return
	}
	h.apiLog.EndSession(req.ConversationID)
	JSON(w, http.StatusOK, map[string]any{
		"conversationId": result.ConversationID,
		"isHighScore":    result.IsHighScore,
	})
}

// GetConversation handles GET /api/debate/conversation/{id}.
func (h *DebateHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.recorder.Get(r.Context(), id)
	switch {
	case errors.Is(err, transcript.ErrCorrupt):
		h.logger.Error("Corrupt conversation record", "conversation_id", id, "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "Corrupt conversation record", err)
	case err != nil:
		h.logger.Error("Failed to load conversation", "conversation_id", id, "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "Failed to load conversation", err)
	case conv == nil:
		Error(w, http.StatusNotFound, "Conversation not found")
	default:
		JSON(w, http.StatusOK, conv)
	}
}

func (h *DebateHandler) recordError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, recorder.ErrNoActiveConversation) {
		Error(w, http.StatusNotFound, "No active conversation")
		return
	}
	h.logger.Error(msg, "error", err)
	ErrorWithDetails(w, http.StatusInternalServerError, msg, err)
}
