package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/replay"
	"github.com/arguewith/arena/internal/transcript"
)

// ConversationSource loads a stored or in-flight conversation.
type ConversationSource interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
}

// ReplayHandler streams a stored debate as timed frames over a websocket.
type ReplayHandler struct {
	source         ConversationSource
	player         *replay.Player
	originPatterns []string
	logger         *slog.Logger
}

// NewReplayHandler creates a replay handler. originPatterns follows
// websocket.AcceptOptions; nil accepts same-origin requests only.
func NewReplayHandler(source ConversationSource, player *replay.Player, originPatterns []string, logger *slog.Logger) *ReplayHandler {
	if player == nil {
		player = replay.NewPlayer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplayHandler{source: source, player: player, originPatterns: originPatterns, logger: logger}
}

// RegisterRoutes registers the replay route.
func (h *ReplayHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/replay/{id}", h.Replay)
}

// Replay handles GET /ws/replay/{id}. Lookup failures are answered with a
// plain HTTP error before the upgrade.
func (h *ReplayHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := h.source.Get(r.Context(), id)
	switch {
	case errors.Is(err, transcript.ErrCorrupt):
		ErrorWithDetails(w, http.StatusInternalServerError, "Corrupt conversation record", err)
		return
	case err != nil:
		ErrorWithDetails(w, http.StatusInternalServerError, "Failed to load conversation", err)
		return
	case conv == nil:
		Error(w, http.StatusNotFound, "Conversation not found")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "conversation_id", id)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "replay finished"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "conversation_id", id)
		}
	}()

	// The client never sends; CloseRead cancels ctx when it goes away.
	ctx := ws.CloseRead(r.Context())

	summary, err := h.player.Play(ctx, conv, func(f replay.Frame) error {
		return wsjson.Write(ctx, ws, f)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
			h.logger.Warn("Replay aborted", "conversation_id", id, "error", err)
		}
		return
	}

	if err := wsjson.Write(ctx, ws, replay.Frame{
		Kind:          replay.FrameSummary,
		Index:         len(summary.Messages),
		Total:         len(conv.Events),
		AudienceScore: summary.AudienceScore,
		Summary:       summary,
	}); err != nil {
		h.logger.Debug("Failed to send replay summary", "conversation_id", id, "error", err)
	}
}
