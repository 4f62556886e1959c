package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/identity"
	"github.com/arguewith/arena/internal/leaderboard"
)

const maxUsernameLength = 40

// Leaderboard reads and extends the per-bucket high score lists.
type Leaderboard interface {
	List(ctx context.Context, f leaderboard.Filter) ([]domain.LeaderboardEntry, error)
	AddHighScore(ctx context.Context, username string, score int, subjectID string, skill domain.Skill, position domain.Position, conversationID string) (*domain.LeaderboardEntry, error)
}

// LeaderboardHandler handles leaderboard endpoints.
type LeaderboardHandler struct {
	board  Leaderboard
	logger *slog.Logger
}

// NewLeaderboardHandler creates a leaderboard handler.
func NewLeaderboardHandler(board Leaderboard, logger *slog.Logger) *LeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardHandler{board: board, logger: logger}
}

// RegisterRoutes registers leaderboard routes.
func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/leaderboard", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Add)
	})
}

type addHighScoreRequest struct {
	Username       string          `json:"username"`
	Score          *int            `json:"score"`
	SubjectID      string          `json:"subjectId"`
	Skill          string          `json:"skill"`
	Position       domain.Position `json:"position"`
	ConversationID string          `json:"conversationId"`
}

// List handles GET /api/leaderboard.
func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := leaderboard.Filter{SubjectID: r.URL.Query().Get("subjectId")}
	if s := r.URL.Query().Get("skill"); s != "" {
		skill, err := domain.ParseSkill(s)
		if err != nil {
			ErrorWithDetails(w, http.StatusBadRequest, "Invalid skill", err)
			return
		}
		filter.Skill = skill
	}

	entries, err := h.board.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to read leaderboard", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "Failed to read leaderboard", err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Add handles POST /api/leaderboard.
func (h *LeaderboardHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addHighScoreRequest
	if err := Decode(w, r, &req); err != nil || req.Score == nil || req.SubjectID == "" {
		ErrorWithDetails(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}
	skill, err := domain.ParseSkill(req.Skill)
	if err != nil {
		ErrorWithDetails(w, http.StatusBadRequest, "Invalid skill", err)
		return
	}
	if req.Position == "" {
		req.Position = domain.PositionFor
	}
	if !req.Position.Valid() {
		Error(w, http.StatusBadRequest, "Invalid position")
		return
	}
	if *req.Score < 0 || *req.Score > 100 {
		Error(w, http.StatusBadRequest, "Score must be between 0 and 100")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = identity.PlayerNameFromContext(r.Context())
	}
	if len(username) > maxUsernameLength {
		username = username[:maxUsernameLength]
	}

	entry, err := h.board.AddHighScore(r.Context(), username, *req.Score, req.SubjectID, skill, req.Position, req.ConversationID)
	if err != nil {
		h.logger.Error("Failed to add high score", "error", err)
		ErrorWithDetails(w, http.StatusInternalServerError, "Failed to add high score", err)
		return
	}
	JSON(w, http.StatusCreated, entry)
}
