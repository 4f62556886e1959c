package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/diag"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/identity"
	"github.com/arguewith/arena/internal/leaderboard"
	"github.com/arguewith/arena/internal/store"
	"github.com/arguewith/arena/internal/transcript"
)

func newLeaderboardRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.NewJSONFile(filepath.Join(dir, "leaderboard.json"))
	if err != nil {
		t.Fatalf("NewJSONFile: %v", err)
	}
	mgr := leaderboard.NewManager(repo, transcript.NewFileStore(filepath.Join(dir, "conversations")), 0, diag.Disabled(), nil)

	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	NewLeaderboardHandler(mgr, nil).RegisterRoutes(r)
	return r
}

func TestLeaderboardAddAndList(t *testing.T) {
	t.Parallel()

	h := newLeaderboardRouter(t)
	for _, body := range []string{
		`{"username":"ada","score":80,"subjectId":"S1","skill":"easy","position":"for"}`,
		`{"score":90,"subjectId":"S1","skill":"easy","position":"against"}`,
		`{"username":"bob","score":70,"subjectId":"S2"}`,
	} {
		rr := do(t, h, http.MethodPost, "/api/leaderboard", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("add %s: status %d, body %s", body, rr.Code, rr.Body.String())
		}
	}

	rr := do(t, h, http.MethodGet, "/api/leaderboard?subjectId=S1&skill=easy", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: status %d", rr.Code)
	}
	var got struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 2 || got.Entries[0].Score != 90 || got.Entries[1].Username != "ada" {
		t.Fatalf("unexpected entries %+v", got.Entries)
	}
	if !strings.HasPrefix(got.Entries[0].Username, "debater-") {
		t.Fatalf("anonymous username = %q", got.Entries[0].Username)
	}

	rr = do(t, h, http.MethodGet, "/api/leaderboard?subjectId=S2", "")
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Skill != domain.SkillMedium {
		t.Fatalf("skill should default to medium: %+v", got.Entries)
	}
}

func TestLeaderboardValidation(t *testing.T) {
	t.Parallel()

	h := newLeaderboardRouter(t)
	tests := []struct {
		name, method, path, body string
	}{
		{"missing score", http.MethodPost, "/api/leaderboard", `{"subjectId":"S1"}`},
		{"missing subject", http.MethodPost, "/api/leaderboard", `{"score":10}`},
		{"bad skill", http.MethodPost, "/api/leaderboard", `{"score":10,"subjectId":"S1","skill":"expert"}`},
		{"bad position", http.MethodPost, "/api/leaderboard", `{"score":10,"subjectId":"S1","position":"sideways"}`},
		{"score out of range", http.MethodPost, "/api/leaderboard", `{"score":101,"subjectId":"S1"}`},
		{"bad skill filter", http.MethodGet, "/api/leaderboard?skill=expert", ""},
	}
	for _, tt := range tests {
		if rr := do(t, h, tt.method, tt.path, tt.body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rr.Code)
		}
	}
}

func TestLeaderboardEmptyListIsArray(t *testing.T) {
	t.Parallel()

	rr := do(t, newLeaderboardRouter(t), http.MethodGet, "/api/leaderboard", "")
	if !strings.Contains(rr.Body.String(), `"entries":[]`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type activeCount int

func (a activeCount) Active() int { return int(a) }

func TestHealth(t *testing.T) {
	t.Parallel()

	ok := NewHealthHandler(pingFunc(func(context.Context) error { return nil }), activeCount(2), 0)
	rr := httptest.NewRecorder()
	ok.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"activeConversations":2`) {
		t.Fatalf("healthy: status %d, body %s", rr.Code, rr.Body.String())
	}

	down := NewHealthHandler(pingFunc(func(context.Context) error { return context.DeadlineExceeded }), nil, 0)
	rr = httptest.NewRecorder()
	down.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "degraded") {
		t.Fatalf("degraded: status %d, body %s", rr.Code, rr.Body.String())
	}
}
