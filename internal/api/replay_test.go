package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/replay"
)

type staticSource map[string]*domain.Conversation

func (s staticSource) Get(_ context.Context, id string) (*domain.Conversation, error) {
	return s[id], nil
}

func replayServer(t *testing.T) *httptest.Server {
	t.Helper()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := &domain.Conversation{
		ID: "abc",
		GameSetup: domain.GameSetup{
			Topic: "X",
			Participants: []domain.Participant{
				{ID: "user", Role: domain.RoleHuman},
				{ID: "ai", Role: domain.RoleAI},
			},
		},
		Events: []domain.Event{
			domain.NewMessageEvent("user", "Test", t0),
			domain.NewScoreEvent("user", 95, t0.Add(time.Hour)),
		},
	}
	noSleep := &replay.Player{Sleep: func(context.Context, time.Duration) error { return nil }}

	r := chi.NewRouter()
	NewReplayHandler(staticSource{"abc": conv}, noSleep, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestReplayStreamsFramesThenSummary(t *testing.T) {
	t.Parallel()

	srv := replayServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/replay/abc", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = ws.CloseNow() }()

	var kinds []string
	var last replay.Frame
	for {
		var f replay.Frame
		if err := wsjson.Read(ctx, ws, &f); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			t.Fatalf("Read: %v", err)
		}
		kinds = append(kinds, f.Kind)
		last = f
	}

	want := []string{replay.FrameMessage, replay.FrameScore, replay.FrameSummary}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("frames = %v, want %v", kinds, want)
	}
	if last.Summary == nil || last.Summary.FinalScore != 95 || len(last.Summary.Messages) != 1 {
		t.Fatalf("unexpected summary %+v", last.Summary)
	}
	if last.AudienceScore != (domain.AudienceScore{User: 95, Opponent: 5}) {
		t.Fatalf("audience score = %+v", last.AudienceScore)
	}
}

func TestReplayUnknownConversation(t *testing.T) {
	t.Parallel()

	srv := replayServer(t)
	resp, err := http.Get(srv.URL + "/ws/replay/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
