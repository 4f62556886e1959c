// Package mcptools exposes the leaderboard and stored debates as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/replay"
)

// Source provides read access to arena data.
type Source interface {
	Leaderboard(ctx context.Context, subjectID string, skill domain.Skill) ([]domain.LeaderboardEntry, error)
	Conversation(ctx context.Context, id string) (*domain.Conversation, error)
}

// Tools holds the MCP tool handlers.
type Tools struct {
	source Source
	player *replay.Player
}

// New creates the tool set over source.
func New(source Source) *Tools {
	return &Tools{
		source: source,
		player: &replay.Player{Sleep: func(context.Context, time.Duration) error { return nil }},
	}
}

// NewServer builds an MCP server with every arena tool registered.
func NewServer(source Source, version string) *server.MCPServer {
	t := New(source)
	s := server.NewMCPServer("arena", version)

	s.AddTool(mcp.NewTool("list_leaderboard",
		mcp.WithDescription("Lists debate high scores, grouped by subject and skill, best first."),
		mcp.WithString("subject_id", mcp.Description("Only entries for this subject")),
		mcp.WithString("skill", mcp.Description("Only entries for this skill: easy, medium or hard")),
	), t.ListLeaderboard)

	s.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Returns the full event timeline of an in-flight or stored debate as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id")),
	), t.GetConversation)

	s.AddTool(mcp.NewTool("summarize_conversation",
		mcp.WithDescription("Replays a stored debate and returns its transcript and final audience split."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Conversation id")),
	), t.SummarizeConversation)

	return s
}

// ServeStdio serves the tools over stdin/stdout until the client disconnects.
func ServeStdio(source Source, version string) error {
	return server.ServeStdio(NewServer(source, version))
}

// ListLeaderboard handles list_leaderboard.
func (t *Tools) ListLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	subjectID, _ := args["subject_id"].(string)
	rawSkill, _ := args["skill"].(string)

	var skill domain.Skill
	if strings.TrimSpace(rawSkill) != "" {
		parsed, err := domain.ParseSkill(rawSkill)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid skill: %v", err)), nil
		}
		skill = parsed
	}

	entries, err := t.source.Leaderboard(ctx, strings.TrimSpace(subjectID), skill)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read leaderboard: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No high scores yet."), nil
	}

	var sb strings.Builder
	var current domain.Bucket
	for i, e := range entries {
		if i == 0 || e.Bucket() != current {
			current = e.Bucket()
			fmt.Fprintf(&sb, "%s / %s\n", e.SubjectID, e.Skill)
		}
		fmt.Fprintf(&sb, "  %3d  %-20s %-7s %s\n", e.Score, e.Username, e.Position, e.ConversationID)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// GetConversation handles get_conversation.
func (t *Tools) GetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conv, errResult := t.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode conversation: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// SummarizeConversation handles summarize_conversation.
func (t *Tools) SummarizeConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conv, errResult := t.load(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	summary, err := t.player.Play(ctx, conv, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Replay failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n", conv.GameSetup.Topic)
	fmt.Fprintf(&sb, "Position: %s (%s)\n\n", conv.GameSetup.Position, conv.GameSetup.Skill)
	for _, m := range summary.Messages {
		name := m.Name
		if name == "" {
			name = string(m.Role)
		}
		fmt.Fprintf(&sb, "%s: %s\n", name, m.Content)
	}
	fmt.Fprintf(&sb, "\nFinal audience: user %d%%, opponent %d%%\n", summary.AudienceScore.User, summary.AudienceScore.Opponent)
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) load(ctx context.Context, request mcp.CallToolRequest) (*domain.Conversation, *mcp.CallToolResult) {
	args, _ := request.Params.Arguments.(map[string]any)
	id, _ := args["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, mcp.NewToolResultError("Conversation ID cannot be empty")
	}

	conv, err := t.source.Conversation(ctx, id)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to load conversation: %v", err))
	}
	if conv == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Conversation '%s' not found.", id))
	}
	return conv, nil
}
