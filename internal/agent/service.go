package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/llm"
)

var (
	// ErrInvalidRequest is returned when a request is missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMalformedVerdict is returned when the judge never answers with usable JSON.
	ErrMalformedVerdict = errors.New("judge returned malformed verdict")
)

const (
	debateTemperature = 0.8
	judgeTemperature  = 0.2
	hintTemperature   = 0.7
	topicTemperature  = 0.9
)

// Service builds prompts for each debate step and sends them to a provider.
type Service struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
}

// NewService creates an agent service. An empty model leaves the provider default.
func NewService(provider llm.Provider, model string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, model: model, logger: logger}
}

// GenerateTopic asks for a new debate motion.
func (s *Service) GenerateTopic(ctx context.Context, req TopicRequest) (*Topic, error) {
	skill, err := parseSkill(req.Difficulty)
	if err != nil {
		return nil, err
	}
	c, err := s.complete(ctx, llm.Request{
		Purpose:     llm.PurposeTopic,
		System:      topicPrompt(req.SubjectID, skill),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Give me a motion."}},
		Temperature: topicTemperature,
		MaxTokens:   100,
	})
	if err != nil {
		return nil, err
	}
	topic := strings.Trim(strings.TrimSpace(c.Content), `"'`)
	if topic == "" {
		return nil, fmt.Errorf("generate topic: empty answer")
	}
	return &Topic{Topic: topic}, nil
}

// Respond asks the opponent persona for its next argument.
func (s *Service) Respond(ctx context.Context, req ResponseRequest) (*Argument, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if req.Position == "" {
		req.Position = domain.PositionAgainst
	}
	if !req.Position.Valid() {
		return nil, fmt.Errorf("%w: unknown position %q", ErrInvalidRequest, req.Position)
	}
	skill, err := parseSkill(req.Difficulty)
	if err != nil {
		return nil, err
	}

	msgs := chatHistory(req.History)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != llm.RoleUser {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: "Make your opening argument."})
	}
	c, err := s.complete(ctx, llm.Request{
		Purpose:     llm.PurposeDebateMessage,
		System:      debaterPrompt(req, skill),
		Messages:    msgs,
		Temperature: debateTemperature,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return nil, fmt.Errorf("respond: empty answer")
	}
	return &Argument{Content: content}, nil
}

// Score asks the judge for the speaker's new audience share. The result is clamped to [0, 100].
func (s *Service) Score(ctx context.Context, req EvaluateRequest) (*Evaluation, error) {
	if strings.TrimSpace(req.Argument) == "" {
		return nil, fmt.Errorf("%w: argument is required", ErrInvalidRequest)
	}
	if req.Speaker == "" {
		req.Speaker = domain.RoleHuman
	}
	skill, err := parseSkill(req.Difficulty)
	if err != nil {
		return nil, err
	}

	var verdict struct {
		Score     *int   `json:"score"`
		Reasoning string `json:"reasoning"`
	}
	user := fmt.Sprintf("Debate so far:\n%s\nLatest argument from the speaker:\n%s", transcript(req.History), req.Argument)
	err = s.judge(ctx, llm.Request{
		Purpose:     llm.PurposeScoring,
		System:      judgePrompt(req, skill),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		Temperature: judgeTemperature,
		MaxTokens:   200,
	}, &verdict, func() bool { return verdict.Score != nil })
	if err != nil {
		return nil, err
	}
	return &Evaluation{NewScore: domain.ClampScore(*verdict.Score), Reasoning: verdict.Reasoning}, nil
}

// Hint asks for one piece of advice for the human.
func (s *Service) Hint(ctx context.Context, req HintRequest) (*Hint, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if _, err := parseSkill(req.Difficulty); err != nil {
		return nil, err
	}
	c, err := s.complete(ctx, llm.Request{
		Purpose:     llm.PurposeHint,
		System:      hintPrompt(req),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: transcript(req.History)}},
		Temperature: hintTemperature,
		MaxTokens:   150,
	})
	if err != nil {
		return nil, err
	}
	return &Hint{Hint: strings.TrimSpace(c.Content)}, nil
}

// FinalEvaluation asks for the end-of-debate review of the human's performance.
func (s *Service) FinalEvaluation(ctx context.Context, req FinalEvaluationRequest) (*FinalEvaluation, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	skill, err := parseSkill(req.Difficulty)
	if err != nil {
		return nil, err
	}

	var eval FinalEvaluation
	var seen struct {
		Score *int `json:"score"`
	}
	err = s.judge(ctx, llm.Request{
		Purpose:     llm.PurposeFinalScoring,
		System:      finalEvaluationPrompt(req, skill),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: transcript(req.History)}},
		Temperature: judgeTemperature,
		MaxTokens:   500,
	}, &eval, func() bool { return seen.Score != nil }, &seen)
	if err != nil {
		return nil, err
	}
	eval.Score = domain.ClampScore(eval.Score)
	if eval.Strengths == nil {
		eval.Strengths = []string{}
	}
	if eval.Improvements == nil {
		eval.Improvements = []string{}
	}
	return &eval, nil
}

// judge runs a JSON-answering request, re-asking once with a corrective message
// when the answer cannot be decoded into every target or ok reports it incomplete.
func (s *Service) judge(ctx context.Context, req llm.Request, v any, ok func() bool, extra ...any) error {
	targets := append([]any{v}, extra...)
	for attempt := 0; attempt < 2; attempt++ {
		c, err := s.complete(ctx, req)
		if err != nil {
			return err
		}
		if decodeAll(c.Content, targets) && ok() {
			return nil
		}
		s.logger.Warn("judge answer malformed", "purpose", req.Purpose, "attempt", attempt+1)
		req.Messages = append(req.Messages,
			llm.Message{Role: llm.RoleAssistant, Content: c.Content},
			llm.Message{Role: llm.RoleUser, Content: correctiveMessage},
		)
	}
	return ErrMalformedVerdict
}

func decodeAll(raw string, targets []any) bool {
	for _, t := range targets {
		if err := llm.ExtractJSON(raw, t); err != nil {
			return false
		}
	}
	return true
}

func (s *Service) complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	if req.Model == "" {
		req.Model = s.model
	}
	c, err := s.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Purpose, err)
	}
	return c, nil
}

func parseSkill(s string) (domain.Skill, error) {
	skill, err := domain.ParseSkill(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return skill, nil
}

// chatHistory maps turns onto chat roles from the opponent's point of view.
func chatHistory(history []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, t := range history {
		role := llm.RoleUser
		if t.Role == domain.RoleAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}
