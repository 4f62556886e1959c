// Package domain contains core domain types for the debate arena.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSetup is returned when a game setup is missing required fields.
var ErrInvalidSetup = errors.New("invalid game setup")

// Position is the side the human player argues.
type Position string

const (
	PositionFor     Position = "for"
	PositionAgainst Position = "against"
)

// Opposite returns the side the AI opponent argues.
func (p Position) Opposite() Position {
	if p == PositionAgainst {
		return PositionFor
	}
	return PositionAgainst
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	return p == PositionFor || p == PositionAgainst
}

// Skill is the difficulty tier a debate is played at. It also partitions the leaderboard.
type Skill string

const (
	SkillEasy   Skill = "easy"
	SkillMedium Skill = "medium"
	SkillHard   Skill = "hard"
)

// DefaultSkill is used whenever a request leaves the difficulty out.
const DefaultSkill = SkillMedium

// ParseSkill normalizes s, falling back to DefaultSkill when s is empty.
func ParseSkill(s string) (Skill, error) {
	switch Skill(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSkill, nil
	case SkillEasy:
		return SkillEasy, nil
	case SkillMedium:
		return SkillMedium, nil
	case SkillHard:
		return SkillHard, nil
	default:
		return "", fmt.Errorf("unknown skill %q", s)
	}
}

// Role distinguishes the human player from the AI opponent.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Participant is one side of a debate.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// GameSetup describes a debate before it starts.
type GameSetup struct {
	Topic        string        `json:"topic"`
	Difficulty   int           `json:"difficulty"`
	Participants []Participant `json:"participants"`
	SubjectID    string        `json:"subjectId"`
	Position     Position      `json:"position"`
	Skill        Skill         `json:"skill"`
}

// Validate checks required fields and normalizes the skill.
func (s *GameSetup) Validate() error {
	if strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidSetup)
	}
	if len(s.Participants) != 2 {
		return fmt.Errorf("%w: exactly two participants are required", ErrInvalidSetup)
	}
	if s.SubjectID == "" {
		return fmt.Errorf("%w: subjectId is required", ErrInvalidSetup)
	}
	if s.Position == "" {
		s.Position = PositionFor
	}
	if !s.Position.Valid() {
		return fmt.Errorf("%w: unknown position %q", ErrInvalidSetup, s.Position)
	}
	skill, err := ParseSkill(string(s.Skill))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetup, err)
	}
	s.Skill = skill
	return nil
}

// Human returns the human participant, or the first one if no role is marked.
func (s GameSetup) Human() Participant {
	for _, p := range s.Participants {
		if p.Role == RoleHuman {
			return p
		}
	}
	if len(s.Participants) > 0 {
		return s.Participants[0]
	}
	return Participant{}
}

// Opponent returns the AI participant, or the second one if no role is marked.
func (s GameSetup) Opponent() Participant {
	for _, p := range s.Participants {
		if p.Role == RoleAI {
			return p
		}
	}
	if len(s.Participants) > 1 {
		return s.Participants[1]
	}
	return Participant{}
}

// Bucket returns the leaderboard partition this setup is scored in.
func (s GameSetup) Bucket() Bucket {
	return Bucket{SubjectID: s.SubjectID, Skill: s.Skill}
}
