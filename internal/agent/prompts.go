package agent

import (
	"fmt"
	"strings"

	"github.com/arguewith/arena/internal/domain"
)

var skillStyle = map[domain.Skill]string{
	domain.SkillEasy:   "Keep arguments simple and leave obvious openings the user can exploit. Two or three sentences.",
	domain.SkillMedium: "Argue competently with one concrete example per turn. Three to five sentences.",
	domain.SkillHard:   "Argue like a championship debater: anticipate counterarguments, cite evidence, and attack the weakest premise. Up to six sentences.",
}

// judgeStrictness scales how readily the audience moves.
var judgeStrictness = map[domain.Skill]string{
	domain.SkillEasy:   "Be generous to the human: reward any relevant point.",
	domain.SkillMedium: "Be fair and even-handed.",
	domain.SkillHard:   "Be demanding: only well-supported, on-topic points move the audience.",
}

func topicPrompt(subjectID string, skill domain.Skill) string {
	var b strings.Builder
	b.WriteString("You write motions for a one-on-one debate game. ")
	b.WriteString("Reply with a single debatable statement and nothing else: no quotes, no preamble.")
	if subjectID != "" {
		fmt.Fprintf(&b, " The motion must be about %s.", subjectID)
	}
	switch skill {
	case domain.SkillEasy:
		b.WriteString(" Pick an everyday, familiar subject.")
	case domain.SkillHard:
		b.WriteString(" Pick a nuanced subject where both sides have strong evidence.")
	}
	return b.String()
}

func debaterPrompt(req ResponseRequest, skill domain.Skill) string {
	name := req.Persona.Name
	if name == "" {
		name = "your opponent"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, debating the motion %q. You argue %s it.", name, req.Topic, req.Position)
	if req.Persona.Style != "" {
		fmt.Fprintf(&b, " Speak in this style: %s.", req.Persona.Style)
	}
	b.WriteString(" ")
	b.WriteString(skillStyle[skill])
	b.WriteString(" Reply with your next argument only. Never concede the motion.")
	return b.String()
}

func judgePrompt(req EvaluateRequest, skill domain.Skill) string {
	return fmt.Sprintf(`You judge a live debate on the motion %q and score how the audience leans.
The speaker (%s) currently holds %d%% of the audience; the other side holds the rest.
Decide the speaker's new share after their latest argument. %s
Respond only with JSON: {"score": <integer 0-100>, "reasoning": "<one sentence>"}`,
		req.Topic, req.Speaker, domain.ClampScore(req.CurrentScore), judgeStrictness[skill])
}

func hintPrompt(req HintRequest) string {
	return fmt.Sprintf(`You coach a debater arguing %s the motion %q.
Give one short, concrete hint for their next argument, based on what the opponent just said.`,
		req.Position, req.Topic)
}

func finalEvaluationPrompt(req FinalEvaluationRequest, skill domain.Skill) string {
	return fmt.Sprintf(`You evaluate a finished debate on the motion %q. The human argued %s it at %s difficulty
and ended with %d%% of the audience.
Score the human's overall performance and respond only with JSON:
{"score": <integer 0-100>, "feedback": "<two sentences>", "strengths": ["..."], "improvements": ["..."]}`,
		req.Topic, req.Position, skill, domain.ClampScore(req.FinalScore))
}

const correctiveMessage = "Your previous reply was not valid JSON. Respond again with only the JSON object, no prose and no code fences."

// transcript renders the history as plain text for judge-style prompts.
func transcript(history []Turn) string {
	if len(history) == 0 {
		return "(no arguments yet)"
	}
	var b strings.Builder
	for _, t := range history {
		speaker := t.Name
		if speaker == "" {
			speaker = string(t.Role)
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Content)
	}
	return b.String()
}
