package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arguewith/arena/internal/agent"
	"github.com/arguewith/arena/internal/client"
	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/game"
	"github.com/arguewith/arena/internal/output"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Debate the AI opponent interactively",
		Long:  "Starts a debate and reads arguments from stdin. Type /hint for advice, /score for the current split and /end to finish.",
		RunE:  runPlay,
	}
	cmd.Flags().String("topic", "", "Debate motion (generated by the server when empty)")
	cmd.Flags().String("subject", "", "Subject id the debate is scored under (required)")
	cmd.Flags().String("position", string(domain.PositionFor), "Your side: for or against")
	cmd.Flags().String("skill", string(domain.DefaultSkill), "Opponent skill: easy, medium or hard")
	cmd.Flags().String("name", "You", "Your display name")
	cmd.Flags().String("opponent", "Socrates", "Opponent display name")
	cmd.Flags().String("username", "", "Leaderboard name (default: derived by the server)")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	subject, _ := cmd.Flags().GetString("subject")
	position, _ := cmd.Flags().GetString("position")
	rawSkill, _ := cmd.Flags().GetString("skill")
	name, _ := cmd.Flags().GetString("name")
	opponent, _ := cmd.Flags().GetString("opponent")
	username, _ := cmd.Flags().GetString("username")

	skill, err := domain.ParseSkill(rawSkill)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient(cmd)
	out := cmd.OutOrStdout()

	if strings.TrimSpace(topic) == "" {
		generated, err := c.GenerateTopic(ctx, agent.TopicRequest{SubjectID: subject, Difficulty: string(skill)})
		if err != nil {
			return fmt.Errorf("generating topic: %w", err)
		}
		topic = generated.Topic
	}

	setup := domain.GameSetup{
		Topic: topic,
		Participants: []domain.Participant{
			{ID: "user", Name: name, Role: domain.RoleHuman},
			{ID: "ai", Name: opponent, Role: domain.RoleAI},
		},
		SubjectID: subject,
		Position:  domain.Position(position),
		Skill:     skill,
	}
	d, err := game.New(c, c, setup, agent.Persona{Name: opponent}, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Motion: %s\n", output.Bold(topic))
	fmt.Fprintf(out, "You argue %s at %s skill.\n\n", setup.Position, skill)

	if err := d.Initialize(ctx); err != nil {
		return fmt.Errorf("%s: %w", d.Err(), err)
	}
	shown := printNew(out, d, 0)
	output.PrintScore(out, d.Score())

	summary, err := debateLoop(ctx, cmd.InOrStdin(), out, d, shown)
	if err != nil {
		return err
	}
	output.PrintSummary(out, summary)
	if msg := d.Err(); msg != "" {
		output.PrintError(out, msg)
	}

	if summary.IsHighScore {
		entry, err := c.AddHighScore(ctx, client.HighScore{
			Username:       username,
			Score:          summary.FinalScore,
			SubjectID:      subject,
			Skill:          skill,
			Position:       setup.Position,
			ConversationID: summary.ConversationID,
		})
		if err != nil {
			return fmt.Errorf("submitting high score: %w", err)
		}
		fmt.Fprintf(out, "Saved to the leaderboard as %s.\n", entry.Username)
	}
	return nil
}

func debateLoop(ctx context.Context, in io.Reader, out io.Writer, d *game.Debate, shown int) (*game.Summary, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			// EOF ends the debate.
			return d.GenerateSummary(ctx)
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/end":
			return d.GenerateSummary(ctx)
		case "/score":
			output.PrintScore(out, d.Score())
			continue
		case "/hint":
			if hint, ok := d.RequestHint(ctx); ok {
				output.PrintHint(out, hint)
			} else {
				output.PrintError(out, d.Err())
			}
			continue
		}

		if err := d.SendArgument(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			output.PrintError(out, d.Err())
		}
		shown = printNew(out, d, shown)
		output.PrintScore(out, d.Score())
	}
}

// printNew prints messages after the first shown and returns the new count.
func printNew(w io.Writer, d *game.Debate, shown int) int {
	msgs := d.Messages()
	for _, m := range msgs[min(shown, len(msgs)):] {
		output.PrintMessage(w, m)
	}
	return len(msgs)
}
