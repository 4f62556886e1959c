package main

import (
	"github.com/spf13/cobra"

	"github.com/arguewith/arena/internal/domain"
	"github.com/arguewith/arena/internal/output"
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show high scores",
		RunE:  runLeaderboard,
	}
	cmd.Flags().String("subject", "", "Only this subject")
	cmd.Flags().String("skill", "", "Only this skill: easy, medium or hard")
	return cmd
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	rawSkill, _ := cmd.Flags().GetString("skill")

	var skill domain.Skill
	if rawSkill != "" {
		parsed, err := domain.ParseSkill(rawSkill)
		if err != nil {
			return err
		}
		skill = parsed
	}

	entries, err := newClient(cmd).Leaderboard(cmd.Context(), subject, skill)
	if err != nil {
		return err
	}
	output.PrintLeaderboard(cmd.OutOrStdout(), entries)
	return nil
}
