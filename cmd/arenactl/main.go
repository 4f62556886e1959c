package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arguewith/arena/internal/client"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "arenactl",
		Short:   "Terminal client for the Debate Arena server",
		Long:    "Play debates against the AI opponent, browse the leaderboard, replay stored debates and expose arena data to MCP clients.",
		Version: version,
	}

	root.PersistentFlags().String("server", "", "Arena server URL (overrides ARENA_URL env var, default http://localhost:3001)")
	root.PersistentFlags().String("session", "", "Session id sent with every request")

	root.AddCommand(newPlayCmd())
	root.AddCommand(newLeaderboardCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newMCPCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverURL(cmd *cobra.Command) string {
	u, _ := cmd.Root().PersistentFlags().GetString("server")
	if u == "" {
		u = os.Getenv("ARENA_URL")
	}
	if u == "" {
		u = "http://localhost:3001"
	}
	return u
}

func newClient(cmd *cobra.Command) *client.Client {
	session, _ := cmd.Root().PersistentFlags().GetString("session")
	return client.New(serverURL(cmd), session)
}
