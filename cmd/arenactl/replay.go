package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/arguewith/arena/internal/output"
	"github.com/arguewith/arena/internal/replay"
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <conversation-id>",
		Short: "Replay a stored debate with its original pacing",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient(cmd)
	conn, resp, err := websocket.Dial(ctx, c.ReplayURL(args[0]), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("replay %s: server answered %s", args[0], resp.Status)
		}
		return fmt.Errorf("replay %s: %w", args[0], err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	out := cmd.OutOrStdout()
	for {
		var f replay.Frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("reading replay: %w", err)
		}
		switch f.Kind {
		case replay.FrameMessage:
			if f.Message != nil {
				output.PrintMessage(out, *f.Message)
			}
		case replay.FrameScore:
			output.PrintScore(out, f.AudienceScore)
		case replay.FrameSummary:
			if f.Summary != nil {
				output.PrintSummary(out, f.Summary)
			}
			return conn.Close(websocket.StatusNormalClosure, "")
		}
	}
}
