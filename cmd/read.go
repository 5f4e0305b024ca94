package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/pubsense/infra/logger"
	"github.com/kilianp07/pubsense/infra/sensehat"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Print one Sense HAT reading as JSON without publishing it",
	RunE:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, root, closer, err := setup(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	board, err := sensehat.Open(cfg.Sensor, logger.New(root, "sensehat"))
	if err != nil {
		return err
	}
	defer func() { _ = board.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Cycle.SensorTimeout())
	defer cancel()
	snap, err := board.Capture(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
