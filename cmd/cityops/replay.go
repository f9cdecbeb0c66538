package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cityops/internal/activity"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay an activity log file",
	Long:  "replay feeds activity rows from a JSONL log back into GreptimeDB or STDOUT, preserving their spacing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		if replaySpeed <= 0 {
			return fmt.Errorf("speed must be positive")
		}
		a := cfg.Activity
		a.LogFile = ""
		writer, cleanup, err := newActivityWriter(a, replayPrintOnly, os.Stdout)
		if err != nil {
			return err
		}
		defer cleanup()
		return activity.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to activity log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print activity to STDOUT instead of writing to GreptimeDB")
	replayCmd.MarkFlagRequired("input")
}
