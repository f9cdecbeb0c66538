package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cityops/internal/activity"
	"cityops/internal/chat"
	"cityops/internal/console"
	"cityops/internal/session"
)

var (
	consoleArea     string
	consolePlain    bool
	consoleScenario string
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the terminal command center",
	Long:  "console opens the command center in the terminal: pick scenarios, tune focus and talk to the copilot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		def := cfg.DefaultScenario
		if consoleScenario != "" {
			def = consoleScenario
		}
		store := session.NewStore(session.Options{
			Registry:        reg,
			DefaultScenario: def,
			Responder:       newResponder(),
			Frame:           frameOptions(),
			Focus:           cfg.Map.DefaultFocus,
			ProcessingDelay: cfg.Wizard.ProcessingDelay,
			IdleTimeout:     cfg.Session.IdleTimeout,
		})
		defer store.Close()
		sess, err := store.Create()
		if err != nil {
			return err
		}

		// The terminal belongs to the console, so rows only go to the
		// configured sinks and the console's own pane.
		sink, cleanup, err := newActivityWriter(cfg.Activity, false, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		c := console.New(ctx, console.Options{
			Registry:  reg,
			Session:   sess,
			Area:      consoleArea,
			AltScreen: !consolePlain && isTerminal(os.Stdout),
		})
		w := activity.NewMultiWriter(c, sink)
		c.SetRecorder(w)
		_ = w.Write(activity.Row{SessionID: sess.ID, Kind: activity.KindSessionCreated, Scenario: sess.State().Scenario, Focus: sess.State().Focus, Timestamp: sess.Created})
		return c.Wait()
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleArea, "area", chat.AreaInsights, "Copilot area to talk to (insights or upload)")
	consoleCmd.Flags().BoolVar(&consolePlain, "plain", false, "Do not use the alternate screen")
	consoleCmd.Flags().StringVar(&consoleScenario, "scenario", "", "Scenario to open with")
}
