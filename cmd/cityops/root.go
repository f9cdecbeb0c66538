package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cityops/internal/config"
	"cityops/internal/logging"
	"cityops/internal/scenario"
)

var (
	configPath string
	schemaPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cityops",
	Short: "Smart-city command-center demo",
	Long:  "cityops serves the smart-city demonstration dashboard and ships terminal, replay and export utilities for it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(configPath, schemaPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		cfg = c
		log := logging.New(cfg.LogLevel)
		slog.SetDefault(log)
		cmd.SetContext(logging.NewContext(cmd.Context(), log))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/cityops.yaml", "Path to dashboard configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(boundsCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(scenariosCmd)
}

// loadConfig reads path. The default path may be absent, in which case
// built-in defaults and environment overrides apply.
func loadConfig(path, schema string, explicit bool) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path, schema)
}

// loadRegistry overlays the configured scenarios file onto the built-ins.
func loadRegistry(c *config.Config) (*scenario.Registry, error) {
	reg := scenario.DefaultRegistry()
	if c.ScenariosFile != "" {
		defs, err := scenario.Load(c.ScenariosFile)
		if err != nil {
			return nil, err
		}
		if reg, err = reg.With(defs...); err != nil {
			return nil, err
		}
	}
	if c.DefaultScenario != "" {
		if _, err := reg.Get(c.DefaultScenario); err != nil {
			return nil, fmt.Errorf("default_scenario: %w", err)
		}
	}
	return reg, nil
}
