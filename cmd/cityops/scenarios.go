package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cityops/internal/scenario"
)

var (
	scenariosJSON  bool
	scenariosCheck string
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List or check scenario definitions",
	Long:  "scenarios lists the registry (built-ins plus the configured scenarios file) or checks a scenarios YAML file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scenariosCheck != "" {
			defs, err := scenario.Load(scenariosCheck)
			if err != nil {
				return err
			}
			if _, err := scenario.NewRegistry(defs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d scenarios ok\n", scenariosCheck, len(defs))
			return nil
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		if scenariosJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reg.All())
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderScenarioList(reg, cfg.DefaultScenario))
		return err
	},
}

func init() {
	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "Print full definitions as JSON")
	scenariosCmd.Flags().StringVar(&scenariosCheck, "check", "", "Validate a scenarios YAML file and exit")
}

var (
	keyStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	layerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func renderScenarioList(reg *scenario.Registry, def string) string {
	if def == "" {
		def = reg.Default().Key
	}
	var b strings.Builder
	for _, d := range reg.All() {
		marker := " "
		if d.Key == def {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s  %s\n", marker, keyStyle.Render(fmt.Sprintf("%-20s", d.Key)), d.Title)
		for _, l := range d.Layers {
			fmt.Fprintf(&b, "    %s %s\n", layerStyle.Render(fmt.Sprintf("%-11s", l.Kind)), l.Label+dimStyle.Render(" ("+l.ID+")"))
		}
	}
	return b.String()
}
