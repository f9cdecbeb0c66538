package main

import (
	"github.com/spf13/cobra"

	"cityops/internal/export"
	"cityops/internal/logging"
)

var (
	exportOut      string
	exportBasePath string
	exportGrafana  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a static build of the dashboard",
	Long:  "export renders the landing and insights pages plus per-scenario map snapshots for static hosting, optionally with Grafana dashboards for the activity table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		base := cfg.BasePath
		if cmd.Flags().Changed("base-path") {
			base = exportBasePath
		}
		if err := export.Render(exportOut, base, reg); err != nil {
			return err
		}
		if exportGrafana {
			if err := export.RenderGrafana(exportOut, cfg.Activity.Table); err != nil {
				return err
			}
		}
		logging.FromContext(cmd.Context()).Info("static build written", "dir", exportOut, "base_path", base, "scenarios", reg.Len())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "build", "Output directory")
	exportCmd.Flags().StringVar(&exportBasePath, "base-path", "", "Base path the build is served under (defaults to config base_path)")
	exportCmd.Flags().BoolVar(&exportGrafana, "grafana", false, "Also render Grafana dashboards (needs GREPTIMEDB_DATASOURCE_UID)")
}
