package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cityops/internal/geo"
)

var boundsCmd = &cobra.Command{
	Use:   "bounds [file.geojson]",
	Short: "Compute the bounds and viewport of a GeoJSON document",
	Long:  "bounds reads a FeatureCollection, Feature or geometry from a file or STDIN and prints its bounding box and the viewport the map would use.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		out, err := boundsReport(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func boundsReport(data []byte) ([]byte, error) {
	b, err := geo.ParseBounds(data)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(struct {
		Bounds   *geo.Bounds  `json:"bounds"`
		Viewport geo.Viewport `json:"viewport"`
	}{b, geo.Frame(b, frameOptions())}, "", "  ")
}
