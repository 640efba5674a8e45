package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Kuritho/vendo-finder-final/internal/geo"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

var (
	locateLat     float64
	locateLng     float64
	locateName    string
	locateMaxKm   float64
	locateJSONOut bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "List vendo machines near a position.",
	Long: `List vendo machines whose name contains --name and whose distance
from --lat/--lng is below --max-km. Without a position the configured default
location is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		locator := geo.NewLocator(
			vendo.Machines(),
			geo.Coordinate{Latitude: cfg.DefaultLatitude, Longitude: cfg.DefaultLongitude},
			cfg.DefaultMaxDistanceKm,
		)

		q := geo.Query{Name: locateName}
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			q.Reference = &geo.Coordinate{Latitude: locateLat, Longitude: locateLng}
		}
		if cmd.Flags().Changed("max-km") {
			if !geo.ValidRadius(locateMaxKm) {
				return fmt.Errorf("--max-km must be a non-negative number")
			}
			q.MaxDistanceKm = &locateMaxKm
		}

		res := locator.Search(q)
		if locateJSONOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return printMachines(cmd.OutOrStdout(), res)
	},
}

func printMachines(out io.Writer, res geo.Result[vendo.Machine]) error {
	from := "device"
	if res.UsedFallback {
		from = "default location"
	}
	fmt.Fprintf(out, "%d machine(s) within %.1f km of %s (%.6f, %.6f)\n",
		len(res.Places), res.MaxDistanceKm, from, res.Reference.Latitude, res.Reference.Longitude)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDISTANCE")
	for _, m := range res.Places {
		fmt.Fprintf(tw, "%s\t%s\t%.2f km\n", m.ID, m.Name, geo.Distance(res.Reference, m.Position()))
	}
	return tw.Flush()
}

func init() {
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "device latitude")
	locateCmd.Flags().Float64Var(&locateLng, "lng", 0, "device longitude")
	locateCmd.Flags().StringVar(&locateName, "name", "", "case-insensitive name filter")
	locateCmd.Flags().Float64Var(&locateMaxKm, "max-km", 0, "maximum distance in km (default from DEFAULT_MAX_DISTANCE_KM)")
	locateCmd.Flags().BoolVar(&locateJSONOut, "json", false, "print JSON instead of a table")
}
