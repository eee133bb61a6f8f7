package main

import (
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

func newCitiesCmd(a *app) *cobra.Command {
	var (
		filter  criteriaFlags
		geoJSON bool
	)
	cmd := &cobra.Command{
		Use:   "cities SOURCE...",
		Short: "Aggregate tenders by settlement",
		Long: `Cities groups the processed tenders into one entry per mapped settlement,
ordered by settlement code. Tenders without coordinates are left out.
With --geojson the result is written as a GeoJSON FeatureCollection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := a.processed(cmd, args, filter.criteria(cmd))
			if err != nil {
				return err
			}

			cities := tenders.SortedAggregates(tenders.AggregateByCity(processed))
			if geoJSON {
				a.format = formatJSON
				return a.write(tenders.CityFeatures(cities))
			}
			return a.write(cities)
		},
	}
	filter.register(cmd)
	cmd.Flags().BoolVar(&geoJSON, "geojson", false, "write a GeoJSON FeatureCollection (always JSON)")
	return cmd
}
