package main

import (
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

// criteriaFlags binds the tender filter to command-line flags. Unset flags
// leave the matching criterion nil.
type criteriaFlags struct {
	priceMin float64
	priceMax float64
	sizeMin  float64
	sizeMax  float64
	city     int
}

func (f *criteriaFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.city, "city", 0, "only tenders in this settlement code")
	flags.Float64Var(&f.priceMin, "price-min", 0, "minimum lot price in NIS")
	flags.Float64Var(&f.priceMax, "price-max", 0, "maximum lot price in NIS")
	flags.Float64Var(&f.sizeMin, "size-min", 0, "minimum lot size in sqm")
	flags.Float64Var(&f.sizeMax, "size-max", 0, "maximum lot size in sqm")
}

func (f *criteriaFlags) criteria(cmd *cobra.Command) tenders.Criteria {
	flags := cmd.Flags()
	var c tenders.Criteria
	if flags.Changed("city") {
		c.CityCode = &f.city
	}
	if flags.Changed("price-min") {
		c.PriceMin = &f.priceMin
	}
	if flags.Changed("price-max") {
		c.PriceMax = &f.priceMax
	}
	if flags.Changed("size-min") {
		c.SizeMin = &f.sizeMin
	}
	if flags.Changed("size-max") {
		c.SizeMax = &f.sizeMax
	}
	return c
}

func newProcessCmd(a *app) *cobra.Command {
	var filter criteriaFlags
	cmd := &cobra.Command{
		Use:   "process SOURCE...",
		Short: "Print display-ready tenders",
		Long: `Process loads every SOURCE, resolves settlement names and coordinates,
computes lot price and size ranges, applies the filter flags and prints the
tenders with complete records first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := a.processed(cmd, args, filter.criteria(cmd))
			if err != nil {
				return err
			}
			return a.write(processed)
		},
	}
	filter.register(cmd)
	return cmd
}

// processed runs the load, transform, filter and sort pipeline.
func (a *app) processed(cmd *cobra.Command, sources []string, c tenders.Criteria) ([]models.ProcessedTender, error) {
	raw, err := a.loadAll(cmd.Context(), sources)
	if err != nil {
		return nil, err
	}

	out := tenders.Filter(tenders.Transform(raw, a.table), c)
	tenders.SortByCompleteness(out)

	a.log.Debug("Tenders processed", map[string]interface{}{
		"loaded":  len(raw),
		"matched": len(out),
	})
	return out, nil
}
