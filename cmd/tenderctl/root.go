package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/michraz/internal/locations"
	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/repository"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	// maxParallelLoads bounds concurrent dataset reads.
	maxParallelLoads = 4
)

// app carries the state shared by all subcommands.
type app struct {
	out           io.Writer
	errOut        io.Writer
	log           *logger.Logger
	table         *locations.Table
	format        string
	locationsFile string
	timeout       time.Duration
	verbose       bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:          "tenderctl",
		Short:        "Inspect land-tender datasets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.format, "format", "f", formatJSON, "output format: json or yaml")
	flags.StringVar(&a.locationsFile, "locations", "", "settlement table JSON file (default: embedded table)")
	flags.DurationVar(&a.timeout, "timeout", 30*time.Second, "timeout for reading all sources")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newValidateCmd(a),
		newProcessCmd(a),
		newCitiesCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.format != formatJSON && a.format != formatYAML {
		return fmt.Errorf("unsupported format %q: use json or yaml", a.format)
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.log = logger.New("production", logger.WithLevel(level), logger.WithOutput(a.errOut))

	var err error
	if a.locationsFile != "" {
		a.table, err = locations.LoadFile(a.locationsFile)
	} else {
		a.table, err = locations.Default()
	}
	if err != nil {
		return err
	}
	a.log.Debug("Locations loaded", map[string]interface{}{
		"settlements": a.table.Len(),
	})
	return nil
}

// loadAll reads every source concurrently and concatenates the tenders in
// argument order. The first failure cancels the remaining reads.
func (a *app) loadAll(ctx context.Context, sources []string) ([]models.RawTender, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([][]models.RawTender, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)

	for i, location := range sources {
		g.Go(func() error {
			tenders, err := repository.NewTenderSource(location, nil).Load(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", location, err)
			}
			results[i] = tenders
			a.log.Debug("Source loaded", map[string]interface{}{
				"source":  location,
				"tenders": len(tenders),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.RawTender
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// write renders v in the selected format.
func (a *app) write(v interface{}) error {
	switch a.format {
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}
