package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/michraz/internal/repository"
	"golang.org/x/sync/errgroup"
)

// sourceReport is the validation outcome for one source.
type sourceReport struct {
	Source  string `json:"source" yaml:"source"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Tenders int    `json:"tenders" yaml:"tenders"`
	Valid   bool   `json:"valid" yaml:"valid"`
}

var errInvalidSources = errors.New("one or more sources are invalid")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate SOURCE...",
		Short: "Check that tender datasets match the expected shape",
		Long: `Validate reads every SOURCE (a file path or http(s) URL) and checks it
against the tender dataset schema. One report entry is written per source,
in argument order. The command fails if any source is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validate(cmd, args)
		},
	}
}

func (a *app) validate(cmd *cobra.Command, sources []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	reports := make([]sourceReport, len(sources))
	var g errgroup.Group
	g.SetLimit(maxParallelLoads)

	for i, location := range sources {
		g.Go(func() error {
			report := sourceReport{Source: location}
			tenders, err := repository.NewTenderSource(location, nil).Load(ctx)
			if err != nil {
				report.Error = err.Error()
			} else {
				report.Valid = true
				report.Tenders = len(tenders)
			}
			reports[i] = report
			return nil
		})
	}
	// Per-source failures are recorded in the reports.
	_ = g.Wait()

	if err := a.write(reports); err != nil {
		return err
	}

	invalid := 0
	for _, r := range reports {
		if !r.Valid {
			invalid++
			a.log.Debug("Source invalid", map[string]interface{}{
				"source": r.Source,
				"error":  r.Error,
			})
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidSources, invalid, len(sources))
	}
	return nil
}
