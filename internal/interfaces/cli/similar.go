package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/keggminer/internal/application/mining"
	"github.com/turtacn/keggminer/internal/application/reporting"
	"github.com/turtacn/keggminer/internal/config"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
)

// NewSimilarCommand creates the similarity mining command.
func NewSimilarCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find KEGG compounds similar to a reference molecule",
		Long: "Fetch the molfile of every identifier in the input file, score it against\n" +
			"the reference with Morgan fingerprints and write the compounds at or above\n" +
			"the threshold, best first, together with a grid image of the top matches.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd, f)
		},
	}
	f.registerFetch(cmd, config.DefaultResultsFile, "CSV of matching compounds, best first")
	f.registerSimilarity(cmd)
	return cmd
}

func runSimilar(cmd *cobra.Command, f *runFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	if cmd.Flags().Changed("output") {
		cfg.Output.Results = f.output
	}
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}
	ctx := cmd.Context()
	log := cliCtx.Logger

	opts := mining.Options{
		Reference: cfg.Mining.ReferenceSMILES,
		Threshold: cfg.Mining.Threshold,
		Radius:    cfg.Mining.Radius,
		NBits:     cfg.Mining.NBits,
		Workers:   cfg.Mining.Workers,
	}
	// Rejected before any backend is contacted.
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := opts.CanonicalReference(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	ids := mining.ReadIdentifiers(cfg.Output.Input, log)
	observer, finish := a.progress(mining.PipelineSimilarity, len(ids), cmd.ErrOrStderr(), cliCtx.Quiet)
	pipeline, err := mining.NewSimilarityPipeline(a.fetcher, a.scorer, opts,
		mining.WithLogger(log),
		mining.WithMetrics(a.metrics),
		mining.WithProgress(observer))
	if err != nil {
		finish()
		return err
	}
	report := pipeline.Run(ctx, ids)
	finish()

	summary, exportErr := a.exporter(reporting.Paths{
		Results: cfg.Output.Results,
		Failed:  cfg.Output.Failed,
		Image:   cfg.Output.Image,
	}).ExportSimilarity(ctx, report)

	printSimilaritySummary(cmd.OutOrStdout(), report, summary, cfg.Mining.Threshold)
	if exportErr != nil {
		log.Error("export failed", logging.String(logging.FieldRunID, report.RunID), logging.Err(exportErr))
		return exportErr
	}
	return interrupted(ctx)
}

func printSimilaritySummary(w io.Writer, r *mining.SimilarityReport, s *reporting.Summary, threshold float64) {
	fmt.Fprintf(w, "Processed %d compounds in %s\n", r.Total, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Results:         %d (similarity >= %.2f)%s\n", len(r.Results), threshold, arrow(s, reporting.KindResults))
	fmt.Fprintf(w, "Failed:          %d%s\n", len(r.Failures), arrow(s, reporting.KindFailed))
	fmt.Fprintf(w, "Below threshold: %d\n", len(r.Dropped))
	if p := pathOf(s, reporting.KindImage); p != "" {
		fmt.Fprintf(w, "Image:           %s\n", p)
	}
	printPublished(w, s)
}

func arrow(s *reporting.Summary, kind string) string {
	if p := pathOf(s, kind); p != "" {
		return " -> " + p
	}
	return ""
}

func pathOf(s *reporting.Summary, kind string) string {
	if s == nil {
		return ""
	}
	return s.Path(kind)
}

func printPublished(w io.Writer, s *reporting.Summary) {
	if s == nil || len(s.Published) == 0 {
		return
	}
	fmt.Fprintf(w, "Published:       %d objects\n", len(s.Published))
	for _, key := range s.Published {
		fmt.Fprintf(w, "  %s\n", key)
	}
}
