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

// NewFetchCommand creates the metadata download command.
func NewFetchCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download name, formula and SMILES of KEGG compounds",
		Long: "Fetch the molfile and flat-file entry of every identifier in the input\n" +
			"file and write one CSV row per compound with its name, formula and\n" +
			"canonical SMILES.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, f)
		},
	}
	f.registerFetch(cmd, config.DefaultMetadataFile, "CSV of compound metadata")
	return cmd
}

func runFetch(cmd *cobra.Command, f *runFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	if cmd.Flags().Changed("output") {
		cfg.Output.Metadata = f.output
	}
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}
	ctx := cmd.Context()
	log := cliCtx.Logger

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	ids := mining.ReadIdentifiers(cfg.Output.Input, log)
	observer, finish := a.progress(mining.PipelineMetadata, len(ids), cmd.ErrOrStderr(), cliCtx.Quiet)
	pipeline := mining.NewMetadataPipeline(a.fetcher, cfg.Mining.Workers,
		mining.WithLogger(log),
		mining.WithMetrics(a.metrics),
		mining.WithProgress(observer))
	report := pipeline.Run(ctx, ids)
	finish()

	summary, exportErr := a.exporter(reporting.Paths{
		Metadata: cfg.Output.Metadata,
		Failed:   cfg.Output.Failed,
	}).ExportMetadata(ctx, report)

	printMetadataSummary(cmd.OutOrStdout(), report, summary)
	if exportErr != nil {
		log.Error("export failed", logging.String(logging.FieldRunID, report.RunID), logging.Err(exportErr))
		return exportErr
	}
	return interrupted(ctx)
}

func printMetadataSummary(w io.Writer, r *mining.MetadataReport, s *reporting.Summary) {
	fmt.Fprintf(w, "Processed %d compounds in %s\n", r.Total, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Compounds:       %d%s\n", len(r.Entries), arrow(s, reporting.KindMetadata))
	fmt.Fprintf(w, "Failed:          %d%s\n", len(r.Failures), arrow(s, reporting.KindFailed))
	printPublished(w, s)
}
