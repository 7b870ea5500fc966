package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/keggminer/internal/config"
	"github.com/turtacn/keggminer/pkg/errors"
)

// runFlags are the per-run overrides shared by similar and fetch. Only flags
// set on the command line replace configured values.
type runFlags struct {
	reference string
	threshold float64
	radius    int
	nbits     int

	pause   time.Duration
	timeout time.Duration
	retries int
	workers int

	input  string
	output string
	failed string
	img    string

	serve string
}

func (f *runFlags) registerFetch(cmd *cobra.Command, outputDefault, outputHelp string) {
	fs := cmd.Flags()
	fs.DurationVar(&f.pause, "pause", config.DefaultPause, "initial pause between retries of one request")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	fs.IntVar(&f.retries, "retries", config.DefaultMaxRetries, "attempts per request, first included")
	fs.IntVar(&f.workers, "workers", config.DefaultWorkers(), "number of concurrent workers")
	fs.StringVarP(&f.input, "input", "i", config.DefaultInputFile, "file with one KEGG identifier per line")
	fs.StringVarP(&f.output, "output", "o", outputDefault, outputHelp)
	fs.StringVar(&f.failed, "failed", config.DefaultFailedFile, "CSV of identifiers that could not be processed")
	fs.StringVar(&f.serve, "serve", "", "serve /healthz, /progress and /metrics on this address during the run")
}

func (f *runFlags) registerSimilarity(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.reference, "reference", "r", config.DefaultReferenceSMILES, "reference molecule as SMILES")
	fs.Float64VarP(&f.threshold, "threshold", "t", config.DefaultThreshold, "minimum Tanimoto similarity, inclusive")
	fs.IntVar(&f.radius, "radius", config.DefaultRadius, "Morgan fingerprint radius")
	fs.IntVar(&f.nbits, "nbits", config.DefaultNBits, "Morgan fingerprint length in bits")
	fs.StringVar(&f.img, "img", config.DefaultImageFile, "PNG grid of the best matches")
}

// apply copies every flag set on cmd into cfg and revalidates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("reference") {
		cfg.Mining.ReferenceSMILES = f.reference
	}
	if changed("threshold") {
		cfg.Mining.Threshold = f.threshold
	}
	if changed("radius") {
		cfg.Mining.Radius = f.radius
	}
	if changed("nbits") {
		cfg.Mining.NBits = f.nbits
	}
	if changed("pause") {
		cfg.KEGG.Pause = f.pause
	}
	if changed("timeout") {
		cfg.KEGG.Timeout = f.timeout
	}
	if changed("retries") {
		cfg.KEGG.MaxRetries = f.retries
	}
	if changed("workers") {
		cfg.Mining.Workers = f.workers
	}
	if changed("input") {
		cfg.Output.Input = f.input
	}
	if changed("failed") {
		cfg.Output.Failed = f.failed
	}
	if changed("img") {
		cfg.Output.Image = f.img
	}
	if changed("serve") {
		cfg.Server.Addr = f.serve
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid run parameters")
	}
	return nil
}
