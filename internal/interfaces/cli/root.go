// Package cli implements the keggminer command line: configuration loading,
// logger setup and the similar, fetch, status and version commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/keggminer/internal/config"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	LogFile    string
	Quiet      bool
}

// CLIContext carries the loaded configuration and logger through the command
// tree.
type CLIContext struct {
	Config     *config.Config
	ConfigFile string
	Logger     logging.Logger
	Quiet      bool
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "keggminer",
		Short: "Mine KEGG compounds by structural similarity",
		Long: "keggminer downloads KEGG COMPOUND structures for a list of identifiers,\n" +
			"scores each against a reference molecule with Morgan fingerprints and\n" +
			"Tanimoto similarity, and writes the matches as CSV and a PNG grid.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./keggminer.yaml or ~/.keggminer/keggminer.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (console, json)")
	pf.StringVar(&opts.LogFile, "log-file", "", "also write logs to this file")
	pf.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress the progress bar")

	cmd.AddCommand(
		NewSimilarCommand(),
		NewFetchCommand(),
		NewStatusCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// persistentPreRun loads configuration and the logger, then stores a
// CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, file, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid configuration")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "logger initialization failed")
	}
	logging.SetDefault(logger)
	if file != "" {
		logger.Debug("configuration loaded", logging.String("file", file))
	}

	cliCtx := &CLIContext{
		Config:     cfg,
		ConfigFile: file,
		Logger:     logger,
		Quiet:      opts.Quiet,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// loadConfig reads the file at path, or the first keggminer.yaml found in the
// working directory or ~/.keggminer. KEGGMINER_* variables override both.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.ErrCodeValidation, "failed to load configuration").WithDetail(path)
		}
		return cfg, path, nil
	}

	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".keggminer"))
	}
	cfg, file, err := config.Discover(dirs...)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeValidation, "failed to load configuration")
	}
	return cfg, file, nil
}

// GetCLIContext extracts the CLIContext installed by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = logging.Default().Sync()
	if err != nil {
		PrintError(root, err)
		return exitStatus(err)
	}
	return 0
}

// exitStatus maps err to an exit status. Flag and usage errors from cobra
// carry no code and map to 2.
func exitStatus(err error) int {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		if strings.Contains(err.Error(), "flag") || strings.HasPrefix(err.Error(), "unknown command") {
			return 2
		}
	}
	return errors.ExitStatusForCode(code)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}
