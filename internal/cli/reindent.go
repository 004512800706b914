package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/r9s-ai/reindent/internal/config"
	"github.com/r9s-ai/reindent/internal/logging"
	"github.com/r9s-ai/reindent/internal/reindent"
)

var (
	errMissingPath = fmt.Errorf("%w: usage: reindent [flags] <file|-> [file...]", reindent.ErrMissingPath)

	// ErrNeedsReindent is returned by --check when at least one file would change.
	ErrNeedsReindent = errors.New("some files need reindenting")
)

type runFlags struct {
	jobs   int
	check  bool
	diff   bool
	stdout bool
}

func runReindent(cmd *cobra.Command, opts Options, global *globalFlags, run *runFlags, args []string) error {
	if err := run.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = run.jobs
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger, err := logging.New(opts.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	inPlace := !run.check && !run.diff && !run.stdout
	results, err := reindent.Run(cmd.Context(), args, reindent.BatchOptions{
		Options: cfg.ReindentOptions(),
		Jobs:    cfg.Jobs,
		Write:   inPlace,
		Stdin:   opts.Stdin,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	switch {
	case run.check:
		return reportCheck(opts.Stdout, results, logger)
	case run.diff:
		colorize := useColor(cfg.Color, opts.Stdout)
		for _, res := range results {
			if err := writeUnifiedDiff(opts.Stdout, res, colorize); err != nil {
				return err
			}
		}
		return nil
	case run.stdout:
		for _, res := range results {
			if _, err := io.WriteString(opts.Stdout, res.Reindented); err != nil {
				return err
			}
		}
		return nil
	}

	// In-place mode is silent except for stdin, which has nowhere else to go.
	for _, res := range results {
		if res.Path != reindent.StdinPath {
			continue
		}
		if _, err := io.WriteString(opts.Stdout, res.Reindented); err != nil {
			return err
		}
	}
	return nil
}

func (r *runFlags) validate() error {
	n := 0
	for _, set := range []bool{r.check, r.diff, r.stdout} {
		if set {
			n++
		}
	}
	if n > 1 {
		return errors.New("--check, --diff and --stdout are mutually exclusive")
	}
	return nil
}

func reportCheck(w io.Writer, results []reindent.Result, logger *zap.Logger) error {
	changed := 0
	for _, res := range results {
		if !res.Changed {
			continue
		}
		changed++
		if _, err := fmt.Fprintln(w, res.Path); err != nil {
			return err
		}
	}
	if changed > 0 {
		logger.Info("check found files to reindent", zap.Int("count", changed))
		return fmt.Errorf("%w: %d of %d", ErrNeedsReindent, changed, len(results))
	}
	return nil
}

// loadConfig layers explicitly set flags over the file and environment config.
func loadConfig(cmd *cobra.Command, global *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(global.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("indent-size") {
		cfg.IndentSize = global.indentSize
	}
	if flags.Changed("marker") {
		cfg.Marker = global.marker
	}
	if flags.Changed("color") {
		cfg.Color = global.color
	}
	if global.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
