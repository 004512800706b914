package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/reindent/internal/config"
	"github.com/r9s-ai/reindent/internal/logging"
	"github.com/r9s-ai/reindent/internal/lsp"
)

type ServeRuntimeOptions struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	BuildInfo BuildInfo
	Config    *config.Config
}

type ServeRunner func(opts ServeRuntimeOptions) error

func newServeCmd(opts Options, global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a language server over stdio that offers reindent as document formatting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			return opts.ServeRunner(ServeRuntimeOptions{
				Stdin:     opts.Stdin,
				Stdout:    opts.Stdout,
				Stderr:    opts.Stderr,
				BuildInfo: opts.BuildInfo,
				Config:    cfg,
			})
		},
	}
}

func defaultServeRunner(opts ServeRuntimeOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.BuildInfo.Version != "" {
		lsp.ServerVersion = opts.BuildInfo.Version
	}
	logger, err := logging.New(opts.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv := lsp.NewServer(opts.Stdin, opts.Stdout, logger.Named("lsp"), cfg.ReindentOptions())
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	return nil
}
