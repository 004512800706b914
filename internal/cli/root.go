package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type Options struct {
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	BuildInfo   BuildInfo
	ServeRunner ServeRunner
}

func Run(args []string, opts Options) error {
	resolved := normalizeOptions(opts)
	root := newRootCmd(resolved)
	if args == nil {
		// cobra falls back to os.Args when given nil.
		args = []string{}
	}
	root.SetArgs(args)
	return root.Execute()
}

func normalizeOptions(opts Options) Options {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ServeRunner == nil {
		opts.ServeRunner = defaultServeRunner
	}
	return opts
}

// globalFlags are shared by the root command and serve.
type globalFlags struct {
	configPath string
	indentSize int
	marker     string
	verbose    bool
	color      string
}

func newRootCmd(opts Options) *cobra.Command {
	global := &globalFlags{}
	run := &runFlags{}
	cmd := &cobra.Command{
		Use:   "reindent [flags] <file|-> [file...]",
		Short: "Rewrite brace-nested text files to two-space indentation",
		Long: "reindent rewrites the indentation of each file in place, one nesting level per\n" +
			"trailing '{' or '[' and one level back per leading '}' or ']'. Lines containing\n" +
			"the marker (default \"export const\") are kept verbatim and reset the level to 1.\n\n" +
			"Settings are read from ./.reindent.yaml (or --config) and from REINDENT_*\n" +
			"environment variables (REINDENT_INDENT_SIZE, REINDENT_MARKER, REINDENT_JOBS,\n" +
			"REINDENT_LOG_LEVEL, REINDENT_COLOR) when present; flags override both.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errMissingPath
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindent(cmd, opts, global, run, args)
		},
	}
	cmd.SetIn(opts.Stdin)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&global.configPath, "config", "", "config file (default ./.reindent.yaml when present)")
	pfs.IntVar(&global.indentSize, "indent-size", 0, "spaces per nesting level (default 2)")
	pfs.StringVar(&global.marker, "marker", "", "substring of lines kept verbatim (default \"export const\")")
	pfs.BoolVarP(&global.verbose, "verbose", "v", false, "log each processed file to stderr")
	pfs.StringVar(&global.color, "color", "", "colorize diff output (auto|always|never)")

	fs := cmd.Flags()
	fs.IntVarP(&run.jobs, "jobs", "j", 0, "number of files processed concurrently (default 1)")
	fs.BoolVarP(&run.check, "check", "l", false, "list files whose indentation would change and fail if any")
	fs.BoolVarP(&run.diff, "diff", "d", false, "print a unified diff instead of rewriting files")
	fs.BoolVar(&run.stdout, "stdout", false, "print the result instead of rewriting files")

	cmd.AddCommand(
		newServeCmd(opts, global),
		newVersionCmd(opts),
	)
	return cmd
}
