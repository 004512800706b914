// Package cli exposes the reindent command line for embedding in other binaries.
package cli

import internalcli "github.com/r9s-ai/reindent/internal/cli"

type BuildInfo = internalcli.BuildInfo
type Options = internalcli.Options

// ErrNeedsReindent is returned by --check when a file would change.
var ErrNeedsReindent = internalcli.ErrNeedsReindent

func Run(args []string, opts Options) error {
	return internalcli.Run(args, opts)
}
