package main

import (
	"fmt"
	"io"
	"os"

	"github.com/r9s-ai/reindent/cli"
)

// Set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	err := cli.Run(args, cli.Options{
		Stdin:  in,
		Stdout: out,
		Stderr: errOut,
		BuildInfo: cli.BuildInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	})
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "reindent: %v\n", err)
		return 1
	}
	return 0
}
