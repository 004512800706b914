package cli

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/r9s-ai/reindent/internal/config"
	"github.com/r9s-ai/reindent/internal/reindent"
)

const diffContext = 3

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return w == os.Stdout && !color.NoColor
	}
}

// writeUnifiedDiff prints nothing for an unchanged result.
func writeUnifiedDiff(w io.Writer, res reindent.Result, colorize bool) error {
	if !res.Changed {
		return nil
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        diffLines(res.Original),
		B:        diffLines(res.Reindented),
		FromFile: "a/" + res.Path,
		ToFile:   "b/" + res.Path,
		Context:  diffContext,
	})
	if err != nil {
		return err
	}
	if !colorize {
		_, err = io.WriteString(w, text)
		return err
	}

	header := color.New(color.Bold)
	hunk := color.New(color.FgCyan)
	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	for _, c := range []*color.Color{header, hunk, removed, added} {
		c.EnableColor()
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		var c *color.Color
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			c = header
		case strings.HasPrefix(line, "@@"):
			c = hunk
		case strings.HasPrefix(line, "-"):
			c = removed
		case strings.HasPrefix(line, "+"):
			c = added
		}
		if c == nil {
			_, err = io.WriteString(w, line)
		} else {
			_, err = io.WriteString(w, c.Sprint(strings.TrimSuffix(line, "\n"))+"\n")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// diffLines splits text keeping terminators. A last line without one gets a
// newline so the diff output stays line-oriented.
func diffLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
