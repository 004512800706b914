package lsp

import (
	"fmt"
	"strings"

	"github.com/r9s-ai/reindent/internal/reindent"
)

const severityInformation = 3

// collectDiagnostics flags every line whose leading whitespace differs from
// what reindenting would produce.
func collectDiagnostics(text string, opts reindent.Options) []Diagnostic {
	diags := []Diagnostic{}
	r := reindent.New(opts)
	for i, raw := range reindent.SplitLines(text) {
		want := r.Line(raw)
		if want == "\n" {
			continue
		}
		got := leadingWhitespace(strings.TrimSuffix(raw, "\n"))
		expected := leadingWhitespace(strings.TrimSuffix(want, "\n"))
		if got == expected {
			continue
		}
		width := 0
		for _, ch := range got {
			width += utf16Len(ch)
		}
		diags = append(diags, Diagnostic{
			Range: Range{
				Start: Position{Line: i, Character: 0},
				End:   Position{Line: i, Character: width},
			},
			Severity: severityInformation,
			Source:   "reindent",
			Message:  fmt.Sprintf("expected %d spaces of indentation", len(expected)),
		})
	}
	return diags
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, reindent.IsSpace))]
}
