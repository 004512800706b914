package lsp

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/r9s-ai/reindent/internal/reindent"
)

// formatEdits replaces the whole document when reindenting changes it.
func formatEdits(text string, opts reindent.Options) []TextEdit {
	formatted := reindent.Text(text, opts)
	if formatted == text {
		return []TextEdit{}
	}
	return []TextEdit{{
		Range:   Range{End: endPosition(text)},
		NewText: formatted,
	}}
}

// endPosition counts characters in UTF-16 code units, as LSP positions do.
func endPosition(text string) Position {
	line := 0
	col := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		switch r {
		case '\r':
			if i < len(text) && text[i] == '\n' {
				i++
			}
			fallthrough
		case '\n':
			line++
			col = 0
		default:
			col += utf16Len(r)
		}
	}
	return Position{Line: line, Character: col}
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
