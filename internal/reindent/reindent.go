// Package reindent rewrites the indentation of brace-structured text files using
// a line-oriented nesting heuristic instead of a parser.
package reindent

import (
	"strings"
	"unicode"
)

const (
	DefaultIndentSize = 2
	DefaultMarker     = "export const"
)

// Options controls how lines are reindented.
type Options struct {
	// IndentSize is the number of spaces per nesting level.
	IndentSize int
	// Marker is the substring that makes a line pass through verbatim and
	// resets the nesting level to 1.
	Marker string
}

// DefaultOptions returns the 2-space, `export const` configuration.
func DefaultOptions() Options {
	return Options{IndentSize: DefaultIndentSize, Marker: DefaultMarker}
}

func (o Options) normalized() Options {
	if o.IndentSize <= 0 || o.IndentSize > 16 {
		o.IndentSize = DefaultIndentSize
	}
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	return o
}

// Reindenter carries the nesting level across the lines of one document.
// The zero value is not usable; call New.
type Reindenter struct {
	unit   string
	marker string
	level  int
}

func New(opts Options) *Reindenter {
	opts = opts.normalized()
	return &Reindenter{
		unit:   strings.Repeat(" ", opts.IndentSize),
		marker: opts.Marker,
	}
}

// Level reports the current nesting level.
func (r *Reindenter) Level() int { return r.level }

// Reset puts the level back to 0 so the Reindenter can start a new document.
func (r *Reindenter) Reset() { r.level = 0 }

// Line reindents one raw line and returns what should be emitted for it.
// raw may carry its terminator; emitted lines always end in "\n" except a
// marker line, which is returned exactly as given.
func (r *Reindenter) Line(raw string) string {
	stripped := strings.TrimFunc(raw, IsSpace)
	if stripped == "" {
		return "\n"
	}

	if strings.HasPrefix(stripped, "}") || strings.HasPrefix(stripped, "]") {
		r.level = max(0, r.level-1)
	}

	if strings.Contains(raw, r.marker) {
		r.level = 1
		return raw
	}

	out := strings.Repeat(r.unit, r.level) + stripped + "\n"

	if opensBlock(stripped) {
		switch {
		case strings.Contains(stripped, "{") && !strings.Contains(stripped, "}"):
			r.level++
		case strings.Contains(stripped, "[") && !strings.Contains(stripped, "]"):
			r.level++
		}
	}
	return out
}

func opensBlock(stripped string) bool {
	return strings.HasSuffix(stripped, "{") ||
		strings.HasSuffix(stripped, "[") ||
		strings.HasSuffix(stripped, "},") ||
		strings.HasSuffix(stripped, "],")
}

// Lines reindents a whole document given as raw lines, starting from level 0.
func Lines(lines []string, opts Options) []string {
	r := New(opts)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, r.Line(line))
	}
	return out
}

// Text reindents a whole document.
func Text(src string, opts Options) string {
	var b strings.Builder
	b.Grow(len(src))
	for _, line := range Lines(SplitLines(src), opts) {
		b.WriteString(line)
	}
	return b.String()
}

// SplitLines splits src into lines, keeping a "\n" terminator on every line
// that had one. "\r\n" and a lone "\r" are both normalized to "\n".
func SplitLines(src string) []string {
	if src == "" {
		return nil
	}
	lines := make([]string, 0, strings.Count(src, "\n")+1)
	start := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			lines = append(lines, src[start:i]+"\n")
			start = i + 1
		case '\r':
			lines = append(lines, src[start:i]+"\n")
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(src) {
		lines = append(lines, src[start:])
	}
	return lines
}

// IsSpace reports whether r is stripped from line ends. Besides Unicode white
// space it treats the ASCII information separators U+001C..U+001F as space.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
