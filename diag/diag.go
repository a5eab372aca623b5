// Package diag maps byte offsets to line and column positions and renders
// source snippets for parse and build diagnostics.
package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/parser"
)

// Position is a 1-based line and column. Columns count bytes.
type Position struct {
	Line, Col int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Index maps offsets of one source to positions.
type Index struct {
	src   []byte
	lines []int // start offset of each line
}

// NewIndex scans src for line starts.
func NewIndex(src []byte) *Index {
	lines := []int{0}
	for i, c := range src {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Index{src: src, lines: lines}
}

// Lines returns the number of lines.
func (x *Index) Lines() int {
	return len(x.lines)
}

func (x *Index) clamp(off int) int {
	return min(max(off, 0), len(x.src))
}

func (x *Index) lineOf(off int) int {
	return sort.Search(len(x.lines), func(i int) bool { return x.lines[i] > off }) - 1
}

// Position returns the position of off, clamped to the source.
func (x *Index) Position(off int) Position {
	off = x.clamp(off)
	line := x.lineOf(off)
	return Position{Line: line + 1, Col: off - x.lines[line] + 1}
}

// Line returns the text of 1-based line n without its newline.
func (x *Index) Line(n int) string {
	if n < 1 || n > len(x.lines) {
		return ""
	}
	start := x.lines[n-1]
	end := len(x.src)
	if n < len(x.lines) {
		end = x.lines[n] - 1
	}
	return strings.TrimSuffix(string(x.src[start:end]), "\r")
}

// UTF16 returns the 0-based line and UTF-16 column of off, the coordinates
// language server clients use.
func (x *Index) UTF16(off int) (line, char int) {
	off = x.clamp(off)
	line = x.lineOf(off)
	for i := x.lines[line]; i < off; {
		r, size := utf8.DecodeRune(x.src[i:])
		if r >= 0x10000 {
			char += 2
		} else {
			char++
		}
		i += size
	}
	return line, char
}

// OffsetUTF16 is the inverse of UTF16. Positions past the end of a line
// map to the line's end.
func (x *Index) OffsetUTF16(line, char int) int {
	if line < 0 {
		return 0
	}
	if line >= len(x.lines) {
		return len(x.src)
	}
	i := x.lines[line]
	end := len(x.src)
	if line+1 < len(x.lines) {
		end = x.lines[line+1] - 1
	}
	for n := 0; n < char && i < end; {
		r, size := utf8.DecodeRune(x.src[i:])
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		i += size
	}
	return i
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Report is one diagnostic ready to render.
type Report struct {
	Name     string // file name shown in the header, may be empty
	Severity string
	Span     ast.Span
	Message  string
	Help     string
}

// Render writes a header, up to one line of context before and after, and
// carets under the span.
//
//	error in scene.chirp at 2:5: expected a method name, got end of input
//
//	   1 | Root {
//	   2 |   A(
//	     |     ^
//	help: ...
func (x *Index) Render(r Report) string {
	pos := x.Position(r.Span.Start)
	var b strings.Builder
	if r.Name != "" {
		fmt.Fprintf(&b, "%s in %s at %s: %s\n\n", r.Severity, r.Name, pos, r.Message)
	} else {
		fmt.Fprintf(&b, "%s at %s: %s\n\n", r.Severity, pos, r.Message)
	}

	if pos.Line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", pos.Line-1, x.Line(pos.Line-1))
	}
	text := x.Line(pos.Line)
	fmt.Fprintf(&b, "%4d | %s\n", pos.Line, text)

	width := 1
	if end := x.Position(r.Span.End); end.Line == pos.Line && end.Col > pos.Col {
		width = end.Col - pos.Col
	}
	fmt.Fprintf(&b, "     | %s%s\n", padding(text, pos.Col-1), strings.Repeat("^", width))

	if pos.Line < x.Lines() {
		fmt.Fprintf(&b, "%4d | %s\n", pos.Line+1, x.Line(pos.Line+1))
	}
	if r.Help != "" {
		fmt.Fprintf(&b, "help: %s\n", r.Help)
	}
	return b.String()
}

// padding returns whitespace as wide as the first n bytes of line, keeping
// tabs so the caret lines up in terminals.
func padding(line string, n int) string {
	n = min(n, len(line))
	var b strings.Builder
	for _, c := range []byte(line[:n]) {
		if c == '\t' {
			b.WriteByte('\t')
		} else if c < 0x80 || c >= 0xC0 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ParseError converts a parser error into a report. Other errors are
// reported at offset 0 without help.
func ParseError(name string, err error) Report {
	var pe *parser.Error
	if errors.As(err, &pe) {
		return Report{Name: name, Severity: "error", Span: pe.Span, Message: pe.Message(), Help: pe.Help()}
	}
	return Report{Name: name, Severity: "error", Message: err.Error()}
}

// RenderError renders err against src. It is a shortcut for one-off
// reports.
func RenderError(name string, src []byte, err error) string {
	return NewIndex(src).Render(ParseError(name, err))
}
