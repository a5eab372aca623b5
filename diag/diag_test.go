package diag

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/parser"
)

func TestPosition(t *testing.T) {
	src := []byte("Root {\n  A()\r\n}\n")
	x := NewIndex(src)
	tests := []struct {
		off  int
		want Position
	}{
		{0, Position{1, 1}},
		{5, Position{1, 6}},
		{6, Position{1, 7}}, // the newline itself
		{7, Position{2, 1}},
		{9, Position{2, 3}},
		{14, Position{3, 1}},
		{len(src), Position{4, 1}},
		{-3, Position{1, 1}},
		{1000, Position{4, 1}},
	}
	for _, tc := range tests {
		if got := x.Position(tc.off); got != tc.want {
			t.Errorf("Position(%d) = %v, want %v", tc.off, got, tc.want)
		}
	}
	if x.Lines() != 4 {
		t.Errorf("Lines() = %d, want 4", x.Lines())
	}
	if got := x.Line(2); got != "  A()" {
		t.Errorf("Line(2) = %q, want %q (no CR)", got, "  A()")
	}
	if x.Line(0) != "" || x.Line(9) != "" {
		t.Errorf("out of range lines should be empty")
	}
}

func TestUTF16(t *testing.T) {
	// é is 2 bytes / 1 unit, 😀 is 4 bytes / 2 units.
	src := []byte("a\né😀x(")
	x := NewIndex(src)
	tests := []struct {
		off        int
		line, char int
	}{
		{0, 0, 0},
		{2, 1, 0},
		{4, 1, 1},
		{8, 1, 3},
		{9, 1, 4},
	}
	for _, tc := range tests {
		line, char := x.UTF16(tc.off)
		if line != tc.line || char != tc.char {
			t.Errorf("UTF16(%d) = (%d, %d), want (%d, %d)", tc.off, line, char, tc.line, tc.char)
		}
		if back := x.OffsetUTF16(tc.line, tc.char); back != tc.off {
			t.Errorf("OffsetUTF16(%d, %d) = %d, want %d", tc.line, tc.char, back, tc.off)
		}
	}
	if got := x.OffsetUTF16(0, 50); got != 1 {
		t.Errorf("OffsetUTF16 past line end = %d, want 1", got)
	}
	if got := x.OffsetUTF16(7, 0); got != len(src) {
		t.Errorf("OffsetUTF16 past last line = %d, want %d", got, len(src))
	}
}

func TestRender(t *testing.T) {
	src := []byte("Root {\n\tChild(bad thing)\n}")
	x := NewIndex(src)
	got := x.Render(Report{
		Name:     "scene.chirp",
		Severity: "warning",
		Span:     ast.Span{Start: 14, End: 17},
		Message:  "unknown method bad",
		Help:     "register it first",
	})
	want := strings.Join([]string{
		"warning in scene.chirp at 2:8: unknown method bad",
		"",
		"   1 | Root {",
		"   2 | \tChild(bad thing)",
		"     | \t      ^^^",
		"   3 | }",
		"help: register it first",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Render:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderParseError(t *testing.T) {
	src := []byte("Root()\nExtra()")
	_, err := parser.Parse(src)
	if err == nil {
		t.Fatal("Parse succeeded")
	}
	r := ParseError("doc.chirp", err)
	if r.Help == "" || r.Span.Start != 7 {
		t.Errorf("report = %+v", r)
	}
	out := RenderError("doc.chirp", src, err)
	if !strings.HasPrefix(out, "error in doc.chirp at 2:1: unexpected text after the root statement") {
		t.Errorf("RenderError header:\n%s", out)
	}
	if !strings.Contains(out, "     | ^^^^^^^\n") {
		t.Errorf("RenderError should underline the trailing text:\n%s", out)
	}

	plain := ParseError("", errors.New("boom"))
	if plain.Message != "boom" || plain.Help != "" {
		t.Errorf("ParseError(plain) = %+v", plain)
	}
}
