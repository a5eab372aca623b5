package scene

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/interp"
	"github.com/chazu/chirp/parser"
)

func build(t *testing.T, r *Registry, input string) *Builder {
	t.Helper()
	a, err := parser.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	b := NewBuilder(r)
	b.Build(a)
	return b
}

func outline(t *testing.T, roots []*Entity) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Fprint(&buf, roots); err != nil {
		t.Fatalf("Fprint: %v", err)
	}
	return buf.String()
}

func TestBuilderTree(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`Name()`, "Name\n"},
		{`Root(a b(1, 2)) { Child() { Leaf() } Other() }`, "Root [a b(1, 2)]\n  Child\n    Leaf\n  Other\n"},
		{`Entity { "Quoted Name"() }`, "<anonymous>\n  Quoted Name\n"},
		{
			"fn Button(label) { Btn(text(label)) }\nUI { Button!(\"ok\") (wide) Button!(\"cancel\") }",
			"UI\n  Btn [text(\"ok\") wide]\n  Btn [text(\"cancel\")]\n",
		},
		{`Root(position(1, 2.5, -3) visible(true) tags(a, "b c"))`, "Root [position=[1 2.5 -3] visible=true tags=[a b c]]\n"},
		{`Root(name("Renamed") scale(2))`, "Renamed [scale=2]\n"},
	}
	for _, tc := range tests {
		b := build(t, DefaultRegistry(), tc.input)
		if err := b.Err(); err != nil {
			t.Errorf("%q: %v", tc.input, err)
			continue
		}
		if got := outline(t, b.Roots()); got != tc.want {
			t.Errorf("%q:\n%s\nwant:\n%s", tc.input, got, tc.want)
		}
	}
}

func TestBuilderDiagnostics(t *testing.T) {
	tests := []struct {
		input string
		want  string
		at    int
	}{
		{`Root(position(1, 2))`, "position takes 3 arguments, got 2", 5},
		{`Root(scale(big))`, `scale: argument 1: "big" is not a number`, 5},
		{`Root(visible(maybe))`, `visible: "maybe" is not a boolean`, 5},
		{`Root { code(missing) }`, "unknown code block missing", 12},
	}
	for _, tc := range tests {
		b := build(t, DefaultRegistry(), tc.input)
		diags := b.Diagnostics()
		if len(diags) != 1 {
			t.Errorf("%q: diagnostics = %v, want one", tc.input, diags)
			continue
		}
		if diags[0].Message != tc.want || diags[0].Span.Start != tc.at {
			t.Errorf("%q: diagnostic = %q at %d, want %q at %d", tc.input, diags[0].Message, diags[0].Span.Start, tc.want, tc.at)
		}
		if b.Err() == nil {
			t.Errorf("%q: Err() = nil", tc.input)
		}
	}
}

func TestBuilderRedefinedTemplate(t *testing.T) {
	b := build(t, nil, "fn A() { X() }\nfn A() { Y() }\nA!()")
	if len(b.Diagnostics()) != 1 || b.Diagnostics()[0].Severity != SeverityWarning {
		t.Fatalf("diagnostics = %v, want one warning", b.Diagnostics())
	}
	if b.Err() != nil {
		t.Errorf("warnings should not make Err non-nil")
	}
	if got := outline(t, b.Roots()); got != "Y\n" {
		t.Errorf("outline = %q, want the later definition", got)
	}
}

func TestBuilderCode(t *testing.T) {
	r := DefaultRegistry()
	var seen []string
	r.RegisterCode("light", func(b *Builder, parent *Entity) error {
		seen = append(seen, parent.Name)
		parent.Set(&Component{Name: "lit", Value: true})
		return nil
	})
	r.RegisterCode("broken", func(b *Builder, parent *Entity) error {
		return errors.New("no power")
	})

	b := build(t, r, `Room { code(light) Lamp { code(light) code(broken) } }`)
	if len(seen) != 2 || seen[0] != "Room" || seen[1] != "Lamp" {
		t.Errorf("code ran with parents %q", seen)
	}
	diags := b.Diagnostics()
	if len(diags) != 1 || diags[0].Message != "code(broken): no power" {
		t.Errorf("diagnostics = %v", diags)
	}
	if got := outline(t, b.Roots()); got != "Room [lit=true]\n  Lamp [lit=true]\n" {
		t.Errorf("outline = %q", got)
	}
}

func TestBuilderImports(t *testing.T) {
	lib := parser.MustParse("fn Button(t) { Btn(text(t)) }\nfn Label() { Lbl() }\nLibrary()")
	loads := 0
	b := NewBuilder(nil)
	b.SetLoader(func(module string) (*ast.Ast, error) {
		loads++
		if module != "ui.chirp" {
			return nil, errors.New("not found")
		}
		return lib, nil
	})
	doc := parser.MustParse("use \"ui.chirp\" (Button, (Label as L), Missing)\nuse other (X)\nRoot { Button!(go) L!() }")
	b.Build(doc)

	if loads != 2 {
		t.Errorf("loader called %d times, want 2", loads)
	}
	if got := outline(t, b.Roots()); got != "Root\n  Btn [text(go)]\n  Lbl\n" {
		t.Errorf("outline = %q", got)
	}
	var msgs []string
	for _, d := range b.Diagnostics() {
		msgs = append(msgs, d.Message)
	}
	want := []string{"ui.chirp does not declare template Missing", "cannot load other: not found"}
	if strings.Join(msgs, "|") != strings.Join(want, "|") {
		t.Errorf("diagnostics = %q, want %q", msgs, want)
	}
	imps := b.Imports()
	if len(imps) != 4 || imps[1].Local() != "L" || imps[0].Local() != "Button" {
		t.Errorf("imports = %+v", imps)
	}
}

func TestBuilderImportedTemplateCallsItsModule(t *testing.T) {
	modules := map[string]string{
		"lib":   "use base (Leaf)\nfn Inner() { Leaf!() }\nfn Outer() { Box { Inner!() } }\nLib()",
		"base":  "fn Leaf() { Dot() }\nBase()",
		"cycle": "use cycle (Self)\nfn Self() { Ring() }\nCycle()",
	}
	b := NewBuilder(nil)
	b.SetLoader(func(module string) (*ast.Ast, error) {
		src, ok := modules[module]
		if !ok {
			return nil, errors.New("not found")
		}
		return parser.MustParse(src), nil
	})
	// The entry document's own Inner must not leak into lib's bodies, and
	// lib's Inner must not be visible here.
	b.Build(parser.MustParse("use lib (Outer)\nuse cycle (Self)\nfn Inner() { Wrong() }\nRoot { Outer!() Self!() }"))

	if got := outline(t, b.Roots()); got != "Root\n  Box\n    Dot\n  Ring\n" {
		t.Errorf("outline = %q", got)
	}
	if ds := b.Diagnostics(); len(ds) != 0 {
		t.Errorf("diagnostics = %v", ds)
	}
}

func TestEntityIDsDeterministic(t *testing.T) {
	input := `Root { A() B { C() } A() }`
	first := build(t, nil, input).Roots()
	second := build(t, nil, input).Roots()

	ids := map[string]bool{}
	var walkBoth func(a, b *Entity)
	walkBoth = func(a, b *Entity) {
		if a.ID != b.ID {
			t.Errorf("%s: IDs differ between builds", a.Name)
		}
		if ids[a.ID.String()] {
			t.Errorf("%s: duplicate ID %s", a.Name, a.ID)
		}
		ids[a.ID.String()] = true
		for i := range a.Children {
			walkBoth(a.Children[i], b.Children[i])
		}
	}
	walkBoth(first[0], second[0])
	if first[0].Count() != 5 {
		t.Errorf("Count() = %d, want 5", first[0].Count())
	}
}

func TestMarshal(t *testing.T) {
	roots := build(t, DefaultRegistry(), `Root(scale(2) custom(a, b)) { Child() }`).Roots()
	data, err := Marshal("test.chirp", roots)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Marshal("test.chirp", roots)
	if err != nil || !bytes.Equal(data, again) {
		t.Fatalf("Marshal is not deterministic")
	}

	doc, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.Source != "test.chirp" || len(doc.Roots) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	root := doc.Roots[0]
	if root.ID != roots[0].ID || root.Name != "Root" || len(root.Children) != 1 {
		t.Errorf("root = %+v", root)
	}
	if c := root.Component("custom"); c == nil || strings.Join(c.Args, ",") != "a,b" {
		t.Errorf("custom component = %+v", c)
	}

	if _, err := Unmarshal([]byte{0xff}); err == nil {
		t.Errorf("Unmarshal of garbage succeeded")
	}
}

func TestRecorder(t *testing.T) {
	a := parser.MustParse("fn T(x) { N(m(x)) }\nRoot { T!(1) Missing!() }")
	r := NewRecorder()
	interp.Interpret(a, r)
	want := strings.Join([]string{
		"register_fn T/1 @3..4",
		"set_name Root @20..24",
		"start_children",
		"  set_name N @10..11",
		"  method m(1) @12..13",
		"  spawn_leaf",
		"  unresolved Missing",
		"complete_children",
	}, "\n")
	if r.String() != want {
		t.Errorf("trace:\n%s\nwant:\n%s", r, want)
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"plain"`, "plain"},
		{`'single'`, "single"},
		{`"a\"b"`, `a"b`},
		{`"tab\tnew\nline"`, "tab\tnew\nline"},
		{`bare`, "bare"},
		{`"open`, `"open`},
		{`"`, `"`},
	}
	for _, tc := range tests {
		if got := Unquote(tc.in); got != tc.want {
			t.Errorf("Unquote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
