package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/diag"
)

// ---------------------------------------------------------------------------
// Text helpers
// ---------------------------------------------------------------------------

func TestPrefixAt(t *testing.T) {
	tests := []struct {
		name string
		text string
		off  int
		want string
	}{
		{"simple word", "Root { Btn", 10, "Btn"},
		{"at start", "Obj", 3, "Obj"},
		{"empty", "", 0, ""},
		{"cursor at beginning", "hello", 0, ""},
		{"after paren", "Root(posi", 9, "posi"},
		{"template bang", "Root { Button!", 14, "Button!"},
		{"namespaced", "ui::No", 6, "ui::No"},
		{"past end", "abc", 99, "abc"},
		{"inside string stops at quote", `name("lab`, 9, "lab"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := prefixAt([]byte(tc.text), tc.off); got != tc.want {
				t.Errorf("prefixAt(%q, %d) = %q, want %q", tc.text, tc.off, got, tc.want)
			}
		})
	}
}

func TestWordAt(t *testing.T) {
	tests := []struct {
		name string
		text string
		off  int
		want string
	}{
		{"middle", "hello world", 3, "hello"},
		{"at end of word", "hello world", 5, "hello"},
		{"second word", "hello world", 8, "world"},
		{"empty", "", 0, ""},
		{"template call", "Root { Button!(x) }", 9, "Button!"},
		{"method before paren", "Root(scale(2))", 7, "scale"},
		{"on brace", "A { }", 2, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := wordAt([]byte(tc.text), tc.off); got != tc.want {
				t.Errorf("wordAt(%q, %d) = %q, want %q", tc.text, tc.off, got, tc.want)
			}
		})
	}
}

func TestToRangeUTF16(t *testing.T) {
	x := diag.NewIndex([]byte("A {\n  \"😀\" B()\n}"))
	r := toRange(x, ast.Span{Start: 11, End: 12})
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 5},
		End:   protocol.Position{Line: 1, Character: 6},
	}
	if r != want {
		t.Errorf("toRange = %+v, want %+v", r, want)
	}
	if got := offset(x, want.Start); got != 11 {
		t.Errorf("offset(%+v) = %d, want 11", want.Start, got)
	}
	if toRange(nil, ast.Span{Start: 3, End: 4}) != (protocol.Range{}) {
		t.Error("toRange(nil) should be the zero range")
	}
}

// ---------------------------------------------------------------------------
// Protocol conversion
// ---------------------------------------------------------------------------

func TestDiagnosticsParseError(t *testing.T) {
	w := NewWorkspace(nil, nil, nil)
	doc := w.Update("file:///a.chirp", "Root {\n  A(\n}")
	ds := diagnostics(doc)
	if len(ds) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(ds))
	}
	d := ds[0]
	if *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *d.Severity)
	}
	// The error sits just past the unclosed "A(" on the second line.
	if d.Range.Start.Line != 1 {
		t.Errorf("range = %+v, want line 1", d.Range)
	}
	if !strings.Contains(d.Message, "help:") {
		t.Errorf("message %q should carry help text", d.Message)
	}
}

func TestDiagnosticsBuild(t *testing.T) {
	w := NewWorkspace(nil, nil, nil)
	doc := w.Update("file:///a.chirp", "Root {\n  A(scale(1, 2))\n  Nope!()\n}")
	ds := diagnostics(doc)
	if len(ds) != 2 {
		t.Fatalf("diagnostics = %+v, want 2", ds)
	}
	if *ds[0].Severity != protocol.DiagnosticSeverityError || !strings.Contains(ds[0].Message, "scale takes 1 arguments") {
		t.Errorf("first diagnostic = %q", ds[0].Message)
	}
	if *ds[1].Severity != protocol.DiagnosticSeverityWarning || ds[1].Message != "unknown template Nope" {
		t.Errorf("second diagnostic = %q", ds[1].Message)
	}
	if ds[1].Range.Start != (protocol.Position{Line: 2, Character: 2}) {
		t.Errorf("second range = %+v", ds[1].Range)
	}

	clean := w.Update("file:///b.chirp", "Root()")
	if ds := diagnostics(clean); ds == nil || len(ds) != 0 {
		t.Errorf("clean document diagnostics = %#v, want empty non-nil", ds)
	}
}

func TestCompletionItems(t *testing.T) {
	items := completionItems([]Candidate{
		{Label: "Button!", Kind: "template", Detail: "fn Button(label)", Insert: "Button!("},
		{Label: "scale", Kind: "method", Detail: "method", Insert: "scale("},
		{Label: "use", Kind: "keyword", Insert: "use"},
	})
	kinds := []protocol.CompletionItemKind{
		protocol.CompletionItemKindFunction,
		protocol.CompletionItemKindMethod,
		protocol.CompletionItemKindKeyword,
	}
	for i, item := range items {
		if *item.Kind != kinds[i] {
			t.Errorf("items[%d].Kind = %v, want %v", i, *item.Kind, kinds[i])
		}
	}
	if items[2].Detail != nil {
		t.Errorf("keyword should have no detail")
	}
	if *items[0].InsertText != "Button!(" {
		t.Errorf("insert text = %q", *items[0].InsertText)
	}
}

func TestHover(t *testing.T) {
	w := NewWorkspace(nil, nil, nil)
	src := "fn Button(label, size) { Btn(text(label)) }\nRoot { Button!(ok, 2) Other(scale(2)) }"
	doc := w.Update("file:///h.chirp", src)

	h := hover(w, doc, strings.Index(src, "Button!")+2)
	if h == nil {
		t.Fatal("no hover on template call")
	}
	if v := h.Contents.(protocol.MarkupContent).Value; !strings.Contains(v, "fn Button(label, size)") {
		t.Errorf("hover = %q", v)
	}

	h = hover(w, doc, strings.Index(src, "scale")+1)
	if h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "method `scale`") {
		t.Errorf("hover on method = %+v", h)
	}

	if h := hover(w, doc, strings.Index(src, "Other")+1); h != nil {
		t.Errorf("hover on plain entity name = %+v, want nil", h)
	}
}

func TestSymbols(t *testing.T) {
	w := NewWorkspace(nil, nil, nil)
	doc := w.Update("file:///s.chirp", "fn Card(t) { Panel { Title(text(t)) } }\nScene {\n  \"Main Menu\" { Card!(a) code(init) }\n  (visible(true))\n}")
	syms := symbols(doc)
	if len(syms) != 2 {
		t.Fatalf("got %d top-level symbols, want 2", len(syms))
	}

	card := syms[0]
	if card.Name != "Card" || card.Kind != protocol.SymbolKindFunction || *card.Detail != "fn Card(t)" {
		t.Errorf("template symbol = %+v", card)
	}
	if len(card.Children) != 1 || card.Children[0].Name != "Panel" || card.Children[0].Children[0].Name != "Title" {
		t.Errorf("template body symbols = %+v", card.Children)
	}

	scene := syms[1]
	if scene.Name != "Scene" || len(scene.Children) != 2 {
		t.Fatalf("root symbol = %+v", scene)
	}
	menu := scene.Children[0]
	if menu.Name != "Main Menu" || len(menu.Children) != 2 {
		t.Errorf("named child = %+v", menu)
	}
	if menu.Children[0].Name != "Card!" || menu.Children[1].Kind != protocol.SymbolKindEvent {
		t.Errorf("grandchildren = %+v", menu.Children)
	}
	if scene.Children[1].Name != "visible" {
		t.Errorf("anonymous spawn anchored at %q, want its first method", scene.Children[1].Name)
	}
}
