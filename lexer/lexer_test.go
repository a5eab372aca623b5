package lexer

import (
	"testing"
)

func scanAll(input string) []Token {
	var toks []Token
	b := []byte(input)
	for {
		tok, ok := NextToken(&b)
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerPunctuation(t *testing.T) {
	input := `= ( ) { } [ ] ,`
	expected := []Kind{Equal, LParen, RParen, LCurly, RCurly, LBracket, RBracket, Comma}

	toks := scanAll(input)
	if len(toks) != len(expected) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(expected))
	}
	for i, want := range expected {
		if toks[i].Kind != want {
			t.Errorf("token[%d] kind = %v, want %v", i, toks[i].Kind, want)
		}
		if string(toks[i].Bytes) != want.String() {
			t.Errorf("token[%d] bytes = %q, want %q", i, toks[i].Bytes, want.String())
		}
	}
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []Kind
		lits  []string
	}{
		{"ident", "Name", []Kind{Ident}, []string{"Name"}},
		{"template", "Btn!(x)", []Kind{Ident, LParen, Ident, RParen}, []string{"Btn!", "(", "x", ")"}},
		{"path", "ui::Node", []Kind{Ident}, []string{"ui::Node"}},
		{"percent", "20% 21px", []Kind{Ident, Ident}, []string{"20%", "21px"}},
		{"string", `"hello"`, []Kind{String}, []string{`"hello"`}},
		{"single quoted", `'hi there'`, []Kind{String}, []string{`'hi there'`}},
		{"escaped quote", `"a\"b"`, []Kind{String}, []string{`"a\"b"`}},
		{"escaped backslash", `"a\\" b`, []Kind{String, Ident}, []string{`"a\\"`, "b"}},
		{"unterminated", `"abc`, []Kind{String}, []string{`"abc`}},
		{"ident stops at quote", `a"b"`, []Kind{Ident, String}, []string{"a", `"b"`}},
		{"ident stops at punct", "a=b", []Kind{Ident, Equal, Ident}, []string{"a", "=", "b"}},
		{"comment", "// hi\nName\n// bye\n", []Kind{Ident}, []string{"Name"}},
		{"comment at eof", "Name // trailing", []Kind{Ident}, []string{"Name"}},
		{"lone slash", "/ Name", []Kind{Ident}, []string{"Name"}},
		{"slash inside ident", "a/b", []Kind{Ident}, []string{"a/b"}},
		{"whitespace", " \t\r\n Name \t", []Kind{Ident}, []string{"Name"}},
		{"empty", "", nil, nil},
		{"only comments", "// one\n// two", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks := scanAll(tc.input)
			if len(toks) != len(tc.kinds) {
				t.Fatalf("Lexer(%q): got %d tokens %v, want %d", tc.input, len(toks), toks, len(tc.kinds))
			}
			for i := range toks {
				if toks[i].Kind != tc.kinds[i] {
					t.Errorf("token[%d] kind = %v, want %v", i, toks[i].Kind, tc.kinds[i])
				}
				if string(toks[i].Bytes) != tc.lits[i] {
					t.Errorf("token[%d] bytes = %q, want %q", i, toks[i].Bytes, tc.lits[i])
				}
			}
		})
	}
}

func TestScanOffsets(t *testing.T) {
	input := []byte("  foo  (bar)")
	tok, start, next, ok := Scan(input, 0)
	if !ok || tok.Kind != Ident {
		t.Fatalf("Scan = %v, %v; want identifier", tok, ok)
	}
	if start != 2 || next != 5 {
		t.Errorf("Scan offsets = (%d, %d), want (2, 5)", start, next)
	}

	tok, start, next, _ = Scan(input, next)
	if tok.Kind != LParen || start != 7 || next != 8 {
		t.Errorf("second Scan = %v (%d, %d), want ( (7, 8)", tok, start, next)
	}
}

func TestSkipSpace(t *testing.T) {
	tests := []struct {
		input string
		off   int
		want  int
	}{
		{"abc", 0, 0},
		{"   abc", 0, 3},
		{"// c\nabc", 0, 5},
		{"// c", 0, 4},
		{"a   ", 1, 4},
		{"/ /x", 0, 3},
	}
	for _, tc := range tests {
		if got := SkipSpace([]byte(tc.input), tc.off); got != tc.want {
			t.Errorf("SkipSpace(%q, %d) = %d, want %d", tc.input, tc.off, got, tc.want)
		}
	}
}

func TestTokenAt(t *testing.T) {
	input := []byte(`Name(method("x"))`)
	tok, start, ok := TokenAt(input, 12)
	if !ok || tok.Kind != String || string(tok.Bytes) != `"x"` || start != 12 {
		t.Errorf("TokenAt(12) = %v at %d, want string \"x\" at 12", tok, start)
	}
	if tok, start, ok := TokenAt(input, 11); !ok || tok.Kind != LParen || start != 11 {
		t.Errorf("TokenAt(11) = %v at %d, want ( at 11", tok, start)
	}
	if _, _, ok := TokenAt(input, -1); ok {
		t.Error("TokenAt(-1) should fail")
	}
	if _, _, ok := TokenAt(input, len(input)); ok {
		t.Error("TokenAt(len) should report no token")
	}
}
