package lexer

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds for the chirp scene language
// ---------------------------------------------------------------------------

// Kind is the type of a token.
type Kind uint8

const (
	Equal    Kind = iota // =
	LParen               // (
	RParen               // )
	LCurly               // {
	RCurly               // }
	LBracket             // [
	RBracket             // ]
	Comma                // ,
	Ident                // foo, Entity, Btn!, 20%, ui::Node
	String               // "hello", 'world' (quotes included)
)

var kindNames = [...]string{
	Equal:    "=",
	LParen:   "(",
	RParen:   ")",
	LCurly:   "{",
	RCurly:   "}",
	LBracket: "[",
	RBracket: "]",
	Comma:    ",",
	Ident:    "identifier",
	String:   "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsOpen reports whether k opens a nested token tree.
func (k Kind) IsOpen() bool {
	return k == LParen || k == LCurly || k == LBracket
}

// IsClose reports whether k closes a nested token tree.
func (k Kind) IsClose() bool {
	return k == RParen || k == RCurly || k == RBracket
}

// Closer returns the closing kind matching an opening kind.
func (k Kind) Closer() Kind {
	switch k {
	case LParen:
		return RParen
	case LCurly:
		return RCurly
	case LBracket:
		return RBracket
	}
	return k
}

// Token is a lexical token. Bytes borrows from the scanned input; for
// strings it keeps the surrounding quotes.
type Token struct {
	Kind  Kind
	Bytes []byte
}

func (t Token) String() string {
	switch t.Kind {
	case Ident, String:
		if len(t.Bytes) > 20 {
			return fmt.Sprintf("%s(%q...)", t.Kind, t.Bytes[:20])
		}
		return fmt.Sprintf("%s(%q)", t.Kind, t.Bytes)
	}
	return t.Kind.String()
}

// IsIdent reports whether t is an identifier spelled exactly as name.
func (t Token) IsIdent(name string) bool {
	return t.Kind == Ident && string(t.Bytes) == name
}

// punctuation maps single-byte punctuation to its kind.
var punctuation = [256]int8{}

func init() {
	for i := range punctuation {
		punctuation[i] = -1
	}
	punctuation['='] = int8(Equal)
	punctuation['('] = int8(LParen)
	punctuation[')'] = int8(RParen)
	punctuation['{'] = int8(LCurly)
	punctuation['}'] = int8(RCurly)
	punctuation['['] = int8(LBracket)
	punctuation[']'] = int8(RBracket)
	punctuation[','] = int8(Comma)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// IsIdentByte reports whether c may appear in an identifier.
func IsIdentByte(c byte) bool {
	return !isSpace(c) && !isQuote(c) && punctuation[c] < 0
}
