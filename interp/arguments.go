package interp

import (
	"strings"

	"github.com/chazu/chirp/ast"
)

// Arguments is the argument list handed to Sink.Method. Get applies
// parameter substitution; Raw does not.
type Arguments struct {
	list  ast.FixedList[ast.Argument]
	scope *Parameters
}

// NewArguments returns the arguments of m as seen from scope.
func NewArguments(m ast.Method, scope *Parameters) *Arguments {
	return &Arguments{list: m.Args(), scope: scope}
}

func (a *Arguments) Len() int {
	return a.list.Len()
}

// Get returns argument i after substitution: when the whole argument is the
// name of a parameter in scope, its bound value replaces it. ok is false
// when i is out of range.
func (a *Arguments) Get(i int) ([]byte, bool) {
	raw, ok := a.Raw(i)
	if !ok {
		return nil, false
	}
	return a.scope.Lookup(raw), true
}

// Raw returns argument i as written.
func (a *Arguments) Raw(i int) ([]byte, bool) {
	if i < 0 || i >= a.list.Len() {
		return nil, false
	}
	return a.list.At(i).Bytes(), true
}

// Span returns the source span of argument i as written.
func (a *Arguments) Span(i int) ast.Span {
	if i < 0 || i >= a.list.Len() {
		return ast.Span{}
	}
	return a.list.At(i).Span()
}

// String returns argument i after substitution, or "" when out of range.
func (a *Arguments) String(i int) string {
	b, _ := a.Get(i)
	return string(b)
}

// Strings returns every argument after substitution.
func (a *Arguments) Strings() []string {
	out := make([]string, a.Len())
	for i := range out {
		out[i] = a.String(i)
	}
	return out
}

// Joined returns the substituted arguments as one parenthesized list, the
// form parser.Split accepts.
func (a *Arguments) Joined() string {
	return "(" + strings.Join(a.Strings(), ", ") + ")"
}
