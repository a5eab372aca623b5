package interp

import (
	"bytes"

	"github.com/chazu/chirp/ast"
)

// Parameters is the scope of one template call: the callee's parameter
// names bound to the caller's arguments.
//
// An argument that is itself a parameter name of the caller is forwarded:
// its override holds the caller's effective value, resolved when the scope
// is pushed, so a chain of forwarding calls always yields the outermost
// concrete argument.
type Parameters struct {
	names     [][]byte
	values    []ast.Argument
	overrides [][]byte
}

// NewParameters binds params to args, resolving forwarded arguments against
// caller. caller may be nil for a call from the file's root statement.
//
// Missing arguments leave their parameters unbound; extra arguments are
// ignored.
func NewParameters(params ast.FixedList[ast.IdentOffset], args ast.FixedList[ast.Argument], caller *Parameters) *Parameters {
	n := params.Len()
	p := &Parameters{
		names:     make([][]byte, n),
		values:    make([]ast.Argument, 0, n),
		overrides: make([][]byte, 0, n),
	}
	for i, param := range params.All() {
		p.names[i] = param.Name().Bytes
	}
	for i, arg := range args.All() {
		if i == n {
			break
		}
		p.values = append(p.values, arg)
		raw := arg.Bytes()
		if v, ok := caller.lookup(raw); ok {
			p.overrides = append(p.overrides, v)
		} else {
			p.overrides = append(p.overrides, nil)
		}
	}
	return p
}

// Len returns the number of bound parameters.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Forwarded reports whether parameter i was bound to one of the caller's
// parameters.
func (p *Parameters) Forwarded(i int) bool {
	return p != nil && i < len(p.overrides) && p.overrides[i] != nil
}

// Lookup returns the effective value of the parameter named raw, or raw
// itself when no bound parameter has exactly that name.
func (p *Parameters) Lookup(raw []byte) []byte {
	if v, ok := p.lookup(raw); ok {
		return v
	}
	return raw
}

func (p *Parameters) lookup(raw []byte) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	for i, v := range p.values {
		if !bytes.Equal(p.names[i], raw) {
			continue
		}
		if o := p.overrides[i]; o != nil {
			return o, true
		}
		return v.Bytes(), true
	}
	return nil, false
}
