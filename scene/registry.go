package scene

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Variadic registers a method that accepts any number of arguments.
const Variadic = -1

// MethodFunc applies a method to e. args are the method's arguments after
// parameter substitution, split with parser.Split to exactly the registered
// arity.
type MethodFunc func(e *Entity, args []string) error

// CodeFunc runs a host code block. parent is the entity whose children
// block contains the code(...) statement, or nil at the root.
type CodeFunc func(b *Builder, parent *Entity) error

type method struct {
	arity int
	fn    MethodFunc
}

// Registry maps method and code-block names to host functions. It is safe
// for concurrent use, so one registry can serve many builders.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]method
	code    map[string]CodeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		methods: make(map[string]method),
		code:    make(map[string]CodeFunc),
	}
}

// Register binds a method name. arity is the exact argument count, or
// Variadic.
func (r *Registry) Register(name string, arity int, fn MethodFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = method{arity: arity, fn: fn}
}

// RegisterCode binds a code block name.
func (r *Registry) RegisterCode(name string, fn CodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code[name] = fn
}

func (r *Registry) lookupMethod(name string) (method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

func (r *Registry) lookupCode(name string) (CodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.code[name]
	return fn, ok
}

// Methods returns the registered method names.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}

// ---------------------------------------------------------------------------
// Built-in methods
// ---------------------------------------------------------------------------

// DefaultRegistry returns a registry with the built-in methods:
//
//	name(text)          renames the entity
//	position(x, y, z)   three floats
//	scale(s)            one float
//	visible(bool)
//	tags(a, b, ...)     any number of identifiers or strings
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("name", 1, func(e *Entity, args []string) error {
		e.Name = Unquote(args[0])
		return nil
	})
	r.Register("position", 3, floatsMethod("position"))
	r.Register("scale", 1, floatsMethod("scale"))
	r.Register("visible", 1, func(e *Entity, args []string) error {
		v, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("visible: %q is not a boolean", args[0])
		}
		e.Set(&Component{Name: "visible", Value: v})
		return nil
	})
	r.Register("tags", Variadic, func(e *Entity, args []string) error {
		tags := make([]string, len(args))
		for i, a := range args {
			tags[i] = Unquote(a)
		}
		e.Set(&Component{Name: "tags", Value: tags})
		return nil
	})
	return r
}

func floatsMethod(name string) MethodFunc {
	return func(e *Entity, args []string) error {
		vals := make([]float64, len(args))
		for i, a := range args {
			f, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("%s: argument %d: %q is not a number", name, i+1, a)
			}
			vals[i] = f
		}
		if len(vals) == 1 {
			e.Set(&Component{Name: name, Value: vals[0]})
		} else {
			e.Set(&Component{Name: name, Value: vals})
		}
		return nil
	}
}

// Unquote strips one pair of matching quotes from a string literal and
// resolves backslash escapes. Other text is returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
