package scene

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/chirp/ast"
)

// Entity is one spawned node of a scene.
type Entity struct {
	ID         uuid.UUID    `cbor:"id" json:"id"`
	Name       string       `cbor:"name,omitempty" json:"name,omitempty"`
	Components []*Component `cbor:"components,omitempty" json:"components,omitempty"`
	Children   []*Entity    `cbor:"children,omitempty" json:"children,omitempty"`
}

// Component is the result of one method applied to an entity. Methods
// without a registered handler keep their arguments as written; handlers
// may store a decoded Value instead.
type Component struct {
	Name  string   `cbor:"name" json:"name"`
	Args  []string `cbor:"args,omitempty" json:"args,omitempty"`
	Value any      `cbor:"value,omitempty" json:"value,omitempty"`
	Span  ast.Span `cbor:"-" json:"-"`
}

// Component returns the last component with the given name, or nil.
func (e *Entity) Component(name string) *Component {
	for i := len(e.Components) - 1; i >= 0; i-- {
		if e.Components[i].Name == name {
			return e.Components[i]
		}
	}
	return nil
}

// Set adds or replaces the named component.
func (e *Entity) Set(c *Component) {
	for i, old := range e.Components {
		if old.Name == c.Name {
			e.Components[i] = c
			return
		}
	}
	e.Components = append(e.Components, c)
}

// Walk calls fn for e and every descendant, depth first. Returning false
// skips the entity's children.
func (e *Entity) Walk(fn func(e *Entity, depth int) bool) {
	e.walk(fn, 0)
}

func (e *Entity) walk(fn func(*Entity, int) bool, depth int) {
	if !fn(e, depth) {
		return
	}
	for _, c := range e.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of entities in the tree rooted at e.
func (e *Entity) Count() int {
	n := 0
	e.Walk(func(*Entity, int) bool {
		n++
		return true
	})
	return n
}

// Fprint writes an indented outline of roots.
func Fprint(w io.Writer, roots []*Entity) error {
	var err error
	for _, root := range roots {
		root.Walk(func(e *Entity, depth int) bool {
			if err != nil {
				return false
			}
			name := e.Name
			if name == "" {
				name = "<anonymous>"
			}
			_, err = fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), name, formatComponents(e.Components))
			return true
		})
	}
	return err
}

func formatComponents(cs []*Component) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		switch {
		case c.Value != nil:
			parts[i] = fmt.Sprintf("%s=%v", c.Name, c.Value)
		case len(c.Args) > 0:
			parts[i] = c.Name + "(" + strings.Join(c.Args, ", ") + ")"
		default:
			parts[i] = c.Name
		}
	}
	return " [" + strings.Join(parts, " ") + "]"
}
