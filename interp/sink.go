package interp

import "github.com/chazu/chirp/ast"

// Sink consumes the callbacks produced by Interpret. Implementations build
// whatever the document describes: an entity tree, a trace, diagnostics.
//
// Names carry their byte span in the input so a sink can report problems
// against the source. A sink must not retain Arguments past the Method call.
type Sink interface {
	// Import declares one imported item. alias is absent when the item was
	// not renamed.
	Import(module, name, alias ast.Name)

	// RegisterFn registers a template declaration under its name.
	RegisterFn(name ast.Name, t Template)

	// GetTemplate resolves a call-site name (without '!') to a template.
	GetTemplate(name []byte) (Template, bool)

	Code(name ast.Name)
	SetName(name ast.Name)
	Method(name ast.Name, args *Arguments)

	// StartChildren enters the children block of the current spawn;
	// CompleteChildren leaves it.
	StartChildren()
	CompleteChildren()

	// SpawnLeaf completes a spawn that has no children. It is equivalent to
	// StartChildren followed by CompleteChildren.
	SpawnLeaf()
}

// TemplateResolver is implemented by sinks that resolve template calls per
// document. When the sink implements it, Interpret calls ResolveTemplate
// instead of GetTemplate. call.Input() identifies the document the call is
// written in: inside a template loaded from another document that is the
// other document, not the one being interpreted.
type TemplateResolver interface {
	ResolveTemplate(call ast.Template) (Template, bool)
}

// Nop implements every Sink callback as a no-op. Embed it to implement only
// the callbacks you need. Its GetTemplate never resolves anything.
type Nop struct{}

func (Nop) Import(module, name, alias ast.Name)      {}
func (Nop) RegisterFn(name ast.Name, t Template)     {}
func (Nop) GetTemplate(name []byte) (Template, bool) { return Template{}, false }
func (Nop) Code(name ast.Name)                       {}
func (Nop) SetName(name ast.Name)                    {}
func (Nop) Method(name ast.Name, args *Arguments)    {}
func (Nop) StartChildren()                           {}
func (Nop) CompleteChildren()                        {}
func (Nop) SpawnLeaf()                               {}

// Template is the handle a sink stores for a registered template. It is only
// meaningful together with the Ast it came from.
type Template struct {
	fn ast.Fn
	ok bool
}

// NewTemplate wraps a declaration. Interpret does this for every Fn in a
// file; sinks that load templates from other documents use it directly.
func NewTemplate(fn ast.Fn) Template {
	return Template{fn: fn, ok: true}
}

// Valid reports whether the handle refers to a declaration.
func (t Template) Valid() bool {
	return t.ok
}

// Name returns the declared name.
func (t Template) Name() ast.Name {
	return t.fn.Name()
}

// Arity returns the number of declared parameters.
func (t Template) Arity() int {
	return t.fn.Params().Len()
}

// Fn returns the underlying declaration view.
func (t Template) Fn() ast.Fn {
	return t.fn
}
