package interp

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/chirp/ast"
)

var log = commonlog.GetLogger("chirp.interp")

// MaxDepth bounds nested template calls. A call beyond it is skipped and
// logged, so a template that calls itself terminates.
const MaxDepth = 256

// Interpret walks a parsed file and reports it to sink: every import, every
// template declaration, then the root statement.
func Interpret(a *ast.Ast, sink Sink) {
	f := a.File()
	for _, imp := range f.Imports().All() {
		sink.Import(imp.Module(), imp.Name(), imp.Alias())
	}
	for fn := range f.Fns().All() {
		sink.RegisterFn(fn.Name(), NewTemplate(fn))
	}
	in := &interpreter{sink: sink}
	in.statement(f.Root(), nil, nil)
}

// InterpretStatement walks a single statement with no parameters in scope.
// Template calls resolve through sink as usual.
func InterpretStatement(st ast.Statement, sink Sink) {
	in := &interpreter{sink: sink}
	in.statement(st, nil, nil)
}

type interpreter struct {
	sink  Sink
	depth int
}

// frame is one enclosing template call whose extras apply to the root spawn
// of the body being walked. scope is the caller's scope, used to substitute
// inside the extras.
type frame struct {
	call   ast.Template
	scope  *Parameters
	parent *frame
}

// statement walks st. chain is non-nil only while st is the root statement
// of a template body.
func (in *interpreter) statement(st ast.Statement, scope *Parameters, chain *frame) {
	switch st.Kind() {
	case ast.KindSpawn:
		sp, _ := st.Spawn()
		in.spawn(sp, scope, chain)
	case ast.KindTemplate:
		t, _ := st.Template()
		in.template(t, scope, chain)
	case ast.KindCode:
		c, _ := st.Code()
		if chain.hasExtras() {
			log.Debugf("ignoring template extras on code(%s)", c.Name())
		}
		in.sink.Code(c.Name())
	}
}

func (in *interpreter) template(t ast.Template, scope *Parameters, chain *frame) {
	name := t.TemplateName()
	tmpl, ok := in.resolve(t)
	if !ok {
		log.Debugf("skipping unresolved template %s", name)
		return
	}
	if in.depth >= MaxDepth {
		log.Errorf("template %s: nesting deeper than %d, skipped", name, MaxDepth)
		return
	}

	params := tmpl.Fn().Params()
	args := t.Args()
	switch {
	case args.Len() < params.Len():
		log.Warningf("template %s takes %d arguments, called with %d; missing parameters stay unbound", name, params.Len(), args.Len())
	case args.Len() > params.Len():
		log.Warningf("template %s takes %d arguments, called with %d; extra arguments ignored", name, params.Len(), args.Len())
	}

	inner := NewParameters(params, args, scope)
	in.depth++
	in.statement(tmpl.Fn().Body(), inner, &frame{call: t, scope: scope, parent: chain})
	in.depth--
}

func (in *interpreter) resolve(t ast.Template) (Template, bool) {
	if r, ok := in.sink.(TemplateResolver); ok {
		return r.ResolveTemplate(t)
	}
	return in.sink.GetTemplate(t.TemplateName())
}

// spawn emits one spawn. Extras from the template call chain are applied
// innermost call first, after the spawn's own methods and children.
func (in *interpreter) spawn(sp ast.Spawn, scope *Parameters, chain *frame) {
	if name := sp.Name(); !name.Absent() {
		in.sink.SetName(name)
	}

	for m := range sp.Methods().All() {
		in.method(m, scope)
	}
	for f := chain; f != nil; f = f.parent {
		for m := range f.call.Methods().All() {
			in.method(m, f.scope)
		}
	}

	if sp.Children().Empty() && !chain.hasChildren() {
		in.sink.SpawnLeaf()
		return
	}

	in.sink.StartChildren()
	for c := range sp.Children().All() {
		in.statement(c, scope, nil)
	}
	for f := chain; f != nil; f = f.parent {
		for c := range f.call.Children().All() {
			in.statement(c, f.scope, nil)
		}
	}
	in.sink.CompleteChildren()
}

func (in *interpreter) method(m ast.Method, scope *Parameters) {
	in.sink.Method(m.Name(), NewArguments(m, scope))
}

func (f *frame) hasChildren() bool {
	for ; f != nil; f = f.parent {
		if !f.call.Children().Empty() {
			return true
		}
	}
	return false
}

func (f *frame) hasExtras() bool {
	for ; f != nil; f = f.parent {
		if !f.call.Methods().Empty() || !f.call.Children().Empty() {
			return true
		}
	}
	return false
}
