package scene

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/interp"
	"github.com/chazu/chirp/parser"
)

var log = commonlog.GetLogger("chirp.scene")

// Severity of a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a problem found while building, anchored to the source.
type Diagnostic struct {
	Span     ast.Span
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("byte %d: %s: %s", d.Span.Start, d.Severity, d.Message)
}

// Loader resolves the module of a `use` declaration to its parsed document.
// module is the name as written, with string quotes removed.
type Loader func(module string) (*ast.Ast, error)

// Builder is an interp.Sink that assembles an entity tree. Methods are
// dispatched through a Registry; code(...) statements run registered
// CodeFuncs. Problems are collected as diagnostics rather than stopping the
// walk.
type Builder struct {
	registry *Registry
	loader   Loader

	// Namespace seeds entity IDs. IDs are name-based UUIDs derived from the
	// parent's ID and the entity's position, so rebuilding the same document
	// yields the same IDs.
	Namespace uuid.UUID

	roots     []*Entity
	stack     []*Entity
	pending   *Entity
	templates map[string]interp.Template
	imports   []Import
	modules   map[string]*loadedModule
	scopes    map[*byte]*loadedModule
	diags     []Diagnostic
}

// loadedModule is a document loaded by an import. Calls written inside its
// template bodies resolve against its templates, not against the importing
// document.
type loadedModule struct {
	name      string
	doc       *ast.Ast
	err       error
	templates map[string]interp.Template
}

// Import records one `use` item.
type Import struct {
	Module string
	Name   string
	Alias  string
}

// Local returns the name the item is known by in the importing document.
func (i Import) Local() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

// NewBuilder returns a builder dispatching through r. A nil registry behaves
// like an empty one.
func NewBuilder(r *Registry) *Builder {
	if r == nil {
		r = NewRegistry()
	}
	return &Builder{
		registry:  r,
		Namespace: uuid.NameSpaceURL,
		templates: make(map[string]interp.Template),
		modules:   make(map[string]*loadedModule),
		scopes:    make(map[*byte]*loadedModule),
	}
}

// SetLoader enables resolution of imports. Without a loader imports are
// only recorded.
func (b *Builder) SetLoader(l Loader) {
	b.loader = l
}

// Build interprets a into b and returns the root entities.
func (b *Builder) Build(a *ast.Ast) []*Entity {
	interp.Interpret(a, b)
	if len(b.stack) != 0 {
		// Interpret always balances children; reaching here is a bug.
		b.errorf(ast.Span{}, "unbalanced children: %d still open", len(b.stack))
		b.stack = b.stack[:0]
	}
	return b.roots
}

func (b *Builder) Roots() []*Entity          { return b.roots }
func (b *Builder) Imports() []Import         { return b.imports }
func (b *Builder) Diagnostics() []Diagnostic { return b.diags }

// Err returns the error diagnostics joined, or nil.
func (b *Builder) Err() error {
	var errs []error
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			errs = append(errs, errors.New(d.String()))
		}
	}
	return errors.Join(errs...)
}

// Templates returns the names of the registered templates.
func (b *Builder) Templates() []string {
	names := make([]string, 0, len(b.templates))
	for name := range b.templates {
		names = append(names, name)
	}
	return names
}

func (b *Builder) errorf(span ast.Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Span: span, Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (b *Builder) warnf(span ast.Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Span: span, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// ---------------------------------------------------------------------------
// Entity lifecycle
// ---------------------------------------------------------------------------

func (b *Builder) parent() *Entity {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// current returns the entity being spawned, creating it on first use.
func (b *Builder) current() *Entity {
	if b.pending == nil {
		b.pending = &Entity{}
	}
	return b.pending
}

// attach assigns the pending entity its ID and links it into the tree.
func (b *Builder) attach() *Entity {
	e := b.current()
	b.pending = nil

	ns, index := b.Namespace, len(b.roots)
	if p := b.parent(); p != nil {
		ns, index = p.ID, len(p.Children)
		p.Children = append(p.Children, e)
	} else {
		b.roots = append(b.roots, e)
	}
	e.ID = uuid.NewSHA1(ns, []byte(strconv.Itoa(index)+"/"+e.Name))
	return e
}

// ---------------------------------------------------------------------------
// interp.Sink
// ---------------------------------------------------------------------------

func (b *Builder) Import(module, name, alias ast.Name) {
	imp := Import{Module: Unquote(module.String()), Name: name.String(), Alias: alias.String()}
	b.imports = append(b.imports, imp)
	if b.loader == nil {
		return
	}

	m := b.load(imp.Module)
	if m.err != nil {
		b.errorf(module.Span, "cannot load %s: %v", imp.Module, m.err)
		return
	}
	t, ok := m.templates[imp.Name]
	if !ok {
		b.errorf(name.Span, "%s does not declare template %s", imp.Module, imp.Name)
		return
	}
	b.define(imp.Local(), name.Span, t)
}

// load returns the module named name, loading it and its own imports on
// first use. A module's load error is reported once per importing item.
func (b *Builder) load(name string) *loadedModule {
	if m, ok := b.modules[name]; ok {
		return m
	}
	m := &loadedModule{name: name, templates: make(map[string]interp.Template)}
	b.modules[name] = m // before recursing, so import cycles terminate

	m.doc, m.err = b.loader(name)
	if m.err != nil {
		return m
	}
	file := m.doc.File()
	for imp := range file.Imports().All() {
		dep := b.load(Unquote(imp.Module().String()))
		if dep.err != nil {
			log.Warningf("%s: cannot load %s: %v", name, dep.name, dep.err)
			continue
		}
		local := imp.Name().String()
		if !imp.Alias().Absent() {
			local = imp.Alias().String()
		}
		if t, ok := dep.templates[imp.Name().String()]; ok {
			m.templates[local] = t
		} else {
			log.Warningf("%s: %s does not declare template %s", name, dep.name, imp.Name())
		}
	}
	for fn := range file.Fns().All() {
		m.templates[fn.Name().String()] = interp.NewTemplate(fn)
	}
	if len(m.doc.Input) > 0 {
		b.scopes[&m.doc.Input[0]] = m
	}
	return m
}

func (b *Builder) RegisterFn(name ast.Name, t interp.Template) {
	b.define(name.String(), name.Span, t)
}

func (b *Builder) define(name string, span ast.Span, t interp.Template) {
	if _, dup := b.templates[name]; dup {
		b.warnf(span, "template %s redefined", name)
	}
	b.templates[name] = t
}

func (b *Builder) GetTemplate(name []byte) (interp.Template, bool) {
	t, ok := b.templates[string(name)]
	if !ok {
		log.Warningf("unknown template %s", name)
	}
	return t, ok
}

// ResolveTemplate looks a call up in the templates of the document it is
// written in. Calls in the built document go through GetTemplate.
func (b *Builder) ResolveTemplate(call ast.Template) (interp.Template, bool) {
	if src := call.Input(); len(src) > 0 {
		if m, ok := b.scopes[&src[0]]; ok {
			t, ok := m.templates[string(call.TemplateName())]
			if !ok {
				log.Warningf("%s: unknown template %s", m.name, call.TemplateName())
			}
			return t, ok
		}
	}
	return b.GetTemplate(call.TemplateName())
}

func (b *Builder) Code(name ast.Name) {
	fn, ok := b.registry.lookupCode(name.String())
	if !ok {
		b.errorf(name.Span, "unknown code block %s", name)
		return
	}
	if err := fn(b, b.parent()); err != nil {
		b.errorf(name.Span, "code(%s): %v", name, err)
	}
}

func (b *Builder) SetName(name ast.Name) {
	b.current().Name = Unquote(name.String())
}

func (b *Builder) Method(name ast.Name, args *interp.Arguments) {
	e := b.current()
	m, ok := b.registry.lookupMethod(name.String())
	if !ok {
		e.Components = append(e.Components, &Component{Name: name.String(), Args: args.Strings(), Span: name.Span})
		return
	}

	var items []string
	var err error
	if m.arity == Variadic {
		items, err = parser.SplitAll(args.Joined())
	} else {
		items, err = parser.Split(args.Joined(), m.arity)
	}
	if err != nil {
		var cm *parser.CountMismatchError
		if errors.As(err, &cm) {
			b.errorf(name.Span, "%s takes %d arguments, got %d", name, cm.Want, cm.Got)
		} else {
			b.errorf(name.Span, "%s: %v", name, err)
		}
		return
	}
	if err := m.fn(e, items); err != nil {
		b.errorf(name.Span, "%v", err)
	}
}

func (b *Builder) StartChildren() {
	e := b.attach()
	b.stack = append(b.stack, e)
}

func (b *Builder) CompleteChildren() {
	if len(b.stack) == 0 {
		return
	}
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *Builder) SpawnLeaf() {
	b.attach()
}
