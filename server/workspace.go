package server

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/cache"
	"github.com/chazu/chirp/diag"
	"github.com/chazu/chirp/manifest"
	"github.com/chazu/chirp/parser"
	"github.com/chazu/chirp/scene"
)

// Document is the analysis of one open editor buffer.
type Document struct {
	URI   string
	Path  string // filesystem path, empty for non-file URIs
	Text  []byte
	Index *diag.Index

	Ast *ast.Ast // nil when parsing failed
	Err error    // parse error

	Diagnostics []scene.Diagnostic
	Templates   map[string]Definition
	Entities    int
}

// Definition locates a template declaration, local or imported.
type Definition struct {
	Name   string
	Params []string
	URI    string
	Span   ast.Span
	Index  *diag.Index
	Module string // empty for local templates
}

// Signature renders the definition as `fn Name(a, b)`.
func (d Definition) Signature() string {
	return "fn " + d.Name + "(" + strings.Join(d.Params, ", ") + ")"
}

// module is an imported document loaded during analysis.
type module struct {
	uri   string
	index *diag.Index
	ast   *ast.Ast
}

// Workspace holds the open documents and the services used to analyse them.
// It is not safe for concurrent use; the Worker serializes access.
type Workspace struct {
	registry *scene.Registry
	resolver *manifest.Resolver
	store    *cache.Store
	docs     map[string]*Document
}

// NewWorkspace creates a workspace. m and store may be nil; without a
// manifest imports resolve relative to the importing file only.
func NewWorkspace(m *manifest.Manifest, store *cache.Store, r *scene.Registry) *Workspace {
	if r == nil {
		r = scene.DefaultRegistry()
	}
	w := &Workspace{
		registry: r,
		store:    store,
		docs:     make(map[string]*Document),
	}
	if m != nil {
		w.resolver = manifest.NewResolver(m)
	}
	return w
}

// Document returns the analysis of uri, or nil if it is not open.
func (w *Workspace) Document(uri string) *Document {
	return w.docs[uri]
}

// Close forgets uri.
func (w *Workspace) Close(uri string) {
	delete(w.docs, uri)
}

// URIs returns the open documents in sorted order.
func (w *Workspace) URIs() []string {
	uris := make([]string, 0, len(w.docs))
	for uri := range w.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

func (w *Workspace) parse(src []byte) (*ast.Ast, error) {
	if w.store != nil {
		return w.store.Parse(src)
	}
	return parser.Parse(src)
}

// Update replaces the text of uri and reanalyses it.
func (w *Workspace) Update(uri, text string) *Document {
	doc := &Document{
		URI:       uri,
		Path:      uriToPath(uri),
		Text:      []byte(text),
		Templates: make(map[string]Definition),
	}
	doc.Index = diag.NewIndex(doc.Text)
	w.docs[uri] = doc

	doc.Ast, doc.Err = w.parse(doc.Text)
	if doc.Err != nil {
		log.Debugf("%s: %s", uri, doc.Err)
		return doc
	}

	modules := make(map[string]*module)
	b := scene.NewBuilder(w.registry)
	b.SetLoader(func(name string) (*ast.Ast, error) {
		m, err := w.load(doc.Path, name)
		if err != nil {
			return nil, err
		}
		modules[name] = m
		return m.ast, nil
	})
	for _, root := range b.Build(doc.Ast) {
		doc.Entities += root.Count()
	}
	doc.Diagnostics = append(doc.Diagnostics, b.Diagnostics()...)

	file := doc.Ast.File()
	for fn := range file.Fns().All() {
		doc.Templates[fn.Name().String()] = definitionOf(fn, uri, doc.Index, "")
	}
	for _, imp := range b.Imports() {
		m, ok := modules[imp.Module]
		if !ok {
			continue
		}
		for fn := range m.ast.File().Fns().All() {
			if fn.Name().String() == imp.Name {
				def := definitionOf(fn, m.uri, m.index, imp.Module)
				def.Name = imp.Local()
				doc.Templates[imp.Local()] = def
			}
		}
	}

	doc.Diagnostics = append(doc.Diagnostics, unknownTemplates(file, doc.Templates)...)
	return doc
}

// load resolves and parses an imported module.
func (w *Workspace) load(fromPath, name string) (*module, error) {
	var path string
	var err error
	switch {
	case w.resolver != nil:
		path, err = w.resolver.Resolve(fromPath, name)
	case fromPath != "":
		path = filepath.Join(filepath.Dir(fromPath), name)
		if _, serr := os.Stat(path); serr != nil {
			err = manifest.ErrModuleNotFound
		}
	default:
		err = errors.New("document has no path to resolve imports from")
	}
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := w.parse(src)
	if err != nil {
		return nil, err
	}
	return &module{uri: pathToURI(path), index: diag.NewIndex(src), ast: a}, nil
}

func definitionOf(fn ast.Fn, uri string, index *diag.Index, mod string) Definition {
	def := Definition{
		Name:   fn.Name().String(),
		URI:    uri,
		Span:   fn.Name().Span,
		Index:  index,
		Module: mod,
	}
	for _, p := range fn.Params().All() {
		def.Params = append(def.Params, p.Name().String())
	}
	return def
}

// unknownTemplates warns about calls to templates neither declared nor
// imported. The interpreter skips such calls.
func unknownTemplates(file ast.File, known map[string]Definition) []scene.Diagnostic {
	var out []scene.Diagnostic
	check := func(st ast.Statement) {
		t, ok := st.Template()
		if !ok {
			return
		}
		if _, ok := known[string(t.TemplateName())]; !ok {
			out = append(out, scene.Diagnostic{
				Span:     t.Name().Span,
				Severity: scene.SeverityWarning,
				Message:  "unknown template " + string(t.TemplateName()),
			})
		}
	}
	for fn := range file.Fns().All() {
		walk(fn.Body(), check)
	}
	walk(file.Root(), check)
	return out
}

// walk calls fn for st and every statement nested in it, including the
// extra children of template calls.
func walk(st ast.Statement, fn func(ast.Statement)) {
	fn(st)
	var children ast.List[ast.Statement]
	if sp, ok := st.Spawn(); ok {
		children = sp.Children()
	} else if t, ok := st.Template(); ok {
		children = t.Children()
	} else {
		return
	}
	for c := range children.All() {
		walk(c, fn)
	}
}

// TemplateAt returns the template call or declaration whose name covers off.
func (d *Document) TemplateAt(off int) (Definition, bool) {
	word := wordAt(d.Text, off)
	if word == "" {
		return Definition{}, false
	}
	def, ok := d.Templates[strings.TrimSuffix(word, "!")]
	return def, ok
}

// ---------------------------------------------------------------------------
// Completion candidates
// ---------------------------------------------------------------------------

// Keywords of the language, offered as completions.
var Keywords = []string{"use", "fn", "code"}

// Candidate is one completion suggestion.
type Candidate struct {
	Label  string
	Kind   string // "template", "method" or "keyword"
	Detail string
	Insert string
}

// Complete returns the suggestions for prefix in doc: templates (inserted
// with their '!'), registered methods and keywords.
func (w *Workspace) Complete(doc *Document, prefix string) []Candidate {
	var out []Candidate
	if doc != nil {
		for name, def := range doc.Templates {
			if strings.HasPrefix(name+"!", prefix) {
				out = append(out, Candidate{Label: name + "!", Kind: "template", Detail: def.Signature(), Insert: name + "!("})
			}
		}
	}
	if strings.HasSuffix(prefix, "!") {
		sortCandidates(out)
		return out
	}
	for _, name := range w.registry.Methods() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Candidate{Label: name, Kind: "method", Detail: "method", Insert: name + "("})
		}
	}
	for _, kw := range Keywords {
		if strings.HasPrefix(kw, prefix) {
			out = append(out, Candidate{Label: kw, Kind: "keyword", Insert: kw})
		}
	}
	sortCandidates(out)
	return out
}

func sortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Kind != cs[j].Kind {
			return cs[i].Kind > cs[j].Kind // templates, then methods, then keywords
		}
		return cs[i].Label < cs[j].Label
	})
}

// ---------------------------------------------------------------------------
// URIs
// ---------------------------------------------------------------------------

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

func pathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
