package scene

import (
	"fmt"
	"strings"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/interp"
)

// Recorder is an interp.Sink that records every callback as one line, with
// the byte span of each name. Templates declared in the document resolve
// normally so the trace shows their expansion.
type Recorder struct {
	Calls     []string
	templates map[string]interp.Template
	depth     int
}

func NewRecorder() *Recorder {
	return &Recorder{templates: make(map[string]interp.Template)}
}

func (r *Recorder) add(format string, args ...any) {
	r.Calls = append(r.Calls, strings.Repeat("  ", r.depth)+fmt.Sprintf(format, args...))
}

func at(n ast.Name) string {
	if n.Absent() {
		return "-"
	}
	return fmt.Sprintf("%d..%d", n.Span.Start, n.Span.End)
}

func (r *Recorder) Import(module, name, alias ast.Name) {
	if alias.Absent() {
		r.add("import %s %s @%s", module, name, at(name))
		return
	}
	r.add("import %s %s as %s @%s", module, name, alias, at(name))
}

func (r *Recorder) RegisterFn(name ast.Name, t interp.Template) {
	r.templates[name.String()] = t
	r.add("register_fn %s/%d @%s", name, t.Arity(), at(name))
}

func (r *Recorder) GetTemplate(name []byte) (interp.Template, bool) {
	t, ok := r.templates[string(name)]
	if !ok {
		r.add("unresolved %s", name)
	}
	return t, ok
}

func (r *Recorder) Code(name ast.Name) {
	r.add("code %s @%s", name, at(name))
}

func (r *Recorder) SetName(name ast.Name) {
	r.add("set_name %s @%s", name, at(name))
}

func (r *Recorder) Method(name ast.Name, args *interp.Arguments) {
	r.add("method %s%s @%s", name, args.Joined(), at(name))
}

func (r *Recorder) StartChildren() {
	r.add("start_children")
	r.depth++
}

func (r *Recorder) CompleteChildren() {
	if r.depth > 0 {
		r.depth--
	}
	r.add("complete_children")
}

func (r *Recorder) SpawnLeaf() {
	r.add("spawn_leaf")
}

func (r *Recorder) String() string {
	return strings.Join(r.Calls, "\n")
}
