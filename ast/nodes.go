package ast

import (
	"bytes"

	"github.com/chazu/chirp/lexer"
)

// ---------------------------------------------------------------------------
// Spans and names
// ---------------------------------------------------------------------------

// Span is a half-open byte range [Start, End) of the input.
type Span struct {
	Start, End int
}

// Name is an identifier or string literal referenced by the AST, read back
// from the input by re-running the lexer at its stored offset.
type Name struct {
	Span  Span
	Bytes []byte
}

// Absent reports whether the name was not present in the source.
func (n Name) Absent() bool {
	return len(n.Bytes) == 0
}

func (n Name) String() string {
	return string(n.Bytes)
}

func nameAt(src []byte, off Offset) Name {
	if off == Absent {
		return Name{}
	}
	tok, start, ok := lexer.TokenAt(src, int(off))
	if !ok {
		return Name{}
	}
	return Name{Span: Span{Start: start, End: start + len(tok.Bytes)}, Bytes: tok.Bytes}
}

// ---------------------------------------------------------------------------
// Ast
// ---------------------------------------------------------------------------

// Ast is a parsed document: the input bytes and the block buffer describing
// it. Both are immutable once parsing succeeded.
type Ast struct {
	Input  []byte
	Blocks []Block
}

// File returns the root view.
func (a *Ast) File() File {
	return File{src: a.Input, b: a.Blocks}
}

// ---------------------------------------------------------------------------
// ChirpFile
// ---------------------------------------------------------------------------

// File is the root node: imports, template declarations, one root statement.
type File struct {
	src []byte
	b   []Block
}

func (f File) importCount() int { return int(f.b[0]) }
func (f File) rootOffset() int  { return int(f.b[1]) }

// Imports returns the flattened import items.
func (f File) Imports() FixedList[Import] {
	end := fileHeader + f.importCount()*ImportSize
	return FixedList[Import]{src: f.src, b: f.b[fileHeader:end], size: ImportSize, mk: newImport}
}

// Fns returns the template declarations.
func (f File) Fns() List[Fn] {
	start := fileHeader + f.importCount()*ImportSize
	return List[Fn]{src: f.src, b: f.b[start:f.rootOffset()], mk: newFn}
}

// Root returns the root statement.
func (f File) Root() Statement {
	return newStatement(f.src, f.b[f.rootOffset():])
}

func (f File) Len() int {
	return f.rootOffset() + f.Root().Len()
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// Import is one imported item of a `use` declaration.
type Import struct {
	src []byte
	b   []Block
}

func newImport(src []byte, b []Block) Import { return Import{src: src, b: b} }

// Module is the file or module the item is imported from.
func (i Import) Module() Name { return nameAt(i.src, Offset(i.b[0])) }

// Name is the imported item.
func (i Import) Name() Name { return nameAt(i.src, Offset(i.b[1])) }

// Alias is the local name given with `as`, or an absent Name.
func (i Import) Alias() Name { return nameAt(i.src, Offset(i.b[2])) }

func (i Import) Len() int { return ImportSize }

// ---------------------------------------------------------------------------
// Fn
// ---------------------------------------------------------------------------

// Fn is a template declaration.
type Fn struct {
	src []byte
	b   []Block
}

func newFn(src []byte, b []Block) Fn { return Fn{src: src, b: b} }

func (f Fn) paramCount() int { return int(upper(f.b[0])) }
func (f Fn) bodyLen() int    { return int(f.b[1]) }

// Name is the template name as declared (without `!`).
func (f Fn) Name() Name { return nameAt(f.src, Offset(lower(f.b[0]))) }

// Params returns the parameter identifiers.
func (f Fn) Params() FixedList[IdentOffset] {
	end := fnHeader + f.paramCount()*IdentOffsetSize
	return FixedList[IdentOffset]{src: f.src, b: f.b[fnHeader:end], size: IdentOffsetSize, mk: newIdentOffset}
}

// Body returns the template's root statement.
func (f Fn) Body() Statement {
	start := fnHeader + f.paramCount()*IdentOffsetSize
	return newStatement(f.src, f.b[start:start+f.bodyLen()])
}

func (f Fn) Len() int {
	return fnHeader + f.paramCount()*IdentOffsetSize + f.bodyLen()
}

// ---------------------------------------------------------------------------
// Statement
// ---------------------------------------------------------------------------

// Statement dispatches to a Spawn, a Template call or a Code statement.
type Statement struct {
	src []byte
	b   []Block
}

func newStatement(src []byte, b []Block) Statement { return Statement{src: src, b: b} }

// Kind returns the statement variant.
func (s Statement) Kind() StatementKind { return decodeKind(s.b[0]) }

// Spawn returns the spawn variant.
func (s Statement) Spawn() (Spawn, bool) {
	if s.Kind() != KindSpawn {
		return Spawn{}, false
	}
	return Spawn{src: s.src, b: s.b[statementHeader:]}, true
}

// Template returns the template-call variant.
func (s Statement) Template() (Template, bool) {
	if s.Kind() != KindTemplate {
		return Template{}, false
	}
	return Template{src: s.src, b: s.b[statementHeader:]}, true
}

// Code returns the code variant.
func (s Statement) Code() (Code, bool) {
	if s.Kind() != KindCode {
		return Code{}, false
	}
	return Code{src: s.src, b: s.b[statementHeader:]}, true
}

func (s Statement) Len() int {
	switch s.Kind() {
	case KindSpawn:
		sp, _ := s.Spawn()
		return statementHeader + sp.Len()
	case KindTemplate:
		t, _ := s.Template()
		return statementHeader + t.Len()
	default:
		return statementHeader + CodeSize
	}
}

// ---------------------------------------------------------------------------
// Spawn
// ---------------------------------------------------------------------------

// Spawn produces one entity.
type Spawn struct {
	src []byte
	b   []Block
}

func (s Spawn) methodsLen() int  { return int(s.b[1]) }
func (s Spawn) childrenLen() int { return int(s.b[2]) }

// Name is the spawn's name, absent for `Entity(...)`, `spawn(...)` and
// bare `(...)` statements.
func (s Spawn) Name() Name { return nameAt(s.src, Offset(s.b[0])) }

// Methods returns the spawn's methods.
func (s Spawn) Methods() List[Method] {
	end := spawnHeader + s.methodsLen()
	return List[Method]{src: s.src, b: s.b[spawnHeader:end], mk: newMethod}
}

// Children returns the child statements.
func (s Spawn) Children() List[Statement] {
	start := spawnHeader + s.methodsLen()
	return List[Statement]{src: s.src, b: s.b[start : start+s.childrenLen()], mk: newStatement}
}

func (s Spawn) Len() int {
	return spawnHeader + s.methodsLen() + s.childrenLen()
}

// ---------------------------------------------------------------------------
// Template
// ---------------------------------------------------------------------------

// Template is a call site `Name!(args) (methods) { children }`. The methods
// and children are the call's extras.
type Template struct {
	src []byte
	b   []Block
}

func (t Template) argCount() int    { return int(upper(t.b[0])) }
func (t Template) methodsLen() int  { return int(t.b[1]) }
func (t Template) childrenLen() int { return int(t.b[2]) }

// Name is the identifier as written, including the trailing '!'.
func (t Template) Name() Name { return nameAt(t.src, Offset(lower(t.b[0]))) }

// TemplateName is the name used to look the template up: Name without '!'.
func (t Template) TemplateName() []byte {
	return bytes.TrimSuffix(t.Name().Bytes, []byte("!"))
}

// Input returns the document the call is written in.
func (t Template) Input() []byte { return t.src }

// Args returns the call arguments.
func (t Template) Args() FixedList[Argument] {
	end := templateHeader + t.argCount()*ArgumentSize
	return FixedList[Argument]{src: t.src, b: t.b[templateHeader:end], size: ArgumentSize, mk: newArgument}
}

// Methods returns the extra methods attached at the call site.
func (t Template) Methods() List[Method] {
	start := templateHeader + t.argCount()*ArgumentSize
	return List[Method]{src: t.src, b: t.b[start : start+t.methodsLen()], mk: newMethod}
}

// Children returns the extra children attached at the call site.
func (t Template) Children() List[Statement] {
	start := templateHeader + t.argCount()*ArgumentSize + t.methodsLen()
	return List[Statement]{src: t.src, b: t.b[start : start+t.childrenLen()], mk: newStatement}
}

func (t Template) Len() int {
	return templateHeader + t.argCount()*ArgumentSize + t.methodsLen() + t.childrenLen()
}

// ---------------------------------------------------------------------------
// Code, Method, Argument, IdentOffset
// ---------------------------------------------------------------------------

// Code invokes a host-registered code block.
type Code struct {
	src []byte
	b   []Block
}

func (c Code) Name() Name { return nameAt(c.src, Offset(c.b[0])) }
func (c Code) Len() int   { return CodeSize }

// Method is `name` or `name(arg, ...)`.
type Method struct {
	src []byte
	b   []Block
}

func newMethod(src []byte, b []Block) Method { return Method{src: src, b: b} }

func (m Method) argCount() int { return int(upper(m.b[0])) }

func (m Method) Name() Name { return nameAt(m.src, Offset(lower(m.b[0]))) }

// Args returns the raw arguments.
func (m Method) Args() FixedList[Argument] {
	end := methodHeader + m.argCount()*ArgumentSize
	return FixedList[Argument]{src: m.src, b: m.b[methodHeader:end], size: ArgumentSize, mk: newArgument}
}

func (m Method) Len() int {
	return methodHeader + m.argCount()*ArgumentSize
}

// Argument is the raw token tree of one argument.
type Argument struct {
	src []byte
	b   []Block
}

func newArgument(src []byte, b []Block) Argument { return Argument{src: src, b: b} }

func (a Argument) Span() Span {
	return Span{Start: int(a.b[0]), End: int(a.b[1])}
}

// Bytes returns the argument's source text without surrounding whitespace.
func (a Argument) Bytes() []byte {
	sp := a.Span()
	return a.src[sp.Start:sp.End]
}

func (a Argument) Len() int { return ArgumentSize }

// IdentOffset references a single identifier, such as a template parameter.
type IdentOffset struct {
	src []byte
	b   []Block
}

func newIdentOffset(src []byte, b []Block) IdentOffset { return IdentOffset{src: src, b: b} }

func (i IdentOffset) Name() Name { return nameAt(i.src, Offset(i.b[0])) }
func (i IdentOffset) Len() int   { return IdentOffsetSize }
