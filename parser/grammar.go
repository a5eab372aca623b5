package parser

import (
	"bytes"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/lexer"
)

// ---------------------------------------------------------------------------
// Grammar: recursive descent writing nodes into the block buffer
//
//	ChirpFile  := Import* Fn* Statement
//	Import     := 'use' (Ident | String) '(' ImportItem (',' ImportItem)* ','? ')'
//	ImportItem := Ident | '(' Ident 'as' Ident ')'
//	Fn         := 'fn' Ident '(' (Ident (',' Ident)* ','?)? ')' '{' Statement ','? '}'
//	Statement  := Template | Code | Spawn | NamedSpawn
//	Template   := Ident! '(' Args ')' ('(' Method* ')')? ('{' Statement* '}')?
//	Code       := 'code' '(' Ident ')'
//	NamedSpawn := (Ident | String) SpawnTail
//	Spawn      := SpawnTail
//	SpawnTail  := '(' Method* ')' ('{' Statement* '}')? | '{' Statement* '}'
//	Method     := Ident ('(' Args ')')?
//	Args       := (Arg (',' Arg)* ','?)?
//	Arg        := TokenTree+
//
// Every node with regions is built by reserving its header, parsing the
// regions, then writing the header with the measured region lengths.
// ---------------------------------------------------------------------------

// Parse parses a chirp document into its AST. On failure the error is a
// *Error carrying the byte span of the first committed failure.
func Parse(input []byte) (*ast.Ast, error) {
	if len(input) > ast.MaxOffset {
		return nil, &Error{Kind: InputTooLarge, Got: Got{EOF: true}}
	}
	p := &parser{s: lexer.NewStream(input, ast.NewBuilder(len(input)))}
	if f := p.file(); f != nil {
		return nil, f.err
	}
	return &ast.Ast{Input: input, Blocks: p.s.State.Blocks()}, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// embedded documents.
func MustParse(input string) *ast.Ast {
	a, err := Parse([]byte(input))
	if err != nil {
		panic("chirp: MustParse: " + err.Error())
	}
	return a
}

type parser struct {
	s *lexer.Stream[*ast.Builder]
}

func (p *parser) b() *ast.Builder {
	return p.s.State
}

// got describes the next token.
func (p *parser) got() Got {
	tok, ok := p.s.Peek()
	if !ok {
		return Got{EOF: true}
	}
	return Got{Kind: tok.Kind}
}

func (p *parser) fail(kind ErrorKind, cut bool) *failure {
	off := p.s.Offset()
	return &failure{
		err: &Error{Kind: kind, Got: p.got(), Span: ast.Span{Start: off, End: off}},
		cut: cut,
	}
}

func (p *parser) cut(kind ErrorKind) *failure {
	return p.fail(kind, true)
}

func (p *parser) backtrack(kind ErrorKind) *failure {
	return p.fail(kind, false)
}

// expect consumes a token of kind k or cuts with an Expected error.
func (p *parser) expect(k lexer.Kind) (int, *failure) {
	start := p.s.NextStart()
	if _, err := p.s.Expect(k); err != nil {
		f := p.cut(Expected)
		f.err.Expected = k
		return 0, f
	}
	return start, nil
}

func (p *parser) peekIs(k lexer.Kind) bool {
	kind, ok := p.s.PeekKind()
	return ok && kind == k
}

func (p *parser) fromTree(terr *treeError) *failure {
	return &failure{
		err: &Error{Kind: terr.kind, Got: terr.got, Span: ast.Span{Start: terr.off, End: terr.off}},
		cut: true,
	}
}

// ---------------------------------------------------------------------------
// File, imports, fns
// ---------------------------------------------------------------------------

func (p *parser) file() *failure {
	slot := ast.Reserve[ast.FileHeader](p.b())

	imports := 0
	for {
		n, ok, f := p.importDecl()
		if f != nil {
			return f
		}
		if !ok {
			break
		}
		imports += n
	}

	for {
		ok, f := p.fn()
		if f != nil {
			return f
		}
		if !ok {
			break
		}
	}

	root := p.b().Len()
	if _, f := p.statement(); f != nil {
		f.cut = true
		return f
	}
	if !p.s.IsEmpty() {
		start := p.s.NextStart()
		return &failure{
			err: &Error{Kind: TrailingText, Got: p.got(), Span: ast.Span{Start: start, End: len(p.s.Input())}},
			cut: true,
		}
	}

	ast.Write(p.b(), slot, ast.FileHeader{ImportCount: uint32(imports), RootOffset: uint32(root)})
	return nil
}

// importDecl parses one `use` declaration, writing one Import node per
// item. ok is false when the input does not start an import; in that case
// nothing was consumed.
func (p *parser) importDecl() (items int, ok bool, f *failure) {
	cp := p.s.Checkpoint()
	tok, _ := p.s.Peek()
	if !tok.IsIdent("use") {
		return 0, false, nil
	}
	p.s.Next()

	next, more := p.s.Peek()
	switch {
	case more && (next.Kind == lexer.Ident || next.Kind == lexer.String):
	case more && (next.Kind == lexer.LParen || next.Kind == lexer.LCurly):
		// An entity named "use".
		p.s.Reset(cp)
		return 0, false, nil
	default:
		return 0, false, p.cut(FileName)
	}
	module := ast.Offset(p.s.NextStart())
	p.s.Next()

	if _, f := p.expect(lexer.LParen); f != nil {
		return 0, false, f
	}
	for {
		if items > 0 && p.peekIs(lexer.RParen) {
			p.s.Next()
			return items, true, nil
		}
		if f := p.importItem(module); f != nil {
			return 0, false, f
		}
		items++
		if p.peekIs(lexer.Comma) {
			p.s.Next()
			continue
		}
		if _, f := p.expect(lexer.RParen); f != nil {
			return 0, false, f
		}
		return items, true, nil
	}
}

func (p *parser) importItem(module ast.Offset) *failure {
	if p.peekIs(lexer.LParen) {
		p.s.Next()
		name, f := p.expect(lexer.Ident)
		if f != nil {
			return f
		}
		if tok, _ := p.s.Peek(); !tok.IsIdent("as") {
			f := p.cut(Expected)
			f.err.Expected = lexer.Ident
			return f
		}
		p.s.Next()
		alias, f := p.expect(lexer.Ident)
		if f != nil {
			return f
		}
		if _, f := p.expect(lexer.RParen); f != nil {
			return f
		}
		ast.WriteHeader(p.b(), ast.ImportHeader{Module: module, Name: ast.Offset(name), Alias: ast.Offset(alias)})
		return nil
	}

	name, f := p.expect(lexer.Ident)
	if f != nil {
		return f
	}
	ast.WriteHeader(p.b(), ast.ImportHeader{Module: module, Name: ast.Offset(name), Alias: ast.Absent})
	return nil
}

// fn parses one template declaration. ok is false when the input does not
// start one; in that case nothing was consumed.
func (p *parser) fn() (ok bool, f *failure) {
	cp := p.s.Checkpoint()
	tok, _ := p.s.Peek()
	if !tok.IsIdent("fn") {
		return false, nil
	}
	p.s.Next()
	if !p.peekIs(lexer.Ident) {
		if p.peekIs(lexer.LParen) || p.peekIs(lexer.LCurly) {
			// An entity named "fn".
			p.s.Reset(cp)
			return false, nil
		}
		_, f := p.expect(lexer.Ident)
		return false, f
	}
	name := ast.Offset(p.s.NextStart())
	p.s.Next()

	slot := ast.Reserve[ast.FnHeader](p.b())
	if _, f := p.expect(lexer.LParen); f != nil {
		return false, f
	}
	params := 0
	for !p.peekIs(lexer.RParen) {
		if params == ast.MaxCount {
			return false, p.cut(TooManyArguments)
		}
		param, f := p.expect(lexer.Ident)
		if f != nil {
			return false, f
		}
		ast.WriteHeader(p.b(), ast.IdentOffsetHeader{Offset: ast.Offset(param)})
		params++
		if !p.peekIs(lexer.Comma) {
			break
		}
		p.s.Next()
	}
	if _, f := p.expect(lexer.RParen); f != nil {
		return false, f
	}

	if _, f := p.expect(lexer.LCurly); f != nil {
		return false, f
	}
	body, f := p.statement()
	if f != nil {
		f.cut = true
		return false, f
	}
	if p.peekIs(lexer.Comma) {
		p.s.Next()
	}
	if startsStatement(p.s.PeekKind()) {
		f := p.cut(FnBody)
		start := p.s.NextStart()
		f.err.Span = ast.Span{Start: start, End: start}
		return false, f
	}
	if _, f := p.expect(lexer.RCurly); f != nil {
		return false, f
	}

	ast.Write(p.b(), slot, ast.FnHeader{Name: name, ParamCount: uint32(params), BodyLen: uint32(body)})
	return true, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

var (
	anonymousEntity = []byte("Entity")
	anonymousSpawn  = []byte("spawn")
)

// statement parses one statement and returns its size in blocks. When the
// next token cannot start a statement it backtracks without consuming.
func (p *parser) statement() (int, *failure) {
	tok, ok := p.s.Peek()
	if !ok {
		return 0, p.backtrack(StartStatement)
	}

	switch tok.Kind {
	case lexer.LParen, lexer.LCurly:
		return p.spawn(ast.Absent)

	case lexer.String:
		name := ast.Offset(p.s.NextStart())
		p.s.Next()
		return p.spawn(name)

	case lexer.Ident:
		switch {
		case len(tok.Bytes) > 1 && tok.Bytes[len(tok.Bytes)-1] == '!':
			return p.template()
		case tok.IsIdent("code"):
			if n, ok, f := p.code(); ok || f != nil {
				return n, f
			}
		}
		var name ast.Offset = ast.Absent
		if !bytes.Equal(tok.Bytes, anonymousEntity) && !bytes.Equal(tok.Bytes, anonymousSpawn) {
			name = ast.Offset(p.s.NextStart())
		}
		p.s.Next()
		return p.spawn(name)
	}

	return 0, p.backtrack(StartStatement)
}

// startsStatement reports whether a token of kind k can begin a statement.
func startsStatement(k lexer.Kind, ok bool) bool {
	return ok && (k == lexer.Ident || k == lexer.String || k == lexer.LParen || k == lexer.LCurly)
}

// code parses `code(name)`. ok is false, with nothing consumed, when `code`
// is not followed by '(' and so names an entity.
func (p *parser) code() (int, bool, *failure) {
	cp := p.s.Checkpoint()
	p.s.Next()
	if !p.peekIs(lexer.LParen) {
		p.s.Reset(cp)
		return 0, false, nil
	}
	p.s.Next()
	name, f := p.expect(lexer.Ident)
	if f != nil {
		return 0, true, f
	}
	if _, f := p.expect(lexer.RParen); f != nil {
		return 0, true, f
	}
	n := ast.WriteHeader(p.b(), ast.StatementHeader{Kind: ast.KindCode})
	n += ast.WriteHeader(p.b(), ast.CodeHeader{Name: ast.Offset(name)})
	return n, true, nil
}

// spawn parses the tail of a spawn statement after its optional name.
func (p *parser) spawn(name ast.Offset) (int, *failure) {
	kind, ok := p.s.PeekKind()
	if !ok || (kind != lexer.LParen && kind != lexer.LCurly) {
		return 0, p.cut(StatementDelimiter)
	}

	n := ast.WriteHeader(p.b(), ast.StatementHeader{Kind: ast.KindSpawn})
	slot := ast.Reserve[ast.SpawnHeader](p.b())

	var methods, children int
	var f *failure
	if kind == lexer.LParen {
		p.s.Next()
		if methods, f = p.methods(); f != nil {
			return 0, f
		}
	}
	if p.peekIs(lexer.LCurly) {
		if children, f = p.children(); f != nil {
			return 0, f
		}
	}

	ast.Write(p.b(), slot, ast.SpawnHeader{Name: name, MethodsLen: uint32(methods), ChildrenLen: uint32(children)})
	return n + slot.Blocks() + methods + children, nil
}

// template parses `Name!(args) (methods)? {children}?`.
func (p *parser) template() (int, *failure) {
	name := ast.Offset(p.s.NextStart())
	p.s.Next()

	n := ast.WriteHeader(p.b(), ast.StatementHeader{Kind: ast.KindTemplate})
	slot := ast.Reserve[ast.TemplateHeader](p.b())

	if _, f := p.expect(lexer.LParen); f != nil {
		return 0, f
	}
	argc, args, f := p.arguments()
	if f != nil {
		return 0, f
	}

	var methods, children int
	if p.peekIs(lexer.LParen) {
		p.s.Next()
		if methods, f = p.methods(); f != nil {
			return 0, f
		}
	}
	if p.peekIs(lexer.LCurly) {
		if children, f = p.children(); f != nil {
			return 0, f
		}
	}

	ast.Write(p.b(), slot, ast.TemplateHeader{
		Name:        name,
		ArgCount:    uint32(argc),
		MethodsLen:  uint32(methods),
		ChildrenLen: uint32(children),
	})
	return n + slot.Blocks() + args + methods + children, nil
}

// children parses `{ Statement* }` and returns the region size.
func (p *parser) children() (int, *failure) {
	p.s.Next() // {
	total := 0
	for {
		kind, ok := p.s.PeekKind()
		if !ok {
			_, f := p.expect(lexer.RCurly)
			return 0, f
		}
		if kind == lexer.RCurly {
			p.s.Next()
			return total, nil
		}
		n, f := p.statement()
		if f != nil {
			f.cut = true
			return 0, f
		}
		total += n
	}
}

// ---------------------------------------------------------------------------
// Methods and arguments
// ---------------------------------------------------------------------------

// methods parses `Method* )` after the opening parenthesis and returns the
// region size.
func (p *parser) methods() (int, *failure) {
	total := 0
	for {
		tok, ok := p.s.Peek()
		switch {
		case !ok:
			_, f := p.expect(lexer.RParen)
			return 0, f
		case tok.Kind == lexer.RParen:
			p.s.Next()
			return total, nil
		case tok.Kind != lexer.Ident:
			return 0, p.cut(BadMethod)
		}
		n, f := p.method()
		if f != nil {
			return 0, f
		}
		total += n
	}
}

func (p *parser) method() (int, *failure) {
	name := ast.Offset(p.s.NextStart())
	p.s.Next()
	slot := ast.Reserve[ast.MethodHeader](p.b())

	argc, args := 0, 0
	if p.peekIs(lexer.LParen) {
		p.s.Next()
		var f *failure
		if argc, args, f = p.arguments(); f != nil {
			return 0, f
		}
	}

	ast.Write(p.b(), slot, ast.MethodHeader{Name: name, ArgCount: uint32(argc)})
	return slot.Blocks() + args, nil
}

// arguments parses `Args )` after the opening parenthesis, writing one
// Argument node per item. It returns the count and the region size.
func (p *parser) arguments() (argc, size int, f *failure) {
	for {
		if p.peekIs(lexer.RParen) {
			p.s.Next()
			return argc, size, nil
		}
		if argc == ast.MaxCount {
			return 0, 0, p.cut(TooManyArguments)
		}

		start := p.s.NextStart()
		end, trees, terr := tokenTrees(p.s)
		if terr != nil {
			return 0, 0, p.fromTree(terr)
		}
		if trees == 0 {
			if _, more := p.s.Peek(); !more {
				_, f := p.expect(lexer.RParen)
				return 0, 0, f
			}
			return 0, 0, p.cut(Unexpected)
		}
		size += ast.WriteHeader(p.b(), ast.ArgumentHeader{Start: ast.Offset(start), End: ast.Offset(end)})
		argc++

		if p.peekIs(lexer.Comma) {
			p.s.Next()
			continue
		}
		if _, f := p.expect(lexer.RParen); f != nil {
			return 0, 0, f
		}
		return argc, size, nil
	}
}
