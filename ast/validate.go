package ast

import (
	"bytes"
	"fmt"

	"github.com/chazu/chirp/lexer"
)

// ValidationError reports a block buffer that does not describe a
// well-formed document for its input.
type ValidationError struct {
	Block int
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ast: block %d: %s", e.Block, e.Msg)
}

// Validate checks every layout invariant of blocks against input: header
// region lengths sum to the node sizes, siblings land exactly on each other,
// the root statement offset matches the import and fn regions, and every
// stored offset re-lexes to the expected token kind. Views may be used on
// the pair once Validate returns nil.
func Validate(input []byte, blocks []Block) error {
	v := &validator{src: input, b: blocks}
	return v.file()
}

type validator struct {
	src []byte
	b   []Block
}

func (v *validator) fail(pos int, format string, args ...any) error {
	return &ValidationError{Block: pos, Msg: fmt.Sprintf(format, args...)}
}

func (v *validator) need(pos, n, limit int) error {
	if pos+n > limit || pos+n > len(v.b) {
		return v.fail(pos, "header needs %d blocks, region ends at %d", n, limit)
	}
	return nil
}

// name checks that off re-lexes to one of kinds.
func (v *validator) name(pos int, off Offset, kinds ...lexer.Kind) ([]byte, error) {
	tok, start, ok := lexer.TokenAt(v.src, int(off))
	if !ok || start != int(off) {
		return nil, v.fail(pos, "offset %d does not start a token", off)
	}
	for _, k := range kinds {
		if tok.Kind == k {
			return tok.Bytes, nil
		}
	}
	return nil, v.fail(pos, "offset %d is %s, want %v", off, tok.Kind, kinds)
}

// region walks items in [start, start+length) and checks they tile it.
func (v *validator) region(start, length, limit int, item func(pos, limit int) (int, error)) error {
	end := start + length
	if length < 0 || end > limit {
		return v.fail(start, "region of %d blocks overruns %d", length, limit)
	}
	for pos := start; pos < end; {
		n, err := item(pos, end)
		if err != nil {
			return err
		}
		if n <= 0 || pos+n > end {
			return v.fail(pos, "node of %d blocks does not fit region ending at %d", n, end)
		}
		pos += n
	}
	return nil
}

func (v *validator) file() error {
	if err := v.need(0, fileHeader, len(v.b)); err != nil {
		return err
	}
	imports := int(v.b[0])
	root := int(v.b[1])
	importsEnd := fileHeader + imports*ImportSize
	if importsEnd > root || root >= len(v.b) {
		return v.fail(0, "root offset %d inconsistent with %d imports", root, imports)
	}
	for i := 0; i < imports; i++ {
		if err := v.importItem(fileHeader + i*ImportSize); err != nil {
			return err
		}
	}
	if err := v.region(importsEnd, root-importsEnd, root, v.fn); err != nil {
		return err
	}
	return v.region(root, len(v.b)-root, len(v.b), func(pos, limit int) (int, error) {
		n, err := v.statement(pos, limit)
		if err == nil && pos+n != limit {
			return 0, v.fail(pos, "root statement of %d blocks leaves %d trailing blocks", n, limit-pos-n)
		}
		return n, err
	})
}

func (v *validator) importItem(pos int) error {
	if _, err := v.name(pos, Offset(v.b[pos]), lexer.Ident, lexer.String); err != nil {
		return err
	}
	if _, err := v.name(pos+1, Offset(v.b[pos+1]), lexer.Ident); err != nil {
		return err
	}
	if alias := Offset(v.b[pos+2]); alias != Absent {
		if _, err := v.name(pos+2, alias, lexer.Ident); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) fn(pos, limit int) (int, error) {
	if err := v.need(pos, fnHeader, limit); err != nil {
		return 0, err
	}
	params := int(upper(v.b[pos]))
	body := int(v.b[pos+1])
	if _, err := v.name(pos, Offset(lower(v.b[pos])), lexer.Ident); err != nil {
		return 0, err
	}
	p := pos + fnHeader
	if err := v.need(p, params, limit); err != nil {
		return 0, err
	}
	for i := 0; i < params; i++ {
		if _, err := v.name(p+i, Offset(v.b[p+i]), lexer.Ident); err != nil {
			return 0, err
		}
	}
	p += params
	if body <= 0 {
		return 0, v.fail(pos, "fn has an empty body")
	}
	if err := v.region(p, body, limit, func(pos, limit int) (int, error) {
		n, err := v.statement(pos, limit)
		if err == nil && n != body {
			return 0, v.fail(pos, "fn body is %d blocks, header says %d", n, body)
		}
		return n, err
	}); err != nil {
		return 0, err
	}
	return fnHeader + params + body, nil
}

func (v *validator) statement(pos, limit int) (int, error) {
	if err := v.need(pos, statementHeader, limit); err != nil {
		return 0, err
	}
	var n int
	var err error
	switch StatementKind(v.b[pos]) {
	case KindSpawn:
		n, err = v.spawn(pos+statementHeader, limit)
	case KindTemplate:
		n, err = v.template(pos+statementHeader, limit)
	case KindCode:
		if err = v.need(pos+statementHeader, CodeSize, limit); err == nil {
			_, err = v.name(pos+1, Offset(v.b[pos+1]), lexer.Ident)
		}
		n = CodeSize
	default:
		return 0, v.fail(pos, "unknown statement discriminant %d", v.b[pos])
	}
	if err != nil {
		return 0, err
	}
	return statementHeader + n, nil
}

func (v *validator) spawn(pos, limit int) (int, error) {
	if err := v.need(pos, spawnHeader, limit); err != nil {
		return 0, err
	}
	if name := Offset(v.b[pos]); name != Absent {
		if _, err := v.name(pos, name, lexer.Ident, lexer.String); err != nil {
			return 0, err
		}
	}
	methods, children := int(v.b[pos+1]), int(v.b[pos+2])
	p := pos + spawnHeader
	if err := v.region(p, methods, limit, v.method); err != nil {
		return 0, err
	}
	if err := v.region(p+methods, children, limit, v.statement); err != nil {
		return 0, err
	}
	return spawnHeader + methods + children, nil
}

func (v *validator) template(pos, limit int) (int, error) {
	if err := v.need(pos, templateHeader, limit); err != nil {
		return 0, err
	}
	name, err := v.name(pos, Offset(lower(v.b[pos])), lexer.Ident)
	if err != nil {
		return 0, err
	}
	if !bytes.HasSuffix(name, []byte("!")) {
		return 0, v.fail(pos, "template call %q does not end in '!'", name)
	}
	args, methods, children := int(upper(v.b[pos])), int(v.b[pos+1]), int(v.b[pos+2])
	p := pos + templateHeader
	if err := v.arguments(p, args, limit); err != nil {
		return 0, err
	}
	p += args * ArgumentSize
	if err := v.region(p, methods, limit, v.method); err != nil {
		return 0, err
	}
	if err := v.region(p+methods, children, limit, v.statement); err != nil {
		return 0, err
	}
	return templateHeader + args*ArgumentSize + methods + children, nil
}

func (v *validator) method(pos, limit int) (int, error) {
	if err := v.need(pos, methodHeader, limit); err != nil {
		return 0, err
	}
	if _, err := v.name(pos, Offset(lower(v.b[pos])), lexer.Ident); err != nil {
		return 0, err
	}
	args := int(upper(v.b[pos]))
	if err := v.arguments(pos+methodHeader, args, limit); err != nil {
		return 0, err
	}
	return methodHeader + args*ArgumentSize, nil
}

func (v *validator) arguments(pos, count, limit int) error {
	if err := v.need(pos, count*ArgumentSize, limit); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		p := pos + i*ArgumentSize
		start, end := int(v.b[p]), int(v.b[p+1])
		if start >= end || end > len(v.src) {
			return v.fail(p, "argument span [%d, %d) out of input of %d bytes", start, end, len(v.src))
		}
		if _, s, ok := lexer.TokenAt(v.src, start); !ok || s != start {
			return v.fail(p, "argument does not start at a token")
		}
	}
	return nil
}
