package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/diag"
	"github.com/chazu/chirp/lexer"
	"github.com/chazu/chirp/parser"
)

// ---------------------------------------------------------------------------
// chirp fmt: canonical source formatter
// ---------------------------------------------------------------------------

// Format parses a chirp document and returns it canonically formatted.
// Comments are kept, each on its own line before the item that follows it.
// This is the library-level entry point; it does not touch the filesystem.
func Format(source string) (string, error) {
	input := []byte(source)
	a, err := parser.Parse(input)
	if err != nil {
		return "", err
	}

	f := &formatter{
		buf:      &strings.Builder{},
		comments: scanComments(input),
	}
	f.formatFile(a.File())
	f.flushComments(len(input) + 1)

	result := strings.TrimRight(f.buf.String(), "\n") + "\n"
	return result, nil
}

// comment is one `//` line comment found between tokens.
type comment struct {
	off  int
	text string
	used bool
}

// scanComments collects the comments in the gaps between tokens.
func scanComments(input []byte) []*comment {
	var out []*comment
	gap := func(from, to int) {
		for i := from; i+1 < to; i++ {
			if input[i] != '/' || input[i+1] != '/' {
				continue
			}
			end := bytes.IndexByte(input[i:to], '\n')
			if end < 0 {
				end = to - i
			}
			out = append(out, &comment{off: i, text: strings.TrimRight(string(input[i:i+end]), " \t\r")})
			i += end
		}
	}
	off := 0
	for {
		_, start, next, ok := lexer.Scan(input, off)
		gap(off, start)
		if !ok {
			return out
		}
		off = next
	}
}

// formatter walks the AST views and emits canonically formatted source.
type formatter struct {
	indent   int
	buf      *strings.Builder
	comments []*comment
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) writeln(s string) {
	f.buf.WriteString(s)
	f.buf.WriteByte('\n')
}

// writeIndent writes the current indentation prefix (two spaces per level).
func (f *formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString("  ")
	}
}

// flushComments writes every pending comment that starts before off.
func (f *formatter) flushComments(off int) {
	for _, c := range f.comments {
		if c.used || c.off >= off {
			continue
		}
		c.used = true
		f.writeIndent()
		f.writeln(c.text)
	}
}

// consumeComments marks comments inside span as already written, for
// arguments that are emitted verbatim.
func (f *formatter) consumeComments(span ast.Span) {
	for _, c := range f.comments {
		if c.off >= span.Start && c.off < span.End {
			c.used = true
		}
	}
}

// ---------------------------------------------------------------------------
// File structure
// ---------------------------------------------------------------------------

func (f *formatter) formatFile(file ast.File) {
	f.formatImports(file.Imports())

	fns := file.Fns()
	for fn := range fns.All() {
		if f.buf.Len() > 0 {
			f.write("\n")
		}
		f.formatFn(fn)
	}

	if f.buf.Len() > 0 {
		f.write("\n")
	}
	f.formatStatement(file.Root())
}

// formatImports writes one `use` line per declaration. Items of one
// declaration share the module offset.
func (f *formatter) formatImports(imports ast.FixedList[ast.Import]) {
	var module ast.Name
	var items []string
	emit := func() {
		if len(items) > 0 {
			f.writeln("use " + module.String() + " (" + strings.Join(items, ", ") + ")")
		}
		items = items[:0]
	}
	for _, imp := range imports.All() {
		if len(items) == 0 || imp.Module().Span != module.Span {
			emit()
			module = imp.Module()
			f.flushComments(module.Span.Start)
		}
		if imp.Alias().Absent() {
			items = append(items, imp.Name().String())
		} else {
			items = append(items, "("+imp.Name().String()+" as "+imp.Alias().String()+")")
		}
	}
	emit()
}

func (f *formatter) formatFn(fn ast.Fn) {
	f.flushComments(fn.Name().Span.Start)
	var params []string
	for _, p := range fn.Params().All() {
		params = append(params, p.Name().String())
	}
	f.writeln("fn " + fn.Name().String() + "(" + strings.Join(params, ", ") + ") {")
	f.indent++
	f.formatStatement(fn.Body())
	f.indent--
	f.writeln("}")
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (f *formatter) formatStatement(st ast.Statement) {
	if off, ok := statementStart(st); ok {
		f.flushComments(off)
	}
	f.writeIndent()

	switch st.Kind() {
	case ast.KindCode:
		c, _ := st.Code()
		f.writeln("code(" + c.Name().String() + ")")

	case ast.KindTemplate:
		t, _ := st.Template()
		var args []string
		for _, a := range t.Args().All() {
			args = append(args, f.argument(a))
		}
		f.write(t.Name().String() + "(" + strings.Join(args, ", ") + ")")
		if !t.Methods().Empty() {
			f.write(" " + f.methods(t.Methods()))
		}
		f.children(t.Children())

	case ast.KindSpawn:
		sp, _ := st.Spawn()
		// Anonymous spawns keep a keyword; a bare ( or { reparses as part
		// of the previous sibling.
		name := "Entity"
		if !sp.Name().Absent() {
			name = sp.Name().String()
		}
		switch {
		case !sp.Methods().Empty():
			f.write(name + f.methods(sp.Methods()))
		case sp.Children().Empty() && name == "code":
			f.write("code {}") // code() would be a code statement
		case sp.Children().Empty():
			f.write(name + "()")
		default:
			f.write(name)
		}
		f.children(sp.Children())
	}
}

// children writes ` {`, the statements, and the closing brace, or ends the
// line when there are none.
func (f *formatter) children(list ast.List[ast.Statement]) {
	if list.Empty() {
		f.write("\n")
		return
	}
	if f.buf.Len() > 0 && !strings.HasSuffix(f.buf.String(), " ") && !strings.HasSuffix(f.buf.String(), "\n") {
		f.write(" ")
	}
	f.writeln("{")
	f.indent++
	for st := range list.All() {
		f.formatStatement(st)
	}
	f.indent--
	f.writeIndent()
	f.writeln("}")
}

func (f *formatter) methods(list ast.List[ast.Method]) string {
	var parts []string
	for m := range list.All() {
		if m.Args().Len() == 0 {
			parts = append(parts, m.Name().String())
			continue
		}
		var args []string
		for _, a := range m.Args().All() {
			args = append(args, f.argument(a))
		}
		parts = append(parts, m.Name().String()+"("+strings.Join(args, ", ")+")")
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// argument returns the argument text as written. Arguments are token trees
// whose spacing may be significant to the host, so they are not reflowed.
func (f *formatter) argument(a ast.Argument) string {
	f.consumeComments(a.Span())
	return string(a.Bytes())
}

// statementStart returns the offset of the first name in st.
func statementStart(st ast.Statement) (int, bool) {
	switch st.Kind() {
	case ast.KindCode:
		c, _ := st.Code()
		return c.Name().Span.Start, true
	case ast.KindTemplate:
		t, _ := st.Template()
		return t.Name().Span.Start, true
	}
	sp, _ := st.Spawn()
	if !sp.Name().Absent() {
		return sp.Name().Span.Start, true
	}
	for m := range sp.Methods().All() {
		return m.Name().Span.Start, true
	}
	for c := range sp.Children().All() {
		return statementStart(c)
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Command
// ---------------------------------------------------------------------------

func handleFmtCommand(args []string) {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	checkMode := fs.Bool("check", false, "Check formatting without modifying files; exit 1 if any file needs formatting")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chirp fmt [-check] <files or directories...>\n\n")
		fmt.Fprintf(os.Stderr, "Format chirp source files to canonical style.\n")
		fmt.Fprintf(os.Stderr, "If no files are given, formats the project's sources or the current directory.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	files, err := sourceFiles(fs.Args())
	if err != nil {
		fatalf("%v", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No source files found\n")
		return
	}

	anyChanged := false
	for _, path := range files {
		changed, err := formatFile(path, *checkMode)
		if err != nil {
			fatalf("formatting %s: %v", path, err)
		}
		if changed {
			anyChanged = true
		}
	}
	if *checkMode && anyChanged {
		os.Exit(1)
	}
}

// formatFile formats a single file.
// In check mode, returns true if the file would be changed.
// Otherwise, rewrites the file in place and returns true if it changed.
func formatFile(path string, checkMode bool) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	original := string(content)
	formatted, err := Format(original)
	if err != nil {
		return false, fmt.Errorf("\n%s", diag.RenderError(filepath.Base(path), content, err))
	}
	if original == formatted {
		return false, nil
	}

	if checkMode {
		fmt.Printf("would format: %s\n", path)
		return true, nil
	}
	if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
		return false, err
	}
	fmt.Printf("formatted: %s\n", path)
	return true, nil
}
