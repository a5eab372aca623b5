package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/diag"
	"github.com/chazu/chirp/interp"
	"github.com/chazu/chirp/parser"
	"github.com/chazu/chirp/scene"
)

// ---------------------------------------------------------------------------
// chirp build
// ---------------------------------------------------------------------------

// handleBuildCommand processes the `chirp build` subcommand.
// Usage:
//
//	chirp build scene.chirp                  # outline on stdout
//	chirp build -format cbor -o out.cbor     # entry document as CBOR
func handleBuildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: text, json or cbor")
	output := fs.String("o", "", "Output file (default stdout)")
	noCache := fs.Bool("no-cache", false, "Do not use the parse cache")
	fs.Parse(args)

	path := entryFile(fs.Args(), "build")
	store := openCache(*noCache)
	if store != nil {
		defer store.Close()
	}

	res := newAnalyser(store).analyse(path, true)
	errs, _ := res.report()
	if errs > 0 {
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatalf("%v", err)
		}
		defer f.Close()
		w = f
	}
	if err := writeScene(w, *format, path, res.builder.Roots()); err != nil {
		fatalf("%v", err)
	}
}

// writeScene encodes roots in the named format.
func writeScene(w io.Writer, format, source string, roots []*scene.Entity) error {
	switch format {
	case "text":
		return scene.Fprint(w, roots)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scene.Document{Version: scene.FormatVersion, Source: source, Roots: roots})
	case "cbor":
		data, err := scene.Marshal(source, roots)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q (want text, json or cbor)", format)
}

// ---------------------------------------------------------------------------
// chirp trace
// ---------------------------------------------------------------------------

func handleTraceCommand(args []string) {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	fs.Parse(args)

	path := entryFile(fs.Args(), "trace")
	a := mustParse(path)
	rec := scene.NewRecorder()
	interp.Interpret(a, rec)
	fmt.Println(rec.String())
}

// mustParse reads and parses path, exiting with a rendered error on failure.
func mustParse(path string) *ast.Ast {
	src, err := os.ReadFile(path)
	if err != nil {
		fatalf("%v", err)
	}
	a, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, diag.RenderError(path, src, err))
		os.Exit(1)
	}
	return a
}

// ---------------------------------------------------------------------------
// chirp dump
// ---------------------------------------------------------------------------

func handleDumpCommand(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	blocks := fs.Bool("blocks", false, "Print the raw block buffer")
	fs.Parse(args)

	a := mustParse(entryFile(fs.Args(), "dump"))
	if *blocks {
		dumpBlocks(os.Stdout, a.Blocks)
		return
	}
	dumpAst(os.Stdout, a)
}

func dumpBlocks(w io.Writer, blocks []ast.Block) {
	for i, b := range blocks {
		fmt.Fprintf(w, "%5d  %08x  %d\n", i, b, b)
	}
}

// dumpAst writes an indented outline of a with the span of every name.
func dumpAst(w io.Writer, a *ast.Ast) {
	file := a.File()
	fmt.Fprintf(w, "file (%d blocks)\n", len(a.Blocks))
	for _, imp := range file.Imports().All() {
		fmt.Fprintf(w, "  use %s %s", imp.Module(), named(imp.Name()))
		if !imp.Alias().Absent() {
			fmt.Fprintf(w, " as %s", named(imp.Alias()))
		}
		fmt.Fprintln(w)
	}
	for fn := range file.Fns().All() {
		var params []string
		for _, p := range fn.Params().All() {
			params = append(params, p.Name().String())
		}
		fmt.Fprintf(w, "  fn %s(%s)\n", named(fn.Name()), strings.Join(params, ", "))
		dumpStatement(w, fn.Body(), 2)
	}
	fmt.Fprintln(w, "  root")
	dumpStatement(w, file.Root(), 2)
}

func dumpStatement(w io.Writer, st ast.Statement, depth int) {
	pad := strings.Repeat("  ", depth)
	var methods ast.List[ast.Method]
	var children ast.List[ast.Statement]
	switch st.Kind() {
	case ast.KindCode:
		c, _ := st.Code()
		fmt.Fprintf(w, "%scode %s\n", pad, named(c.Name()))
		return
	case ast.KindTemplate:
		t, _ := st.Template()
		var args []string
		for _, a := range t.Args().All() {
			args = append(args, string(a.Bytes()))
		}
		fmt.Fprintf(w, "%stemplate %s [%s]\n", pad, named(t.Name()), strings.Join(args, " | "))
		methods, children = t.Methods(), t.Children()
	case ast.KindSpawn:
		sp, _ := st.Spawn()
		name := "<anonymous>"
		if !sp.Name().Absent() {
			name = named(sp.Name())
		}
		fmt.Fprintf(w, "%sspawn %s\n", pad, name)
		methods, children = sp.Methods(), sp.Children()
	}
	for m := range methods.All() {
		var args []string
		for _, a := range m.Args().All() {
			args = append(args, string(a.Bytes()))
		}
		fmt.Fprintf(w, "%s  .%s [%s]\n", pad, named(m.Name()), strings.Join(args, " | "))
	}
	for c := range children.All() {
		dumpStatement(w, c, depth+1)
	}
}

func named(n ast.Name) string {
	return fmt.Sprintf("%s@%d..%d", n, n.Span.Start, n.Span.End)
}

// ---------------------------------------------------------------------------
// chirp split
// ---------------------------------------------------------------------------

func handleSplitCommand(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	n := fs.Int("n", -1, "Expected number of arguments (-1 accepts any)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chirp split [-n N] '<arguments>'\n\n")
		fmt.Fprintf(os.Stderr, "Splits a method argument list the way registered methods receive it.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	var items []string
	var err error
	if *n < 0 {
		items, err = parser.SplitAll(fs.Arg(0))
	} else {
		items, err = parser.Split(fs.Arg(0), *n)
	}
	if err != nil {
		fatalf("%v", err)
	}
	for _, item := range items {
		fmt.Println(item)
	}
}
