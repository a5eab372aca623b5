package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/cache"
	"github.com/chazu/chirp/diag"
	"github.com/chazu/chirp/manifest"
	"github.com/chazu/chirp/parser"
	"github.com/chazu/chirp/scene"
)

// analysis is the outcome of parsing and building one document.
type analysis struct {
	path    string
	src     []byte
	ast     *ast.Ast
	err     error // read or parse error
	builder *scene.Builder
}

// analyser parses and builds documents. It is safe for concurrent use: the
// cache, the registry and the resolver synchronize internally.
type analyser struct {
	store    *cache.Store
	registry *scene.Registry

	mu        sync.Mutex
	resolvers map[string]*manifest.Resolver
}

func newAnalyser(store *cache.Store) *analyser {
	return &analyser{
		store:     store,
		registry:  scene.DefaultRegistry(),
		resolvers: make(map[string]*manifest.Resolver),
	}
}

func (a *analyser) parse(src []byte) (*ast.Ast, error) {
	if a.store != nil {
		return a.store.Parse(src)
	}
	return parser.Parse(src)
}

// resolver returns the project's resolver, or one rooted at the document's
// directory when there is no manifest.
func (a *analyser) resolver(path string) *manifest.Resolver {
	key := ""
	if project == nil {
		abs, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			abs = filepath.Dir(path)
		}
		key = abs
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.resolvers[key]
	if !ok {
		m := project
		if m == nil {
			m = manifest.Default(key)
		}
		r = manifest.NewResolver(m)
		a.resolvers[key] = r
	}
	return r
}

// analyse reads, parses and, when build is set, builds path.
func (a *analyser) analyse(path string, build bool) *analysis {
	res := &analysis{path: path}
	res.src, res.err = os.ReadFile(path)
	if res.err != nil {
		return res
	}
	res.ast, res.err = a.parse(res.src)
	if res.err != nil || !build {
		return res
	}

	resolver := a.resolver(path)
	res.builder = scene.NewBuilder(a.registry)
	res.builder.SetLoader(func(module string) (*ast.Ast, error) {
		p, err := resolver.Resolve(path, module)
		if err != nil {
			return nil, err
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		log.Debugf("%s: loaded %s from %s", path, module, p)
		return a.parse(src)
	})
	res.builder.Build(res.ast)
	return res
}

// report prints the analysis diagnostics to stderr and returns the number
// of errors and warnings.
func (r *analysis) report() (errs, warnings int) {
	name := r.path
	if r.err != nil {
		if r.src == nil {
			fmt.Fprintf(os.Stderr, "error in %s: %v\n", name, r.err)
		} else {
			fmt.Fprintln(os.Stderr, diag.RenderError(name, r.src, r.err))
		}
		return 1, 0
	}
	if r.builder == nil {
		return 0, 0
	}
	x := diag.NewIndex(r.src)
	for _, d := range r.builder.Diagnostics() {
		fmt.Fprintln(os.Stderr, x.Render(diag.Report{
			Name:     name,
			Severity: d.Severity.String(),
			Span:     d.Span,
			Message:  d.Message,
		}))
		if d.Severity == scene.SeverityWarning {
			warnings++
		} else {
			errs++
		}
	}
	return errs, warnings
}

// ---------------------------------------------------------------------------
// chirp check
// ---------------------------------------------------------------------------

func handleCheckCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	noCache := fs.Bool("no-cache", false, "Do not use the parse cache")
	parseOnly := fs.Bool("parse", false, "Only parse; skip building")
	strict := fs.Bool("strict", false, "Treat warnings as errors")
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "Number of documents checked concurrently")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chirp check [options] [files or directories...]\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	files, err := sourceFiles(fs.Args())
	if err != nil {
		fatalf("%v", err)
	}

	store := openCache(*noCache)
	results := checkFiles(newAnalyser(store), files, !*parseOnly, *jobs)

	var errs, warnings int
	for _, r := range results {
		e, w := r.report()
		errs += e
		warnings += w
	}
	fmt.Fprintf(os.Stderr, "checked %d files: %d errors, %d warnings\n", len(files), errs, warnings)
	if store != nil {
		hits, misses := store.Stats()
		log.Infof("parse cache: %d hits, %d misses", hits, misses)
		store.Close()
	}
	if errs > 0 || (*strict && warnings > 0) {
		os.Exit(1)
	}
}

// checkFiles analyses files with at most jobs running at once. Results are
// returned in the order of files.
func checkFiles(a *analyser, files []string, build bool, jobs int) []*analysis {
	results := make([]*analysis, len(files))
	var g errgroup.Group
	g.SetLimit(max(jobs, 1))
	for i, path := range files {
		g.Go(func() error {
			results[i] = a.analyse(path, build)
			return nil
		})
	}
	g.Wait()
	return results
}
