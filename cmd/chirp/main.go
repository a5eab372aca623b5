// chirp CLI - checks, formats, traces and builds chirp scene documents
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/chirp/cache"
	"github.com/chazu/chirp/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("chirp.cli")

// project is the manifest found above the working directory, or nil.
var project *manifest.Manifest

func main() {
	verbosity := flag.Int("v", -1, "Log verbosity (0 = errors only, 4 = debug); defaults to the manifest's [log] verbosity")
	logFile := flag.String("log", "", "Log file (default stderr)")
	noManifest := flag.Bool("no-manifest", false, "Ignore chirp.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chirp [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  check [paths...]          Parse and build documents, report diagnostics\n")
		fmt.Fprintf(os.Stderr, "  build [-format f] <file>  Build the entity tree (text, json or cbor)\n")
		fmt.Fprintf(os.Stderr, "  trace <file>              Print the interpreter callbacks\n")
		fmt.Fprintf(os.Stderr, "  dump [-blocks] <file>     Print the parsed AST\n")
		fmt.Fprintf(os.Stderr, "  fmt [-check] [paths...]   Format documents in place\n")
		fmt.Fprintf(os.Stderr, "  split [-n N] <args>       Split an argument list\n")
		fmt.Fprintf(os.Stderr, "  deps                      Fetch the manifest's dependencies\n")
		fmt.Fprintf(os.Stderr, "  cache <stats|prune|clear> Inspect the parse cache\n")
		fmt.Fprintf(os.Stderr, "  lsp                       Start the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*noManifest {
		m, err := manifest.FindAndLoad(".")
		switch {
		case err == nil:
			project = m
		case !errors.Is(err, manifest.ErrNotFound):
			fatalf("loading manifest: %v", err)
		}
	}
	configureLogging(*verbosity, *logFile)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "check":
		handleCheckCommand(rest)
	case "build":
		handleBuildCommand(rest)
	case "trace":
		handleTraceCommand(rest)
	case "dump":
		handleDumpCommand(rest)
	case "fmt":
		handleFmtCommand(rest)
	case "split":
		handleSplitCommand(rest)
	case "deps":
		handleDepsCommand(rest)
	case "cache":
		handleCacheCommand(rest)
	case "lsp":
		handleLSPCommand(rest)
	case "help", "-h", "--help":
		flag.Usage()
	default:
		fmt.Fprintf(os.Stderr, "chirp: unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

// configureLogging applies the -v and -log flags, falling back to the
// manifest's [log] section.
func configureLogging(verbosity int, file string) {
	var path *string
	if file != "" {
		path = &file
	}
	if project != nil {
		if verbosity < 0 {
			verbosity = project.Log.Verbosity
		}
		if path == nil {
			path = project.LogFile()
		}
	}
	if verbosity < 0 {
		verbosity = 0
	}
	commonlog.Configure(verbosity, path)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func extension() string {
	if project != nil {
		return project.Source.Extension
	}
	return manifest.DefaultExtension
}

// sourceFiles resolves paths to a sorted list of source files. Directories
// are walked for files with the project extension. With no paths, the
// manifest's source files are used, or the current directory.
func sourceFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		if project != nil {
			return project.SourceFiles()
		}
		paths = []string{"."}
	}

	ext := extension()
	var result []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", p, err)
		}
		if !info.IsDir() {
			result = append(result, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != p && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(path, ext) {
				result = append(result, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(result)
	return result, nil
}

// openCache opens the project's parse cache when it is enabled. Failures
// are logged and disable the cache.
func openCache(disabled bool) *cache.Store {
	if disabled || project == nil || !project.Cache.Enabled {
		return nil
	}
	store, err := cache.Open(project.CachePath())
	if err != nil {
		log.Warningf("parse cache disabled: %s", err)
		return nil
	}
	return store
}

// entryFile returns the single file argument, or the manifest's entry.
func entryFile(args []string, cmd string) string {
	switch {
	case len(args) == 1:
		return args[0]
	case len(args) == 0 && project != nil && project.Source.Entry != "":
		return project.EntryPath()
	default:
		fatalf("usage: chirp %s <file>", cmd)
		return ""
	}
}
