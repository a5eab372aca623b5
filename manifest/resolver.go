package manifest

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("chirp.manifest")

// ErrModuleNotFound is wrapped by Resolve when no candidate file exists.
var ErrModuleNotFound = errors.New("module not found")

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// SourceDirs returns the directories modules of the dependency are looked
// up in: its own source directories when it has a manifest, else its root.
func (d *ResolvedDep) SourceDirs() []string {
	if d.Manifest != nil {
		return d.Manifest.SourceDirPaths()
	}
	return []string{d.LocalPath}
}

// Resolver maps the module names of `use` declarations to files.
//
// A module name is a slash-separated path, with or without the source
// extension. "<dep>/<path>" refers to a file of dependency <dep>; any other
// name is looked up next to the importing document, then in each source
// directory.
type Resolver struct {
	manifest *Manifest

	mu   sync.Mutex
	deps map[string]*ResolvedDep
}

// NewResolver creates a resolver for m.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m, deps: make(map[string]*ResolvedDep)}
}

// Sync resolves every dependency, cloning or updating git dependencies
// into DepsDir. Dependencies are returned sorted by name.
func (r *Resolver) Sync() ([]ResolvedDep, error) {
	names := make([]string, 0, len(r.manifest.Dependencies))
	for name := range r.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []ResolvedDep
	for _, name := range names {
		rd, err := r.resolveDep(name, true)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		out = append(out, *rd)
	}
	return out, nil
}

// Resolve returns the path of module as imported from the document at
// fromPath. fromPath may be "" for documents without a file.
func (r *Resolver) Resolve(fromPath, module string) (string, error) {
	rel := filepath.FromSlash(module)
	if filepath.Ext(rel) == "" {
		rel += r.manifest.Source.Extension
	}
	if filepath.IsAbs(rel) {
		return existing(rel, module)
	}

	if head, rest, ok := strings.Cut(module, "/"); ok {
		if _, isDep := r.manifest.Dependencies[head]; isDep {
			rd, err := r.resolveDep(head, false)
			if err != nil {
				return "", fmt.Errorf("module %s: %w", module, err)
			}
			restRel := filepath.FromSlash(rest)
			if filepath.Ext(restRel) == "" {
				restRel += r.manifest.Source.Extension
			}
			for _, dir := range rd.SourceDirs() {
				if p, err := existing(filepath.Join(dir, restRel), module); err == nil {
					return p, nil
				}
			}
			return "", fmt.Errorf("%w: %s in dependency %s", ErrModuleNotFound, module, head)
		}
	}

	var candidates []string
	if fromPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(fromPath), rel))
	}
	for _, dir := range r.manifest.SourceDirPaths() {
		candidates = append(candidates, filepath.Join(dir, rel))
	}
	for _, c := range candidates {
		if p, err := existing(c, module); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModuleNotFound, module)
}

func existing(path, module string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	return filepath.Abs(path)
}

// resolveDep resolves a single dependency. Git dependencies are fetched only
// when fetch is set; otherwise they must already be cloned.
func (r *Resolver) resolveDep(name string, fetch bool) (*ResolvedDep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rd, ok := r.deps[name]; ok && !fetch {
		return rd, nil
	}
	dep := r.manifest.Dependencies[name]

	var localPath string
	switch {
	case dep.Path != "":
		localPath = dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(r.manifest.Dir, localPath)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}

	case dep.Git != "":
		localPath = filepath.Join(r.manifest.DepsDir(), name)
		_, statErr := os.Stat(localPath)
		switch {
		case os.IsNotExist(statErr) && !fetch:
			return nil, fmt.Errorf("git dependency %q is not cloned; run chirp deps", name)
		case os.IsNotExist(statErr):
			if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
				return nil, fmt.Errorf("creating deps dir: %w", err)
			}
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := git("", "clone", "--quiet", dep.Git, localPath); err != nil {
				return nil, err
			}
		case fetch:
			log.Infof("fetching %s", name)
			if err := git(localPath, "fetch", "--quiet", "--all", "--tags"); err != nil {
				return nil, err
			}
		}
		if fetch && dep.Tag != "" {
			if err := git(localPath, "checkout", "--quiet", dep.Tag); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", localPath, err)
	}
	var depManifest *Manifest
	if _, err := os.Stat(filepath.Join(abs, FileName)); err == nil {
		if depManifest, err = Load(abs); err != nil {
			return nil, err
		}
	}

	rd := &ResolvedDep{Name: name, LocalPath: abs, Manifest: depManifest}
	r.deps[name] = rd
	return rd, nil
}

// git runs a git subcommand in dir, folding its output into the error.
func git(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return nil
}
