// Package manifest handles chirp.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked for in a project root.
const FileName = "chirp.toml"

// DefaultExtension is the source file extension used when the manifest
// does not set one.
const DefaultExtension = ".chirp"

// ErrNotFound is returned by FindAndLoad when no manifest exists between the
// start directory and the filesystem root.
var ErrNotFound = errors.New("no " + FileName + " found")

// Manifest represents a chirp.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project" json:"project"`
	Source       Source                `toml:"source" json:"source"`
	Cache        Cache                 `toml:"cache" json:"cache"`
	Log          Log                   `toml:"log" json:"log"`
	LSP          LSP                   `toml:"lsp" json:"lsp"`
	Dependencies map[string]Dependency `toml:"dependencies" json:"dependencies,omitempty"`

	// Dir is the directory containing the chirp.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs      []string `toml:"dirs" json:"dirs"`
	Extension string   `toml:"extension" json:"extension"`
	Entry     string   `toml:"entry" json:"entry"`
}

// Cache configures the parsed-document cache.
type Cache struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// LSP configures the language server.
type LSP struct {
	Name string `toml:"name" json:"name"`
}

// Dependency is a library of templates other projects can `use`. Modules
// of a dependency are imported as "<name>/<path>".
type Dependency struct {
	Git  string `toml:"git" json:"git,omitempty"`
	Tag  string `toml:"tag" json:"tag,omitempty"`
	Path string `toml:"path" json:"path,omitempty"`
}

// Default returns the manifest used when a project has no chirp.toml.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a chirp.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest text. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{Cache: Cache{Enabled: true}}
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	m.applyDefaults()
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"."}
	}
	if m.Source.Extension == "" {
		m.Source.Extension = DefaultExtension
	} else if !strings.HasPrefix(m.Source.Extension, ".") {
		m.Source.Extension = "." + m.Source.Extension
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".chirp", "cache.db")
	}
	if m.LSP.Name == "" {
		m.LSP.Name = "chirp-lsp"
	}
}

// FindAndLoad walks up from startDir to find a chirp.toml file, then loads
// and returns the manifest. It returns ErrNotFound if there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.path(d))
	}
	return paths
}

// EntryPath returns the path of the entry document, or "" when unset.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	return m.path(m.Source.Entry)
}

// CachePath returns the path of the cache database.
func (m *Manifest) CachePath() string {
	return m.path(m.Cache.Path)
}

// LogFile returns the log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.path(m.Log.File)
	return &p
}

// DepsDir returns the directory git dependencies are cloned into.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".chirp", "deps")
}

func (m *Manifest) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceFiles returns every file with the source extension under the source
// directories, sorted. Hidden directories are skipped.
func (m *Manifest) SourceFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, root := range m.SourceDirPaths() {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == m.Source.Extension && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
