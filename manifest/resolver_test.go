package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("A()"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "project")
	widgets := filepath.Join(root, "widgets")
	icons := filepath.Join(root, "icons")

	writeManifestAt := func(dir, content string) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		writeManifest(t, dir, content)
	}
	writeManifestAt(project, `
[source]
dirs = ["src", "lib"]

[dependencies]
widgets = { path = "../widgets" }
icons = { path = "../icons" }
`)
	writeManifestAt(widgets, "[source]\ndirs = [\"ui\"]\n")

	touch(t, filepath.Join(project, "src", "main.chirp"))
	touch(t, filepath.Join(project, "src", "scenes", "local.chirp"))
	touch(t, filepath.Join(project, "src", "shared.chirp"))
	touch(t, filepath.Join(project, "lib", "shared.chirp"))
	touch(t, filepath.Join(project, "lib", "util.chirp"))
	touch(t, filepath.Join(widgets, "ui", "button.chirp"))
	touch(t, filepath.Join(icons, "star.chirp"))

	m, err := Load(project)
	if err != nil {
		t.Fatal(err)
	}
	r := NewResolver(m)
	from := filepath.Join(project, "src", "scenes", "main.chirp")

	tests := []struct {
		module string
		want   string
	}{
		{"local", filepath.Join(project, "src", "scenes", "local.chirp")},
		{"local.chirp", filepath.Join(project, "src", "scenes", "local.chirp")},
		{"shared", filepath.Join(project, "src", "shared.chirp")},
		{"util", filepath.Join(project, "lib", "util.chirp")},
		{"scenes/local", filepath.Join(project, "src", "scenes", "local.chirp")},
		{"widgets/button", filepath.Join(widgets, "ui", "button.chirp")},
		{"icons/star.chirp", filepath.Join(icons, "star.chirp")},
	}
	for _, tc := range tests {
		got, err := r.Resolve(from, tc.module)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tc.module, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.module, got, tc.want)
		}
	}

	for _, missing := range []string{"nope", "widgets/nope", "scenes"} {
		if _, err := r.Resolve(from, missing); !errors.Is(err, ErrModuleNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrModuleNotFound", missing, err)
		}
	}
}

func TestSyncPathDependencies(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "lib", "a.chirp"))
	writeManifest(t, root, "[dependencies]\nlib = { path = \"lib\" }\n")

	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	deps, err := NewResolver(m).Sync()
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "lib" || deps[0].Manifest != nil {
		t.Fatalf("deps = %+v", deps)
	}
	if deps[0].LocalPath != filepath.Join(m.Dir, "lib") {
		t.Errorf("LocalPath = %q", deps[0].LocalPath)
	}
}

func TestSyncMissingPathDependency(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[dependencies]\ngone = { path = \"../gone\" }\n")
	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewResolver(m).Sync(); err == nil {
		t.Error("Sync succeeded with a missing path dependency")
	}
}

func TestUnclonedGitDependency(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[dependencies]\nremote = { git = \"https://example.invalid/remote.git\", tag = \"v1\" }\n")
	m, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewResolver(m).Resolve("", "remote/thing")
	if err == nil {
		t.Fatal("Resolve succeeded for an uncloned git dependency")
	}
}
