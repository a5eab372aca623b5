package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chazu/chirp/cache"
	"github.com/chazu/chirp/manifest"
	"github.com/chazu/chirp/scene"
	"github.com/chazu/chirp/server"
)

func requireProject(cmd string) *manifest.Manifest {
	if project == nil {
		fatalf("chirp %s requires a %s", cmd, manifest.FileName)
	}
	return project
}

// handleDepsCommand fetches every dependency of the project and prints
// where each one lives.
func handleDepsCommand(args []string) {
	fs := flag.NewFlagSet("deps", flag.ExitOnError)
	fs.Parse(args)

	m := requireProject("deps")
	if len(m.Dependencies) == 0 {
		fmt.Println("no dependencies")
		return
	}
	deps, err := manifest.NewResolver(m).Sync()
	if err != nil {
		fatalf("%v", err)
	}
	for _, d := range deps {
		fmt.Printf("%s\t%s\n", d.Name, d.LocalPath)
	}
}

// handleCacheCommand inspects or trims the parse cache.
// Usage:
//
//	chirp cache stats
//	chirp cache prune -age 720h
//	chirp cache clear
func handleCacheCommand(args []string) {
	if len(args) == 0 {
		fatalf("usage: chirp cache <stats|prune|clear>")
	}
	m := requireProject("cache")

	fs := flag.NewFlagSet("cache "+args[0], flag.ExitOnError)
	age := fs.Duration("age", 30*24*time.Hour, "Prune entries older than this")
	fs.Parse(args[1:])

	store, err := cache.Open(m.CachePath())
	if err != nil {
		fatalf("%v", err)
	}
	defer store.Close()

	switch args[0] {
	case "stats":
		n, err := store.Len()
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s: %d documents\n", m.CachePath(), n)
	case "prune", "clear":
		cutoff := time.Now().Add(-*age)
		if args[0] == "clear" {
			cutoff = time.Now().Add(time.Hour)
		}
		n, err := store.Prune(cutoff)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("removed %d entries\n", n)
	default:
		fatalf("unknown cache command %q", args[0])
	}
}

// handleLSPCommand serves the language server on stdio.
func handleLSPCommand(args []string) {
	fs := flag.NewFlagSet("lsp", flag.ExitOnError)
	noCache := fs.Bool("no-cache", false, "Do not use the parse cache")
	fs.Parse(args)

	name := ""
	if project != nil {
		name = project.LSP.Name
	}
	store := openCache(*noCache)
	if store != nil {
		defer store.Close()
	}

	ws := server.NewWorkspace(project, store, scene.DefaultRegistry())
	if err := server.NewLSP(ws, name).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
		os.Exit(1)
	}
}
