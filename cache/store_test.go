package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/parser"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func equalBlocks(a, b []ast.Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	input := []byte("fn T(x) { N(m(x)) }\nRoot { T!(1) Child(a b) }")

	if _, err := s.Get(input); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrMiss", err)
	}

	a := parser.MustParse(string(input))
	if err := s.Put(a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(input)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !equalBlocks(got.Blocks, a.Blocks) {
		t.Errorf("Get blocks = %v, want %v", got.Blocks, a.Blocks)
	}
	if n, _ := s.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
	if hits, misses := s.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestParseCachesSuccessOnly(t *testing.T) {
	s := openTemp(t)
	good := []byte("Root(a) { B() }")

	first, err := s.Parse(good)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := s.Parse(good)
	if err != nil {
		t.Fatalf("Parse (cached): %v", err)
	}
	if !equalBlocks(first.Blocks, second.Blocks) {
		t.Errorf("cached blocks differ")
	}
	if hits, _ := s.Stats(); hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}

	_, err = s.Parse([]byte("Root("))
	var pe *parser.Error
	if !errors.As(err, &pe) {
		t.Fatalf("Parse of bad input = %v, want *parser.Error", err)
	}
	if n, _ := s.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1 (errors are not cached)", n)
	}
}

func TestGetDiscardsInvalidEntry(t *testing.T) {
	s := openTemp(t)
	input := []byte("Name(method(10))")
	a := parser.MustParse(string(input))

	corrupt := append([]ast.Block(nil), a.Blocks...)
	corrupt[1] = 9999 // root offset past the buffer
	if err := s.Put(&ast.Ast{Input: input, Blocks: corrupt}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(input); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get of corrupt entry = %v, want ErrMiss", err)
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("corrupt entry not deleted, Len() = %d", n)
	}

	// Parse recovers by reparsing.
	got, err := s.Parse(input)
	if err != nil || !equalBlocks(got.Blocks, a.Blocks) {
		t.Errorf("Parse after discard = %v, %v", got, err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	input := []byte("A { B() }")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Parse(input); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(input); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestPrune(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for _, in := range []string{"A()", "B()", "C()"} {
		if _, err := s.Parse([]byte(in)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Prune(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Prune removed %d, want 3", n)
	}
	if left, _ := s.Len(); left != 0 {
		t.Errorf("Len() after prune = %d", left)
	}
}

func TestKey(t *testing.T) {
	a, b := Key([]byte("A()")), Key([]byte("A() "))
	if a == b {
		t.Error("different inputs share a key")
	}
	if len(a) != 32 || a != Key([]byte("A()")) {
		t.Errorf("Key = %q, want a stable 32-char hex string", a)
	}
}
