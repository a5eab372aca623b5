package ast

import (
	"errors"
	"testing"
)

// buildNamedSpawn builds the buffer for `Name(method(10))` by hand, the way
// the grammar does: reserve, descend, write.
func buildNamedSpawn(t *testing.T) *Ast {
	t.Helper()
	input := []byte("Name(method(10))")
	b := NewBuilder(len(input))

	file := Reserve[FileHeader](b)
	root := b.Len()
	WriteHeader(b, StatementHeader{Kind: KindSpawn})
	spawn := Reserve[SpawnHeader](b)
	methodsStart := b.Len()
	WriteHeader(b, MethodHeader{Name: 5, ArgCount: 1})
	WriteHeader(b, ArgumentHeader{Start: 12, End: 14})
	Write(b, spawn, SpawnHeader{Name: 0, MethodsLen: uint32(b.Len() - methodsStart)})
	Write(b, file, FileHeader{RootOffset: uint32(root)})

	return &Ast{Input: input, Blocks: b.Blocks()}
}

func TestBuilderReserveWrite(t *testing.T) {
	b := NewBuilder(0)
	s := Reserve[SpawnHeader](b)
	if b.Len() != 3 {
		t.Fatalf("Reserve[SpawnHeader] appended %d blocks, want 3", b.Len())
	}
	if s.Pos() != 0 {
		t.Errorf("slot pos = %d, want 0", s.Pos())
	}
	Write(b, s, SpawnHeader{Name: Absent, MethodsLen: 4, ChildrenLen: 7})
	got := b.Blocks()
	if got[0] != 0xFFFFFFFF || got[1] != 4 || got[2] != 7 {
		t.Errorf("blocks = %v, want [absent 4 7]", got)
	}
}

func TestSplitBlock(t *testing.T) {
	blk := split(5, 1234)
	if upper(blk) != 5 || lower(blk) != 1234 {
		t.Errorf("split(5, 1234) decodes to (%d, %d)", upper(blk), lower(blk))
	}
	blk = split(MaxCount, MaxOffset)
	if blk != 0xFFFFFFFF {
		t.Errorf("split(max, max) = %#x, want all ones", blk)
	}
}

func TestViewsNamedSpawn(t *testing.T) {
	a := buildNamedSpawn(t)
	if err := Validate(a.Input, a.Blocks); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	f := a.File()
	if f.Imports().Len() != 0 {
		t.Errorf("imports = %d, want 0", f.Imports().Len())
	}
	if f.Fns().Count() != 0 {
		t.Errorf("fns = %d, want 0", f.Fns().Count())
	}
	if f.Len() != len(a.Blocks) {
		t.Errorf("file len = %d, want %d", f.Len(), len(a.Blocks))
	}

	root := f.Root()
	if root.Kind() != KindSpawn {
		t.Fatalf("root kind = %v, want spawn", root.Kind())
	}
	sp, _ := root.Spawn()
	if sp.Name().String() != "Name" {
		t.Errorf("spawn name = %q, want Name", sp.Name())
	}
	if sp.Name().Span != (Span{0, 4}) {
		t.Errorf("spawn name span = %v, want {0 4}", sp.Name().Span)
	}
	if !sp.Children().Empty() {
		t.Error("spawn should have no children")
	}

	var methods []Method
	for m := range sp.Methods().All() {
		methods = append(methods, m)
	}
	if len(methods) != 1 {
		t.Fatalf("methods = %d, want 1", len(methods))
	}
	if methods[0].Name().String() != "method" {
		t.Errorf("method name = %q, want method", methods[0].Name())
	}
	args := methods[0].Args()
	if args.Len() != 1 || string(args.At(0).Bytes()) != "10" {
		t.Errorf("method args = %d, first %q; want 1, 10", args.Len(), args.At(0).Bytes())
	}
}

func TestAbsentName(t *testing.T) {
	n := nameAt([]byte("x"), Absent)
	if !n.Absent() {
		t.Errorf("nameAt(Absent) = %q, want absent", n)
	}
}

func TestValidateRejectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b []Block) []Block
	}{
		{"truncated", func(b []Block) []Block { return b[:len(b)-1] }},
		{"trailing block", func(b []Block) []Block { return append(b, 0) }},
		{"bad discriminant", func(b []Block) []Block { b[2] = 9; return b }},
		{"methods overrun", func(b []Block) []Block { b[4] = 40; return b }},
		{"name not a token", func(b []Block) []Block { b[6] = split(1, 4); return b }},
		{"argument out of input", func(b []Block) []Block { b[8] = 99; return b }},
		{"root past end", func(b []Block) []Block { b[1] = 50; return b }},
		{"empty", func(b []Block) []Block { return nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := buildNamedSpawn(t)
			blocks := tc.mutate(append([]Block(nil), a.Blocks...))
			err := Validate(a.Input, blocks)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate = %v, want *ValidationError", err)
			}
		})
	}
}
