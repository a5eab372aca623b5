package lexer

import (
	"errors"
	"testing"
)

func TestStreamPeekNext(t *testing.T) {
	s := NewStream([]byte("Name ( )"), struct{}{})

	tok, ok := s.Peek()
	if !ok || !tok.IsIdent("Name") {
		t.Fatalf("Peek = %v, want Name", tok)
	}
	if s.Offset() != 0 {
		t.Errorf("Peek moved offset to %d", s.Offset())
	}

	tok, _ = s.Next()
	if !tok.IsIdent("Name") {
		t.Errorf("Next = %v, want Name", tok)
	}
	if s.Offset() != 4 {
		t.Errorf("Offset = %d, want 4", s.Offset())
	}
	if s.NextStart() != 5 {
		t.Errorf("NextStart = %d, want 5", s.NextStart())
	}
	if err := s.LParen(); err != nil {
		t.Errorf("LParen: %v", err)
	}
	if err := s.RParen(); err != nil {
		t.Errorf("RParen: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("stream should be empty")
	}
}

func TestStreamMismatchLeavesCursor(t *testing.T) {
	s := NewStream([]byte("{ x }"), struct{}{})

	err := s.LParen()
	var m *Mismatch
	if !errors.As(err, &m) {
		t.Fatalf("LParen error = %v, want *Mismatch", err)
	}
	if m.Want != LParen || m.Got != LCurly || m.EOF {
		t.Errorf("mismatch = %+v, want want=( got={", m)
	}
	if s.Offset() != 0 {
		t.Errorf("offset after mismatch = %d, want 0", s.Offset())
	}

	if err := s.LCurly(); err != nil {
		t.Fatalf("LCurly: %v", err)
	}
	name, err := s.Ident()
	if err != nil || string(name) != "x" {
		t.Errorf("Ident = %q, %v; want x", name, err)
	}
	if err := s.RCurly(); err != nil {
		t.Errorf("RCurly: %v", err)
	}

	err = s.Comma()
	if !errors.As(err, &m) || !m.EOF {
		t.Errorf("Comma at end = %v, want EOF mismatch", err)
	}
	if m.Error() != "expected ,, got end of input" {
		t.Errorf("message = %q", m.Error())
	}
}

func TestStreamCheckpointReset(t *testing.T) {
	s := NewStream([]byte(`use "a" (b)`), struct{}{})
	cp := s.Checkpoint()

	s.Next()
	s.Next()
	if s.Offset() != 7 {
		t.Fatalf("offset = %d, want 7", s.Offset())
	}

	s.Reset(cp)
	if s.Offset() != 0 {
		t.Errorf("offset after reset = %d, want 0", s.Offset())
	}
	tok, _ := s.Next()
	if !tok.IsIdent("use") {
		t.Errorf("token after reset = %v, want use", tok)
	}
}

func TestStreamRange(t *testing.T) {
	input := []byte("outer(a, b) tail")
	s := NewStreamRange(input, 6, 10, struct{}{})

	var got []string
	for {
		tok, ok := s.Next()
		if !ok {
			break
		}
		got = append(got, string(tok.Bytes))
	}
	want := []string{"a", ",", "b"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s.Offset() != 10 {
		t.Errorf("offset = %d, want 10", s.Offset())
	}
}
