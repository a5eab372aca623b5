package lexer

import "fmt"

// ---------------------------------------------------------------------------
// Stream: backtrackable token cursor
// ---------------------------------------------------------------------------

// Checkpoint is a saved cursor position for backtracking.
type Checkpoint struct {
	Offset int
	End    int
}

// Mismatch reports that the next token was not the expected kind. The
// cursor is left where it was.
type Mismatch struct {
	Want Kind
	Got  Kind
	EOF  bool // no token left; Got is meaningless
}

func (m *Mismatch) Error() string {
	if m.EOF {
		return fmt.Sprintf("expected %s, got end of input", m.Want)
	}
	return fmt.Sprintf("expected %s, got %s", m.Want, m.Got)
}

// Stream is a cursor over input[offset:end]. It carries a user State: the
// AST builder while parsing, or struct{} for pure token walks.
type Stream[S any] struct {
	input []byte
	off   int
	end   int

	State S
}

// NewStream returns a stream over the whole input.
func NewStream[S any](input []byte, state S) *Stream[S] {
	return &Stream[S]{input: input, end: len(input), State: state}
}

// NewStreamRange returns a stream over input[start:end]. Offsets reported by
// the stream remain relative to input.
func NewStreamRange[S any](input []byte, start, end int, state S) *Stream[S] {
	if end > len(input) {
		end = len(input)
	}
	if start > end {
		start = end
	}
	return &Stream[S]{input: input, off: start, end: end, State: state}
}

// Input returns the full underlying input.
func (s *Stream[S]) Input() []byte {
	return s.input
}

// Offset returns the byte offset just past the last consumed token.
func (s *Stream[S]) Offset() int {
	return s.off
}

// End returns the offset at which the stream stops.
func (s *Stream[S]) End() int {
	return s.end
}

// NextStart returns the offset at which the next token begins, or End()
// when nothing but whitespace remains.
func (s *Stream[S]) NextStart() int {
	return SkipSpace(s.input[:s.end], s.off)
}

// Next consumes and returns the next token.
func (s *Stream[S]) Next() (Token, bool) {
	tok, _, next, ok := Scan(s.input[:s.end], s.off)
	s.off = next
	return tok, ok
}

// Peek returns the next token without consuming it.
func (s *Stream[S]) Peek() (Token, bool) {
	tok, _, _, ok := Scan(s.input[:s.end], s.off)
	return tok, ok
}

// PeekKind is a shorthand for the kind of the next token.
func (s *Stream[S]) PeekKind() (Kind, bool) {
	tok, ok := s.Peek()
	return tok.Kind, ok
}

// IsEmpty reports whether Next would return no token.
func (s *Stream[S]) IsEmpty() bool {
	return s.NextStart() >= s.end
}

// Checkpoint saves the current position.
func (s *Stream[S]) Checkpoint() Checkpoint {
	return Checkpoint{Offset: s.off, End: s.end}
}

// Reset restores a position saved by Checkpoint.
func (s *Stream[S]) Reset(cp Checkpoint) {
	s.off = cp.Offset
	s.end = cp.End
}

// Expect consumes the next token if it is of kind k.
func (s *Stream[S]) Expect(k Kind) (Token, error) {
	tok, _, next, ok := Scan(s.input[:s.end], s.off)
	if !ok {
		return Token{}, &Mismatch{Want: k, EOF: true}
	}
	if tok.Kind != k {
		return Token{}, &Mismatch{Want: k, Got: tok.Kind}
	}
	s.off = next
	return tok, nil
}

func (s *Stream[S]) expect(k Kind) error {
	_, err := s.Expect(k)
	return err
}

// Typed single-token matchers.

func (s *Stream[S]) Equal() error    { return s.expect(Equal) }
func (s *Stream[S]) LParen() error   { return s.expect(LParen) }
func (s *Stream[S]) RParen() error   { return s.expect(RParen) }
func (s *Stream[S]) LCurly() error   { return s.expect(LCurly) }
func (s *Stream[S]) RCurly() error   { return s.expect(RCurly) }
func (s *Stream[S]) LBracket() error { return s.expect(LBracket) }
func (s *Stream[S]) RBracket() error { return s.expect(RBracket) }
func (s *Stream[S]) Comma() error    { return s.expect(Comma) }

// Ident consumes an identifier and returns its bytes.
func (s *Stream[S]) Ident() ([]byte, error) {
	tok, err := s.Expect(Ident)
	return tok.Bytes, err
}

// String consumes a string literal and returns its bytes, quotes included.
func (s *Stream[S]) String() ([]byte, error) {
	tok, err := s.Expect(String)
	return tok.Bytes, err
}
