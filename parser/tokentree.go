package parser

import "github.com/chazu/chirp/lexer"

// treeError is a failure inside a token tree, located at the byte offset
// where the walk was blocked.
type treeError struct {
	kind ErrorKind
	got  Got
	off  int
}

// tokenTrees consumes a maximal run of token trees: identifiers, strings, and
// balanced (), [] or {} groups. It stops without consuming at a top-level
// ',' '=' or closing delimiter, or at end of input. It returns the offset
// just past the last consumed tree and the number of trees consumed.
func tokenTrees[S any](s *lexer.Stream[S]) (end, count int, terr *treeError) {
	end = s.Offset()
	for {
		tok, ok := s.Peek()
		if !ok {
			return end, count, nil
		}
		switch {
		case tok.Kind == lexer.Ident || tok.Kind == lexer.String:
			s.Next()
		case tok.Kind.IsOpen():
			if terr := nestedTree(s); terr != nil {
				return end, count, terr
			}
		default:
			return end, count, nil
		}
		count++
		end = s.Offset()
	}
}

// nestedTree consumes an opening delimiter and everything up to its
// matching closer. Inside, '=' and ',' are ordinary tokens.
func nestedTree[S any](s *lexer.Stream[S]) *treeError {
	open, _ := s.Next()
	stack := []lexer.Kind{open.Kind.Closer()}
	for len(stack) > 0 {
		at := s.NextStart()
		tok, ok := s.Next()
		if !ok {
			return &treeError{kind: Unbalanced, got: Got{EOF: true}, off: at}
		}
		switch {
		case tok.Kind.IsOpen():
			stack = append(stack, tok.Kind.Closer())
		case tok.Kind.IsClose():
			if tok.Kind != stack[len(stack)-1] {
				return &treeError{kind: Unbalanced, got: Got{Kind: tok.Kind}, off: at}
			}
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}
