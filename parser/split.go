package parser

import (
	"fmt"

	"github.com/chazu/chirp/lexer"
)

// maxReportedCount caps CountMismatchError.Got; 255 means "255 or more".
const maxReportedCount = 255

// CountMismatchError reports that Split found a different number of
// arguments than requested.
type CountMismatchError struct {
	Want int
	Got  int
}

func (e *CountMismatchError) Error() string {
	if e.Got == maxReportedCount {
		return fmt.Sprintf("expected %d arguments, got at least %d", e.Want, e.Got)
	}
	return fmt.Sprintf("expected %d arguments, got %d", e.Want, e.Got)
}

// ArgParseError reports malformed nesting or a stray delimiter. Offset is
// the byte offset in the split input where parsing was blocked.
type ArgParseError struct {
	Offset int
}

func (e *ArgParseError) Error() string {
	return fmt.Sprintf("malformed arguments at byte %d", e.Offset)
}

// Split breaks a method argument list such as `(20%, f(a, b), "c,d")` on
// its top-level commas and returns exactly n items. Surrounding parentheses
// are optional. Commas nested in (), [] or {} or inside string literals do
// not separate arguments. Items keep their source text, without the
// whitespace around them.
func Split(input string, n int) ([]string, error) {
	items, err := SplitAll(input)
	if err != nil {
		return nil, err
	}
	if len(items) != n {
		got := len(items)
		if got > maxReportedCount {
			got = maxReportedCount
		}
		return nil, &CountMismatchError{Want: n, Got: got}
	}
	return items, nil
}

// SplitAll is Split without the count check.
func SplitAll(input string) ([]string, error) {
	src := []byte(input)
	start, end := 0, len(src)
	if end >= 2 && src[0] == '(' && src[end-1] == ')' {
		start, end = 1, end-1
	}

	s := lexer.NewStreamRange(src, start, end, struct{}{})
	items := []string{}
	for !s.IsEmpty() {
		itemStart := s.NextStart()
		itemEnd, trees, terr := tokenTrees(s)
		if terr != nil {
			return nil, &ArgParseError{Offset: terr.off}
		}
		if trees == 0 {
			return nil, &ArgParseError{Offset: s.NextStart()}
		}
		items = append(items, input[itemStart:itemEnd])

		if s.IsEmpty() {
			break
		}
		if err := s.Comma(); err != nil {
			return nil, &ArgParseError{Offset: s.NextStart()}
		}
	}
	return items, nil
}
