package lexer

// ---------------------------------------------------------------------------
// Lexer: on-demand tokenizer over raw bytes
// ---------------------------------------------------------------------------

// SkipSpace returns the offset of the first byte at or after off that is not
// whitespace or part of a comment. A lone '/' is consumed like whitespace;
// "//" starts a line comment that runs to the next '\n' or the end of input.
func SkipSpace(input []byte, off int) int {
	for off < len(input) {
		c := input[off]
		switch {
		case isSpace(c):
			off++
		case c == '/':
			if off+1 < len(input) && input[off+1] == '/' {
				off += 2
				for off < len(input) && input[off] != '\n' {
					off++
				}
				continue
			}
			off++
		default:
			return off
		}
	}
	return len(input)
}

// Scan reads the token that follows off. It returns the token, the offset
// where the token starts, and the offset just past it. ok is false iff only
// whitespace and comments remain.
func Scan(input []byte, off int) (tok Token, start, next int, ok bool) {
	start = SkipSpace(input, off)
	if start >= len(input) {
		return Token{}, len(input), len(input), false
	}

	c := input[start]
	if k := punctuation[c]; k >= 0 {
		return Token{Kind: Kind(k), Bytes: input[start : start+1]}, start, start + 1, true
	}

	if isQuote(c) {
		next = scanString(input, start)
		return Token{Kind: String, Bytes: input[start:next]}, start, next, true
	}

	next = start
	for next < len(input) && IsIdentByte(input[next]) {
		next++
	}
	return Token{Kind: Ident, Bytes: input[start:next]}, start, next, true
}

// scanString returns the offset just past the string literal starting at
// start. An unterminated literal extends to the end of input.
func scanString(input []byte, start int) int {
	quote := input[start]
	i := start + 1
	for i < len(input) {
		switch input[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		}
		i++
	}
	return len(input)
}

// NextToken scans the next token of *input and advances *input past it.
// It is the slice-based form of Scan for callers that walk a sub-slice.
func NextToken(input *[]byte) (Token, bool) {
	tok, _, next, ok := Scan(*input, 0)
	*input = (*input)[next:]
	return tok, ok
}

// TokenAt re-lexes the single token starting at or after off.
func TokenAt(input []byte, off int) (Token, int, bool) {
	if off < 0 || off > len(input) {
		return Token{}, 0, false
	}
	tok, start, _, ok := Scan(input, off)
	return tok, start, ok
}
