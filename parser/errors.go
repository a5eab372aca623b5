package parser

import (
	"fmt"

	"github.com/chazu/chirp/ast"
	"github.com/chazu/chirp/lexer"
)

// ErrorKind classifies grammar errors.
type ErrorKind int

const (
	Expected ErrorKind = iota
	Unbalanced
	Unexpected
	StatementDelimiter
	StartStatement
	BadMethod
	FileName
	TrailingText
	TooManyArguments
	InputTooLarge
	FnBody
)

var errorKindNames = [...]string{
	Expected:           "Expected",
	Unbalanced:         "Unbalanced",
	Unexpected:         "Unexpected",
	StatementDelimiter: "StatementDelimiter",
	StartStatement:     "StartStatement",
	BadMethod:          "BadMethod",
	FileName:           "FileName",
	TrailingText:       "TrailingText",
	TooManyArguments:   "TooManyArguments",
	InputTooLarge:      "InputTooLarge",
	FnBody:             "FnBody",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var helpTexts = [...]string{
	Expected: "The parser expected a specific token here. " +
		"Check for a missing closing delimiter or a misspelled keyword.",
	Unbalanced: "Delimiters inside method arguments must be balanced. " +
		"If the argument really contains a lone (, [ or {, wrap the whole argument " +
		`in a string literal, e.g. text("a :-(").`,
	Unexpected: "This token cannot appear here. Arguments are non-empty and " +
		"only contain = or , inside nested delimiters.",
	StatementDelimiter: "A statement name must be followed by its methods in parentheses " +
		"or by its children in curly braces. An empty () is acceptable when the entity " +
		"has no methods. There are no statement separators: do not put , or ; between statements.",
	StartStatement: "A statement starts with an entity name or string, Entity, spawn, " +
		"a template call Name!(...), code(name), ( or {.",
	BadMethod: "Methods are identifiers optionally followed by their arguments in parentheses, " +
		"e.g. Width(10px). Strings and nested delimiters may only appear inside the arguments.",
	FileName: "use must be followed by the file to import from, written as an identifier " +
		"or a string, then the imported items in parentheses: use \"ui.chirp\" (Button).",
	TrailingText: "A document has exactly one root statement after its imports and fn " +
		"declarations. Wrap several entities in a parent: Entity { A() B() }.",
	TooManyArguments: fmt.Sprintf("A method, template call or fn declaration accepts at most %d "+
		"arguments or parameters.", ast.MaxCount),
	FnBody: "A fn body has exactly one root statement. Wrap several entities in a parent: " +
		"fn Row() { Entity { A() B() } }.",
	InputTooLarge: fmt.Sprintf("Documents are limited to %d bytes.", ast.MaxOffset),
}

// Help returns a constant text describing the likely cause of k and how to
// fix it.
func (k ErrorKind) Help() string {
	if int(k) < len(helpTexts) {
		return helpTexts[k]
	}
	return ""
}

// Got describes the token found where the grammar failed.
type Got struct {
	Kind lexer.Kind
	EOF  bool
}

func (g Got) String() string {
	if g.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", g.Kind.String())
}

// Error is a grammar error with the byte span of the failure.
type Error struct {
	Kind     ErrorKind
	Expected lexer.Kind // only for Expected
	Got      Got
	Span     ast.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("byte %d: %s", e.Span.Start, e.Message())
}

// Message describes the error without its position.
func (e *Error) Message() string {
	switch e.Kind {
	case Expected:
		return fmt.Sprintf("expected %q, got %s", e.Expected.String(), e.Got)
	case Unbalanced:
		return fmt.Sprintf("unbalanced delimiter, got %s", e.Got)
	case Unexpected:
		return fmt.Sprintf("unexpected %s", e.Got)
	case StatementDelimiter:
		return fmt.Sprintf("expected \"(\" or \"{\" after statement name, got %s", e.Got)
	case StartStatement:
		return fmt.Sprintf("expected a statement, got %s", e.Got)
	case BadMethod:
		return fmt.Sprintf("expected a method name, got %s", e.Got)
	case FileName:
		return fmt.Sprintf("expected a file name after use, got %s", e.Got)
	case TrailingText:
		return "unexpected text after the root statement"
	case TooManyArguments:
		return fmt.Sprintf("more than %d arguments", ast.MaxCount)
	case InputTooLarge:
		return fmt.Sprintf("input larger than %d bytes", ast.MaxOffset)
	case FnBody:
		return fmt.Sprintf("a fn body holds one statement, got a second one starting with %s", e.Got)
	}
	return e.Kind.String()
}

// Help returns the help text of the error's kind.
func (e *Error) Help() string {
	return e.Kind.Help()
}

// failure is a grammar error together with its recovery mode. A cut failure
// commits: it propagates to Parse without trying alternatives.
type failure struct {
	err *Error
	cut bool
}
