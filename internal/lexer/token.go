package lexer

import "strings"

// Kind is the lexical category of a token.
type Kind uint8

const (
	// Unknown is a single character the grammar has no rule for.
	Unknown Kind = iota
	Identifier
	Keyword
	Punctuation
	Literal
	Comment
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case Keyword:
		return "keyword"
	case Punctuation:
		return "punctuation"
	case Literal:
		return "literal"
	case Comment:
		return "comment"
	default:
		return "unknown"
	}
}

// Token is one lexical token. Text is always src[Start:End].
type Token struct {
	Kind  Kind
	Text  string
	Start int // byte offset, inclusive
	End   int // byte offset, exclusive
	Line  int // 1-based line of Start
	Col   int // 0-based byte column of Start within its line
}

// EndLine returns the line holding the token's last byte.
func (t Token) EndLine() int {
	return t.Line + strings.Count(t.Text, "\n")
}

// Is reports whether the token has the given text and is not a comment or
// literal. Delimiters and introducers are matched through Is so that a brace
// inside a string never counts.
func (t Token) Is(text string) bool {
	return t.Kind != Comment && t.Kind != Literal && t.Text == text
}
