// Package lexer turns source text into the flat token stream consumed by
// the declaration scanner.
//
// Tokenizing never fails. Characters the grammar has no rule for become
// single-character Unknown tokens, unterminated comments and literals run to
// the end of the input, and every byte of the input is either inside exactly
// one token or is whitespace between two tokens.
package lexer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// Lexer tokenizes source text for one grammar. It holds no per-input state
// and may be shared across goroutines.
type Lexer struct {
	g         *grammar.Grammar
	keywords  map[string]bool
	operators []string // longest first
}

// New creates a Lexer for the grammar. A nil grammar tokenizes with no
// keywords, comments or string syntax.
func New(g *grammar.Grammar) *Lexer {
	if g == nil {
		g = &grammar.Grammar{}
	}

	ops := append([]string(nil), g.Operators...)
	sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })

	return &Lexer{
		g:         g,
		keywords:  g.KeywordSet(),
		operators: ops,
	}
}

// Tokenize is shorthand for New(g).Tokenize(src).
func Tokenize(src []byte, g *grammar.Grammar) []Token {
	return New(g).Tokenize(src)
}

// Tokenize converts src into an ordered token sequence.
func (l *Lexer) Tokenize(src []byte) []Token {
	s := &state{
		Lexer:  l,
		src:    src,
		line:   1,
		tokens: make([]Token, 0, len(src)/4),
	}
	s.run()
	return s.tokens
}

// state is the cursor over one input.
type state struct {
	*Lexer
	src    []byte
	off    int
	line   int
	bol    int // offset of the current line's first byte
	tokens []Token
}

func (s *state) run() {
	for s.off < len(s.src) {
		c := s.src[s.off]

		if c < utf8.RuneSelf {
			switch c {
			case ' ', '\t', '\r', '\f', '\v':
				s.off++
				continue
			case '\n':
				s.off++
				s.line++
				s.bol = s.off
				continue
			}
		} else if r, size := utf8.DecodeRune(s.src[s.off:]); unicode.IsSpace(r) {
			s.off += size
			continue
		}

		start := s.off
		kind := s.next(start)
		s.emit(kind, start)
	}
}

// next advances past the token beginning at start and returns its kind.
func (s *state) next(start int) Kind {
	g := s.g

	if g.LineComment != "" && s.hasPrefix(g.LineComment) {
		s.skipLine()
		return Comment
	}
	if g.BlockComment.Open != "" && s.hasPrefix(g.BlockComment.Open) {
		s.blockComment()
		return Comment
	}
	if g.RawStrings && s.rustString() {
		return Literal
	}
	for _, q := range g.RawStringQuotes {
		if s.hasPrefix(q) {
			s.quoted(q, false)
			return Literal
		}
	}
	for _, q := range g.StringQuotes {
		if s.hasPrefix(q) {
			s.quoted(q, true)
			return Literal
		}
	}
	if g.CharQuote != "" && s.hasPrefix(g.CharQuote) {
		return s.charOrLifetime()
	}

	r, size := utf8.DecodeRune(s.src[s.off:])
	switch {
	case isIdentStart(r):
		s.off += size
		s.identRest()
		if s.keywords[string(s.src[start:s.off])] {
			return Keyword
		}
		return Identifier
	case r >= '0' && r <= '9':
		s.number()
		return Literal
	}

	for _, op := range s.operators {
		if s.hasPrefix(op) {
			s.off += len(op)
			return Punctuation
		}
	}

	s.off += size
	if r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
		return Punctuation
	}
	return Unknown
}

func (s *state) emit(kind Kind, start int) {
	text := string(s.src[start:s.off])
	s.tokens = append(s.tokens, Token{
		Kind:  kind,
		Text:  text,
		Start: start,
		End:   s.off,
		Line:  s.line,
		Col:   start - s.bol,
	})
	if n := strings.Count(text, "\n"); n > 0 {
		s.line += n
		s.bol = start + strings.LastIndexByte(text, '\n') + 1
	}
}

func (s *state) hasPrefix(p string) bool {
	return len(s.src)-s.off >= len(p) && string(s.src[s.off:s.off+len(p)]) == p
}

func (s *state) skipLine() {
	for s.off < len(s.src) && s.src[s.off] != '\n' {
		s.off++
	}
}

func (s *state) blockComment() {
	open, closing := s.g.BlockComment.Open, s.g.BlockComment.Close
	s.off += len(open)
	depth := 1
	for s.off < len(s.src) {
		switch {
		case s.hasPrefix(closing):
			s.off += len(closing)
			depth--
			if depth == 0 {
				return
			}
		case s.g.NestedComments && s.hasPrefix(open):
			s.off += len(open)
			depth++
		default:
			s.off++
		}
	}
}

// quoted consumes a literal delimited by quote. With escapes, a backslash
// hides the following byte from the terminator check.
func (s *state) quoted(quote string, escapes bool) {
	s.off += len(quote)
	for s.off < len(s.src) {
		if escapes && s.src[s.off] == '\\' {
			s.off += 2
			continue
		}
		if s.hasPrefix(quote) {
			s.off += len(quote)
			return
		}
		s.off++
	}
	s.off = len(s.src)
}

// rustString recognizes byte strings and raw strings: b"..", b'..',
// r"..", r#".."#, br#".."#.
func (s *state) rustString() bool {
	p := s.off
	if p < len(s.src) && s.src[p] == 'b' {
		p++
	}
	raw := p < len(s.src) && s.src[p] == 'r'
	if raw {
		p++
	}
	if p == s.off {
		return false
	}

	if !raw {
		if p >= len(s.src) {
			return false
		}
		switch s.src[p] {
		case '"':
			s.off = p
			s.quoted(`"`, true)
			return true
		case '\'':
			s.off = p
			s.quoted("'", true)
			return true
		}
		return false
	}

	hashes := 0
	for p < len(s.src) && s.src[p] == '#' {
		hashes++
		p++
	}
	if p >= len(s.src) || s.src[p] != '"' {
		return false
	}

	s.off = p
	s.quoted(`"`+strings.Repeat("#", hashes), false)
	return true
}

// charOrLifetime handles the character quote. With lifetimes enabled, 'a
// not closed by a quote right after the identifier is a lifetime and is
// tokenized as an identifier.
func (s *state) charOrLifetime() Kind {
	q := s.g.CharQuote
	if s.g.Lifetimes {
		p := s.off + len(q)
		r, size := utf8.DecodeRune(s.src[p:])
		if p < len(s.src) && isIdentStart(r) {
			end := p + size
			for end < len(s.src) {
				r, size := utf8.DecodeRune(s.src[end:])
				if !isIdentPart(r) {
					break
				}
				end += size
			}
			if !(len(s.src)-end >= len(q) && string(s.src[end:end+len(q)]) == q) {
				s.off = end
				return Identifier
			}
		}
	}

	s.off += len(q)
	for s.off < len(s.src) {
		switch {
		case s.src[s.off] == '\\':
			s.off += 2
		case s.src[s.off] == '\n':
			return Literal
		case s.hasPrefix(q):
			s.off += len(q)
			return Literal
		default:
			s.off++
		}
	}
	s.off = len(s.src)
	return Literal
}

func (s *state) identRest() {
	for s.off < len(s.src) {
		r, size := utf8.DecodeRune(s.src[s.off:])
		if !isIdentPart(r) {
			return
		}
		s.off += size
	}
}

func (s *state) number() {
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
			s.off++
		case c == '.' && s.off+1 < len(s.src) && s.src[s.off+1] >= '0' && s.src[s.off+1] <= '9':
			s.off++
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
