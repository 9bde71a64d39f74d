// Package scanner builds a tree of declarations from a token stream.
//
// The scanner makes one left-to-right pass and keeps an explicit stack of
// open declaration frames instead of recursing, so nesting depth is bounded
// only by memory. It recognizes declaration-introducing keywords only at the
// body depth of the innermost open declaration (or at top level), collects
// the header up to the body opener or terminator, and attaches the
// contiguous comment run that precedes each declaration as its doc comment.
//
// Grammars with an indentation body token (Python's ":") open a frame that
// closes at the first line indented no deeper than the header's line, or at
// end of input.
//
// Unbalanced input never fails a scan: stray closers are skipped, and
// delimited declarations still open at end of input are closed at the last
// token and flagged Salvaged.
package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/lexer"
)

// Scanner scans token streams for one grammar. It holds only immutable
// lookup tables, so a single Scanner may serve concurrent scans.
type Scanner struct {
	g   *grammar.Grammar
	lex *lexer.Lexer

	bodyOpen   map[string]int
	bodyClose  map[string]int
	groupOpen  map[string]int
	groupClose map[string]int
	modifiers  map[string]bool
	nameStops  map[string]bool
}

// New validates the grammar and builds a Scanner for it.
func New(g *grammar.Grammar) (*Scanner, error) {
	if err := grammar.Validate(g); err != nil {
		return nil, err
	}

	s := &Scanner{
		g:          g,
		lex:        lexer.New(g),
		bodyOpen:   make(map[string]int),
		bodyClose:  make(map[string]int),
		groupOpen:  make(map[string]int),
		groupClose: make(map[string]int),
		modifiers:  make(map[string]bool),
		nameStops:  make(map[string]bool),
	}
	for i, p := range g.BodyDelimiters {
		s.bodyOpen[p.Open] = i
		s.bodyClose[p.Close] = i
	}
	for i, p := range g.GroupDelimiters {
		s.groupOpen[p.Open] = i
		s.groupClose[p.Close] = i
	}
	for _, m := range g.Modifiers {
		s.modifiers[m] = true
	}
	for _, w := range g.NameStops {
		s.nameStops[w] = true
	}
	return s, nil
}

// Grammar returns the grammar the scanner was built for.
func (s *Scanner) Grammar() *grammar.Grammar {
	return s.g
}

// Tokenize runs the scanner's tokenizer over src.
func (s *Scanner) Tokenize(src []byte) []lexer.Token {
	return s.lex.Tokenize(src)
}

// ScanSource tokenizes and scans src.
func (s *Scanner) ScanSource(src []byte) *Catalog {
	return s.Scan(s.lex.Tokenize(src))
}

// frame is one open declaration body.
type frame struct {
	decl   *Declaration
	pair   int // index into the grammar's body delimiters, -1 when indented
	indent int // column of the header's line for indented bodies
	depth  int // total body depth just inside this body
	groups int // group depth when the body opened
}

// run holds the state of one scan.
type run struct {
	*Scanner
	toks    []lexer.Token
	catalog *Catalog

	depth  []int // open bodies per body pair
	total  int
	groups int
	stack  []*frame
	lead   lead
	last   int // last non-comment token consumed
}

// Scan builds a catalog from tokens produced by this scanner's tokenizer.
func (s *Scanner) Scan(toks []lexer.Token) *Catalog {
	r := &run{
		Scanner: s,
		toks:    toks,
		catalog: &Catalog{
			Grammar:      s.g.Name,
			Declarations: []*Declaration{},
		},
		depth: make([]int, len(s.g.BodyDelimiters)),
		last:  -1,
	}
	for _, t := range toks {
		if t.Kind == lexer.Unknown {
			r.advise(AdvisoryUnknownToken, t, fmt.Sprintf("unrecognized character %q", t.Text))
		}
	}
	r.scan()
	r.flush()

	sort.SliceStable(r.catalog.Advisories, func(i, j int) bool {
		return r.catalog.Advisories[i].Offset < r.catalog.Advisories[j].Offset
	})
	return r.catalog
}

func (r *run) scan() {
	for i := 0; i < len(r.toks); {
		t := r.toks[i]

		if t.Kind == lexer.Comment {
			// a comment trailing code on the same line documents that code
			trailing := i > 0 && r.toks[i-1].Kind != lexer.Comment && r.toks[i-1].EndLine() == t.Line
			if !trailing {
				r.lead.addComment(t)
			}
			i++
			continue
		}

		r.dedent(i)

		if r.atDeclarationDepth() {
			if r.isModifier(i) {
				next := i + 1
				if j := r.nextSignificant(next); j < len(r.toks) {
					// pub(crate), extern "C"
					if p, ok := r.opensGroup(r.toks[j]); ok {
						next = r.matchGroup(j, p) + 1
					} else if r.toks[j].Kind == lexer.Literal && r.toks[j].Line == t.Line {
						next = j + 1
					}
				}
				r.lead.addModifier(t, r.joinTokens(i, next))
				i = r.consumed(next)
				continue
			}
			if end := r.attributeEnd(i); end > i {
				r.lead.addAttribute(t, r.joinTokens(i, end))
				i = r.consumed(end)
				continue
			}
			if kind, ok := r.g.Introducers[t.Text]; ok && t.Kind == lexer.Keyword {
				i = r.consumed(r.declaration(i, kind))
				continue
			}
		}

		r.structural(t)
		r.lead.reset()
		i = r.consumed(i + 1)
	}
}

// consumed records every token before end as processed and returns end.
func (r *run) consumed(end int) int {
	for k := end - 1; k > r.last; k-- {
		if r.toks[k].Kind != lexer.Comment {
			r.last = k
			break
		}
	}
	return end
}

// isModifier reports whether the token at i is a modifier. A keyword
// modifier always is. A contextual one only when an introducer or another
// modifier follows, so it stays usable as a name.
func (r *run) isModifier(i int) bool {
	t := r.toks[i]
	if !r.modifiers[t.Text] {
		return false
	}
	if t.Kind == lexer.Keyword {
		return true
	}
	if t.Kind != lexer.Identifier {
		return false
	}

	j := r.nextSignificant(i + 1)
	if j >= len(r.toks) {
		return false
	}
	next := r.toks[j]
	if _, ok := r.g.Introducers[next.Text]; ok && next.Kind == lexer.Keyword {
		return true
	}
	return r.modifiers[next.Text] && (next.Kind == lexer.Keyword || next.Kind == lexer.Identifier)
}

// dedent closes the indented bodies that the token at i lies outside of.
// Only the first token of a line counts, and not while a group opened
// inside the body is still open.
func (r *run) dedent(i int) {
	t := r.toks[i]
	if i > 0 && r.toks[i-1].EndLine() >= t.Line {
		return
	}
	for n := len(r.stack); n > 0; n = len(r.stack) {
		top := r.stack[n-1]
		if top.pair >= 0 || t.Col > top.indent || r.groups != top.groups || r.total != top.depth {
			return
		}
		r.closeIndented()
	}
}

// closeIndented pops the innermost frame, an indented body, ending it at
// the last token consumed.
func (r *run) closeIndented() {
	n := len(r.stack)
	top := r.stack[n-1]
	r.stack = r.stack[:n-1]

	last := r.toks[r.last]
	d := top.decl
	d.Body.End = last.End
	d.Span.End = last.End
	d.EndLine = last.EndLine()
	r.total--
	r.groups = top.groups
	r.appendDeclaration(d)
}

// lineIndent returns the column of the first token on the line of the
// token at i.
func (r *run) lineIndent(i int) int {
	line := r.toks[i].Line
	for i > 0 && r.toks[i-1].Line == line {
		i--
	}
	return r.toks[i].Col
}

// structural tracks body and group nesting for a token outside any
// declaration header.
func (r *run) structural(t lexer.Token) {
	if t.Kind == lexer.Comment || t.Kind == lexer.Literal {
		return
	}
	if p, ok := r.bodyOpen[t.Text]; ok {
		r.depth[p]++
		r.total++
		return
	}
	if p, ok := r.bodyClose[t.Text]; ok {
		r.closeBody(p, t)
		return
	}
	if _, ok := r.groupOpen[t.Text]; ok {
		r.groups++
		return
	}
	if _, ok := r.groupClose[t.Text]; ok && r.groups > 0 {
		r.groups--
	}
}

func (r *run) closeBody(p int, t lexer.Token) {
	if r.depth[p] == 0 {
		r.advise(AdvisoryStrayCloser, t, fmt.Sprintf("closing %q has no matching opener", t.Text))
		return
	}

	if n := len(r.stack); n > 0 {
		top := r.stack[n-1]
		if top.pair == p && top.depth == r.total {
			r.stack = r.stack[:n-1]
			d := top.decl
			d.Body.End = t.End
			d.Span.End = t.End
			d.EndLine = t.EndLine()
			r.groups = top.groups
			r.appendDeclaration(d)
		}
	}

	r.depth[p]--
	r.total--
}

func (r *run) atDeclarationDepth() bool {
	if n := len(r.stack); n > 0 {
		top := r.stack[n-1]
		return r.total == top.depth && r.groups == top.groups
	}
	return r.total == 0 && r.groups == 0
}

func (r *run) appendDeclaration(d *Declaration) {
	if n := len(r.stack); n > 0 {
		parent := r.stack[n-1].decl
		parent.Children = append(parent.Children, d)
		return
	}
	r.catalog.Declarations = append(r.catalog.Declarations, d)
}

// declaration handles an introducer at index i and returns the index at
// which the main loop resumes.
func (r *run) declaration(i int, kind grammar.Kind) int {
	h := r.header(i, kind)
	if h.outcome == headerAbandoned {
		r.lead.reset()
		return i + 1
	}

	d := h.decl
	intro := r.toks[i]
	d.Span.Start = intro.Start
	d.Line = intro.Line
	d.Doc = r.lead.doc(r.lead.firstLine(intro.Line))
	d.Attributes = r.lead.attributes
	d.Modifiers = r.lead.modifiers
	r.lead.reset()

	switch h.outcome {
	case headerBody:
		open := r.toks[h.end]
		d.Signature = r.signature(i, h.end)
		d.Body = &Span{Start: open.Start, End: open.End}
		if r.g.IndentBody != "" && open.Is(r.g.IndentBody) {
			d.Indented = true
			r.total++
			r.stack = append(r.stack, &frame{decl: d, pair: -1, indent: r.lineIndent(i), depth: r.total, groups: r.groups})
			return h.end + 1
		}
		p := r.bodyOpen[open.Text]
		r.depth[p]++
		r.total++
		r.stack = append(r.stack, &frame{decl: d, pair: p, depth: r.total, groups: r.groups})
		return h.end + 1

	case headerTerminated:
		last := r.toks[h.end]
		d.Signature = r.signature(i, h.end+1)
		d.Span.End = last.End
		d.EndLine = last.EndLine()
		r.appendDeclaration(d)
		return h.next

	default: // headerEOF
		last := r.toks[len(r.toks)-1]
		d.Signature = r.signature(i, len(r.toks))
		d.Span.End = last.End
		d.EndLine = last.EndLine()
		d.Salvaged = true
		r.advise(AdvisoryUnclosed, intro, fmt.Sprintf("%s %q has no body or terminator before end of input", d.Kind, d.Name))
		r.appendDeclaration(d)
		return len(r.toks)
	}
}

// flush closes every frame still open at end of input. End of input ends
// an indented body; a delimited one is salvaged.
func (r *run) flush() {
	if len(r.stack) == 0 {
		return
	}

	last := r.toks[len(r.toks)-1]
	for len(r.stack) > 0 {
		n := len(r.stack)
		top := r.stack[n-1]
		if top.pair < 0 {
			r.closeIndented()
			continue
		}
		r.stack = r.stack[:n-1]

		d := top.decl
		d.Body.End = last.End
		d.Span.End = last.End
		d.EndLine = last.EndLine()
		d.Salvaged = true
		r.catalog.Advisories = append(r.catalog.Advisories, Advisory{
			Kind:    AdvisoryUnclosed,
			Line:    d.Line,
			Offset:  d.Span.Start,
			Message: fmt.Sprintf("%s %q closed at end of input", d.Kind, d.Name),
		})
		r.appendDeclaration(d)
	}
}

func (r *run) advise(kind AdvisoryKind, t lexer.Token, msg string) {
	r.catalog.Advisories = append(r.catalog.Advisories, Advisory{
		Kind:    kind,
		Line:    t.Line,
		Offset:  t.Start,
		Message: msg,
	})
}

// attributeEnd returns the index just past an attribute starting at i, or
// i when no attribute starts there. Accepted shapes are prefix[...],
// prefix![...] and prefix name(.name)*(...)?.
func (r *run) attributeEnd(i int) int {
	prefix := r.g.AttributePrefix
	if prefix == "" || !r.toks[i].Is(prefix) {
		return i
	}

	j := i + 1
	if j < len(r.toks) && r.toks[j].Is("!") {
		j++
	}
	if j >= len(r.toks) {
		return i
	}

	if p, ok := r.opensGroup(r.toks[j]); ok {
		return r.matchGroup(j, p) + 1
	}

	if k := r.toks[j].Kind; k != lexer.Identifier && k != lexer.Keyword {
		return i
	}
	j++
	for j+1 < len(r.toks) && r.toks[j].Is(".") && r.toks[j+1].Kind == lexer.Identifier {
		j += 2
	}
	if j < len(r.toks) {
		if p, ok := r.opensGroup(r.toks[j]); ok {
			return r.matchGroup(j, p) + 1
		}
	}
	return j
}

// matchGroup returns the index of the closer matching the group opener at
// i, or the last token index when the group never closes.
func (r *run) matchGroup(i, pair int) int {
	p := r.g.GroupDelimiters[pair]
	depth := 0
	for j := i; j < len(r.toks); j++ {
		switch t := r.toks[j]; {
		case t.Is(p.Open):
			depth++
		case t.Is(p.Close):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(r.toks) - 1
}

// matchBody is matchGroup for a body delimiter pair.
func (r *run) matchBody(i int) int {
	p := r.g.BodyDelimiters[r.bodyOpen[r.toks[i].Text]]
	depth := 0
	for j := i; j < len(r.toks); j++ {
		switch t := r.toks[j]; {
		case t.Is(p.Open):
			depth++
		case t.Is(p.Close):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(r.toks) - 1
}

func (r *run) opensGroup(t lexer.Token) (int, bool) {
	if t.Kind == lexer.Comment || t.Kind == lexer.Literal {
		return 0, false
	}
	p, ok := r.groupOpen[t.Text]
	return p, ok
}

func (r *run) closesGroup(t lexer.Token) bool {
	if t.Kind == lexer.Comment || t.Kind == lexer.Literal {
		return false
	}
	_, ok := r.groupClose[t.Text]
	return ok
}

func (r *run) opensBody(t lexer.Token) bool {
	if t.Kind == lexer.Comment || t.Kind == lexer.Literal {
		return false
	}
	_, ok := r.bodyOpen[t.Text]
	return ok
}

func (r *run) closesBody(t lexer.Token) bool {
	if t.Kind == lexer.Comment || t.Kind == lexer.Literal {
		return false
	}
	_, ok := r.bodyClose[t.Text]
	return ok
}

// nextSignificant returns the index of the first non-comment token at or
// after i.
func (r *run) nextSignificant(i int) int {
	for i < len(r.toks) && r.toks[i].Kind == lexer.Comment {
		i++
	}
	return i
}

// joinTokens renders toks[from:to] skipping comments, with a single space
// wherever the source had whitespace between two tokens.
func (r *run) joinTokens(from, to int) string {
	var sb strings.Builder
	prevEnd := -1
	for j := from; j < to && j < len(r.toks); j++ {
		t := r.toks[j]
		if t.Kind == lexer.Comment {
			continue
		}
		if prevEnd >= 0 && t.Start > prevEnd {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
		prevEnd = t.End
	}
	return sb.String()
}

func (r *run) signature(from, to int) string {
	return strings.TrimSpace(r.joinTokens(from, to))
}
