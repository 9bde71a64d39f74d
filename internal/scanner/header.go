package scanner

import (
	"strings"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/lexer"
)

type headerOutcome int

const (
	headerAbandoned  headerOutcome = iota // not a declaration after all
	headerBody                            // end is the body opener
	headerTerminated                      // end is the last header token
	headerEOF                             // input ended inside the header
)

type headerResult struct {
	decl    *Declaration
	outcome headerOutcome
	end     int
	next    int
}

// header reads a declaration header starting at the introducer at index i.
// It consumes the name, generic list and the rest of the header up to the
// body opener or terminator, tracking group delimiters so that an opener
// inside parentheses is not mistaken for the body. Under newline
// termination, end of input after an operand ends the header like a line
// break does.
func (r *run) header(i int, kind grammar.Kind) headerResult {
	d := newDeclaration(kind)
	n := len(r.toks)
	j := r.nextSignificant(i + 1)

	nameFrom := -1
	refinedAt := -1

	if kind.Anchored() {
		if j < n && r.opensGeneric(r.toks[j]) {
			d.Generics, j = r.generics(j)
			j = r.nextSignificant(j)
		}
		nameFrom = j
	} else {
		if r.g.Receivers && kind == grammar.KindFunction && j < n {
			if p, ok := r.opensGroup(r.toks[j]); ok {
				end := r.matchGroup(j, p)
				d.Receiver = r.joinTokens(j, end+1)
				j = r.nextSignificant(end + 1)

				// A receiver must be followed by a name and a parameter or
				// generic list, otherwise this is a function literal.
				if j >= n || r.toks[j].Kind != lexer.Identifier {
					return headerResult{outcome: headerAbandoned}
				}
				k := r.nextSignificant(j + 1)
				if k >= n {
					return headerResult{outcome: headerAbandoned}
				}
				if _, ok := r.opensGroup(r.toks[k]); !ok && !r.opensGeneric(r.toks[k]) {
					return headerResult{outcome: headerAbandoned}
				}
			}
		}

		if j >= n || r.toks[j].Kind != lexer.Identifier {
			return headerResult{outcome: headerAbandoned}
		}
		d.Name = r.toks[j].Text
		j = r.nextSignificant(j + 1)

		if j < n && r.opensGeneric(r.toks[j]) {
			d.Generics, j = r.generics(j)
			j = r.nextSignificant(j)
		}

		if j < n && r.toks[j].Kind == lexer.Keyword {
			if refined, ok := r.g.Refiners[r.toks[j].Text]; ok {
				d.Kind = refined
				refinedAt = j
				j++
			}
		}
	}

	if r.g.GenericContainers && d.Kind == grammar.KindStruct && len(d.Generics) > 0 {
		d.Kind = grammar.KindGenericContainer
	}

	groups := 0
	annotated := false
	prev := -1 // last significant header token
	for k := j; k < n; k++ {
		t := r.toks[k]
		if t.Kind == lexer.Comment {
			continue
		}

		if groups == 0 {
			if r.g.NewlineTerminates && prev >= 0 && t.Line > r.toks[prev].EndLine() && r.endsOperand(r.toks[prev]) {
				r.finishName(d, nameFrom, k)
				return headerResult{decl: d, outcome: headerTerminated, end: prev, next: k}
			}

			switch {
			case r.g.IndentBody != "" && t.Is(r.g.IndentBody):
				r.finishName(d, nameFrom, k)
				return headerResult{decl: d, outcome: headerBody, end: k}

			case r.opensBody(t):
				if r.typeLiteral(prev, refinedAt, annotated) {
					k = r.matchBody(k)
					prev = k
					continue
				}
				r.finishName(d, nameFrom, k)
				return headerResult{decl: d, outcome: headerBody, end: k}

			case r.g.TypeAnnotation != "" && t.Is(r.g.TypeAnnotation):
				annotated = true

			case r.g.Terminator != "" && t.Is(r.g.Terminator):
				r.finishName(d, nameFrom, k)
				return headerResult{decl: d, outcome: headerTerminated, end: k, next: k + 1}

			case r.closesBody(t):
				// The enclosing body closed before this header finished.
				if prev < 0 {
					prev = i
				}
				r.finishName(d, nameFrom, k)
				return headerResult{decl: d, outcome: headerTerminated, end: prev, next: k}
			}
		}

		if _, ok := r.opensGroup(t); ok {
			groups++
		} else if r.closesGroup(t) && groups > 0 {
			groups--
		}
		prev = k
	}

	if r.g.NewlineTerminates && groups == 0 && prev >= 0 && r.endsOperand(r.toks[prev]) {
		r.finishName(d, nameFrom, prev+1)
		return headerResult{decl: d, outcome: headerTerminated, end: prev, next: n}
	}

	r.finishName(d, nameFrom, n)
	return headerResult{decl: d, outcome: headerEOF, end: n - 1, next: n}
}

// typeLiteral reports whether a body opener following the header token at
// prev starts an inline type rather than the body. That is the case right
// after a refiner keyword other than the declaration's own (interface{} in
// a Go return type), and after a type annotation wherever an operand is
// still expected (TypeScript "(): { ok: boolean }").
func (r *run) typeLiteral(prev, refinedAt int, annotated bool) bool {
	if prev < 0 {
		return false
	}
	if prev != refinedAt && r.isRefiner(r.toks[prev]) {
		return true
	}
	return annotated && !r.endsOperand(r.toks[prev])
}

// finishName sets the name of an anchored declaration from its header
// tokens [from, to), stopping at a name stop, and splits it into trait and
// target on the implementation separator.
func (r *run) finishName(d *Declaration, from, to int) {
	if from < 0 || from >= to {
		return
	}

	for k := from; k < to; k++ {
		if t := r.toks[k]; t.Kind == lexer.Keyword && r.nameStops[t.Text] {
			to = k
			break
		}
	}

	d.Name = r.joinTokens(from, to)
	d.Target = d.Name

	sep := r.g.ImplSeparator
	if sep == "" {
		return
	}

	depth := 0
	for k := from; k < to; k++ {
		t := r.toks[k]
		switch {
		case r.opensGeneric(t):
			depth++
		case r.closesGeneric(t) && depth > 0:
			depth--
		case depth == 0 && t.Kind == lexer.Keyword && t.Text == sep:
			d.Trait = r.joinTokens(from, k)
			d.Target = r.joinTokens(k+1, to)
			return
		}
	}
}

// generics consumes the generic list opening at i and returns the parameter
// names and the index just past the closing delimiter. A secondary depth
// counter keeps nested lists such as Map<K, Vec<V>> intact. A body opener or
// terminator inside an unclosed list ends it early without being consumed.
func (r *run) generics(i int) ([]string, int) {
	params := []string{}
	depth := 0
	name := ""

	flush := func() {
		if name != "" {
			params = append(params, name)
		}
		name = ""
	}

	for k := i; k < len(r.toks); k++ {
		t := r.toks[k]
		switch {
		case t.Kind == lexer.Comment:
			continue
		case r.opensGeneric(t):
			depth++
			continue
		case r.closesGeneric(t):
			depth--
			if depth == 0 {
				flush()
				return params, k + 1
			}
			continue
		case r.opensBody(t) || (r.g.Terminator != "" && t.Is(r.g.Terminator)):
			flush()
			return params, k
		}

		if depth == 1 {
			if t.Is(r.g.GenericSeparator) {
				flush()
				continue
			}
			if name == "" && t.Kind == lexer.Identifier {
				name = t.Text
			}
		}
	}

	flush()
	return params, len(r.toks)
}

func (r *run) opensGeneric(t lexer.Token) bool {
	return r.g.Generic.Open != "" && t.Is(r.g.Generic.Open)
}

func (r *run) closesGeneric(t lexer.Token) bool {
	return r.g.Generic.Close != "" && t.Is(r.g.Generic.Close)
}

func (r *run) isRefiner(t lexer.Token) bool {
	if t.Kind != lexer.Keyword {
		return false
	}
	_, ok := r.g.Refiners[t.Text]
	return ok
}

// endsOperand reports whether a line ending after t completes a statement
// under newline termination.
func (r *run) endsOperand(t lexer.Token) bool {
	switch t.Kind {
	case lexer.Identifier, lexer.Literal:
		return true
	case lexer.Keyword:
		return !r.isRefiner(t)
	}
	if r.closesGroup(t) || r.closesBody(t) || r.closesGeneric(t) {
		return true
	}
	return strings.HasSuffix(t.Text, "++") || strings.HasSuffix(t.Text, "--")
}
