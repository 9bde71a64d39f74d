package scanner

import (
	"strings"

	"github.com/mvp-joe/structscan/internal/lexer"
)

// lead collects what may precede a declaration's introducer: a run of
// comments, then attributes and modifiers in any order.
type lead struct {
	comments   []lexer.Token
	attributes []string
	modifiers  []string
	first      int // line of the first attribute or modifier, 0 if none
}

// addComment extends the comment run. A blank line between two comments
// starts a new run. Comments after an attribute or modifier are not doc.
func (l *lead) addComment(t lexer.Token) {
	if l.first != 0 {
		return
	}
	if n := len(l.comments); n > 0 && t.Line > l.comments[n-1].EndLine()+1 {
		l.comments = l.comments[:0]
	}
	l.comments = append(l.comments, t)
}

func (l *lead) addModifier(t lexer.Token, text string) {
	l.mark(t)
	l.modifiers = append(l.modifiers, text)
}

func (l *lead) addAttribute(t lexer.Token, text string) {
	l.mark(t)
	l.attributes = append(l.attributes, text)
}

func (l *lead) mark(t lexer.Token) {
	if l.first == 0 {
		l.first = t.Line
	}
}

func (l *lead) reset() {
	l.comments = nil
	l.attributes = nil
	l.modifiers = nil
	l.first = 0
}

// firstLine returns the line of the first attribute or modifier, or def
// when there is none.
func (l *lead) firstLine(def int) int {
	if l.first != 0 {
		return l.first
	}
	return def
}

// doc returns the comment run when its last comment ends on the line
// directly above line (or on the same line), and "" otherwise.
func (l *lead) doc(line int) string {
	n := len(l.comments)
	if n == 0 || line > l.comments[n-1].EndLine()+1 {
		return ""
	}

	texts := make([]string, n)
	for i, c := range l.comments {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}
