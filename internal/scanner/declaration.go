package scanner

import (
	"strings"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// Span is a byte range in the scanned source. End is exclusive.
type Span struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Declaration is one structural construct found by the scanner.
type Declaration struct {
	Kind grammar.Kind `json:"kind" msgpack:"kind"`

	// Name is the declared identifier. Implementation blocks use their
	// normalized header instead, e.g. "Display for Point".
	Name string `json:"name" msgpack:"name"`

	// Trait and Target split an implementation header on the grammar's
	// implementation separator. Trait is empty for inherent impls.
	Trait  string `json:"trait,omitempty" msgpack:"trait,omitempty"`
	Target string `json:"target,omitempty" msgpack:"target,omitempty"`

	// Receiver is the Go-style receiver group, e.g. "(s *Server)".
	Receiver string `json:"receiver,omitempty" msgpack:"receiver,omitempty"`

	Generics  []string `json:"generics" msgpack:"generics"`
	Signature string   `json:"signature" msgpack:"signature"`

	// Doc is the raw text of the comment run attached to the declaration.
	Doc        string   `json:"doc" msgpack:"doc"`
	Attributes []string `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
	Modifiers  []string `json:"modifiers,omitempty" msgpack:"modifiers,omitempty"`

	Span    Span  `json:"span" msgpack:"span"`
	Body    *Span `json:"body,omitempty" msgpack:"body,omitempty"`
	Line    int   `json:"line" msgpack:"line"`
	EndLine int   `json:"end_line" msgpack:"end_line"`

	// Indented marks a body delimited by indentation. It runs from the
	// opener through the last body token and has no closing token.
	Indented bool `json:"indented,omitempty" msgpack:"indented,omitempty"`

	Children []*Declaration `json:"children" msgpack:"children"`

	// Salvaged is set when the declaration was still open at end of input
	// and was closed by the scanner rather than by the source.
	Salvaged bool `json:"salvaged" msgpack:"salvaged"`
}

func newDeclaration(kind grammar.Kind) *Declaration {
	return &Declaration{
		Kind:     kind,
		Generics: []string{},
		Children: []*Declaration{},
	}
}

// HasBody reports whether the declaration has a delimited body.
func (d *Declaration) HasBody() bool {
	return d.Body != nil
}

// DocText returns Doc with comment markers removed.
func (d *Declaration) DocText() string {
	if d.Doc == "" {
		return ""
	}

	var out []string
	for _, line := range strings.Split(d.Doc, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"///", "//!", "//", "/**", "/*", "#"} {
			if strings.HasPrefix(line, prefix) {
				line = line[len(prefix):]
				break
			}
		}
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(strings.TrimSpace(line), "*")
		out = append(out, strings.TrimSpace(line))
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// QualifiedName returns the name prefixed by its parent chain, joined with
// "::", e.g. "TaskQueue<T>::push".
func QualifiedName(path []*Declaration) string {
	parts := make([]string, 0, len(path))
	for _, d := range path {
		name := d.Name
		if d.Kind.Anchored() && d.Target != "" {
			name = d.Target
		}
		if name == "" {
			name = "_"
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, "::")
}
