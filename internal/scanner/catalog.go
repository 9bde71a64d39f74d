package scanner

import (
	"fmt"
)

// AdvisoryKind classifies a non-fatal problem found while scanning.
type AdvisoryKind string

const (
	// AdvisoryUnknownToken marks a character no grammar rule matched.
	AdvisoryUnknownToken AdvisoryKind = "unknown_token"
	// AdvisoryStrayCloser marks a closing delimiter with nothing open.
	AdvisoryStrayCloser AdvisoryKind = "stray_closer"
	// AdvisoryUnclosed marks a declaration still open at end of input.
	AdvisoryUnclosed AdvisoryKind = "unclosed_declaration"
)

// Advisory records a lexical anomaly or structural imbalance. Advisories
// never stop a scan; they tell the caller how far to trust the catalog.
type Advisory struct {
	Kind    AdvisoryKind `json:"kind" msgpack:"kind"`
	Line    int          `json:"line" msgpack:"line"`
	Offset  int          `json:"offset" msgpack:"offset"`
	Message string       `json:"message" msgpack:"message"`
}

// Catalog is the result of one scan: the ordered top-level declarations
// and every advisory raised along the way.
type Catalog struct {
	Grammar      string         `json:"grammar" msgpack:"grammar"`
	Declarations []*Declaration `json:"declarations" msgpack:"declarations"`
	Advisories   []Advisory     `json:"advisories,omitempty" msgpack:"advisories,omitempty"`
}

// Salvaged reports whether any declaration had to be force-closed.
func (c *Catalog) Salvaged() bool {
	salvaged := false
	c.Walk(func(d *Declaration, _ []*Declaration) bool {
		if d.Salvaged {
			salvaged = true
			return false
		}
		return true
	})
	return salvaged
}

// WellFormed reports whether the scan raised no advisories at all.
func (c *Catalog) WellFormed() bool {
	return len(c.Advisories) == 0
}

// Walk visits every declaration depth-first in source order. fn receives the
// declaration and its ancestors (outermost first); the parents slice is
// reused between calls and must be copied to be retained. Returning false
// stops the walk.
func (c *Catalog) Walk(fn func(d *Declaration, parents []*Declaration) bool) {
	type item struct {
		d     *Declaration
		depth int
	}

	stack := make([]item, 0, len(c.Declarations))
	for i := len(c.Declarations) - 1; i >= 0; i-- {
		stack = append(stack, item{d: c.Declarations[i]})
	}

	var path []*Declaration
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path = path[:it.depth]
		if !fn(it.d, path) {
			return
		}
		path = append(path, it.d)

		for i := len(it.d.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{d: it.d.Children[i], depth: it.depth + 1})
		}
	}
}

// Flatten returns every declaration in depth-first source order.
func (c *Catalog) Flatten() []*Declaration {
	var out []*Declaration
	c.Walk(func(d *Declaration, _ []*Declaration) bool {
		out = append(out, d)
		return true
	})
	return out
}

// Count returns the total number of declarations, nested ones included.
func (c *Catalog) Count() int {
	n := 0
	c.Walk(func(*Declaration, []*Declaration) bool {
		n++
		return true
	})
	return n
}

// Find returns every declaration with the given name.
func (c *Catalog) Find(name string) []*Declaration {
	var out []*Declaration
	c.Walk(func(d *Declaration, _ []*Declaration) bool {
		if d.Name == name {
			out = append(out, d)
		}
		return true
	})
	return out
}

// CheckContainment verifies that every body strictly contains its children
// and that no two siblings overlap. A child starts after its parent's body
// opener and ends before the closer. Indented and salvaged bodies have no
// closer, so their last child may end where the body does.
func (c *Catalog) CheckContainment() error {
	type level struct {
		parent *Declaration
		decls  []*Declaration
	}

	queue := []level{{decls: c.Declarations}}
	for len(queue) > 0 {
		lv := queue[0]
		queue = queue[1:]

		for i, d := range lv.decls {
			if lv.parent != nil {
				if lv.parent.Body == nil {
					return fmt.Errorf("%s %q has children but no body", lv.parent.Kind, lv.parent.Name)
				}
				if !lv.parent.bodyHolds(d.Span) {
					return fmt.Errorf("%s %q [%d,%d) escapes body of %q [%d,%d)",
						d.Kind, d.Name, d.Span.Start, d.Span.End,
						lv.parent.Name, lv.parent.Body.Start, lv.parent.Body.End)
				}
			}
			if d.Body != nil && !d.Span.Contains(*d.Body) {
				return fmt.Errorf("%s %q body lies outside its span", d.Kind, d.Name)
			}
			if i > 0 && lv.decls[i-1].Span.Overlaps(d.Span) {
				return fmt.Errorf("siblings %q and %q overlap", lv.decls[i-1].Name, d.Name)
			}
			if len(d.Children) > 0 {
				queue = append(queue, level{parent: d, decls: d.Children})
			}
		}
	}
	return nil
}

// bodyHolds reports whether o lies strictly inside the body's delimiters.
func (d *Declaration) bodyHolds(o Span) bool {
	b := d.Body
	if o.Start <= b.Start {
		return false
	}
	if d.Indented || d.Salvaged {
		return o.End <= b.End
	}
	return o.End < b.End
}
