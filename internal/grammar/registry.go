package grammar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Registry resolves grammars by name or by file extension.
// It is populated once and read-only afterwards, so it is safe to share.
type Registry struct {
	byName map[string]*Grammar
	byExt  map[string]*Grammar
}

// NewRegistry returns a registry holding the built-in grammars.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]*Grammar),
		byExt:  make(map[string]*Grammar),
	}
	for _, g := range Builtins() {
		r.byName[g.Name] = g
		for _, ext := range g.Extensions {
			r.byExt[ext] = g
		}
	}
	return r
}

// Register validates g and adds it, replacing any grammar with the same
// name and taking over its extensions.
func (r *Registry) Register(g *Grammar) error {
	if err := Validate(g); err != nil {
		return err
	}
	key := strings.ToLower(g.Name)
	if old, ok := r.byName[key]; ok {
		for _, ext := range old.Extensions {
			if r.byExt[ext] == old {
				delete(r.byExt, ext)
			}
		}
	}
	r.byName[key] = g
	for _, ext := range g.Extensions {
		r.byExt[strings.ToLower(ext)] = g
	}
	return nil
}

// LoadDir registers every grammar file found in dir.
func (r *Registry) LoadDir(dir string) error {
	grammars, err := LoadDir(dir)
	if err != nil {
		return err
	}
	for _, g := range grammars {
		if err := r.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the grammar with the given name.
func (r *Registry) Lookup(name string) (*Grammar, error) {
	g, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown grammar %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return g, nil
}

// ForPath returns the grammar claiming the file's extension, or nil.
func (r *Registry) ForPath(path string) *Grammar {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Names returns the registered grammar names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered grammars sorted by name.
func (r *Registry) All() []*Grammar {
	names := r.Names()
	out := make([]*Grammar, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name])
	}
	return out
}
