package grammar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Parse decodes a TOML grammar document and validates it.
func Parse(data []byte) (*Grammar, error) {
	g, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadFile loads a grammar from a TOML file. A grammar without a name is
// named after its file.
func LoadFile(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar %s: %w", path, err)
	}

	g, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if g.Name == "" {
		g.Name = strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	if err := Validate(g); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func decode(data []byte) (*Grammar, error) {
	g := &Grammar{}
	md, err := toml.Decode(string(data), g)
	if err != nil {
		return nil, fmt.Errorf("failed to decode grammar: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidGrammar, strings.Join(keys, ", "))
	}
	g.Name = strings.ToLower(g.Name)
	return g, nil
}

// LoadDir loads every *.toml grammar in dir, sorted by file name.
// A missing directory yields no grammars and no error.
func LoadDir(dir string) ([]*Grammar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read grammar directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	grammars := make([]*Grammar, 0, len(names))
	for _, name := range names {
		g, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		grammars = append(grammars, g)
	}
	return grammars, nil
}

// Encode writes g as a TOML document, the inverse of LoadFile.
func Encode(g *Grammar) ([]byte, error) {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(g); err != nil {
		return nil, fmt.Errorf("failed to encode grammar %s: %w", g.Name, err)
	}
	return []byte(sb.String()), nil
}
