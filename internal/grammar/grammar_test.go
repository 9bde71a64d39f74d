package grammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for grammars:
// - Every built-in grammar validates
// - Validate rejects nil, missing introducers, unknown kinds, bad pairs and role conflicts
// - Validate reports every problem at once and keeps sentinels reachable
// - KeywordSet includes introducers, refiners and the impl separator, but
//   not contextual modifiers
// - An indent body token stands in for body delimiters
// - LoadFile reads TOML, lowercases names and falls back to the file name
// - LoadFile rejects unknown keys
// - Encode output loads back into an equal grammar
// - LoadDir ignores non-TOML files and tolerates a missing directory
// - Registry resolves by name and extension, and custom grammars replace built-ins

// Test: Built-in grammars are valid
func TestBuiltins_Validate(t *testing.T) {
	t.Parallel()

	for _, g := range Builtins() {
		t.Run(g.Name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, Validate(g))
		})
	}
}

// Test: Validate rejects broken grammars with the matching sentinel
func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(g *Grammar)
		wantErr error
	}{
		{
			name:    "no introducers",
			mutate:  func(g *Grammar) { g.Introducers = nil },
			wantErr: ErrNoIntroducers,
		},
		{
			name:    "unknown kind",
			mutate:  func(g *Grammar) { g.Introducers["class"] = "klass" },
			wantErr: ErrUnknownKind,
		},
		{
			name:    "unknown refiner kind",
			mutate:  func(g *Grammar) { g.Refiners = map[string]Kind{"record": "rec"} },
			wantErr: ErrUnknownKind,
		},
		{
			name:    "no body delimiters",
			mutate:  func(g *Grammar) { g.BodyDelimiters = nil },
			wantErr: ErrInvalidDelimiter,
		},
		{
			name:    "half pair",
			mutate:  func(g *Grammar) { g.GroupDelimiters = []Pair{{Open: "("}} },
			wantErr: ErrInvalidDelimiter,
		},
		{
			name:    "self closing pair",
			mutate:  func(g *Grammar) { g.BodyDelimiters = []Pair{{Open: "|", Close: "|"}} },
			wantErr: ErrInvalidDelimiter,
		},
		{
			name:    "body and group share a token",
			mutate:  func(g *Grammar) { g.GroupDelimiters = append(g.GroupDelimiters, Pair{Open: "{", Close: ")"}) },
			wantErr: ErrConflictingDelimiter,
		},
		{
			name:    "terminator reused as separator",
			mutate:  func(g *Grammar) { g.Terminator = "," },
			wantErr: ErrConflictingDelimiter,
		},
		{
			name:    "type annotation reused as terminator",
			mutate:  func(g *Grammar) { g.TypeAnnotation = ";" },
			wantErr: ErrConflictingDelimiter,
		},
		{
			name:    "generic without separator",
			mutate:  func(g *Grammar) { g.GenericSeparator = "" },
			wantErr: ErrEmptySeparator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := Rust()
			tt.mutate(g)

			err := Validate(g)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGrammar)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), `"rust"`)
		})
	}
}

// Test: Validate handles a nil grammar
func TestValidate_Nil(t *testing.T) {
	t.Parallel()

	err := Validate(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGrammar)
}

// Test: Multiple problems are reported together
func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	err := Validate(&Grammar{Name: "empty"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoIntroducers)
	assert.ErrorIs(t, err, ErrInvalidDelimiter)
	assert.Contains(t, err.Error(), "validation failed:")
}

// Test: KeywordSet covers every keyword role
func TestGrammar_KeywordSet(t *testing.T) {
	t.Parallel()

	set := Go().KeywordSet()
	for _, kw := range []string{"func", "type", "struct", "interface", "return"} {
		assert.True(t, set[kw], kw)
	}
	assert.False(t, set["Println"])

	rust := Rust().KeywordSet()
	assert.True(t, rust["for"])
	assert.True(t, rust["pub"])
	assert.False(t, rust["default"], "contextual modifier")

	ts := TypeScript().KeywordSet()
	assert.True(t, ts["export"])
	assert.False(t, ts["declare"])
	assert.False(t, ts["static"])
}

// Test: Indentation bodies need no delimiter pair
func TestValidate_IndentBody(t *testing.T) {
	t.Parallel()

	g := Python()
	require.Empty(t, g.BodyDelimiters)
	require.NoError(t, Validate(g))

	g.IndentBody = ""
	assert.ErrorIs(t, Validate(g), ErrInvalidDelimiter)

	g = Python()
	g.GroupDelimiters = append(g.GroupDelimiters, Pair{Open: ":", Close: ";"})
	assert.ErrorIs(t, Validate(g), ErrConflictingDelimiter)
}

// Test: Kind helpers
func TestKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("module").Valid())
	assert.True(t, KindImplementation.Anchored())
	assert.False(t, KindStruct.Anchored())
}

// Test: Load a grammar from TOML
func TestLoadFile(t *testing.T) {
	t.Parallel()

	g, err := LoadFile("testdata/python.toml")
	require.NoError(t, err)

	assert.Equal(t, "python-ish", g.Name)
	assert.Equal(t, []string{".pyi"}, g.Extensions)
	assert.Equal(t, KindFunction, g.Introducers["def"])
	assert.Equal(t, KindStruct, g.Introducers["class"])
	assert.Equal(t, Pair{Open: "<", Close: ">"}, g.Generic)
	assert.Equal(t, "#", g.LineComment)
	assert.True(t, g.HasExtension(".pyi"))
}

// Test: A nameless grammar is named after its file
func TestLoadFile_DefaultName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Mini.toml")
	content := `
body_delimiters = [{ open = "{", close = "}" }]

[introducers]
fn = "function"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mini", g.Name)
}

// Test: Unknown keys are rejected rather than silently ignored
func TestParse_UnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
name = "x"
body_delimters = [{ open = "{", close = "}" }]

[introducers]
fn = "function"
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGrammar)
	assert.Contains(t, err.Error(), "body_delimters")
}

// Test: Invalid TOML and invalid grammars fail to load
func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`name = `))
	require.Error(t, err)

	_, err = Parse([]byte(`name = "x"`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoIntroducers)
}

// Test: Encoded built-ins load back unchanged
func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, want := range Builtins() {
		data, err := Encode(want)
		require.NoError(t, err)

		got, err := Parse(data)
		require.NoError(t, err, string(data))

		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Introducers, got.Introducers)
		assert.Equal(t, want.BodyDelimiters, got.BodyDelimiters)
		assert.Equal(t, want.Generic, got.Generic)
		assert.Equal(t, want.IndentBody, got.IndentBody)
		assert.Equal(t, want.TypeAnnotation, got.TypeAnnotation)
		assert.ElementsMatch(t, want.Keywords, got.Keywords)
		assert.ElementsMatch(t, want.Operators, got.Operators)
	}
}

// Test: LoadDir picks up only TOML files
func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data, err := os.ReadFile("testdata/python.toml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.toml"), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# grammars"), 0644))

	grammars, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, grammars, 1)
	assert.Equal(t, "python-ish", grammars[0].Name)

	missing, err := LoadDir(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

// Test: Registry lookups by name and extension
func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Equal(t, []string{"go", "python", "rust", "typescript"}, r.Names())

	g, err := r.Lookup("Rust")
	require.NoError(t, err)
	assert.Equal(t, "rust", g.Name)

	_, err = r.Lookup("cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: go, python, rust, typescript")

	assert.Equal(t, "go", r.ForPath("cmd/main.go").Name)
	assert.Equal(t, "typescript", r.ForPath("web/App.TSX").Name)
	assert.Equal(t, "python", r.ForPath("jobs/etl.py").Name)
	assert.Nil(t, r.ForPath("README.md"))
	assert.Len(t, r.All(), 4)
}

// Test: Custom grammars replace built-ins and claim extensions
func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	custom := Rust()
	custom.Extensions = []string{".rsx"}
	require.NoError(t, r.Register(custom))

	assert.Nil(t, r.ForPath("lib.rs"), "old extensions are released")
	assert.Same(t, custom, r.ForPath("lib.rsx"))

	require.NoError(t, r.LoadDir("testdata"))
	assert.Equal(t, "python-ish", r.ForPath("stub.pyi").Name)

	bad := Go()
	bad.Introducers = nil
	assert.ErrorIs(t, r.Register(bad), ErrNoIntroducers)
}
