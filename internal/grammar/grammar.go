// Package grammar describes the declaration grammars the tokenizer and the
// declaration scanner are driven by.
//
// A Grammar is plain configuration: keyword sets, delimiter pairs, comment
// and literal syntax. The same scanner core is retargeted to a new language
// by supplying a new Grammar, either one of the built-ins (Rust, Go,
// TypeScript, Python) or a TOML file loaded with LoadFile.
package grammar

// Kind is the category of a declaration.
type Kind string

const (
	KindFunction         Kind = "function"
	KindStruct           Kind = "struct"
	KindEnum             Kind = "enum"
	KindTrait            Kind = "trait"
	KindImplementation   Kind = "implementation"
	KindTypeAlias        Kind = "type_alias"
	KindGenericContainer Kind = "generic_container"
)

// Kinds lists every declaration kind in a stable order.
var Kinds = []Kind{
	KindFunction,
	KindStruct,
	KindEnum,
	KindTrait,
	KindImplementation,
	KindTypeAlias,
	KindGenericContainer,
}

// Valid reports whether k is one of the known declaration kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Anchored reports whether declarations of this kind are identified by the
// type (and trait) they attach to rather than by a name of their own.
func (k Kind) Anchored() bool {
	return k == KindImplementation
}

// Pair is an open/close delimiter pair such as "{" and "}".
type Pair struct {
	Open  string `toml:"open" json:"open"`
	Close string `toml:"close" json:"close"`
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Open == "" && p.Close == ""
}

// Grammar is the configuration for one source language.
type Grammar struct {
	Name       string   `toml:"name" json:"name"`
	Extensions []string `toml:"extensions" json:"extensions"` // with leading dot, e.g. ".rs"

	// Keywords are reserved words emitted as keyword tokens.
	// Introducers and Refiners are implicitly keywords.
	Keywords []string `toml:"keywords" json:"keywords"`

	// Introducers maps a keyword to the declaration kind it introduces.
	Introducers map[string]Kind `toml:"introducers" json:"introducers"`

	// Refiners maps a keyword that may follow a declaration's name to a more
	// specific kind (Go: "type T struct" refines type_alias to struct).
	Refiners map[string]Kind `toml:"refiners" json:"refiners"`

	// Modifiers may appear between a doc comment and an introducer
	// without detaching the comment (pub, async, export, ...). A modifier
	// not also listed in Keywords is contextual: it is tokenized as an
	// identifier and still usable as a name (Rust "fn default()").
	Modifiers []string `toml:"modifiers" json:"modifiers"`

	// AttributePrefix starts an annotation such as #[derive(Debug)] or
	// @Component(...). Empty disables attribute recognition.
	AttributePrefix string `toml:"attribute_prefix" json:"attribute_prefix"`

	BodyDelimiters   []Pair `toml:"body_delimiters" json:"body_delimiters"`
	GroupDelimiters  []Pair `toml:"group_delimiters" json:"group_delimiters"`
	Generic          Pair   `toml:"generic" json:"generic"`
	GenericSeparator string `toml:"generic_separator" json:"generic_separator"`
	Terminator       string `toml:"terminator" json:"terminator"`

	// IndentBody ends a header and opens a body made of the following lines
	// indented deeper than the header's line, as Python's ":" does. Such a
	// body has no closing token.
	IndentBody string `toml:"indent_body" json:"indent_body"`

	// TypeAnnotation starts a type in a header (TypeScript ":"). A body
	// opener that follows it where an operand is expected is an object type
	// literal, not the body.
	TypeAnnotation string `toml:"type_annotation" json:"type_annotation"`

	// NewlineTerminates ends a bodiless declaration header at a line break
	// that follows an operand, the way Go inserts semicolons.
	NewlineTerminates bool `toml:"newline_terminates" json:"newline_terminates"`

	// ImplSeparator splits an implementation header into trait and target
	// ("Display for Point"). Empty means the whole header is the target.
	ImplSeparator string `toml:"impl_separator" json:"impl_separator"`

	// NameStops end an implementation header's name early, e.g. Rust's
	// "where" clause.
	NameStops []string `toml:"name_stops" json:"name_stops"`

	// Receivers enables Go-style receivers: a group between the introducer
	// and the name, as in "func (s *Server) Start()".
	Receivers bool `toml:"receivers" json:"receivers"`

	// GenericContainers reports struct declarations that carry generic
	// parameters as generic_container.
	GenericContainers bool `toml:"generic_containers" json:"generic_containers"`

	LineComment    string `toml:"line_comment" json:"line_comment"`
	BlockComment   Pair   `toml:"block_comment" json:"block_comment"`
	NestedComments bool   `toml:"nested_comments" json:"nested_comments"`

	StringQuotes    []string `toml:"string_quotes" json:"string_quotes"`
	RawStringQuotes []string `toml:"raw_string_quotes" json:"raw_string_quotes"`
	CharQuote       string   `toml:"char_quote" json:"char_quote"`
	RawStrings      bool     `toml:"raw_strings" json:"raw_strings"` // r"..", r#".."#, br".."
	Lifetimes       bool     `toml:"lifetimes" json:"lifetimes"`     // 'a

	// Operators are multi-character punctuation tokens matched longest
	// first. Anything not listed is emitted one byte at a time.
	Operators []string `toml:"operators" json:"operators"`
}

// KeywordSet returns every word the tokenizer should emit as a keyword.
// Contextual modifiers are not in it.
func (g *Grammar) KeywordSet() map[string]bool {
	set := make(map[string]bool, len(g.Keywords)+len(g.Introducers)+len(g.Refiners))
	for _, kw := range g.Keywords {
		set[kw] = true
	}
	for kw := range g.Introducers {
		set[kw] = true
	}
	for kw := range g.Refiners {
		set[kw] = true
	}
	if g.ImplSeparator != "" {
		set[g.ImplSeparator] = true
	}
	return set
}

// HasExtension reports whether the grammar claims the given file extension.
func (g *Grammar) HasExtension(ext string) bool {
	for _, e := range g.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
