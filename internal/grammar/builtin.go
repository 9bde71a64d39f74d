package grammar

// Rust returns the built-in grammar for Rust sources.
func Rust() *Grammar {
	return &Grammar{
		Name:       "rust",
		Extensions: []string{".rs"},
		Keywords: []string{
			"as", "async", "await", "break", "const", "continue", "crate", "dyn",
			"else", "enum", "extern", "false", "fn", "for", "if", "impl", "in",
			"let", "loop", "match", "mod", "move", "mut", "pub", "ref", "return",
			"self", "Self", "static", "struct", "super", "trait", "true", "type",
			"unsafe", "use", "where", "while",
		},
		Introducers: map[string]Kind{
			"fn":     KindFunction,
			"struct": KindStruct,
			"enum":   KindEnum,
			"trait":  KindTrait,
			"impl":   KindImplementation,
			"type":   KindTypeAlias,
		},
		Modifiers:         []string{"pub", "async", "unsafe", "const", "extern", "default"},
		AttributePrefix:   "#",
		BodyDelimiters:    []Pair{{Open: "{", Close: "}"}},
		GroupDelimiters:   []Pair{{Open: "(", Close: ")"}, {Open: "[", Close: "]"}},
		Generic:           Pair{Open: "<", Close: ">"},
		GenericSeparator:  ",",
		Terminator:        ";",
		ImplSeparator:     "for",
		NameStops:         []string{"where"},
		GenericContainers: true,
		LineComment:       "//",
		BlockComment:      Pair{Open: "/*", Close: "*/"},
		NestedComments:    true,
		StringQuotes:      []string{`"`},
		CharQuote:         "'",
		RawStrings:        true,
		Lifetimes:         true,
		Operators: []string{
			"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||",
			"+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=",
			"..=", "...", "..",
		},
	}
}

// Go returns the built-in grammar for Go sources.
func Go() *Grammar {
	return &Grammar{
		Name:       "go",
		Extensions: []string{".go"},
		Keywords: []string{
			"break", "case", "chan", "const", "continue", "default", "defer",
			"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
			"interface", "map", "package", "range", "return", "select", "struct",
			"switch", "type", "var",
		},
		Introducers: map[string]Kind{
			"func": KindFunction,
			"type": KindTypeAlias,
		},
		Refiners: map[string]Kind{
			"struct":    KindStruct,
			"interface": KindTrait,
		},
		BodyDelimiters:    []Pair{{Open: "{", Close: "}"}},
		GroupDelimiters:   []Pair{{Open: "(", Close: ")"}},
		Generic:           Pair{Open: "[", Close: "]"},
		GenericSeparator:  ",",
		Terminator:        ";",
		Receivers:         true,
		GenericContainers: true,
		NewlineTerminates: true,
		LineComment:       "//",
		BlockComment:      Pair{Open: "/*", Close: "*/"},
		StringQuotes:      []string{`"`},
		RawStringQuotes:   []string{"`"},
		CharQuote:         "'",
		Operators: []string{
			":=", "...", "<-", "==", "!=", "<=", ">=", "&&", "||", "&^",
			"+=", "-=", "*=", "/=", "%=", "^=", "&=", "|=", "++", "--",
		},
	}
}

// TypeScript returns the built-in grammar for TypeScript and JavaScript sources.
func TypeScript() *Grammar {
	return &Grammar{
		Name:       "typescript",
		Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs"},
		Keywords: []string{
			"as", "await", "break", "case", "catch", "const", "constructor",
			"continue", "default", "delete", "do", "else", "export", "extends",
			"false", "finally", "for", "from", "if", "implements", "import", "in",
			"instanceof", "let", "namespace", "new", "null", "of", "return",
			"super", "switch", "this", "throw", "true", "try", "typeof", "var",
			"void", "while", "yield",
		},
		Introducers: map[string]Kind{
			"function":  KindFunction,
			"class":     KindStruct,
			"interface": KindTrait,
			"enum":      KindEnum,
			"type":      KindTypeAlias,
		},
		Modifiers: []string{
			"export", "default", "declare", "abstract", "async",
			"public", "private", "protected", "static", "readonly",
		},
		AttributePrefix:   "@",
		BodyDelimiters:    []Pair{{Open: "{", Close: "}"}},
		GroupDelimiters:   []Pair{{Open: "(", Close: ")"}, {Open: "[", Close: "]"}},
		Generic:           Pair{Open: "<", Close: ">"},
		GenericSeparator:  ",",
		Terminator:        ";",
		TypeAnnotation:    ":",
		GenericContainers: true,
		LineComment:       "//",
		BlockComment:      Pair{Open: "/*", Close: "*/"},
		StringQuotes:      []string{`"`, "'", "`"},
		Operators: []string{
			"===", "!==", "=>", "==", "!=", "<=", ">=", "&&", "||", "??",
			"?.", "...", "+=", "-=", "*=", "/=", "%=", "++", "--", "**",
		},
	}
}

// Python returns the built-in grammar for Python sources. Bodies are
// delimited by indentation; braces group dict and set literals.
func Python() *Grammar {
	return &Grammar{
		Name:       "python",
		Extensions: []string{".py"},
		Keywords: []string{
			"False", "None", "True", "and", "as", "assert", "async", "await",
			"break", "continue", "del", "elif", "else", "except", "finally",
			"for", "from", "global", "if", "import", "in", "is", "lambda",
			"nonlocal", "not", "or", "pass", "raise", "return", "try", "while",
			"with", "yield",
		},
		Introducers: map[string]Kind{
			"def":   KindFunction,
			"class": KindStruct,
		},
		Modifiers:       []string{"async"},
		AttributePrefix: "@",
		IndentBody:      ":",
		GroupDelimiters: []Pair{{Open: "(", Close: ")"}, {Open: "[", Close: "]"}, {Open: "{", Close: "}"}},
		LineComment:     "#",
		StringQuotes:    []string{`"""`, "'''", `"`, "'"},
		Operators: []string{
			"**=", "//=", ">>=", "<<=", "->", ":=", "==", "!=", "<=", ">=",
			"**", "//", "<<", ">>", "+=", "-=", "*=", "/=", "%=", "&=", "|=",
			"^=", "@=", "...",
		},
	}
}

// Builtins returns fresh copies of every built-in grammar.
func Builtins() []*Grammar {
	return []*Grammar{Rust(), Go(), TypeScript(), Python()}
}
