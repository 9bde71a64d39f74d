package mcp

import (
	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/scanner"
	"github.com/mvp-joe/structscan/internal/search"
)

// ScanRequest is the argument schema of the scan_declarations tool.
// Exactly one of Path or Source is used; an empty request lists the whole
// project.
type ScanRequest struct {
	Path       string `json:"path,omitempty"`
	Source     string `json:"source,omitempty"`
	Grammar    string `json:"grammar,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Name       string `json:"name,omitempty"`
	IncludeDoc bool   `json:"include_doc,omitempty"`
}

// ScanResponse is the result of the scan_declarations tool.
type ScanResponse struct {
	Files             []*FileDeclarations `json:"files"`
	TotalDeclarations int                 `json:"total_declarations"`
	Metadata          ResponseMetadata    `json:"metadata"`
}

// FileDeclarations lists the declarations of one scanned file, flattened
// in source order.
type FileDeclarations struct {
	Path         string               `json:"path"`
	Grammar      string               `json:"grammar"`
	Declarations []*DeclarationResult `json:"declarations"`
	Advisories   []scanner.Advisory   `json:"advisories,omitempty"`
	Salvaged     bool                 `json:"salvaged,omitempty"`
}

// DeclarationResult is one declaration as reported to clients.
type DeclarationResult struct {
	Kind          grammar.Kind `json:"kind"`
	Name          string       `json:"name"`
	QualifiedName string       `json:"qualified_name"`
	Signature     string       `json:"signature"`
	Generics      []string     `json:"generics,omitempty"`
	Doc           string       `json:"doc,omitempty"`
	Line          int          `json:"line"`
	EndLine       int          `json:"end_line"`
	Depth         int          `json:"depth"`
	Salvaged      bool         `json:"salvaged,omitempty"`
}

// SearchRequest is the argument schema of the search_declarations tool.
type SearchRequest struct {
	Query    string `json:"query"`
	Kind     string `json:"kind,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// SearchResponse is the result of the search_declarations tool.
type SearchResponse struct {
	Query         string           `json:"query"`
	Results       []*search.Hit    `json:"results"`
	TotalReturned int              `json:"total_returned"`
	Metadata      ResponseMetadata `json:"metadata"`
}

// ImplementorsRequest is the argument schema of the find_implementors tool.
type ImplementorsRequest struct {
	Trait string `json:"trait"`
}

// ImplementorsResponse is the result of the find_implementors tool.
type ImplementorsResponse struct {
	Trait        string           `json:"trait"`
	Implementors []string         `json:"implementors"`
	Metadata     ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries timing and provenance for a tool response.
type ResponseMetadata struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"`
}
