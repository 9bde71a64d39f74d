package mcp

// Implementation Plan:
// 1. One Add*Tool function per tool so servers compose the tools they need
// 2. Handlers bind arguments, validate, call the backing service
// 3. Bad input becomes a tool error result; backend failures are returned
// 4. Responses are JSON text (mcp-go convention)

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/search"
)

const (
	defaultSearchLimit = 15
	maxSearchLimit     = 100
)

// ErrInvalidRequest marks errors caused by the caller's arguments.
var ErrInvalidRequest = errors.New("invalid request")

// DeclarationScanner backs the scan_declarations tool.
type DeclarationScanner interface {
	ScanDeclarations(ctx context.Context, req *ScanRequest) (*ScanResponse, error)
}

// DeclarationSearcher backs the search_declarations tool.
type DeclarationSearcher interface {
	SearchDeclarations(ctx context.Context, req *SearchRequest) ([]*search.Hit, error)
}

// ImplementorFinder backs the find_implementors tool.
type ImplementorFinder interface {
	Implementors(ctx context.Context, trait string) ([]string, error)
}

type handlerFunc = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddScanTool registers the scan_declarations tool.
func AddScanTool(s *server.MCPServer, scanner DeclarationScanner) {
	tool := mcp.NewTool(
		"scan_declarations",
		mcp.WithDescription(`List the declarations (functions, structs, enums, traits, impl blocks, type aliases) in project files or in a source snippet.

Modes:
- path: a file or directory relative to the project root ("" = whole project)
- source + grammar: scan the given text instead of a file

Results are flattened in source order with qualified names (Type::method), signatures and line ranges.`),
		mcp.WithString("path",
			mcp.Description("File or directory relative to the project root")),
		mcp.WithString("source",
			mcp.Description("Source text to scan instead of a file")),
		mcp.WithString("grammar",
			mcp.Description("Grammar for source text (rust, go, typescript, python, or a custom grammar name)")),
		mcp.WithString("kind",
			mcp.Description("Only return declarations of this kind"),
			mcp.Enum(kindNames()...)),
		mcp.WithString("name",
			mcp.Description("Only return declarations with this name (impl blocks match on their target)")),
		mcp.WithBoolean("include_doc",
			mcp.Description("Include doc comment text")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createScanHandler(scanner))
}

func createScanHandler(scanner DeclarationScanner) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args ScanRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Path != "" && args.Source != "" {
			return mcp.NewToolResultError("path and source are mutually exclusive"), nil
		}
		if args.Source != "" && args.Grammar == "" {
			return mcp.NewToolResultError("grammar parameter is required with source"), nil
		}
		if args.Kind != "" && !grammar.Kind(args.Kind).Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", args.Kind)), nil
		}

		resp, err := scanner.ScanDeclarations(ctx, &args)
		if err != nil {
			return errorResult(err)
		}
		resp.Metadata = ResponseMetadata{
			TookMs: int(time.Since(start).Milliseconds()),
			Source: "scan",
		}
		return jsonResult(resp)
	}
}

// AddSearchTool registers the search_declarations tool.
func AddSearchTool(s *server.MCPServer, searcher DeclarationSearcher) {
	tool := mcp.NewTool(
		"search_declarations",
		mcp.WithDescription(`Full-text search over every declaration in the project using bleve query syntax.

Fields: name, qualified_name, kind, signature, doc, file_path
- Plain terms match names, signatures and doc comments: Parser
- Field scoping: kind:trait, doc:"error handling", name:new
- Boolean operators: +required -excluded, AND, OR, NOT
- Wildcards and fuzzy: Pars*, Parsre~1`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Bleve query string")),
		mcp.WithString("kind",
			mcp.Description("Only return declarations of this kind"),
			mcp.Enum(kindNames()...)),
		mcp.WithString("file_path",
			mcp.Description("Wildcard pattern on the file path, e.g. src/*")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 15)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSearchHandler(searcher))
}

func createSearchHandler(searcher DeclarationSearcher) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args SearchRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		args.Query = strings.TrimSpace(args.Query)
		if args.Query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		if args.Kind != "" && !grammar.Kind(args.Kind).Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", args.Kind)), nil
		}
		args.Limit = clamp(args.Limit, defaultSearchLimit, 1, maxSearchLimit)

		hits, err := searcher.SearchDeclarations(ctx, &args)
		if err != nil {
			return errorResult(err)
		}
		if hits == nil {
			hits = []*search.Hit{}
		}

		return jsonResult(&SearchResponse{
			Query:         args.Query,
			Results:       hits,
			TotalReturned: len(hits),
			Metadata: ResponseMetadata{
				TookMs: int(time.Since(start).Milliseconds()),
				Source: "search",
			},
		})
	}
}

// AddImplementorsTool registers the find_implementors tool.
func AddImplementorsTool(s *server.MCPServer, finder ImplementorFinder) {
	tool := mcp.NewTool(
		"find_implementors",
		mcp.WithDescription("List the types with an impl block for the given trait, across the whole project. Traits from outside the project (Display, Iterator) work too."),
		mcp.WithString("trait",
			mcp.Required(),
			mcp.Description("Trait name without path or generics, e.g. Display")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createImplementorsHandler(finder))
}

func createImplementorsHandler(finder ImplementorFinder) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args ImplementorsRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		args.Trait = strings.TrimSpace(args.Trait)
		if args.Trait == "" {
			return mcp.NewToolResultError("trait parameter is required"), nil
		}

		names, err := finder.Implementors(ctx, args.Trait)
		if err != nil {
			return errorResult(err)
		}
		if names == nil {
			names = []string{}
		}

		return jsonResult(&ImplementorsResponse{
			Trait:        args.Trait,
			Implementors: names,
			Metadata: ResponseMetadata{
				TookMs: int(time.Since(start).Milliseconds()),
				Source: "graph",
			},
		})
	}
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, ErrInvalidRequest) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func kindNames() []string {
	out := make([]string, len(grammar.Kinds))
	for i, k := range grammar.Kinds {
		out[i] = string(k)
	}
	return out
}
