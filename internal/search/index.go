// Package search provides full-text search over scanned declarations,
// backed by an in-memory bleve index.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/scanner"
)

const (
	defaultLimit = 15
	maxLimit     = 100
	batchSize    = 1000
)

// Options narrows a search. Nil options apply defaults.
type Options struct {
	Kind     grammar.Kind // exact kind filter
	FilePath string       // wildcard pattern on the file path, e.g. "src/*"
	Limit    int          // 1-100, default 15
}

// Hit is one matching declaration.
type Hit struct {
	ID            string       `json:"id"`
	FilePath      string       `json:"file_path"`
	Kind          grammar.Kind `json:"kind"`
	Name          string       `json:"name"`
	QualifiedName string       `json:"qualified_name"`
	Signature     string       `json:"signature"`
	Line          int          `json:"line"`
	Score         float64      `json:"score"`
	Highlights    []string     `json:"highlights,omitempty"`
}

// Index is a searchable set of declarations. It is safe for concurrent use.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
	files map[string][]string // file path → document ids
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Index{index: idx, files: make(map[string][]string)}, nil
}

// Build creates an index holding every declaration in results.
func Build(ctx context.Context, results []*indexer.FileResult) (*Index, error) {
	idx, err := New()
	if err != nil {
		return nil, err
	}
	if err := idx.Update(ctx, results, nil); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// buildMapping creates the index mapping for declaration documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	text := func(analyzer string, index bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzer
		fm.Store = true
		fm.Index = index
		return fm
	}

	docText := text("standard", true)
	docText.IncludeTermVectors = true // phrase search and highlighting

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", text("keyword", false))
	docMapping.AddFieldMappingsAt("name", text("standard", true))
	docMapping.AddFieldMappingsAt("qualified_name", text("keyword", true))
	docMapping.AddFieldMappingsAt("kind", text("keyword", true))
	docMapping.AddFieldMappingsAt("file_path", text("keyword", true))
	docMapping.AddFieldMappingsAt("signature", text("standard", true))
	docMapping.AddFieldMappingsAt("doc", docText)

	lineMapping := bleve.NewNumericFieldMapping()
	lineMapping.Store = true
	lineMapping.Index = false
	docMapping.AddFieldMappingsAt("line", lineMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func documentID(path string, position int) string {
	return fmt.Sprintf("%s#%d", path, position)
}

// Update replaces the documents of every scanned file in results and drops
// the files listed in removed.
func (x *Index) Update(ctx context.Context, results []*indexer.FileResult, removed []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
		batch = x.index.NewBatch()
		return nil
	}

	drop := func(path string) {
		for _, id := range x.files[path] {
			batch.Delete(id)
		}
		delete(x.files, path)
	}

	for _, path := range removed {
		drop(path)
	}

	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.OK() {
			continue
		}
		drop(r.RelPath)

		var ids []string
		var indexErr error
		position := 0
		r.Catalog.Walk(func(d *scanner.Declaration, parents []*scanner.Declaration) bool {
			id := documentID(r.RelPath, position)
			position++

			path := append(append([]*scanner.Declaration{}, parents...), d)
			doc := map[string]any{
				"id":             id,
				"name":           d.Name,
				"qualified_name": scanner.QualifiedName(path),
				"kind":           string(d.Kind),
				"file_path":      r.RelPath,
				"signature":      d.Signature,
				"doc":            d.DocText(),
				"line":           d.Line,
			}
			if indexErr = batch.Index(id, doc); indexErr != nil {
				indexErr = fmt.Errorf("failed to add %s to batch: %w", id, indexErr)
				return false
			}
			ids = append(ids, id)

			if batch.Size() >= batchSize {
				if indexErr = flush(); indexErr != nil {
					return false
				}
			}
			return true
		})
		if indexErr != nil {
			return indexErr
		}
		x.files[r.RelPath] = ids
	}

	return flush()
}

// Len returns the number of indexed declarations.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, ids := range x.files {
		n += len(ids)
	}
	return n
}

// Search runs a bleve query-string query ("Point", "kind:trait doc:render",
// "name:new*") and returns hits best first.
func (x *Index) Search(ctx context.Context, queryStr string, opts *Options) ([]*Hit, error) {
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if opts.Kind != "" {
		kq := bleve.NewTermQuery(string(opts.Kind))
		kq.SetField("kind")
		queries = append(queries, kq)
	}
	if opts.FilePath != "" {
		pq := bleve.NewWildcardQuery(opts.FilePath)
		pq.SetField("file_path")
		queries = append(queries, pq)
	}

	var q query.Query = queries[0]
	if len(queries) > 1 {
		q = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	style := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &style
	req.Highlight.Fields = []string{"doc"}
	req.Fields = []string{"id", "name", "qualified_name", "kind", "file_path", "signature", "line"}

	x.mu.RLock()
	res, err := x.index.SearchInContext(ctx, req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]*Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := &Hit{ID: h.ID, Score: h.Score}
		hit.Name, _ = h.Fields["name"].(string)
		hit.QualifiedName, _ = h.Fields["qualified_name"].(string)
		hit.FilePath, _ = h.Fields["file_path"].(string)
		hit.Signature, _ = h.Fields["signature"].(string)
		if kind, ok := h.Fields["kind"].(string); ok {
			hit.Kind = grammar.Kind(kind)
		}
		if line, ok := h.Fields["line"].(float64); ok {
			hit.Line = int(line)
		}
		hit.Highlights = highlights(h.Fragments)
		hits = append(hits, hit)
	}
	return hits, nil
}

// highlights flattens bleve fragments, at most 3 per hit.
func highlights(fragments map[string][]string) []string {
	fields := make([]string, 0, len(fragments))
	for f := range fragments {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		out = append(out, fragments[f]...)
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}
