// Package relations links the declarations of a scan into a directed graph:
// traits point at the types that implement them, and types point at their
// implementation blocks and receiver methods.
package relations

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/scanner"
)

// Edge labels.
const (
	EdgeImplements = "implements" // trait -> type
	EdgeImpl       = "impl"       // type -> implementation block
	EdgeMethod     = "method"     // type -> receiver method
)

// Node is one vertex of the relation graph.
type Node struct {
	ID   string
	Name string
	// Kind is empty for types and traits referenced but never declared.
	Kind grammar.Kind
	File string
	Line int
}

// External reports whether the node was only referenced, not declared.
func (n *Node) External() bool {
	return n.Kind == ""
}

// Graph is the relation graph built from one scan.
type Graph struct {
	g graph.Graph[string, *Node]
}

// Build creates the relation graph for a set of scan results. Failed and
// skipped results are ignored.
func Build(results []*indexer.FileResult) (*Graph, error) {
	r := &Graph{
		g: graph.New(func(n *Node) string { return n.ID }, graph.Directed()),
	}

	// Named types and traits first so that edges can refer to them
	// regardless of file order.
	for _, res := range results {
		if !res.OK() {
			continue
		}
		var err error
		res.Catalog.Walk(func(d *scanner.Declaration, _ []*scanner.Declaration) bool {
			if !isNamedType(d.Kind) || d.Name == "" {
				return true
			}
			err = r.declare(d.Name, d, res.RelPath)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, res := range results {
		if !res.OK() {
			continue
		}
		var err error
		res.Catalog.Walk(func(d *scanner.Declaration, _ []*scanner.Declaration) bool {
			switch {
			case d.Kind == grammar.KindImplementation:
				err = r.addImpl(d, res.RelPath)
			case d.Kind == grammar.KindFunction && d.Receiver != "":
				err = r.addMethod(d, res.RelPath)
			}
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

func isNamedType(k grammar.Kind) bool {
	switch k {
	case grammar.KindStruct, grammar.KindGenericContainer, grammar.KindEnum,
		grammar.KindTrait, grammar.KindTypeAlias:
		return true
	}
	return false
}

// declare adds a declared type or trait. The first declaration of a name
// wins.
func (r *Graph) declare(id string, d *scanner.Declaration, file string) error {
	if _, err := r.g.Vertex(id); err == nil {
		return nil
	}
	node := &Node{ID: id, Name: d.Name, Kind: d.Kind, File: file, Line: d.Line}
	return r.addVertex(node)
}

// ensure returns the node for a type or trait name, adding an external
// node when the name was never declared.
func (r *Graph) ensure(name string) (string, error) {
	if _, err := r.g.Vertex(name); err == nil {
		return name, nil
	}
	return name, r.addVertex(&Node{ID: name, Name: name})
}

func (r *Graph) addVertex(n *Node) error {
	attrs := []func(*graph.VertexProperties){graph.VertexAttribute("label", label(n))}
	switch {
	case n.External():
		attrs = append(attrs, graph.VertexAttribute("style", "dashed"))
	case n.Kind == grammar.KindTrait:
		attrs = append(attrs, graph.VertexAttribute("shape", "diamond"))
	case n.Kind == grammar.KindImplementation || n.Kind == grammar.KindFunction:
		attrs = append(attrs, graph.VertexAttribute("shape", "box"))
	}
	if err := r.g.AddVertex(n, attrs...); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("failed to add node %s: %w", n.ID, err)
	}
	return nil
}

func (r *Graph) addEdge(from, to, kind string) error {
	err := r.g.AddEdge(from, to, graph.EdgeAttribute("label", kind))
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return fmt.Errorf("failed to add edge %s -> %s: %w", from, to, err)
	}
	return nil
}

func (r *Graph) addImpl(d *scanner.Declaration, file string) error {
	target := BaseName(d.Target)
	if target == "" {
		return nil
	}
	typeID, err := r.ensure(target)
	if err != nil {
		return err
	}

	impl := &Node{
		ID:   fmt.Sprintf("%s:%d %s", file, d.Line, d.Name),
		Name: d.Name,
		Kind: d.Kind,
		File: file,
		Line: d.Line,
	}
	if err := r.addVertex(impl); err != nil {
		return err
	}
	if err := r.addEdge(typeID, impl.ID, EdgeImpl); err != nil {
		return err
	}

	if d.Trait == "" {
		return nil
	}
	traitID, err := r.ensure(BaseName(d.Trait))
	if err != nil {
		return err
	}
	return r.addEdge(traitID, typeID, EdgeImplements)
}

func (r *Graph) addMethod(d *scanner.Declaration, file string) error {
	owner := ReceiverType(d.Receiver)
	if owner == "" {
		return nil
	}
	typeID, err := r.ensure(owner)
	if err != nil {
		return err
	}
	method := &Node{
		ID:   owner + "." + d.Name,
		Name: d.Name,
		Kind: d.Kind,
		File: file,
		Line: d.Line,
	}
	if err := r.addVertex(method); err != nil {
		return err
	}
	return r.addEdge(typeID, method.ID, EdgeMethod)
}

// Node returns the node with the given id.
func (r *Graph) Node(id string) (*Node, bool) {
	n, err := r.g.Vertex(id)
	if err != nil {
		return nil, false
	}
	return n, true
}

// Len returns the number of nodes.
func (r *Graph) Len() int {
	n, err := r.g.Order()
	if err != nil {
		return 0
	}
	return n
}

// Implementors returns the sorted names of the types implementing trait.
func (r *Graph) Implementors(trait string) []string {
	return r.targets(trait, EdgeImplements)
}

// Impls returns the ids of the implementation blocks attached to a type.
func (r *Graph) Impls(typeName string) []string {
	return r.targets(typeName, EdgeImpl)
}

// Methods returns the ids of the receiver methods attached to a type.
func (r *Graph) Methods(typeName string) []string {
	return r.targets(typeName, EdgeMethod)
}

// Traits returns the sorted names of the traits a type implements.
func (r *Graph) Traits(typeName string) []string {
	preds, err := r.g.PredecessorMap()
	if err != nil {
		return nil
	}
	out := []string{}
	for from, e := range preds[typeName] {
		if e.Properties.Attributes["label"] == EdgeImplements {
			out = append(out, from)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Graph) targets(from, kind string) []string {
	adj, err := r.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := []string{}
	for to, e := range adj[from] {
		if e.Properties.Attributes["label"] == kind {
			out = append(out, to)
		}
	}
	sort.Strings(out)
	return out
}

// DOT writes the graph in Graphviz DOT format.
func (r *Graph) DOT(w io.Writer) error {
	return draw.DOT(r.g, w)
}

func label(n *Node) string {
	if n.External() {
		return n.Name
	}
	if n.Kind == grammar.KindImplementation {
		return "impl " + n.Name
	}
	return fmt.Sprintf("%s %s", n.Kind, n.Name)
}

// BaseName reduces a type expression to the bare type name it refers to:
// "&'a mut foo::Point<T>" becomes "Point".
func BaseName(expr string) string {
	s := strings.TrimSpace(expr)
	if i := strings.IndexAny(s, "<["); i >= 0 {
		s = s[:i]
	}
	for {
		trimmed := strings.TrimLeft(s, "&* ")
		trimmed = strings.TrimPrefix(trimmed, "dyn ")
		trimmed = strings.TrimPrefix(trimmed, "mut ")
		if strings.HasPrefix(trimmed, "'") {
			if i := strings.IndexByte(trimmed, ' '); i >= 0 {
				trimmed = trimmed[i+1:]
			}
		}
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// ReceiverType returns the type named by a receiver group such as
// "(q *Queue[T])".
func ReceiverType(recv string) string {
	s := strings.TrimSpace(recv)
	if i := strings.IndexByte(s, '['); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return BaseName(fields[len(fields)-1])
}
