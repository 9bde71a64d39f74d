package scanner

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// Test Plan for Scanner:
// - Struct, implementation, doc comment and truncated-function scenarios
// - Full Rust fixture: every declaration, kind, name, generics, children and lines
// - Rust generics with bounds, lifetimes and const parameters, where clauses,
//   attributes, modifiers, associated types and bodiless forms
// - Contextual modifiers stay usable as declaration names
// - Go: receivers, refined kinds, generics, newline-terminated types, inline
//   interface literals, function literals and function types
// - Go bodiless declarations ending the input are complete, not salvaged
// - TypeScript: decorators, export modifiers, classes, type aliases and
//   object type literals in return types
// - Python: indentation bodies close on dedent and at end of input, across
//   decorators, async functions, nested functions and one-line bodies
// - A custom grammar with word delimiters retargets the same scanner
// - Containment is strict and holds for every fixture
// - Scanning is idempotent
// - Truncating input only flags declarations open at the cut, in every
//   built-in grammar
// - Stray closers and unknown characters raise advisories without failing
// - Deep nesting does not exhaust the call stack
// - Invalid grammars fail fast in New

func newScanner(t *testing.T, g *grammar.Grammar) *Scanner {
	t.Helper()
	s, err := New(g)
	require.NoError(t, err)
	return s
}

func scanRust(t *testing.T, src string) *Catalog {
	t.Helper()
	return newScanner(t, grammar.Rust()).ScanSource([]byte(src))
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return src
}

func names(decls []*Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Name
	}
	return out
}

// Test: A plain struct is one declaration with no generics or children
func TestScan_Struct(t *testing.T) {
	t.Parallel()

	cat := scanRust(t, `struct Person { name: String, age: u32 }`)

	require.Len(t, cat.Declarations, 1)
	d := cat.Declarations[0]
	assert.Equal(t, grammar.KindStruct, d.Kind)
	assert.Equal(t, "Person", d.Name)
	assert.Empty(t, d.Generics)
	assert.Empty(t, d.Children)
	assert.Equal(t, "struct Person", d.Signature)
	assert.False(t, d.Salvaged)
	require.NotNil(t, d.Body)
	assert.Equal(t, Span{Start: 0, End: 40}, d.Span)
	assert.Equal(t, Span{Start: 14, End: 40}, *d.Body)
	assert.True(t, cat.WellFormed())
}

// Test: A generic trait implementation nests its method
func TestScan_Implementation(t *testing.T) {
	t.Parallel()

	cat := scanRust(t, `impl<T> Pool for ObjectPool<T> { fn acquire(&mut self) -> Option<T> { ... } }`)

	require.Len(t, cat.Declarations, 1)
	impl := cat.Declarations[0]
	assert.Equal(t, grammar.KindImplementation, impl.Kind)
	assert.Equal(t, []string{"T"}, impl.Generics)
	assert.Equal(t, "Pool for ObjectPool<T>", impl.Name)
	assert.Equal(t, "Pool", impl.Trait)
	assert.Equal(t, "ObjectPool<T>", impl.Target)
	assert.Equal(t, "impl<T> Pool for ObjectPool<T>", impl.Signature)

	require.Len(t, impl.Children, 1)
	fn := impl.Children[0]
	assert.Equal(t, grammar.KindFunction, fn.Kind)
	assert.Equal(t, "acquire", fn.Name)
	assert.Equal(t, "fn acquire(&mut self) -> Option<T>", fn.Signature)
	assert.True(t, impl.Body.Contains(fn.Span))
}

// Test: A directly preceding comment is the doc, a blank line detaches it
func TestScan_DocComment(t *testing.T) {
	t.Parallel()

	attached := scanRust(t, "// this is a comment\nfn main() { }")
	require.Len(t, attached.Declarations, 1)
	assert.Equal(t, "// this is a comment", attached.Declarations[0].Doc)
	assert.Equal(t, "this is a comment", attached.Declarations[0].DocText())

	detached := scanRust(t, "// this is a comment\n\nfn main() { }")
	require.Len(t, detached.Declarations, 1)
	assert.Empty(t, detached.Declarations[0].Doc)
}

// Test: Doc runs restart at blank lines and skip trailing comments
func TestScan_DocCommentRuns(t *testing.T) {
	t.Parallel()

	src := `// stale

/// first line
/// second line
fn documented() {} // trailing note
fn next() {}

/* block
   doc */
#[inline]
pub fn attributed() {}

/// detached by code
let x = 1;
fn after_code() {}
`
	cat := scanRust(t, src)
	require.Equal(t, []string{"documented", "next", "attributed", "after_code"}, names(cat.Declarations))

	assert.Equal(t, "/// first line\n/// second line", cat.Declarations[0].Doc)
	assert.Equal(t, "first line\nsecond line", cat.Declarations[0].DocText())
	assert.Empty(t, cat.Declarations[1].Doc, "a trailing comment is not the next declaration's doc")
	assert.Equal(t, "/* block\n   doc */", cat.Declarations[2].Doc)
	assert.Equal(t, "block\ndoc", cat.Declarations[2].DocText())
	assert.Equal(t, []string{"#[inline]"}, cat.Declarations[2].Attributes)
	assert.Equal(t, []string{"pub"}, cat.Declarations[2].Modifiers)
	assert.Empty(t, cat.Declarations[3].Doc)
}

// Test: A missing closing brace salvages the function
func TestScan_Salvaged(t *testing.T) {
	t.Parallel()

	src := `fn add(a: i32, b: i32) -> i32 { a + b`
	cat := scanRust(t, src)

	require.Len(t, cat.Declarations, 1)
	d := cat.Declarations[0]
	assert.Equal(t, grammar.KindFunction, d.Kind)
	assert.Equal(t, "add", d.Name)
	assert.True(t, d.Salvaged)
	assert.Equal(t, len(src), d.Span.End)
	assert.Equal(t, len(src), d.Body.End)
	assert.True(t, cat.Salvaged())

	require.Len(t, cat.Advisories, 1)
	assert.Equal(t, AdvisoryUnclosed, cat.Advisories[0].Kind)
	assert.Equal(t, 1, cat.Advisories[0].Line)
}

// Test: A header cut off before its body is salvaged too
func TestScan_SalvagedHeader(t *testing.T) {
	t.Parallel()

	cat := scanRust(t, "struct Foo<T")
	require.Len(t, cat.Declarations, 1)
	d := cat.Declarations[0]
	assert.Equal(t, "Foo", d.Name)
	assert.Equal(t, []string{"T"}, d.Generics)
	assert.Nil(t, d.Body)
	assert.True(t, d.Salvaged)
	assert.Equal(t, "struct Foo<T", d.Signature)
	require.Len(t, cat.Advisories, 1)
	assert.Equal(t, AdvisoryUnclosed, cat.Advisories[0].Kind)
}

// Test: The whole Rust fixture
func TestScan_RustFixture(t *testing.T) {
	t.Parallel()

	cat := newScanner(t, grammar.Rust()).ScanSource(readFixture(t, "../../testdata/code/rust/sample.rs"))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.NoError(t, cat.CheckContainment())

	require.Equal(t, []string{
		"main", "Person", "Person", "Color", "Printable",
		"Printable for Color", "add", "TaskQueue", "TaskQueue<T>",
	}, names(cat.Declarations))

	type want struct {
		kind     grammar.Kind
		line     int
		endLine  int
		children []string
	}
	wants := []want{
		{grammar.KindFunction, 4, 6, nil},
		{grammar.KindStruct, 9, 12, nil},
		{grammar.KindImplementation, 14, 22, []string{"new", "say_hello"}},
		{grammar.KindEnum, 24, 28, nil},
		{grammar.KindTrait, 30, 32, []string{"print"}},
		{grammar.KindImplementation, 34, 42, []string{"print"}},
		{grammar.KindFunction, 44, 46, nil},
		{grammar.KindGenericContainer, 48, 51, nil},
		{grammar.KindImplementation, 53, 92, []string{"new", "push", "pop", "len", "is_empty", "peek", "drain"}},
	}
	for i, w := range wants {
		d := cat.Declarations[i]
		assert.Equal(t, w.kind, d.Kind, d.Name)
		assert.Equal(t, w.line, d.Line, d.Name)
		assert.Equal(t, w.endLine, d.EndLine, d.Name)
		if w.children == nil {
			assert.Empty(t, d.Children, d.Name)
		} else {
			assert.Equal(t, w.children, names(d.Children), d.Name)
		}
	}

	main := cat.Declarations[0]
	assert.Equal(t, "// this is a comment", main.Doc)

	trait := cat.Declarations[4]
	proto := trait.Children[0]
	assert.Nil(t, proto.Body)
	assert.Equal(t, "fn print(&self);", proto.Signature)
	assert.Equal(t, 31, proto.Line)

	display := cat.Declarations[5]
	assert.Equal(t, "Printable", display.Trait)
	assert.Equal(t, "Color", display.Target)

	queue := cat.Declarations[7]
	assert.Equal(t, []string{"T"}, queue.Generics)

	impl := cat.Declarations[8]
	assert.Equal(t, []string{"T"}, impl.Generics)
	assert.Empty(t, impl.Trait)
	assert.Equal(t, "TaskQueue<T>", impl.Target)
	assert.Equal(t, "fn push(&mut self, item: T) -> Result<(), &str>", impl.Children[1].Signature)

	assert.Equal(t, 20, cat.Count())
	assert.Len(t, cat.Find("new"), 2)
}

// Test: Bounds, lifetimes, const parameters, where clauses and bodiless forms
func TestScan_RustGenerics(t *testing.T) {
	t.Parallel()

	cat := newScanner(t, grammar.Rust()).ScanSource(readFixture(t, "../../testdata/code/rust/generics.rs"))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.NoError(t, cat.CheckContainment())

	require.Equal(t, []string{
		"ObjectPool", "Pool", "Pool for ObjectPool<T, N>",
		"fmt::Display for Entry<'a, K, V>", "Entry", "Shape",
		"Callback", "run", "Unit", "Pair", "Default for Shape",
	}, names(cat.Declarations))

	pool := cat.Declarations[0]
	assert.Equal(t, grammar.KindGenericContainer, pool.Kind)
	assert.Equal(t, []string{"T", "N"}, pool.Generics)
	assert.Equal(t, "/// A pool of reusable objects.", pool.Doc)
	assert.Equal(t, []string{"#[derive(Debug, Clone)]"}, pool.Attributes)
	assert.Equal(t, []string{"pub"}, pool.Modifiers)
	assert.Equal(t, 7, pool.Line)

	trait := cat.Declarations[1]
	assert.Equal(t, grammar.KindTrait, trait.Kind)
	assert.Equal(t, "/// Something that can lend items.", trait.Doc)
	require.Equal(t, []string{"Item", "acquire", "release"}, names(trait.Children))
	assert.Equal(t, grammar.KindTypeAlias, trait.Children[0].Kind)
	for _, c := range trait.Children {
		assert.Nil(t, c.Body, c.Name)
	}

	impl := cat.Declarations[2]
	assert.Equal(t, []string{"T", "N"}, impl.Generics)
	assert.Equal(t, "Pool", impl.Trait)
	assert.Equal(t, "ObjectPool<T, N>", impl.Target)
	assert.Equal(t, []string{"Item", "acquire", "release"}, names(impl.Children))

	display := cat.Declarations[3]
	assert.Equal(t, []string{"'a", "K", "V"}, display.Generics)
	assert.Equal(t, "fmt::Display", display.Trait)
	assert.Equal(t, "Entry<'a, K, V>", display.Target)
	assert.Contains(t, display.Signature, "where K: fmt::Display, V: fmt::Display,")
	assert.Equal(t, []string{"fmt"}, names(display.Children))

	entry := cat.Declarations[4]
	assert.Equal(t, grammar.KindGenericContainer, entry.Kind)
	assert.Equal(t, []string{"'a", "K", "V"}, entry.Generics)

	assert.Equal(t, grammar.KindEnum, cat.Declarations[5].Kind)

	callback := cat.Declarations[6]
	assert.Equal(t, grammar.KindTypeAlias, callback.Kind)
	assert.Equal(t, "type Callback = fn(i32) -> i32;", callback.Signature)

	run := cat.Declarations[7]
	assert.Equal(t, []string{"pub", "async"}, run.Modifiers)
	assert.Equal(t, []string{"F"}, run.Generics)
	assert.Empty(t, run.Children, "closures and async blocks are not declarations")
	assert.Equal(t, 55, run.Line)
	assert.Equal(t, 62, run.EndLine)

	assert.Nil(t, cat.Declarations[8].Body)
	assert.Equal(t, "struct Pair(i32, i32);", cat.Declarations[9].Signature)

	def := cat.Declarations[10]
	assert.Equal(t, "Default", def.Trait)
	assert.Equal(t, "Shape", def.Target)
	require.Equal(t, []string{"default"}, names(def.Children))
	assert.Equal(t, "fn default() -> Self", def.Children[0].Signature)
	assert.Empty(t, def.Children[0].Modifiers)
}

// Test: Modifier words outside the keyword set still name declarations
func TestScan_ContextualModifiers(t *testing.T) {
	t.Parallel()

	rust := scanRust(t, `impl Default for Config {
    fn default() -> Self { Config {} }
}
default fn specialized() {
    let default = 1;
}
`)
	require.True(t, rust.WellFormed(), "advisories: %v", rust.Advisories)
	require.Equal(t, []string{"Default for Config", "specialized"}, names(rust.Declarations))
	require.Equal(t, []string{"default"}, names(rust.Declarations[0].Children))
	assert.Equal(t, grammar.KindFunction, rust.Declarations[0].Children[0].Kind)
	assert.Equal(t, []string{"default"}, rust.Declarations[1].Modifiers)
	assert.Empty(t, rust.Declarations[1].Children)

	ts := newScanner(t, grammar.TypeScript()).ScanSource([]byte(`export function declare() {}
function static() {}
declare function ambient(): void;
export default abstract class Base {}
`))
	require.True(t, ts.WellFormed(), "advisories: %v", ts.Advisories)
	require.Equal(t, []string{"declare", "static", "ambient", "Base"}, names(ts.Declarations))
	assert.Equal(t, []string{"export"}, ts.Declarations[0].Modifiers)
	assert.Empty(t, ts.Declarations[1].Modifiers)
	assert.Equal(t, []string{"declare"}, ts.Declarations[2].Modifiers)
	assert.Nil(t, ts.Declarations[2].Body)
	assert.Equal(t, []string{"export", "default", "abstract"}, ts.Declarations[3].Modifiers)
}

// Test: Function pointer types and modifiers with groups
func TestScan_RustEdgeForms(t *testing.T) {
	t.Parallel()

	src := `pub(crate) fn outer() {
    let f: fn(i32) -> i32 = add;
    fn inner() {}
}
extern "C" fn ffi();
trait T { fn unterminated() }
`
	cat := scanRust(t, src)
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.Equal(t, []string{"outer", "ffi", "T"}, names(cat.Declarations))

	outer := cat.Declarations[0]
	assert.Equal(t, []string{"pub(crate)"}, outer.Modifiers)
	assert.Equal(t, []string{"inner"}, names(outer.Children))

	assert.Equal(t, []string{`extern "C"`}, cat.Declarations[1].Modifiers)

	trait := cat.Declarations[2]
	require.Len(t, trait.Children, 1)
	assert.Equal(t, "fn unterminated()", trait.Children[0].Signature)
	assert.Nil(t, trait.Children[0].Body)
}

// Test: Go receivers, refiners, generics and newline termination
func TestScan_Go(t *testing.T) {
	t.Parallel()

	src := `package p

// Reader reads.
type Reader interface {
	Read(p []byte) (int, error)
}

func New() interface{ Close() error } {
	return nil
}

type List[T any] struct {
	items []T
	cb    func(int) error
}

func (l *List[T]) Push(v T) {
	l.items = append(l.items, v)
}

type Alias = List[int]

var f = func() {}

type HandlerFunc func(w Writer, r *Request)

func Map[K comparable, V any](m map[K]V) []V {
	go func() {}()
	return nil
}
`
	cat := newScanner(t, grammar.Go()).ScanSource([]byte(src))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.NoError(t, cat.CheckContainment())
	require.Equal(t, []string{"Reader", "New", "List", "Push", "Alias", "HandlerFunc", "Map"}, names(cat.Declarations))

	reader := cat.Declarations[0]
	assert.Equal(t, grammar.KindTrait, reader.Kind)
	assert.Equal(t, "// Reader reads.", reader.Doc)

	newFn := cat.Declarations[1]
	assert.Equal(t, grammar.KindFunction, newFn.Kind)
	assert.Equal(t, "func New() interface{ Close() error }", newFn.Signature)
	assert.Equal(t, 8, newFn.Line)
	assert.Equal(t, 10, newFn.EndLine)

	list := cat.Declarations[2]
	assert.Equal(t, grammar.KindGenericContainer, list.Kind)
	assert.Equal(t, []string{"T"}, list.Generics)
	assert.Empty(t, list.Children, "function-typed fields are not declarations")

	push := cat.Declarations[3]
	assert.Equal(t, "(l *List[T])", push.Receiver)
	assert.Equal(t, "func (l *List[T]) Push(v T)", push.Signature)

	alias := cat.Declarations[4]
	assert.Equal(t, grammar.KindTypeAlias, alias.Kind)
	assert.Nil(t, alias.Body)
	assert.Equal(t, "type Alias = List[int]", alias.Signature)
	assert.Equal(t, 21, alias.EndLine)

	handler := cat.Declarations[5]
	assert.Equal(t, grammar.KindTypeAlias, handler.Kind)
	assert.Equal(t, "type HandlerFunc func(w Writer, r *Request)", handler.Signature)

	m := cat.Declarations[6]
	assert.Equal(t, []string{"K", "V"}, m.Generics)
	assert.Empty(t, m.Children)
}

// Test: A Go declaration without a body may end the input
func TestScan_GoBodilessAtEOF(t *testing.T) {
	t.Parallel()

	s := newScanner(t, grammar.Go())

	tests := []struct {
		src       string
		kind      grammar.Kind
		name      string
		signature string
	}{
		{"package p\n\ntype ID int\n", grammar.KindTypeAlias, "ID", "type ID int"},
		{"package p\n\ntype ID int", grammar.KindTypeAlias, "ID", "type ID int"},
		{"package p\n\nfunc asm()\n", grammar.KindFunction, "asm", "func asm()"},
		{"package p\n\nfunc (c *Conn) raw(fd int) error // implemented in asm\n", grammar.KindFunction, "raw", "func (c *Conn) raw(fd int) error"},
	}
	for _, tt := range tests {
		cat := s.ScanSource([]byte(tt.src))
		require.True(t, cat.WellFormed(), "%q advisories: %v", tt.src, cat.Advisories)
		require.Len(t, cat.Declarations, 1, tt.src)

		d := cat.Declarations[0]
		assert.Equal(t, tt.kind, d.Kind, tt.src)
		assert.Equal(t, tt.name, d.Name, tt.src)
		assert.Equal(t, tt.signature, d.Signature, tt.src)
		assert.False(t, d.Salvaged, tt.src)
		assert.Nil(t, d.Body, tt.src)
		assert.Equal(t, 3, d.EndLine, tt.src)
	}

	// an open group or a dangling operator is still cut off
	for _, src := range []string{"package p\n\nfunc f(a int,\n", "package p\n\ntype T =\n"} {
		cat := s.ScanSource([]byte(src))
		require.Len(t, cat.Declarations, 1, src)
		assert.True(t, cat.Declarations[0].Salvaged, src)
		assert.False(t, cat.WellFormed(), src)
	}
}

// Test: The Go fixtures
func TestScan_GoFixtures(t *testing.T) {
	t.Parallel()

	s := newScanner(t, grammar.Go())

	sample := s.ScanSource(readFixture(t, "../../testdata/code/go/sample.go"))
	require.True(t, sample.WellFormed(), "advisories: %v", sample.Advisories)
	require.NoError(t, sample.CheckContainment())
	assert.Equal(t, []string{
		"main", "Person", "Address", "NewPerson", "SetAddress", "add", "Color",
		"Shape", "sayHello", "String", "IsEmpty", "Rectangle", "area", "perimeter",
		"Circle", "area", "perimeter",
	}, names(sample.Declarations))

	kinds := map[string]grammar.Kind{}
	for _, d := range sample.Declarations {
		kinds[d.Name] = d.Kind
	}
	assert.Equal(t, grammar.KindStruct, kinds["Person"])
	assert.Equal(t, grammar.KindTypeAlias, kinds["Color"])
	assert.Equal(t, grammar.KindTrait, kinds["Shape"])
	assert.Equal(t, grammar.KindFunction, kinds["SetAddress"])

	simple := s.ScanSource(readFixture(t, "../../testdata/code/go/simple.go"))
	assert.Equal(t, []string{"Config", "Handler", "NewHandler", "ServeHTTP"}, names(simple.Declarations))
	assert.Equal(t, "(h *Handler)", simple.Declarations[3].Receiver)
}

// Test: TypeScript decorators, modifiers and declaration forms
func TestScan_TypeScript(t *testing.T) {
	t.Parallel()

	src := `/** A user record. */
export interface User {
  id: number;
  name: string;
}

@Component({ selector: "app" })
export class Store<T> extends Base {
  private items: T[] = [];

  add(item: T): void {
    this.items.push(item);
  }
}

export enum Color { Red, Green }

export type Handler = (e: Event) => void;

export async function load(url: string): Promise<User> {
  const res = await fetch(url);
  return res.json();
}

function f(): { a: number } { return {a:1} }
`
	cat := newScanner(t, grammar.TypeScript()).ScanSource([]byte(src))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.NoError(t, cat.CheckContainment())
	require.Equal(t, []string{"User", "Store", "Color", "Handler", "load", "f"}, names(cat.Declarations))

	user := cat.Declarations[0]
	assert.Equal(t, grammar.KindTrait, user.Kind)
	assert.Equal(t, "A user record.", user.DocText())
	assert.Equal(t, []string{"export"}, user.Modifiers)

	store := cat.Declarations[1]
	assert.Equal(t, grammar.KindGenericContainer, store.Kind)
	assert.Equal(t, []string{`@Component({ selector: "app" })`}, store.Attributes)
	assert.Equal(t, "class Store<T> extends Base", store.Signature)

	handler := cat.Declarations[3]
	assert.Equal(t, grammar.KindTypeAlias, handler.Kind)
	assert.Nil(t, handler.Body)

	load := cat.Declarations[4]
	assert.Equal(t, []string{"export", "async"}, load.Modifiers)
	assert.Equal(t, "function load(url: string): Promise<User>", load.Signature)

	f := cat.Declarations[5]
	assert.Equal(t, "function f(): { a: number }", f.Signature)
	require.NotNil(t, f.Body)
	assert.Equal(t, Span{Start: strings.Index(src, "{ return"), End: len(src) - 1}, *f.Body)
	assert.Equal(t, 25, f.Line)
	assert.Equal(t, 25, f.EndLine)
}

// Test: The TypeScript fixture
func TestScan_TypeScriptFixture(t *testing.T) {
	t.Parallel()

	cat := newScanner(t, grammar.TypeScript()).ScanSource(readFixture(t, "../../testdata/code/typescript/sample.ts"))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.Equal(t, []string{
		"QueueOptions", "JobId", "Handler", "JobState", "Service", "JobQueue",
		"createQueue", "stats", "loadConfig", "emit", "Registry",
	}, names(cat.Declarations))

	byName := map[string]*Declaration{}
	for _, d := range cat.Declarations {
		byName[d.Name] = d
	}
	assert.Equal(t, "Options accepted by the queue.", byName["QueueOptions"].DocText())
	assert.Equal(t, []string{"export", "abstract"}, byName["Service"].Modifiers)
	assert.Equal(t, "// Base for anything with a lifecycle.", byName["Service"].Doc)
	assert.Equal(t, grammar.KindGenericContainer, byName["JobQueue"].Kind)
	assert.Empty(t, byName["JobQueue"].Children, "class members are not declarations")

	validate := byName["createQueue"].Children
	require.Len(t, validate, 1)
	assert.Equal(t, "function validate(): { ok: boolean; reason?: string }", validate[0].Signature)
	assert.Equal(t, 45, validate[0].Line)
	assert.Equal(t, 47, validate[0].EndLine)

	assert.Equal(t, "function stats(): { total: number; failed: number }", byName["stats"].Signature)
	assert.Equal(t, 56, byName["stats"].EndLine)

	emit := byName["emit"]
	assert.Equal(t, []string{"declare"}, emit.Modifiers)
	assert.Nil(t, emit.Body)
	assert.Equal(t, "function emit(event: string): void;", emit.Signature)
}

// Test: Python bodies end where indentation returns to the header's level
func TestScan_Python(t *testing.T) {
	t.Parallel()

	src := `class Outer:
    class Inner:
        def deep(self):
            return 1
    def after(self): pass
# Builds the value.
def top():
    x = (1,
2)
    return x`
	cat := newScanner(t, grammar.Python()).ScanSource([]byte(src))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.NoError(t, cat.CheckContainment())
	require.Equal(t, []string{"Outer", "top"}, names(cat.Declarations))

	outer := cat.Declarations[0]
	assert.Equal(t, grammar.KindStruct, outer.Kind)
	assert.True(t, outer.Indented)
	assert.Equal(t, "class Outer", outer.Signature)
	require.Equal(t, []string{"Inner", "after"}, names(outer.Children))
	assert.Equal(t, 5, outer.EndLine)

	inner := outer.Children[0]
	require.Equal(t, []string{"deep"}, names(inner.Children))
	assert.Equal(t, 2, inner.Line)
	assert.Equal(t, 4, inner.EndLine)
	assert.Equal(t, 4, inner.Children[0].EndLine)

	after := outer.Children[1]
	assert.Equal(t, 5, after.Line)
	assert.Equal(t, 5, after.EndLine)
	assert.Equal(t, strings.Index(src, "pass")+len("pass"), after.Span.End)

	top := cat.Declarations[1]
	assert.Equal(t, "# Builds the value.", top.Doc)
	assert.Equal(t, "Builds the value.", top.DocText())
	assert.Equal(t, 7, top.Line)
	assert.Equal(t, 10, top.EndLine, "a continuation line inside brackets does not dedent")
	assert.False(t, top.Salvaged)
	assert.Equal(t, Span{Start: strings.Index(src, ":\n    x"), End: len(src)}, *top.Body)
	assert.Equal(t, len(src), top.Span.End)
}

// Test: The Python fixture
func TestScan_PythonFixture(t *testing.T) {
	t.Parallel()

	cat := newScanner(t, grammar.Python()).ScanSource(readFixture(t, "../../testdata/code/python/sample.py"))
	require.True(t, cat.WellFormed(), "advisories: %v", cat.Advisories)
	require.Equal(t, []string{"Job", "Empty", "LRUCache", "retry", "fetch", "noop"}, names(cat.Declarations))

	job := cat.Declarations[0]
	assert.Equal(t, []string{"@dataclass"}, job.Attributes)
	assert.Equal(t, 12, job.Line)
	assert.Equal(t, 20, job.EndLine)
	assert.Equal(t, []string{"describe"}, names(job.Children))

	empty := cat.Declarations[1]
	assert.Equal(t, 23, empty.EndLine)
	assert.Empty(t, empty.Children)

	cache := cat.Declarations[2]
	assert.Equal(t, "class LRUCache(object)", cache.Signature)
	assert.Equal(t, "Simple LRU cache with TTL support.", cache.DocText())
	require.Equal(t, []string{"__init__", "size", "get", "evict_expired"}, names(cache.Children))
	assert.Equal(t, []string{"@property"}, cache.Children[1].Attributes)
	assert.Equal(t, 45, cache.Children[2].EndLine)
	assert.Equal(t, 55, cache.EndLine)

	retry := cat.Declarations[3]
	require.Equal(t, []string{"decorator"}, names(retry.Children))
	require.Equal(t, []string{"wrapper"}, names(retry.Children[0].Children))
	assert.Equal(t, 66, retry.Children[0].Children[0].EndLine)
	assert.Equal(t, 67, retry.Children[0].EndLine)
	assert.Equal(t, 68, retry.EndLine)

	fetch := cat.Declarations[4]
	assert.Equal(t, []string{"@retry(times=3)"}, fetch.Attributes)
	assert.Equal(t, []string{"async"}, fetch.Modifiers)
	assert.Equal(t, "def fetch(url: str, timeout: float = 1.0) -> dict[str, Any]", fetch.Signature)
	assert.Equal(t, 72, fetch.Line)
	assert.Equal(t, 75, fetch.EndLine)

	noop := cat.Declarations[5]
	assert.Equal(t, 78, noop.EndLine)
	assert.False(t, noop.Salvaged)
}

// Test: A grammar with word delimiters drives the same scanner
func TestScan_CustomGrammar(t *testing.T) {
	t.Parallel()

	g := &grammar.Grammar{
		Name:     "mini",
		Keywords: []string{"return"},
		Introducers: map[string]grammar.Kind{
			"procedure": grammar.KindFunction,
			"record":    grammar.KindStruct,
		},
		BodyDelimiters:  []grammar.Pair{{Open: "begin", Close: "end"}},
		GroupDelimiters: []grammar.Pair{{Open: "(", Close: ")"}},
		Terminator:      ";",
		LineComment:     "--",
	}

	src := `-- adds numbers
procedure Add(a, b) begin
  return a + b;
end
record Point begin end
`
	cat := newScanner(t, g).ScanSource([]byte(src))
	require.True(t, cat.WellFormed())
	require.Equal(t, []string{"Add", "Point"}, names(cat.Declarations))
	assert.Equal(t, "-- adds numbers", cat.Declarations[0].Doc)
	assert.Equal(t, "procedure Add(a, b)", cat.Declarations[0].Signature)
	assert.Equal(t, 4, cat.Declarations[0].EndLine)
	assert.Equal(t, grammar.KindStruct, cat.Declarations[1].Kind)
}

// Test: Stray closers and unknown characters are advisories, not failures
func TestScan_Advisories(t *testing.T) {
	t.Parallel()

	cat := scanRust(t, "}\nfn a() { § }\n")

	require.Equal(t, []string{"a"}, names(cat.Declarations))
	assert.False(t, cat.Declarations[0].Salvaged)
	assert.False(t, cat.WellFormed())

	require.Len(t, cat.Advisories, 2)
	assert.Equal(t, AdvisoryStrayCloser, cat.Advisories[0].Kind)
	assert.Equal(t, 1, cat.Advisories[0].Line)
	assert.Equal(t, AdvisoryUnknownToken, cat.Advisories[1].Kind)
	assert.Equal(t, 2, cat.Advisories[1].Line)
}

// Test: Keywords inside literals, comments and longer identifiers are ignored
func TestScan_KeywordsInsideOtherTokens(t *testing.T) {
	t.Parallel()

	src := `fn real() {
    let s = "fn fake() {";
    // fn commented() {
    let fnord = structure;
}`
	cat := scanRust(t, src)
	require.True(t, cat.WellFormed())
	require.Len(t, cat.Declarations, 1)
	assert.Empty(t, cat.Declarations[0].Children)
}

// Test: Containment and sibling order for every fixture
func TestCatalog_CheckContainment(t *testing.T) {
	t.Parallel()

	fixtures := map[string]*grammar.Grammar{
		"../../testdata/code/rust/sample.rs":   grammar.Rust(),
		"../../testdata/code/rust/generics.rs":     grammar.Rust(),
		"../../testdata/code/go/sample.go":         grammar.Go(),
		"../../testdata/code/typescript/sample.ts": grammar.TypeScript(),
		"../../testdata/code/python/sample.py":     grammar.Python(),
		"scanner.go":                               grammar.Go(),
		"header.go":                                grammar.Go(),
	}
	for path, g := range fixtures {
		cat := newScanner(t, g).ScanSource(readFixture(t, path))
		assert.NoError(t, cat.CheckContainment(), path)
		assert.NotZero(t, cat.Count(), path)
	}

	nested := func(body, child Span, indented bool) *Catalog {
		return &Catalog{Declarations: []*Declaration{{
			Name:     "a",
			Span:     Span{0, body.End},
			Body:     &body,
			Indented: indented,
			Children: []*Declaration{{Name: "b", Span: child}},
		}}}
	}
	assert.Error(t, nested(Span{2, 10}, Span{5, 12}, false).CheckContainment(), "child escapes the body")
	assert.Error(t, nested(Span{2, 10}, Span{5, 10}, false).CheckContainment(), "child ends on the closer")
	assert.Error(t, nested(Span{2, 10}, Span{2, 5}, false).CheckContainment(), "child starts on the opener")
	assert.NoError(t, nested(Span{2, 10}, Span{3, 9}, false).CheckContainment())
	assert.NoError(t, nested(Span{2, 10}, Span{5, 10}, true).CheckContainment(), "an indented body has no closer")
	assert.Error(t, nested(Span{2, 10}, Span{2, 10}, true).CheckContainment(), "child starts on the indent token")

	overlapping := &Catalog{Declarations: []*Declaration{
		{Name: "a", Span: Span{0, 10}},
		{Name: "b", Span: Span{9, 12}},
	}}
	assert.Error(t, overlapping.CheckContainment())
}

// Test: Scanning the same input twice gives identical catalogs
func TestScan_Idempotent(t *testing.T) {
	t.Parallel()

	s := newScanner(t, grammar.Rust())
	src := readFixture(t, "../../testdata/code/rust/generics.rs")

	first := s.ScanSource(src)
	second := s.ScanSource(src)
	assert.Equal(t, first, second)

	fresh := newScanner(t, grammar.Rust()).Scan(s.Tokenize(src))
	assert.Equal(t, first, fresh)
}

// Test: Truncating well-formed input only flags what was open at the cut
func TestScan_TruncationSalvage(t *testing.T) {
	t.Parallel()

	fixtures := map[string]*grammar.Grammar{
		"../../testdata/code/rust/sample.rs":       grammar.Rust(),
		"../../testdata/code/go/sample.go":         grammar.Go(),
		"../../testdata/code/typescript/sample.ts": grammar.TypeScript(),
		"../../testdata/code/python/sample.py":     grammar.Python(),
	}
	for path, g := range fixtures {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			s := newScanner(t, g)
			src := readFixture(t, path)

			full := map[int]*Declaration{}
			for _, d := range s.ScanSource(src).Flatten() {
				full[d.Span.Start] = d
			}

			for cut := 0; cut <= len(src); cut++ {
				cat := s.ScanSource(src[:cut])
				require.NoError(t, cat.CheckContainment(), "cut at %d", cut)

				got := map[int]*Declaration{}
				for _, d := range cat.Flatten() {
					got[d.Span.Start] = d

					orig, ok := full[d.Span.Start]
					require.True(t, ok, "cut at %d produced unknown declaration %q", cut, d.Name)
					if d.Salvaged {
						assert.Greater(t, orig.Span.End, cut, "cut at %d flagged closed declaration %q", cut, d.Name)
					}
				}

				for start, orig := range full {
					if orig.Span.End > cut {
						continue
					}
					d, ok := got[start]
					require.True(t, ok, "cut at %d lost %q", cut, orig.Name)
					assert.False(t, d.Salvaged, "cut at %d flagged %q", cut, orig.Name)
					assert.Equal(t, orig.Span, d.Span, "cut at %d moved %q", cut, orig.Name)
				}
			}
		})
	}
}

// Test: Nesting far deeper than any call stack would allow
func TestScan_DeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 20000
	src := strings.Repeat("fn f() {", depth) + strings.Repeat("}", depth)

	cat := scanRust(t, src)
	require.True(t, cat.WellFormed())
	require.Len(t, cat.Declarations, 1)
	assert.Equal(t, depth, cat.Count())

	deepest := 0
	cat.Walk(func(_ *Declaration, parents []*Declaration) bool {
		if len(parents) > deepest {
			deepest = len(parents)
		}
		return true
	})
	assert.Equal(t, depth-1, deepest)
	assert.NoError(t, cat.CheckContainment())

	open := scanRust(t, strings.Repeat("fn f() {", depth))
	assert.True(t, open.Salvaged())
	assert.Len(t, open.Advisories, depth)
}

// Test: Walk can stop early and QualifiedName follows the parent chain
func TestCatalog_WalkAndQualifiedName(t *testing.T) {
	t.Parallel()

	cat := newScanner(t, grammar.Rust()).ScanSource(readFixture(t, "../../testdata/code/rust/sample.rs"))

	var qualified []string
	cat.Walk(func(d *Declaration, parents []*Declaration) bool {
		if d.Name == "push" {
			qualified = append(qualified, QualifiedName(append(parents, d)))
		}
		return true
	})
	assert.Equal(t, []string{"TaskQueue<T>::push"}, qualified)

	visited := 0
	cat.Walk(func(*Declaration, []*Declaration) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)

	flat := cat.Flatten()
	assert.Len(t, flat, cat.Count())
	assert.Equal(t, "main", flat[0].Name)
	assert.Equal(t, "Person", flat[1].Name)
	assert.Equal(t, "new", flat[3].Name)
}

// Test: New rejects invalid grammars
func TestNew_InvalidGrammar(t *testing.T) {
	t.Parallel()

	_, err := New(&grammar.Grammar{Name: "broken"})
	require.Error(t, err)
	assert.ErrorIs(t, err, grammar.ErrInvalidGrammar)

	_, err = New(nil)
	assert.ErrorIs(t, err, grammar.ErrInvalidGrammar)
}

// Test: Empty input yields an empty catalog
func TestScan_Empty(t *testing.T) {
	t.Parallel()

	cat := scanRust(t, "")
	assert.Empty(t, cat.Declarations)
	assert.True(t, cat.WellFormed())
	assert.Equal(t, "rust", cat.Grammar)

	cat = scanRust(t, "// only a comment\n")
	assert.Empty(t, cat.Declarations)
}
