// Package render prints scan results for people: an indented declaration
// tree per file, or one line per declaration for grep and editors.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/scanner"
)

// Color modes accepted by UseColor.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// UseColor resolves a color mode against the output file. Auto enables
// color only on a terminal and honours NO_COLOR.
func UseColor(mode string, f *os.File) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or 0 when it is not a terminal.
func TerminalWidth(f *os.File) int {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// Options configures a Printer.
type Options struct {
	Color bool
	// Width truncates uncolored lines to this many terminal cells.
	// 0 disables.
	Width int
	// Doc prints the first line of each declaration's doc comment.
	Doc bool
}

// Printer writes scan results to w.
type Printer struct {
	w    io.Writer
	opts Options

	path     *color.Color
	kind     *color.Color
	name     *color.Color
	dim      *color.Color
	warn     *color.Color
	fail     *color.Color
	salvaged *color.Color
}

// NewPrinter creates a Printer.
func NewPrinter(w io.Writer, opts Options) *Printer {
	p := &Printer{
		w:        w,
		opts:     opts,
		path:     color.New(color.FgCyan, color.Bold),
		kind:     color.New(color.FgBlue),
		name:     color.New(color.Bold),
		dim:      color.New(color.Faint),
		warn:     color.New(color.FgYellow),
		fail:     color.New(color.FgRed, color.Bold),
		salvaged: color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{p.path, p.kind, p.name, p.dim, p.warn, p.fail, p.salvaged} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Tree prints each result as a file header followed by its declarations,
// nested under their parents with box-drawing guides.
func (p *Printer) Tree(results []*indexer.FileResult) error {
	for i, res := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(p.w); err != nil {
				return err
			}
		}
		if err := p.tree(res); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) tree(res *indexer.FileResult) error {
	switch {
	case res.Err != nil:
		return p.line("", p.path.Sprint(res.RelPath)+" "+p.fail.Sprintf("error: %v", res.Err))
	case res.Skipped != indexer.SkipNone:
		return p.line("", p.path.Sprint(res.RelPath)+" "+p.dim.Sprintf("skipped (%s)", res.Skipped))
	case res.Catalog == nil:
		return nil
	}

	cat := res.Catalog
	header := p.path.Sprint(res.RelPath) + " " + p.dim.Sprintf("(%s, %s)", res.Grammar, plural(cat.Count(), "declaration"))
	if err := p.line("", header); err != nil {
		return err
	}
	if err := p.children("", cat.Declarations); err != nil {
		return err
	}
	for _, a := range cat.Advisories {
		if err := p.line("", p.warn.Sprintf("! %d: %s", a.Line, a.Message)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) children(prefix string, decls []*scanner.Declaration) error {
	for i, d := range decls {
		marker, childPrefix := "├─ ", prefix+"│  "
		if i == len(decls)-1 {
			marker, childPrefix = "└─ ", prefix+"   "
		}
		if err := p.line(prefix+marker, p.label(d)); err != nil {
			return err
		}
		if p.opts.Doc {
			if doc := firstLine(d.DocText()); doc != "" {
				if err := p.line(childPrefix, p.dim.Sprint(doc)); err != nil {
					return err
				}
			}
		}
		if err := p.children(childPrefix, d.Children); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) label(d *scanner.Declaration) string {
	var sb strings.Builder
	sb.WriteString(p.kind.Sprint(d.Kind))
	sb.WriteByte(' ')
	if d.Receiver != "" {
		sb.WriteString(d.Receiver)
		sb.WriteByte(' ')
	}
	sb.WriteString(p.name.Sprint(displayName(d)))
	if len(d.Generics) > 0 && d.Kind != grammar.KindImplementation {
		sb.WriteString(p.dim.Sprintf("[%s]", strings.Join(d.Generics, ", ")))
	}
	sb.WriteString("  ")
	sb.WriteString(p.dim.Sprint(lineRange(d)))
	if d.Salvaged {
		sb.WriteString(" ")
		sb.WriteString(p.salvaged.Sprint("(salvaged)"))
	}
	return sb.String()
}

// Flat prints one line per declaration:
//
//	path:line  kind  qualified_name  signature
//
// Results that were skipped or failed are left out.
func (p *Printer) Flat(results []*indexer.FileResult) error {
	kindWidth := 0
	for _, k := range grammar.Kinds {
		kindWidth = max(kindWidth, runewidth.StringWidth(string(k)))
	}

	for _, res := range results {
		if !res.OK() {
			continue
		}
		var err error
		res.Catalog.Walk(func(d *scanner.Declaration, parents []*scanner.Declaration) bool {
			path := append(parents[:len(parents):len(parents)], d)
			text := fmt.Sprintf("%s  %s  %s  %s",
				p.path.Sprintf("%s:%d", res.RelPath, d.Line),
				p.kind.Sprint(runewidth.FillRight(string(d.Kind), kindWidth)),
				p.name.Sprint(scanner.QualifiedName(path)),
				d.Signature,
			)
			err = p.line("", strings.TrimRight(text, " "))
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Summary prints a one-line account of a run.
func (p *Printer) Summary(stats *indexer.ProcessingStats) error {
	parts := []string{
		plural(stats.Scanned, "file"),
		plural(stats.Declarations, "declaration"),
	}
	if stats.Cached > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", stats.Cached))
	}
	if stats.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", stats.Skipped))
	}
	text := strings.Join(parts, ", ")
	if stats.Advisories > 0 {
		text += ", " + p.warn.Sprint(plural(stats.Advisories, "advisory"))
	}
	if stats.Failed > 0 {
		text += ", " + p.fail.Sprintf("%d failed", stats.Failed)
	}
	text += p.dim.Sprintf(" in %s", stats.Duration.Round(time.Millisecond))
	return p.line("", text)
}

// line writes prefix+text, truncated to the configured width.
func (p *Printer) line(prefix, text string) error {
	if p.opts.Width > 0 && !p.opts.Color {
		text = truncate(text, p.opts.Width-runewidth.StringWidth(prefix))
	}
	_, err := fmt.Fprintln(p.w, prefix+text)
	return err
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

func displayName(d *scanner.Declaration) string {
	if d.Name == "" {
		return "_"
	}
	return d.Name
}

func lineRange(d *scanner.Declaration) string {
	if d.EndLine > d.Line {
		return fmt.Sprintf(":%d-%d", d.Line, d.EndLine)
	}
	return fmt.Sprintf(":%d", d.Line)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
