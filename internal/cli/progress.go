package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/render"
)

// minFilesForBar keeps the bar from flashing on tiny runs.
const minFilesForBar = 20

// CLIProgressReporter shows a progress bar while files are scanned and a
// summary line when a run completes.
type CLIProgressReporter struct {
	out     io.Writer
	showBar bool
	summary *render.Printer

	mu      sync.Mutex
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a reporter writing to out. The bar is only
// drawn when showBar is set, usually when out is a terminal.
func NewCLIProgressReporter(out io.Writer, showBar bool, summary *render.Printer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out, showBar: showBar, summary: summary}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if !c.showBar || totalFiles < minFilesForBar {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(result *indexer.FileResult) {
	c.mu.Lock()
	bar := c.fileBar
	c.mu.Unlock()
	if bar != nil {
		_ = bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.ProcessingStats) {
	c.mu.Lock()
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}
	c.mu.Unlock()

	if c.summary != nil {
		if err := c.summary.Summary(stats); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// newReporter returns the reporter for a command: silent when quiet,
// otherwise a summary on stderr and a bar when stderr is a terminal.
func newReporter(quiet bool, color string) indexer.ProgressReporter {
	if quiet {
		return &indexer.NoOpProgressReporter{}
	}
	summary := render.NewPrinter(os.Stderr, render.Options{Color: render.UseColor(color, os.Stderr)})
	return NewCLIProgressReporter(os.Stderr, isTerminal(os.Stderr), summary)
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
