package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kataras/piconvert/pkg/events"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// setupColor disables colors when asked to, when NO_COLOR is set or when
// out is not a terminal.
func setupColor(out *os.File, disable bool) {
	if disable {
		color.NoColor = true
		return
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
		return
	}
	fd := out.Fd()
	color.NoColor = !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// cliLogger implements piconvert.Logger with colored terminal output.
// A quiet logger prints errors only.
type cliLogger struct {
	out   io.Writer
	quiet bool
}

func (l *cliLogger) Infof(format string, args ...any) {
	if l.quiet {
		return
	}
	color.New(color.FgYellow).Fprintf(l.out, format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	if l.quiet {
		return
	}
	color.New(color.FgYellow).Fprintf(l.out, "⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(l.out, "✗ "+format+"\n", args...)
}

// console prints the progress of a run. Events reach it one at a time.
type console struct {
	out     io.Writer
	root    string
	verbose bool

	converted map[string]int // source -> tasks succeeded
}

func newConsole(out io.Writer, root string, verbose bool) *console {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &console{out: out, root: root, verbose: verbose, converted: make(map[string]int)}
}

func (c *console) Handle(e events.Event) {
	blue := color.New(color.FgBlue)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	switch e.Type {
	case events.FileStart:
		blue.Fprintf(c.out, "Converting %s\n", c.short(e.Source))
	case events.TaskSucceeded:
		c.converted[e.Source]++
		if c.verbose {
			green.Fprintf(c.out, "  ✓ %s (%s)\n", filepath.Base(e.Task.Destination()), e.Elapsed.Round(time.Millisecond))
		}
	case events.TaskSkipped:
		if c.verbose {
			fmt.Fprintf(c.out, "  - %s exists\n", filepath.Base(e.Task.Destination()))
		}
	case events.TaskFailed:
		red.Fprintf(c.out, "  ✗ %s: %v\n", filepath.Base(e.Task.Destination()), e.Err)
	case events.FileFinish:
		if c.converted[e.Source] > 0 && e.Err == nil {
			green.Fprintf(c.out, "%s Converted!\n", c.short(e.Source))
		}
		delete(c.converted, e.Source)
	}
}

// short returns path relative to the converted root, like "/logo/mark.ai".
func (c *console) short(path string) string {
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return string(filepath.Separator) + rel
}
