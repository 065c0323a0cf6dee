// Package report turns the event stream of a run into a summary that can be
// printed as a table or written as a markdown document.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kataras/piconvert/pkg/events"
	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/task"
)

// Counts tallies task outcomes.
type Counts struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Total returns the number of terminated tasks.
func (c Counts) Total() int { return c.Succeeded + c.Skipped + c.Failed }

func (c *Counts) add(o task.Outcome) {
	switch o {
	case task.Succeeded:
		c.Succeeded++
	case task.Skipped:
		c.Skipped++
	case task.Failed:
		c.Failed++
	}
}

// FileSummary is the outcome of one source file.
type FileSummary struct {
	Source  string
	Dest    string
	Counts  Counts
	Bytes   int
	Err     error // set when the file was abandoned
	Elapsed time.Duration
}

// Failure is a failed task or an aborted scope.
type Failure struct {
	Source string
	Task   *task.Task // nil for an aborted file or directory
	Err    error
}

// FormatCounts are the outcomes of one export format.
type FormatCounts struct {
	Format format.ExportFormat
	Counts Counts
}

// Summary describes a finished (or running) conversion.
type Summary struct {
	RunID       string
	Source      string
	Dest        string
	Started     time.Time
	Elapsed     time.Duration
	Directories int
	Files       []FileSummary
	Formats     []FormatCounts // in order of first appearance
	Totals      Counts
	Bytes       int
	Failures    []Failure
}

// Collector is an events listener building a Summary.
type Collector struct {
	mu      sync.Mutex
	summary Summary
	files   map[string]int // source -> index in summary.Files
	formats map[format.ExportFormat]int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		files:   make(map[string]int),
		formats: make(map[format.ExportFormat]int),
	}
}

// Handle updates the summary with e.
func (c *Collector) Handle(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.summary
	switch e.Type {
	case events.ConversionStart:
		s.RunID, s.Source, s.Dest, s.Started = e.RunID, e.Source, e.Dest, e.Time
	case events.ConversionFinish:
		s.Elapsed = e.Elapsed
	case events.DirectoryStart:
		s.Directories++
	case events.DirectoryFinish:
		if e.Err != nil {
			s.Failures = append(s.Failures, Failure{Source: e.Source, Err: e.Err})
		}
	case events.FileStart:
		c.file(e.Source, e.Dest)
	case events.FileFinish:
		f := c.file(e.Source, e.Dest)
		f.Elapsed = e.Elapsed
		if e.Err != nil {
			f.Err = e.Err
			// An interrupted file is aborted, not failed.
			if !errors.Is(e.Err, context.Canceled) {
				s.Failures = append(s.Failures, Failure{Source: e.Source, Err: e.Err})
			}
		}
	case events.TaskSucceeded, events.TaskSkipped, events.TaskFailed:
		outcome, _ := e.Type.Outcome()
		f := c.file(e.Source, e.Dest)
		f.Counts.add(outcome)
		f.Bytes += e.Bytes
		s.Totals.add(outcome)
		s.Bytes += e.Bytes
		if e.Task != nil {
			c.format(e.Task.Format).add(outcome)
		}
		if outcome == task.Failed {
			s.Failures = append(s.Failures, Failure{Source: e.Source, Task: e.Task, Err: e.Err})
		}
	}
}

func (c *Collector) file(source, dest string) *FileSummary {
	if i, ok := c.files[source]; ok {
		return &c.summary.Files[i]
	}
	c.files[source] = len(c.summary.Files)
	c.summary.Files = append(c.summary.Files, FileSummary{Source: source, Dest: dest})
	return &c.summary.Files[len(c.summary.Files)-1]
}

func (c *Collector) format(f format.ExportFormat) *Counts {
	i, ok := c.formats[f]
	if !ok {
		i = len(c.summary.Formats)
		c.formats[f] = i
		c.summary.Formats = append(c.summary.Formats, FormatCounts{Format: f})
	}
	return &c.summary.Formats[i].Counts
}

// Summary returns a snapshot of the collected summary.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.summary
	s.Files = append([]FileSummary(nil), s.Files...)
	s.Formats = append([]FormatCounts(nil), s.Formats...)
	s.Failures = append([]Failure(nil), s.Failures...)
	return s
}
