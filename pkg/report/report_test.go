package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kataras/piconvert/pkg/events"
	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"
	"github.com/kataras/piconvert/pkg/task"
)

func feed(c *Collector) {
	src := "/pics"
	logo := "/pics/logo.ai"
	broken := "/pics/sub/broken.cdr"
	svgTask := &task.Task{Source: logo, DestDir: "/out", Format: format.ExportSVG}
	pngTask := &task.Task{Source: logo, DestDir: "/out", Format: format.ExportPNG, Size: outconf.SizeSpec{Width: 64}}

	for _, e := range []events.Event{
		{Type: events.ConversionStart, RunID: "r1", Source: src, Dest: "/out", Time: time.Unix(0, 0)},
		{Type: events.DirectoryStart, Source: src},
		{Type: events.FileStart, Source: logo, Dest: "/out"},
		{Type: events.TaskStart, Source: logo, Task: svgTask},
		{Type: events.TaskSucceeded, Source: logo, Task: svgTask, Bytes: 2048},
		{Type: events.TaskStart, Source: logo, Task: pngTask},
		{Type: events.TaskFailed, Source: logo, Task: pngTask, Err: errors.New("engine\nexploded")},
		{Type: events.FileFinish, Source: logo, Elapsed: time.Second},
		{Type: events.DirectoryStart, Source: "/pics/sub"},
		{Type: events.FileStart, Source: broken},
		{Type: events.FileFinish, Source: broken, Err: errors.New("vectorize failed")},
		{Type: events.DirectoryFinish, Source: "/pics/sub"},
		{Type: events.DirectoryFinish, Source: src},
		{Type: events.ConversionFinish, Elapsed: 2 * time.Second},
	} {
		c.Handle(e)
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	feed(c)
	s := c.Summary()

	if s.RunID != "r1" || s.Directories != 2 || len(s.Files) != 2 {
		t.Fatalf("unexpected summary header: %+v", s)
	}
	if s.Totals != (Counts{Succeeded: 1, Failed: 1}) {
		t.Errorf("Totals = %+v", s.Totals)
	}
	if len(s.Formats) != 2 || s.Formats[0].Format != format.ExportSVG || s.Formats[1].Counts.Failed != 1 {
		t.Errorf("Formats = %+v", s.Formats)
	}
	if s.Files[0].Bytes != 2048 || s.Files[0].Elapsed != time.Second {
		t.Errorf("file summary = %+v", s.Files[0])
	}
	if s.Files[1].Err == nil {
		t.Error("aborted file not recorded")
	}
	if len(s.Failures) != 2 {
		t.Errorf("Failures = %+v", s.Failures)
	}
	if s.Elapsed != 2*time.Second {
		t.Errorf("Elapsed = %s", s.Elapsed)
	}
}

func TestCollectorInterruptedFileIsNotAFailure(t *testing.T) {
	c := NewCollector()
	c.Handle(events.Event{Type: events.FileStart, Source: "/pics/logo.ai"})
	c.Handle(events.Event{Type: events.FileFinish, Source: "/pics/logo.ai", Err: context.Canceled})

	s := c.Summary()
	if len(s.Files) != 1 || s.Files[0].Err == nil {
		t.Fatalf("interrupted file not recorded as aborted: %+v", s.Files)
	}
	if len(s.Failures) != 0 {
		t.Errorf("Failures = %+v, want none", s.Failures)
	}
}

func TestToMarkdown(t *testing.T) {
	c := NewCollector()
	feed(c)
	md := ToMarkdown(c.Summary())

	for _, want := range []string{
		"# Conversion Report",
		"`r1`",
		"| svg | 1 | 0 | 0 |",
		"| png | 0 | 0 | 1 |",
		"| **Total** | 1 | 0 | 1 |",
		"`sub/broken.cdr (aborted)`",
		"`logo.ai → logo.64x0.png`: engine exploded",
		"2.0 KiB",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestTable(t *testing.T) {
	c := NewCollector()
	feed(c)
	out := Table(c.Summary())
	for _, want := range []string{"FORMAT", "SUCCEEDED", "svg", "png", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	for n, want := range map[int]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		1 << 20: "1.0 MiB",
	} {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
