// Package task describes the unit of conversion work: one source, one target
// format, one size. It derives destinations deterministically so that the
// same inputs always map to the same output path.
package task

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"
)

// Outcome is the terminal state of a task.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// Task is one (source, format, size) target.
type Task struct {
	Source  string
	DestDir string
	Format  format.ExportFormat
	Size    outconf.SizeSpec
	Force   bool
}

// Destination returns the path the task writes to.
func (t Task) Destination() string {
	return filepath.Join(t.DestDir, FileName(t.Source, t.Format, t.Size))
}

func (t Task) String() string {
	if t.Size.IsZero() {
		return fmt.Sprintf("%s -> %s", filepath.Base(t.Source), t.Format)
	}
	return fmt.Sprintf("%s -> %s %s", filepath.Base(t.Source), t.Format, t.Size)
}

// Stem returns the base name of path without its last extension.
func Stem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return base
	}
	return stem
}

// FileName builds "<stem>[.<W>x<H>].<format>". The size suffix is present
// only when either side is non-zero; the format is used as configured, so
// "jpg" stays "jpg".
func FileName(source string, f format.ExportFormat, size outconf.SizeSpec) string {
	if size.IsZero() {
		return fmt.Sprintf("%s.%s", Stem(source), f)
	}
	return fmt.Sprintf("%s.%s.%s", Stem(source), size, f)
}

// Expand returns the tasks for source in configuration order: entries in
// order, and sizes in order within an entry.
func Expand(source, destDir string, cfg outconf.OutputConfig, force bool) []Task {
	var tasks []Task
	for _, entry := range cfg.Entries() {
		for _, size := range entry.EffectiveSizes() {
			tasks = append(tasks, Task{
				Source:  source,
				DestDir: destDir,
				Format:  entry.Format,
				Size:    size,
				Force:   force,
			})
		}
	}
	return tasks
}

// Collisions returns the destinations produced by more than one task, in
// order of first appearance.
func Collisions(tasks []Task) []string {
	seen := make(map[string]int, len(tasks))
	var dup []string
	for _, t := range tasks {
		dest := t.Destination()
		seen[dest]++
		if seen[dest] == 2 {
			dup = append(dup, dest)
		}
	}
	return dup
}
