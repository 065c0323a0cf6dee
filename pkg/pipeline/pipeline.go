// Package pipeline converts a single source file into every target its
// output configuration asks for.
//
// The source is vectorized once into an intermediate document and every
// target is rendered from it. Existing destinations are left alone unless
// forced; a failing target never affects its siblings.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kataras/piconvert/pkg/events"
	"github.com/kataras/piconvert/pkg/outconf"
	"github.com/kataras/piconvert/pkg/task"
)

// Renderer is the engine capability the pipeline needs.
type Renderer interface {
	ToIntermediate(ctx context.Context, source string) ([]byte, error)
	FromIntermediate(ctx context.Context, svg []byte, format string, width, height int) ([]byte, error)
}

// Emitter receives task events.
type Emitter interface {
	Emit(events.Event)
}

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Pipeline converts files. Renderer is required; the other fields are
// optional.
type Pipeline struct {
	Renderer Renderer
	Emitter  Emitter
	Logger   Logger
	Limiter  *Limiter
	// RunID is copied to every emitted event.
	RunID string
	// Verbose logs every render.
	Verbose bool
}

// TaskResult is the terminal state of one task.
type TaskResult struct {
	Task    task.Task
	Outcome task.Outcome
	Err     error
	Bytes   int
}

// FileResult summarises ConvertFile. Err is set when the file was
// abandoned before any task ran (intermediate failure or cancellation);
// task failures are reported in Tasks only.
type FileResult struct {
	Source string
	Tasks  []TaskResult
	Err    error
}

// Count returns the number of tasks with outcome o.
func (r FileResult) Count(o task.Outcome) int {
	n := 0
	for _, t := range r.Tasks {
		if t.Outcome == o {
			n++
		}
	}
	return n
}

func (p *Pipeline) logInfo(f string, a ...any) {
	if p.Logger != nil {
		p.Logger.Infof(f, a...)
	}
}

func (p *Pipeline) logWarn(f string, a ...any) {
	if p.Logger != nil {
		p.Logger.Warnf(f, a...)
	}
}

func (p *Pipeline) emit(e events.Event) {
	if p.Emitter == nil {
		return
	}
	e.RunID = p.RunID
	p.Emitter.Emit(e)
}

// ConvertFile runs every task of source against cfg, writing into destDir.
// Task events are emitted for every task that started; the caller emits the
// surrounding file events.
func (p *Pipeline) ConvertFile(ctx context.Context, source, destDir string, cfg outconf.OutputConfig, force bool) FileResult {
	result := FileResult{Source: source}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	tasks := task.Expand(source, destDir, cfg, force)
	if len(tasks) == 0 {
		return result
	}
	for _, dest := range task.Collisions(tasks) {
		p.logWarn("%s: several targets write %s, the last one wins", filepath.Base(source), dest)
	}

	// Skip decisions are taken before anything is written so that a task
	// never skips because a sibling produced its destination.
	skip := make([]bool, len(tasks))
	pending := 0
	for i, t := range tasks {
		skip[i] = !t.Force && exists(t.Destination())
		if !skip[i] {
			pending++
		}
	}

	var svg []byte
	if pending > 0 {
		start := time.Now()
		intermediate, err := p.Renderer.ToIntermediate(ctx, source)
		if err != nil {
			result.Err = err
			return result
		}
		svg = intermediate
		if p.Verbose {
			p.logInfo("%s: intermediate ready in %s", filepath.Base(source), time.Since(start).Round(time.Millisecond))
		}
	}

	results := make([]*TaskResult, len(tasks))
	if p.Limiter == nil {
		for i, t := range tasks {
			results[i] = p.runTask(ctx, t, skip[i], svg, cfg)
		}
	} else {
		// A task sharing its destination with an earlier one waits for it,
		// so the later entry in configuration order is written last.
		prev := previousWriters(tasks)
		done := make([]chan struct{}, len(tasks))
		for i := range done {
			done[i] = make(chan struct{})
		}

		var wg sync.WaitGroup
		for i, t := range tasks {
			if ctx.Err() != nil {
				break
			}
			if err := p.Limiter.Acquire(ctx); err != nil {
				break
			}
			wg.Add(1)
			go func(i int, t task.Task) {
				defer wg.Done()
				defer p.Limiter.Release()
				defer close(done[i])
				if j := prev[i]; j >= 0 {
					<-done[j]
				}
				results[i] = p.runTask(ctx, t, skip[i], svg, cfg)
			}(i, t)
		}
		wg.Wait()
	}

	for _, r := range results {
		if r != nil {
			result.Tasks = append(result.Tasks, *r)
		}
	}
	if err := ctx.Err(); err != nil && len(result.Tasks) < len(tasks) {
		result.Err = err
	}
	return result
}

// previousWriters returns, for every task, the index of the closest earlier
// task with the same destination, or -1.
func previousWriters(tasks []task.Task) []int {
	last := make(map[string]int, len(tasks))
	prev := make([]int, len(tasks))
	for i, t := range tasks {
		dest := t.Destination()
		if j, ok := last[dest]; ok {
			prev[i] = j
		} else {
			prev[i] = -1
		}
		last[dest] = i
	}
	return prev
}

// runTask returns nil when the task was abandoned, either before it started
// or because cancellation interrupted its render.
func (p *Pipeline) runTask(ctx context.Context, t task.Task, skip bool, svg []byte, cfg outconf.OutputConfig) *TaskResult {
	if ctx.Err() != nil {
		return nil
	}

	base := events.Event{Source: t.Source, Dest: t.DestDir, Config: cfg, Task: &t}
	start := time.Now()

	started := base
	started.Type = events.TaskStart
	p.emit(started)

	finish := func(typ events.Type, r *TaskResult) *TaskResult {
		e := base
		e.Type = typ
		e.Err = r.Err
		e.Bytes = r.Bytes
		e.Elapsed = time.Since(start)
		p.emit(e)
		return r
	}

	if skip {
		return finish(events.TaskSkipped, &TaskResult{Task: t, Outcome: task.Skipped})
	}

	n, err := p.render(ctx, t, svg)
	if err != nil && ctx.Err() != nil {
		// Cut short by cancellation: abandoned, not failed.
		return nil
	}
	if err != nil {
		p.logWarn("%s: %v", t, err)
		return finish(events.TaskFailed, &TaskResult{Task: t, Outcome: task.Failed, Err: err})
	}
	if p.Verbose {
		p.logInfo("%s: wrote %s (%d bytes)", t, t.Destination(), n)
	}
	return finish(events.TaskSucceeded, &TaskResult{Task: t, Outcome: task.Succeeded, Bytes: n})
}

func (p *Pipeline) render(ctx context.Context, t task.Task, svg []byte) (int, error) {
	if err := os.MkdirAll(t.DestDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory %q: %w", t.DestDir, err)
	}
	out, err := p.Renderer.FromIntermediate(ctx, svg, t.Format.Normalized(), t.Size.Width, t.Size.Height)
	if err != nil {
		return 0, err
	}
	if err := WriteFile(t.Destination(), out); err != nil {
		return 0, err
	}
	return len(out), nil
}

// WriteFile writes data to a hidden temporary file next to path and renames
// it into place, so readers never see a partial destination.
func WriteFile(path string, data []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file for %q: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %q: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename into %q: %w", path, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
