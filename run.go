package piconvert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kataras/piconvert/pkg/discovery"
	"github.com/kataras/piconvert/pkg/events"
	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"
	"github.com/kataras/piconvert/pkg/pipeline"
)

// run is the state of one Converter.Run call.
type run struct {
	id       string
	opts     *Options
	bus      *events.Bus
	imports  []format.ImportFormat
	ro       RunOptions
	pipeline *pipeline.Pipeline

	mu   sync.Mutex
	errs []error
}

func newRun(c *Converter, imports []format.ImportFormat, ro RunOptions) *run {
	id := uuid.NewString()
	return &run{
		id:      id,
		opts:    &c.opts,
		bus:     &c.bus,
		imports: imports,
		ro:      ro,
		pipeline: &pipeline.Pipeline{
			Renderer: c.opts.Engine,
			Emitter:  &c.bus,
			Logger:   c.opts.Logger,
			Limiter:  pipeline.NewLimiter(c.opts.TaskConcurrency),
			RunID:    id,
			Verbose:  ro.Verbose,
		},
	}
}

func (r *run) emit(e events.Event) {
	e.RunID = r.id
	r.bus.Emit(e)
}

func (r *run) fail(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *run) execute(ctx context.Context, source, dest string, exports outconf.OutputConfig) error {
	source, dest = absolute(source), absolute(dest)
	start := time.Now()

	r.emit(events.Event{Type: events.ConversionStart, Source: source, Dest: dest, Config: exports})
	if r.ro.Verbose {
		r.opts.logInfo("Run %s: %s -> %s (exports: %s)", r.id, source, dest, exports)
	}

	info, err := os.Stat(source)
	switch {
	case err != nil:
		if !errors.Is(err, os.ErrNotExist) {
			r.fail(fmt.Errorf("stat source: %w", err))
		} else if r.ro.Verbose {
			r.opts.logInfo("Source %s does not exist, nothing to do", source)
		}
	case info.IsDir():
		r.directory(ctx, source, dest, exports)
	default:
		r.file(ctx, source, dest, exports)
	}

	r.emit(events.Event{
		Type:    events.ConversionFinish,
		Source:  source,
		Dest:    dest,
		Config:  exports,
		Elapsed: time.Since(start),
	})

	r.mu.Lock()
	errs := append([]error(nil), r.errs...)
	r.mu.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		errs = append(errs, ctxErr)
	}
	return errors.Join(errs...)
}

// directory converts the files of dir, then its subdirectories, inside a
// single directory-start/directory-finish pair so that scopes nest.
func (r *run) directory(ctx context.Context, dir, dest string, parent outconf.OutputConfig) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	res, err := outconf.ResolveFolder(dir, parent)
	cfg := parent
	if err == nil {
		cfg = res.Config
	}
	scope := events.Event{Source: dir, Dest: dest, Config: cfg}
	finish := func(err error) {
		e := scope
		e.Type = events.DirectoryFinish
		e.Err = err
		e.Elapsed = time.Since(start)
		r.emit(e)
	}

	started := scope
	started.Type = events.DirectoryStart
	r.emit(started)

	if err != nil {
		r.opts.logError("%v", err)
		r.fail(err)
		finish(err)
		return
	}
	r.noteResolution(res)

	listing, err := discovery.Discover(dir, r.imports)
	if err != nil {
		r.opts.logError("%v", err)
		r.fail(err)
		finish(err)
		return
	}

	r.files(ctx, listing.Files, dest, cfg)

	if r.ro.Recursive {
		for _, sub := range listing.Dirs {
			if ctx.Err() != nil {
				break
			}
			r.directory(ctx, sub, filepath.Join(dest, filepath.Base(sub)), cfg)
		}
	}
	finish(nil)
}

// files converts every file of one directory with the configured number of
// workers; it returns when all of them have finished.
func (r *run) files(ctx context.Context, files []string, dest string, cfg outconf.OutputConfig) {
	if r.opts.Workers <= 1 || len(files) < 2 {
		for _, f := range files {
			if ctx.Err() != nil {
				return
			}
			r.file(ctx, f, dest, cfg)
		}
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.opts.Workers)
	for _, f := range files {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			defer func() { <-sem }()
			r.file(ctx, source, dest, cfg)
		}(f)
	}
	wg.Wait()
}

func (r *run) file(ctx context.Context, source, dest string, parent outconf.OutputConfig) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	res, err := outconf.ResolveFile(source, parent)
	cfg := parent
	if err == nil {
		cfg = res.Config
	}
	scope := events.Event{Source: source, Dest: dest, Config: cfg}

	started := scope
	started.Type = events.FileStart
	r.emit(started)

	finished := scope
	finished.Type = events.FileFinish
	if err != nil {
		r.opts.logError("%v", err)
		r.fail(err)
		finished.Err = err
		finished.Elapsed = time.Since(start)
		r.emit(finished)
		return
	}
	r.noteResolution(res)

	result := r.pipeline.ConvertFile(ctx, source, dest, cfg, r.ro.Force)
	if result.Err != nil && ctx.Err() == nil {
		r.opts.logError("%s: %v", filepath.Base(source), result.Err)
	}
	finished.Err = result.Err
	finished.Elapsed = time.Since(start)
	r.emit(finished)
}

func (r *run) noteResolution(res outconf.Resolution) {
	if res.Inherited() {
		return
	}
	if len(res.Ignored) > 0 {
		r.opts.logWarn("%s: ignoring unknown formats %s", res.Path, strings.Join(res.Ignored, ", "))
	}
	if r.ro.Verbose {
		r.opts.logInfo("Using %s: %s", res.Path, res.Config)
	}
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
