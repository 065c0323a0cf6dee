package piconvert

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/kataras/piconvert/pkg/events"
	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"
)

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Options configures a Converter.
type Options struct {
	Engine          Engine // nil = NewEngine(EngineOptions{})
	Workers         int    // files converted concurrently per directory, default 1
	TaskConcurrency int    // engine renders in flight across the run, default 1
	Logger          Logger // nil = no logging
}

// RunOptions configures a single Run.
type RunOptions struct {
	Recursive bool // descend into non-hidden subdirectories
	Force     bool // overwrite existing destinations
	Verbose   bool // log every render through Options.Logger
}

// Converter holds the import filter, the global export configuration and
// the event subscriptions. Its builder methods may be called between runs;
// each Run works on a snapshot taken when it starts.
type Converter struct {
	opts Options
	bus  events.Bus

	mu      sync.Mutex
	imports []format.ImportFormat
	exports outconf.OutputConfig
}

// New returns a converter with no imports and no exports.
func New(opts Options) *Converter {
	if opts.Engine == nil {
		opts.Engine = NewEngine(EngineOptions{})
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TaskConcurrency < 1 {
		opts.TaskConcurrency = 1
	}
	return &Converter{opts: opts}
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

// Import adds source formats to match during directory traversal. Unknown
// and duplicate formats are ignored.
func (c *Converter) Import(formats ...format.ImportFormat) *Converter {
	c.mu.Lock()
	defer c.mu.Unlock()
	valid := lo.Filter(formats, func(f format.ImportFormat, _ int) bool { return f.Valid() })
	c.imports = lo.Uniq(append(c.imports, valid...))
	return c
}

// ClearImports removes every import format.
func (c *Converter) ClearImports() *Converter {
	c.mu.Lock()
	c.imports = nil
	c.mu.Unlock()
	return c
}

// Imports returns the import formats in the order they were added.
func (c *Converter) Imports() []format.ImportFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]format.ImportFormat(nil), c.imports...)
}

// Export sets the sizes produced for a format in the global configuration.
// Without sizes the format is produced once at its natural size. Setting a
// format again replaces its sizes and keeps its position.
func (c *Converter) Export(f format.ExportFormat, sizes ...outconf.SizeSpec) *Converter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(sizes) == 0 {
		sizes = nil
	}
	c.exports = c.exports.Set(f, sizes)
	return c
}

// ClearExports empties the global configuration.
func (c *Converter) ClearExports() *Converter {
	c.mu.Lock()
	c.exports = outconf.OutputConfig{}
	c.mu.Unlock()
	return c
}

// Exports returns the global configuration.
func (c *Converter) Exports() outconf.OutputConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports
}

// On subscribes l to the events of every subsequent run.
func (c *Converter) On(l events.Listener) events.ID {
	return c.bus.Subscribe(l)
}

// Off removes a subscription made with On.
func (c *Converter) Off(id events.ID) bool {
	return c.bus.Unsubscribe(id)
}

// Run converts source into dest.
//
// A missing source produces only conversion-start and conversion-finish.
// A directory is walked level by level; a file is converted against the
// global configuration, overridden by its own document if present.
//
// The returned error joins the configuration and listing errors of the
// scopes that had to be aborted and, when ctx was cancelled, ctx.Err().
// Failed tasks are reported through events only. The engine is probed
// first; if it is unavailable Run returns its error without emitting
// events. A ctx cancelled during the probe is returned unwrapped.
func (c *Converter) Run(ctx context.Context, source, dest string, opts RunOptions) error {
	if err := c.opts.Engine.Available(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		if !IsPrecondition(err) {
			err = &PreconditionError{Reason: err.Error()}
		}
		return err
	}

	c.mu.Lock()
	imports := append([]format.ImportFormat(nil), c.imports...)
	exports := c.exports
	c.mu.Unlock()

	r := newRun(c, imports, opts)
	return r.execute(ctx, source, dest, exports)
}
