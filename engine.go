package piconvert

import (
	"context"
	"io"
	"runtime"

	"github.com/kataras/piconvert/pkg/engine"
	"github.com/kataras/piconvert/pkg/engine/inkscape"
	"github.com/kataras/piconvert/pkg/engine/raster"
	"github.com/kataras/piconvert/pkg/engine/svgopt"
	"github.com/kataras/piconvert/pkg/pipeline"
)

// Engine is the rendering capability of a Converter. Available is probed
// once at the start of every run; a non-nil error aborts the run before
// the filesystem is touched.
type Engine interface {
	pipeline.Renderer
	Available(ctx context.Context) error
}

// EngineOptions configures [NewEngine].
type EngineOptions struct {
	// Inkscape is the executable name or path, "inkscape" if empty.
	Inkscape string
	// NoNative disables the in-process rasterizer; bitmap targets are then
	// rendered by Inkscape only.
	NoNative bool
	// Stderr receives Inkscape's diagnostic output when set.
	Stderr io.Writer
}

// DefaultEngine vectorizes with Inkscape, cleans the intermediate with
// svgopt and renders targets with the native rasterizer and Inkscape.
type DefaultEngine struct {
	*engine.Engine
	inkscape *inkscape.Backend
}

var _ Engine = (*DefaultEngine)(nil)

// NewEngine returns the default engine.
func NewEngine(opts EngineOptions) *DefaultEngine {
	ink := &inkscape.Backend{Binary: opts.Inkscape, Stderr: opts.Stderr}

	var backends []engine.Backend
	if !opts.NoNative {
		backends = append(backends, &raster.Backend{})
	}
	backends = append(backends, ink)

	return &DefaultEngine{
		Engine: &engine.Engine{
			Vectorizer: ink,
			Optimizer:  &svgopt.Optimizer{},
			Dispatcher: engine.NewDispatcher(backends...),
		},
		inkscape: ink,
	}
}

// Available probes Inkscape and returns a *PreconditionError with platform
// specific install guidance when it cannot be run. A cancelled ctx is
// returned as is.
func (e *DefaultEngine) Available(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := e.inkscape.Available(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &PreconditionError{Reason: err.Error(), Hint: inkscape.InstallHint(runtime.GOOS)}
	}
	return nil
}

// Status describes the Inkscape installation.
func (e *DefaultEngine) Status(ctx context.Context) inkscape.Status {
	return e.inkscape.Check(ctx)
}
