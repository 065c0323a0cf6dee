// Package engine defines the boundary to the external conversion tools.
//
// Every source is first turned into an intermediate SVG document by a
// [Vectorizer] and cleaned up by an [Optimizer]. Targets are then produced
// from that document by [Backend] implementations, selected per format by a
// [Dispatcher]. Concrete backends live in the inkscape and raster
// subpackages; tests substitute fakes.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when no backend can produce a format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Error wraps a failure of an external conversion call.
type Error struct {
	Backend string // backend name, e.g. "inkscape"
	Op      string // "vectorize", "optimize" or "render"
	Format  string // normalized target format, empty for vectorize
	Err     error
}

func (e *Error) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Format, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Vectorizer converts a source file into the intermediate SVG document.
type Vectorizer interface {
	Name() string
	ToIntermediate(ctx context.Context, source string) ([]byte, error)
}

// Backend renders the intermediate document into a target format. Width and
// height are pixel sizes, 0 keeps the natural dimension on that axis.
// Formats are normalized names (see format.Normalize).
type Backend interface {
	Name() string
	Supports(format string) bool
	FromIntermediate(ctx context.Context, svg []byte, format string, width, height int) ([]byte, error)
}

// Optimizer applies a structural cleanup pass to an SVG document.
type Optimizer interface {
	Optimize(svg []byte) ([]byte, error)
}

// OptimizerFunc adapts a function to [Optimizer].
type OptimizerFunc func(svg []byte) ([]byte, error)

// Optimize calls f(svg).
func (f OptimizerFunc) Optimize(svg []byte) ([]byte, error) { return f(svg) }

// NopOptimizer returns its input unchanged.
var NopOptimizer Optimizer = OptimizerFunc(func(svg []byte) ([]byte, error) { return svg, nil })

// Engine bundles a vectorizer, an optimizer and a dispatcher into the single
// render capability the conversion pipeline needs.
type Engine struct {
	Vectorizer Vectorizer
	Optimizer  Optimizer // nil means no optimization
	Dispatcher *Dispatcher
}

// ToIntermediate vectorizes source and optimizes the result.
func (e *Engine) ToIntermediate(ctx context.Context, source string) ([]byte, error) {
	if e.Vectorizer == nil {
		return nil, &Error{Backend: "engine", Op: "vectorize", Err: errors.New("no vectorizer configured")}
	}
	svg, err := e.Vectorizer.ToIntermediate(ctx, source)
	if err != nil {
		var engErr *Error
		if errors.As(err, &engErr) {
			return nil, err
		}
		return nil, &Error{Backend: e.Vectorizer.Name(), Op: "vectorize", Err: err}
	}
	if e.Optimizer == nil {
		return svg, nil
	}
	optimized, err := e.Optimizer.Optimize(svg)
	if err != nil {
		return nil, &Error{Backend: "svgopt", Op: "optimize", Err: err}
	}
	return optimized, nil
}

// FromIntermediate renders svg through the dispatcher.
func (e *Engine) FromIntermediate(ctx context.Context, svg []byte, format string, width, height int) ([]byte, error) {
	if e.Dispatcher == nil {
		return nil, &Error{Backend: "engine", Op: "render", Format: format, Err: ErrUnsupportedFormat}
	}
	return e.Dispatcher.FromIntermediate(ctx, svg, format, width, height)
}
