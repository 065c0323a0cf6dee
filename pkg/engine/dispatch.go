package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kataras/piconvert/pkg/format"
)

// Dispatcher selects backends per target format. Backends registered first
// are preferred; when a backend fails the next one supporting the format is
// tried.
type Dispatcher struct {
	mu       sync.RWMutex
	backends []Backend
	routes   map[string][]Backend // explicit per-format overrides
}

// NewDispatcher returns a dispatcher trying backends in the given order.
func NewDispatcher(backends ...Backend) *Dispatcher {
	d := &Dispatcher{routes: make(map[string][]Backend)}
	for _, b := range backends {
		if b != nil {
			d.backends = append(d.backends, b)
		}
	}
	return d
}

// Route overrides the backend order for one format. Passing no backends
// removes the override.
func (d *Dispatcher) Route(name string, backends ...Backend) {
	name = format.Normalize(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(backends) == 0 {
		delete(d.routes, name)
		return
	}
	d.routes[name] = append([]Backend(nil), backends...)
}

// Candidates returns the backends that would be tried for a format, in order.
func (d *Dispatcher) Candidates(name string) []Backend {
	name = format.Normalize(name)
	d.mu.RLock()
	defer d.mu.RUnlock()

	source := d.backends
	if routed, ok := d.routes[name]; ok {
		source = routed
	}
	var out []Backend
	for _, b := range source {
		if b.Supports(name) {
			out = append(out, b)
		}
	}
	return out
}

// Supports reports whether any backend can produce the format.
func (d *Dispatcher) Supports(name string) bool {
	return format.Normalize(name) == "svg" || len(d.Candidates(name)) > 0
}

// FromIntermediate renders svg into the requested format. The svg target
// without a size is served by copying the intermediate document.
func (d *Dispatcher) FromIntermediate(ctx context.Context, svg []byte, name string, width, height int) ([]byte, error) {
	name = format.Normalize(name)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := d.Candidates(name)
	if name == "svg" && (len(candidates) == 0 || (width <= 0 && height <= 0)) {
		out := make([]byte, len(svg))
		copy(out, svg)
		return out, nil
	}
	if len(candidates) == 0 {
		return nil, &Error{Backend: "engine", Op: "render", Format: name, Err: ErrUnsupportedFormat}
	}

	var errs []error
	for _, b := range candidates {
		out, err := b.FromIntermediate(ctx, svg, name, width, height)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}

	last := candidates[len(candidates)-1]
	return nil, &Error{Backend: last.Name(), Op: "render", Format: name, Err: errors.Join(errs...)}
}
