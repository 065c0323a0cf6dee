// Package inkscape drives the Inkscape command line as a vectorizer and as a
// render backend. Every call is a separate process; documents travel through
// stdout and stdin, never through temporary files.
package inkscape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kataras/piconvert/pkg/engine"
)

// DefaultBinary is the command looked up on PATH when Binary is empty.
const DefaultBinary = "inkscape"

// Formats lists the export types Inkscape produces from the intermediate.
var Formats = []string{"svg", "png", "ps", "eps", "pdf", "emf", "wmf", "xaml"}

// maxStderr bounds the diagnostic output kept in errors.
const maxStderr = 2048

// Backend runs Inkscape. The zero value is usable.
type Backend struct {
	// Binary is the executable name or path, DefaultBinary if empty.
	Binary string
	// Stderr, if set, receives the engine's diagnostic output as it runs.
	Stderr io.Writer
}

var (
	_ engine.Vectorizer = (*Backend)(nil)
	_ engine.Backend    = (*Backend)(nil)
)

// New returns a backend using the given executable.
func New(binary string) *Backend {
	return &Backend{Binary: binary}
}

// Name returns "inkscape".
func (b *Backend) Name() string { return "inkscape" }

func (b *Backend) binary() string {
	if s := strings.TrimSpace(b.Binary); s != "" {
		return s
	}
	return DefaultBinary
}

// Supports reports whether format is one of Formats.
func (b *Backend) Supports(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// ToIntermediate converts source into a plain SVG document.
func (b *Backend) ToIntermediate(ctx context.Context, source string) ([]byte, error) {
	args := []string{
		"--export-plain-svg",
		"--pdf-poppler",
		"--export-type=svg",
		"--export-filename=-",
		source,
	}
	out, err := b.run(ctx, nil, args)
	if err != nil {
		return nil, &engine.Error{Backend: b.Name(), Op: "vectorize", Err: err}
	}
	return out, nil
}

// FromIntermediate renders svg into format, optionally at the given pixel
// width and height.
func (b *Backend) FromIntermediate(ctx context.Context, svg []byte, format string, width, height int) ([]byte, error) {
	if !b.Supports(format) {
		return nil, &engine.Error{Backend: b.Name(), Op: "render", Format: format, Err: engine.ErrUnsupportedFormat}
	}
	out, err := b.run(ctx, svg, RenderArgs(format, width, height))
	if err != nil {
		return nil, &engine.Error{Backend: b.Name(), Op: "render", Format: format, Err: err}
	}
	return out, nil
}

// RenderArgs returns the command line used to render the intermediate read
// from stdin.
func RenderArgs(format string, width, height int) []string {
	args := []string{
		"--pipe",
		"--export-area-page",
		"--export-type=" + format,
	}
	if width > 0 {
		args = append(args, "--export-width="+strconv.Itoa(width))
	}
	if height > 0 {
		args = append(args, "--export-height="+strconv.Itoa(height))
	}
	return append(args, "--export-filename=-")
}

func (b *Backend) run(ctx context.Context, stdin []byte, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.binary(), args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if b.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, b.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := tail(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%s produced no output", b.binary())
	}
	return stdout.Bytes(), nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = "..." + s[len(s)-maxStderr:]
	}
	return s
}
