// Package outconf models the output configuration (target format -> sizes)
// and resolves it hierarchically from optional per-folder and per-file YAML
// documents.
//
// Resolution is override, not merge: a document found for a scope replaces
// the configuration inherited from the parent scope entirely.
package outconf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kataras/piconvert/pkg/format"
)

// SizeSpec is a target size in pixels. A zero side means "natural dimension".
type SizeSpec struct {
	Width  int
	Height int
}

// IsZero reports whether neither side is specified.
func (s SizeSpec) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// String returns the "WxH" form used in destination file names.
func (s SizeSpec) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Square returns a SizeSpec with both sides set to n (negative clamps to 0).
func Square(n int) SizeSpec {
	n = max(n, 0)
	return SizeSpec{Width: n, Height: n}
}

// ParseSize parses a "WxH" string token. Either side may be omitted
// ("128x", "x64") and unparsable sides default to 0. A string without a
// separator only sets the width; bare numbers are squares (see [Square]).
func ParseSize(token string) SizeSpec {
	token = strings.ToLower(strings.TrimSpace(token))
	w, h, _ := strings.Cut(token, "x")
	return SizeSpec{Width: atoi(w), Height: atoi(h)}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Entry is a single format with its configured sizes. Nil Sizes means one
// output at natural size.
type Entry struct {
	Format format.ExportFormat
	Sizes  []SizeSpec
}

// EffectiveSizes returns the sizes to produce for the entry: a single
// natural size when Sizes is nil, Sizes otherwise. An empty non-nil list
// produces nothing.
func (e Entry) EffectiveSizes() []SizeSpec {
	if e.Sizes == nil {
		return []SizeSpec{{}}
	}
	return e.Sizes
}

// OutputConfig is an ordered set of target formats. Keys are unique; the
// zero value is an empty config that produces nothing. Values are never
// mutated in place: Set and Delete return modified copies.
type OutputConfig struct {
	entries []Entry
}

// New builds an OutputConfig from entries, dropping unknown formats. A
// repeated format keeps its first position and its last sizes.
func New(entries ...Entry) OutputConfig {
	var c OutputConfig
	for _, e := range entries {
		c = c.Set(e.Format, e.Sizes)
	}
	return c
}

// Entries returns a copy of the configured entries in order.
func (c OutputConfig) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = Entry{Format: e.Format, Sizes: cloneSizes(e.Sizes)}
	}
	return out
}

// Len returns the number of configured formats.
func (c OutputConfig) Len() int { return len(c.entries) }

// Formats returns the configured formats in order.
func (c OutputConfig) Formats() []format.ExportFormat {
	out := make([]format.ExportFormat, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Format
	}
	return out
}

// Get returns the sizes configured for f and whether f is present.
func (c OutputConfig) Get(f format.ExportFormat) ([]SizeSpec, bool) {
	for _, e := range c.entries {
		if e.Format == f {
			return cloneSizes(e.Sizes), true
		}
	}
	return nil, false
}

// Set returns a copy of c with f configured to sizes. Unknown formats are
// ignored.
func (c OutputConfig) Set(f format.ExportFormat, sizes []SizeSpec) OutputConfig {
	if !f.Valid() {
		return c
	}
	out := OutputConfig{entries: make([]Entry, 0, len(c.entries)+1)}
	replaced := false
	for _, e := range c.entries {
		if e.Format == f {
			e = Entry{Format: f, Sizes: cloneSizes(sizes)}
			replaced = true
		}
		out.entries = append(out.entries, e)
	}
	if !replaced {
		out.entries = append(out.entries, Entry{Format: f, Sizes: cloneSizes(sizes)})
	}
	return out
}

// Delete returns a copy of c without f.
func (c OutputConfig) Delete(f format.ExportFormat) OutputConfig {
	out := OutputConfig{}
	for _, e := range c.entries {
		if e.Format != f {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// String renders the config as "svg, png[128x128 64x0]" for logs.
func (c OutputConfig) String() string {
	parts := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Sizes == nil {
			parts = append(parts, string(e.Format))
			continue
		}
		sizes := make([]string, len(e.Sizes))
		for i, s := range e.Sizes {
			sizes[i] = s.String()
		}
		parts = append(parts, fmt.Sprintf("%s[%s]", e.Format, strings.Join(sizes, " ")))
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, ", ")
}

func cloneSizes(sizes []SizeSpec) []SizeSpec {
	if sizes == nil {
		return nil
	}
	out := make([]SizeSpec, len(sizes))
	copy(out, sizes)
	return out
}
