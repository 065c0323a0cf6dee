// Package raster renders the intermediate SVG document in-process and
// encodes the result into bitmap formats.
//
// Parsing runs in strict mode by default: documents using features the
// rasterizer does not understand fail, so the dispatcher can hand them to
// the next backend instead of producing a partial image.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/kataras/piconvert/pkg/engine"
)

// Formats lists the encoders available, by normalized name.
var Formats = []string{"png", "jpeg", "gif", "tiff"}

// DefaultMaxDimension bounds either side of a rendered image.
const DefaultMaxDimension = 16384

// ErrNoDimensions is returned for documents without a usable viewBox or
// width/height and no explicit target size.
var ErrNoDimensions = errors.New("document has no intrinsic size")

// Backend is the native rasterizer. The zero value uses strict parsing,
// JPEG quality 90 and DefaultMaxDimension.
type Backend struct {
	// Lenient accepts documents with unsupported elements, skipping them.
	Lenient bool
	// Quality is the JPEG quality (1-100), 90 if zero.
	Quality int
	// MaxDimension bounds the width and height, DefaultMaxDimension if zero.
	MaxDimension int
	// Background is painted under formats without alpha (jpeg), white if nil.
	Background color.Color
}

var _ engine.Backend = (*Backend)(nil)

// Name returns "native".
func (b *Backend) Name() string { return "native" }

// Supports reports whether format has an encoder.
func (b *Backend) Supports(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// FromIntermediate rasterizes svg at width x height and encodes it. A zero
// side is derived from the other using the document's aspect ratio; both
// zero means the natural size.
func (b *Backend) FromIntermediate(ctx context.Context, svg []byte, format string, width, height int) ([]byte, error) {
	if !b.Supports(format) {
		return nil, &engine.Error{Backend: b.Name(), Op: "render", Format: format, Err: engine.ErrUnsupportedFormat}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := b.Rasterize(svg, width, height)
	if err != nil {
		return nil, &engine.Error{Backend: b.Name(), Op: "render", Format: format, Err: err}
	}

	var buf bytes.Buffer
	if err := b.encode(&buf, img, format); err != nil {
		return nil, &engine.Error{Backend: b.Name(), Op: "render", Format: format, Err: err}
	}
	return buf.Bytes(), nil
}

// Rasterize draws svg onto a new RGBA image.
func (b *Backend) Rasterize(svg []byte, width, height int) (*image.RGBA, error) {
	mode := oksvg.StrictErrorMode
	if b.Lenient {
		mode = oksvg.IgnoreErrorMode
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), mode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h, err := TargetSize(icon.ViewBox.W, icon.ViewBox.H, width, height)
	if err != nil {
		return nil, err
	}
	if limit := b.maxDimension(); w > limit || h > limit {
		return nil, fmt.Errorf("target size %dx%d exceeds the %d pixel limit", w, h, limit)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return rgba, nil
}

// TargetSize resolves the output pixel size from the natural size of the
// document and the requested sides.
func TargetSize(naturalW, naturalH float64, width, height int) (int, int, error) {
	switch {
	case width > 0 && height > 0:
		return width, height, nil
	case naturalW <= 0 || naturalH <= 0:
		if width > 0 || height > 0 {
			// Unknown aspect ratio: square.
			n := max(width, height)
			return n, n, nil
		}
		return 0, 0, ErrNoDimensions
	case width > 0:
		return width, atLeastOne(float64(width) * naturalH / naturalW), nil
	case height > 0:
		return atLeastOne(float64(height) * naturalW / naturalH), height, nil
	default:
		return atLeastOne(naturalW), atLeastOne(naturalH), nil
	}
}

func atLeastOne(v float64) int {
	return max(1, int(math.Round(v)))
}

func (b *Backend) maxDimension() int {
	if b.MaxDimension > 0 {
		return b.MaxDimension
	}
	return DefaultMaxDimension
}

func (b *Backend) encode(w io.Writer, img *image.RGBA, format string) error {
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case "jpeg":
		quality := b.Quality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		return jpeg.Encode(w, b.flatten(img), &jpeg.Options{Quality: quality})
	case "gif":
		return gif.Encode(w, img, nil)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return engine.ErrUnsupportedFormat
	}
}

// flatten composites img over the background colour.
func (b *Backend) flatten(img *image.RGBA) *image.RGBA {
	bg := b.Background
	if bg == nil {
		bg = color.White
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}
