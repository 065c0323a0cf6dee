// Package format defines the closed sets of source and target file formats
// understood by the converter, plus helpers to normalize and parse them.
package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ImportFormat is a recognized source file extension (lowercase, no dot).
type ImportFormat string

// Source formats the rendering engine can ingest.
const (
	ImportAI   ImportFormat = "ai"
	ImportCDR  ImportFormat = "cdr"
	ImportVSD  ImportFormat = "vsd"
	ImportPDF  ImportFormat = "pdf"
	ImportSVG  ImportFormat = "svg"
	ImportJPG  ImportFormat = "jpg"
	ImportJPEG ImportFormat = "jpeg"
	ImportPNG  ImportFormat = "png"
	ImportGIF  ImportFormat = "gif"
	ImportBMP  ImportFormat = "bmp"
)

// ExportFormat is a recognized output format. The value is used verbatim as
// the destination file extension.
type ExportFormat string

// Target formats, vector and raster.
const (
	ExportSVG  ExportFormat = "svg"
	ExportPNG  ExportFormat = "png"
	ExportPS   ExportFormat = "ps"
	ExportEPS  ExportFormat = "eps"
	ExportPDF  ExportFormat = "pdf"
	ExportEMF  ExportFormat = "emf"
	ExportWMF  ExportFormat = "wmf"
	ExportXAML ExportFormat = "xaml"
	ExportJPG  ExportFormat = "jpg"
	ExportJPEG ExportFormat = "jpeg"
	ExportGIF  ExportFormat = "gif"
	ExportTIFF ExportFormat = "tiff"
)

var importFormats = []ImportFormat{
	ImportAI, ImportCDR, ImportVSD, ImportPDF, ImportSVG,
	ImportJPG, ImportJPEG, ImportPNG, ImportGIF, ImportBMP,
}

var exportFormats = []ExportFormat{
	ExportSVG, ExportPNG, ExportPS, ExportEPS, ExportPDF, ExportEMF,
	ExportWMF, ExportXAML, ExportJPG, ExportJPEG, ExportGIF, ExportTIFF,
}

// aliases maps spellings that engines know under a different name.
var aliases = map[string]string{
	"jpg": "jpeg",
	"tif": "tiff",
}

// ImportFormats returns every recognized source format.
func ImportFormats() []ImportFormat {
	return append([]ImportFormat(nil), importFormats...)
}

// ExportFormats returns every recognized target format.
func ExportFormats() []ExportFormat {
	return append([]ExportFormat(nil), exportFormats...)
}

// Valid reports whether f is a recognized source format.
func (f ImportFormat) Valid() bool {
	return lo.Contains(importFormats, f)
}

// Valid reports whether f is a recognized target format.
func (f ExportFormat) Valid() bool {
	return lo.Contains(exportFormats, f)
}

// Normalized returns the canonical name engines use for f ("jpg" -> "jpeg").
func (f ExportFormat) Normalized() string {
	return Normalize(string(f))
}

// Normalize lowercases a format name or file path extension and maps known
// aliases to their canonical form.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// ImportOf returns the import format matching path's extension, if any.
func ImportOf(path string) (ImportFormat, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	f := ImportFormat(ext)
	return f, ext != "" && f.Valid()
}

// ParseExport parses a single target format name, case-insensitively.
func ParseExport(name string) (ExportFormat, bool) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(name)))
	return f, f.Valid()
}

// ParseImportList parses a comma-separated list of source formats.
// Empty items are ignored, duplicates are removed keeping first occurrence.
func ParseImportList(list string) ([]ImportFormat, error) {
	var out []ImportFormat
	for _, part := range splitList(list) {
		f := ImportFormat(part)
		if !f.Valid() {
			return nil, fmt.Errorf("unknown import format %q (use %s)", part, joinFormats(importFormats))
		}
		out = append(out, f)
	}
	return lo.Uniq(out), nil
}

// ParseExportList parses a comma-separated list of target formats.
// Empty items are ignored, duplicates are removed keeping first occurrence.
func ParseExportList(list string) ([]ExportFormat, error) {
	var out []ExportFormat
	for _, part := range splitList(list) {
		f, ok := ParseExport(part)
		if !ok {
			return nil, fmt.Errorf("unknown export format %q (use %s)", part, joinFormats(exportFormats))
		}
		out = append(out, f)
	}
	return lo.Uniq(out), nil
}

func splitList(list string) []string {
	parts := lo.Map(strings.Split(list, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
	return lo.Compact(parts)
}

func joinFormats[T ~string](formats []T) string {
	return strings.Join(lo.Map(formats, func(f T, _ int) string { return string(f) }), ",")
}
