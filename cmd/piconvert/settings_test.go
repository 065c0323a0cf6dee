package main

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"

	"github.com/spf13/pflag"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), settingsFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, path, err := loadSettings("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}
	if !reflect.DeepEqual(s, defaultSettings()) {
		t.Errorf("settings = %+v, want defaults", s)
	}
}

func TestLoadSettingsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(settingsFile, []byte("output = \"web\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, path, err := loadSettings("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != settingsFile {
		t.Errorf("path = %q, want %q", path, settingsFile)
	}
	if s.Output != "web" {
		t.Errorf("Output = %q, want web", s.Output)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := writeSettings(t, `
source = "art"
output = "public/img"
imports = ["ai", "pdf"]
exports = ["png", "jpg"]
recursive = false
jobs = 4
native = false

[sizes]
png = [16, "32x", "x64"]
`)

	s, got, err := loadSettings(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}

	want := defaultSettings()
	want.Source = "art"
	want.Output = "public/img"
	want.Imports = []string{"ai", "pdf"}
	want.Exports = []string{"png", "jpg"}
	want.Recursive = false
	want.Jobs = 4
	want.Native = false
	want.Sizes = map[string][]any{"png": {int64(16), "32x", "x64"}}

	if !reflect.DeepEqual(s, want) {
		t.Errorf("settings =\n%+v\nwant\n%+v", s, want)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(t.TempDir(), "nope.toml")},
		{"unknown key", writeSettings(t, "colour = true\n")},
		{"wrong type", writeSettings(t, "jobs = \"many\"\n")},
		{"syntax", writeSettings(t, "output = \n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := loadSettings(tt.path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		edit func(*settings)
	}{
		{"nothing set", nil, func(*settings) {}},
		{"output", []string{"-o", "dist"}, func(s *settings) { s.Output = "dist" }},
		{"lists", []string{"-i", "ai,svg", "--exports=pdf"}, func(s *settings) {
			s.Imports = []string{"ai", "svg"}
			s.Exports = []string{"pdf"}
		}},
		{"negated", []string{"--no-recursive", "--no-native"}, func(s *settings) {
			s.Recursive = false
			s.Native = false
		}},
		{"switches", []string{"-F", "-s", "-v"}, func(s *settings) {
			s.Force = true
			s.Silent = true
			s.Verbose = true
		}},
		{"concurrency", []string{"-j", "8", "--task-jobs", "2"}, func(s *settings) {
			s.Jobs = 8
			s.TaskJobs = 2
		}},
		{"engine and report", []string{"--inkscape", "/opt/inkscape", "--report", "r.md"}, func(s *settings) {
			s.Inkscape = "/opt/inkscape"
			s.Report = "r.md"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flagValues
			fs := pflag.NewFlagSet("piconvert", pflag.ContinueOnError)
			f.register(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			// Values from a settings file survive unless a flag is set.
			got := defaultSettings()
			got.Output = "from-file"
			got.Jobs = 3
			got.apply(fs, &f)

			want := defaultSettings()
			want.Output = "from-file"
			want.Jobs = 3
			tt.edit(&want)

			if !reflect.DeepEqual(got, want) {
				t.Errorf("settings =\n%+v\nwant\n%+v", got, want)
			}
		})
	}
}

func TestOutputs(t *testing.T) {
	s := defaultSettings()
	s.Exports = []string{"SVG", "png", "jpg"}
	s.Sizes = map[string][]any{"png": {int64(16), "32x16", "x8", "128"}}

	cfg, err := s.outputs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := outconf.New(
		outconf.Entry{Format: format.ExportSVG},
		outconf.Entry{Format: format.ExportPNG, Sizes: []outconf.SizeSpec{
			{Width: 16, Height: 16}, {Width: 32, Height: 16}, {Height: 8}, {Width: 128},
		}},
		outconf.Entry{Format: format.ExportJPG},
	)
	if !reflect.DeepEqual(cfg.Entries(), want.Entries()) {
		t.Errorf("entries = %+v, want %+v", cfg.Entries(), want.Entries())
	}
}

func TestParseSizeValue(t *testing.T) {
	tests := []struct {
		value any
		want  outconf.SizeSpec
	}{
		{int64(64), outconf.SizeSpec{Width: 64, Height: 64}},
		{int64(math.MaxInt64), outconf.Square(math.MaxInt32)},
		{int64(-5), outconf.SizeSpec{}},
		{"64", outconf.SizeSpec{Width: 64}},
		{" 64x32 ", outconf.SizeSpec{Width: 64, Height: 32}},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.value)
		if err != nil {
			t.Fatalf("parseSize(%#v) unexpected error: %v", tt.value, err)
		}
		if got != tt.want {
			t.Errorf("parseSize(%#v) = %+v, want %+v", tt.value, got, tt.want)
		}
	}
}

func TestOutputsErrors(t *testing.T) {
	tests := []struct {
		name    string
		exports []string
		sizes   map[string][]any
	}{
		{"unknown export", []string{"webp"}, nil},
		{"sizes for unknown format", []string{"png"}, map[string][]any{"webp": {int64(16)}}},
		{"sizes for format not exported", []string{"svg"}, map[string][]any{"png": {int64(16)}}},
		{"boolean size", []string{"png"}, map[string][]any{"png": {true}}},
		{"float size", []string{"png"}, map[string][]any{"png": {16.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			s.Exports = tt.exports
			s.Sizes = tt.sizes
			if _, err := s.outputs(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestImports(t *testing.T) {
	s := defaultSettings()
	s.Imports = []string{"AI", "pdf", "ai"}

	got, err := s.imports()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []format.ImportFormat{format.ImportAI, format.ImportPDF}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("imports = %v, want %v", got, want)
	}

	s.Imports = []string{"psd"}
	if _, err := s.imports(); err == nil {
		t.Error("expected an error for an unknown import format")
	}
}
