package outconf

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kataras/piconvert/pkg/format"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		token string
		want  SizeSpec
	}{
		{"128x64", SizeSpec{128, 64}},
		{"128x", SizeSpec{128, 0}},
		{"x64", SizeSpec{0, 64}},
		{"128", SizeSpec{128, 0}},
		{"abcx64", SizeSpec{0, 64}},
		{"128xabc", SizeSpec{128, 0}},
		{" 32 X 16 ", SizeSpec{32, 16}},
		{"-5x10", SizeSpec{0, 10}},
		{"", SizeSpec{}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := ParseSize(tt.token); got != tt.want {
				t.Errorf("ParseSize(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []Entry
		wantErr bool
	}{
		{
			name: "null means natural size",
			doc:  "svg: ~\npdf:\n",
			want: []Entry{{Format: format.ExportSVG}, {Format: format.ExportPDF}},
		},
		{
			name: "mixed size tokens keep order",
			doc:  "png: [128, \"64x32\", \"x48\", \"256x\"]\nsvg: null\n",
			want: []Entry{
				{Format: format.ExportPNG, Sizes: []SizeSpec{{128, 128}, {64, 32}, {0, 48}, {256, 0}}},
				{Format: format.ExportSVG},
			},
		},
		{
			name: "single scalar size",
			doc:  "png: 64\n",
			want: []Entry{{Format: format.ExportPNG, Sizes: []SizeSpec{{64, 64}}}},
		},
		{
			name: "empty list produces nothing",
			doc:  "png: []\n",
			want: []Entry{{Format: format.ExportPNG, Sizes: []SizeSpec{}}},
		},
		{
			name: "unknown formats are dropped",
			doc:  "webm: [1]\nPNG: [16]\n",
			want: []Entry{{Format: format.ExportPNG, Sizes: []SizeSpec{{16, 16}}}},
		},
		{
			name: "unknown formats are dropped before their value is read",
			doc:  "svg: ~\nwebp: {quality: 80}\n",
			want: []Entry{{Format: format.ExportSVG}},
		},
		{
			name: "huge float sizes are clamped",
			doc:  "png: [1e30, -3.5]\n",
			want: []Entry{{Format: format.ExportPNG, Sizes: []SizeSpec{{math.MaxInt32, math.MaxInt32}, {0, 0}}}},
		},
		{
			name: "empty document",
			doc:  "",
			want: []Entry{},
		},
		{
			name:    "sequence document",
			doc:     "- svg\n- png\n",
			wantErr: true,
		},
		{
			name:    "nested mapping as sizes",
			doc:     "png:\n  width: 10\n",
			wantErr: true,
		},
		{
			name:    "boolean size",
			doc:     "png: [true]\n",
			wantErr: true,
		},
		{
			name:    "broken yaml",
			doc:     "png: [128\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("Parse() error = %v, want *ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Entries(), tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got.Entries(), tt.want)
			}
		})
	}
}

func TestParseDocumentIgnored(t *testing.T) {
	doc, err := ParseDocument([]byte("svg: ~\nwebp: [1]\nheic: ~\navif: {quality: 80}\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if !reflect.DeepEqual(doc.Ignored, []string{"webp", "heic", "avif"}) {
		t.Errorf("Ignored = %v", doc.Ignored)
	}
	if doc.Config.Len() != 1 {
		t.Errorf("Config.Len() = %d, want 1", doc.Config.Len())
	}
}

func TestOutputConfigIsImmutable(t *testing.T) {
	base := New(Entry{Format: format.ExportSVG})
	withPNG := base.Set(format.ExportPNG, []SizeSpec{{128, 128}})

	if base.Len() != 1 {
		t.Fatalf("base mutated: %v", base)
	}
	if withPNG.Len() != 2 {
		t.Fatalf("withPNG.Len() = %d, want 2", withPNG.Len())
	}

	sizes, _ := withPNG.Get(format.ExportPNG)
	sizes[0].Width = 1
	again, _ := withPNG.Get(format.ExportPNG)
	if again[0].Width != 128 {
		t.Error("Get leaked internal slice")
	}

	if got := withPNG.Delete(format.ExportSVG).Formats(); !reflect.DeepEqual(got, []format.ExportFormat{format.ExportPNG}) {
		t.Errorf("Delete() formats = %v", got)
	}
	if got := base.Set("webm", nil); got.Len() != 1 {
		t.Error("Set accepted an unknown format")
	}
}

func TestOutputConfigString(t *testing.T) {
	c := New(
		Entry{Format: format.ExportSVG},
		Entry{Format: format.ExportPNG, Sizes: []SizeSpec{{128, 128}, {64, 0}}},
	)
	if got, want := c.String(), "svg, png[128x128 64x0]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (OutputConfig{}).String(); got != "(none)" {
		t.Errorf("empty String() = %q", got)
	}
}

func TestEntryEffectiveSizes(t *testing.T) {
	if got := (Entry{Format: format.ExportSVG}).EffectiveSizes(); len(got) != 1 || !got[0].IsZero() {
		t.Errorf("nil sizes: got %v", got)
	}
	if got := (Entry{Format: format.ExportSVG, Sizes: []SizeSpec{}}).EffectiveSizes(); len(got) != 0 {
		t.Errorf("empty sizes: got %v", got)
	}
}

func TestResolveFolder(t *testing.T) {
	parent := New(Entry{Format: format.ExportPDF})

	t.Run("inherits without document", func(t *testing.T) {
		dir := t.TempDir()
		res, err := ResolveFolder(dir, parent)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Inherited() || !reflect.DeepEqual(res.Config.Formats(), parent.Formats()) {
			t.Errorf("expected parent pass-through, got %v", res)
		}
	})

	t.Run("document overrides parent", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".piconvert.yaml"), "svg: ~\n")
		res, err := ResolveFolder(dir, parent)
		if err != nil {
			t.Fatal(err)
		}
		if res.Inherited() {
			t.Fatal("expected document to be used")
		}
		if got := res.Config.Formats(); !reflect.DeepEqual(got, []format.ExportFormat{format.ExportSVG}) {
			t.Errorf("formats = %v, want [svg] (pdf must not be merged in)", got)
		}
	})

	t.Run("lookup order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "piconvert.yaml"), "eps: ~\n")
		writeFile(t, filepath.Join(dir, ".piconvert.yml"), "svg: ~\n")
		res, err := ResolveFolder(dir, parent)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(res.Path) != "piconvert.yaml" {
			t.Errorf("Path = %s, want piconvert.yaml", res.Path)
		}
	})

	t.Run("malformed document propagates", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "piconvert.yml")
		writeFile(t, path, "[not, a, mapping]\n")
		_, err := ResolveFolder(dir, parent)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want *ParseError", err)
		}
		if pe.Path != path {
			t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
		}
	})
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	folder := New(Entry{Format: format.ExportSVG})
	writeFile(t, filepath.Join(dir, "logo.yml"), "png: [128]\n")

	res, err := ResolveFile(filepath.Join(dir, "logo.ai"), folder)
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{Format: format.ExportPNG, Sizes: []SizeSpec{{128, 128}}}}
	if !reflect.DeepEqual(res.Config.Entries(), want) {
		t.Errorf("logo.ai config = %v, want exactly png[128x128]", res.Config)
	}

	sibling, err := ResolveFile(filepath.Join(dir, "icon.ai"), folder)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sibling.Config.Formats(), []format.ExportFormat{format.ExportSVG}) {
		t.Errorf("icon.ai config = %v, want svg", sibling.Config)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
