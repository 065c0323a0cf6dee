package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/kataras/piconvert/pkg/format"
	"github.com/kataras/piconvert/pkg/outconf"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// settingsFile is looked up in the working directory when --config is not given.
const settingsFile = "piconvert.toml"

// settings are the effective options of a conversion: the defaults, then
// the settings file, then the flags set on the command line.
type settings struct {
	Source    string              `toml:"source"`
	Output    string              `toml:"output"`
	Imports   []string            `toml:"imports"`
	Exports   []string            `toml:"exports"`
	Sizes     map[string][]any    `toml:"sizes"`
	Force     bool                `toml:"force"`
	Silent    bool                `toml:"silent"`
	Verbose   bool                `toml:"verbose"`
	Recursive bool                `toml:"recursive"`
	Jobs      int                 `toml:"jobs"`
	TaskJobs  int                 `toml:"task_jobs"`
	Native    bool                `toml:"native"`
	Inkscape  string              `toml:"inkscape"`
	Report    string              `toml:"report"`
}

func defaultSettings() settings {
	return settings{
		Source:    "pictures",
		Output:    "piconvert",
		Imports:   []string{string(format.ImportAI)},
		Exports:   []string{string(format.ExportSVG), string(format.ExportPNG)},
		Recursive: true,
		Jobs:      1,
		TaskJobs:  1,
		Native:    true,
	}
}

// loadSettings decodes path over the defaults. With an empty path the
// settings file of the working directory is used if it exists. The
// returned string is the file that was read, if any.
func loadSettings(path string) (settings, string, error) {
	s := defaultSettings()

	explicit := path != ""
	if !explicit {
		path = settingsFile
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return s, "", nil
		}
		return s, "", fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&s); err != nil {
		return s, "", fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, path, nil
}

// flagValues holds the raw command line values; only the flags the user set
// are applied over the settings.
type flagValues struct {
	config      string
	output      string
	imports     []string
	exports     []string
	force       bool
	silent      bool
	verbose     bool
	noRecursive bool
	jobs        int
	taskJobs    int
	noNative    bool
	noColor     bool
	inkscape    string
	report      string
}

func (f *flagValues) register(fs *pflag.FlagSet) {
	d := defaultSettings()

	fs.StringVar(&f.config, "config", "", "Settings file (default ./"+settingsFile+" if present)")
	fs.StringVarP(&f.output, "output", "o", d.Output, "Output folder")
	fs.StringSliceVarP(&f.imports, "imports", "i", d.Imports, "Source formats to convert: ai,cdr,vsd,pdf,svg,jpg,jpeg,png,gif,bmp")
	fs.StringSliceVarP(&f.exports, "exports", "e", d.Exports, "Output formats: svg,png,ps,eps,pdf,emf,wmf,xaml,jpg,jpeg,gif,tiff")
	fs.BoolVarP(&f.force, "force", "F", false, "Overwrite existing outputs")
	fs.BoolVarP(&f.silent, "silent", "s", false, "Print errors only")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Print every task and the engine diagnostics")
	fs.BoolVar(&f.noRecursive, "no-recursive", false, "Do not descend into subdirectories")
	fs.IntVarP(&f.jobs, "jobs", "j", d.Jobs, "Files converted concurrently")
	fs.IntVar(&f.taskJobs, "task-jobs", d.TaskJobs, "Renders in flight at once")
	fs.BoolVar(&f.noNative, "no-native", false, "Render bitmaps with Inkscape only")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&f.inkscape, "inkscape", "", "Inkscape executable (default \"inkscape\" on PATH)")
	fs.StringVar(&f.report, "report", "", "Write a markdown report to this file")
}

// apply overrides s with the flags changed on fs.
func (s *settings) apply(fs *pflag.FlagSet, f *flagValues) {
	if fs.Changed("output") {
		s.Output = f.output
	}
	if fs.Changed("imports") {
		s.Imports = f.imports
	}
	if fs.Changed("exports") {
		s.Exports = f.exports
	}
	if fs.Changed("force") {
		s.Force = f.force
	}
	if fs.Changed("silent") {
		s.Silent = f.silent
	}
	if fs.Changed("verbose") {
		s.Verbose = f.verbose
	}
	if fs.Changed("no-recursive") {
		s.Recursive = !f.noRecursive
	}
	if fs.Changed("jobs") {
		s.Jobs = f.jobs
	}
	if fs.Changed("task-jobs") {
		s.TaskJobs = f.taskJobs
	}
	if fs.Changed("no-native") {
		s.Native = !f.noNative
	}
	if fs.Changed("inkscape") {
		s.Inkscape = f.inkscape
	}
	if fs.Changed("report") {
		s.Report = f.report
	}
}

func (s settings) imports() ([]format.ImportFormat, error) {
	return format.ParseImportList(strings.Join(s.Imports, ","))
}

// outputs builds the global output configuration from Exports and Sizes.
// A format without sizes is produced at its natural size.
func (s settings) outputs() (outconf.OutputConfig, error) {
	formats, err := format.ParseExportList(strings.Join(s.Exports, ","))
	if err != nil {
		return outconf.OutputConfig{}, err
	}

	var cfg outconf.OutputConfig
	for _, f := range formats {
		var sizes []outconf.SizeSpec
		for _, v := range s.Sizes[string(f)] {
			size, err := parseSize(v)
			if err != nil {
				return outconf.OutputConfig{}, fmt.Errorf("sizes: %s: %w", f, err)
			}
			sizes = append(sizes, size)
		}
		cfg = cfg.Set(f, sizes)
	}

	for name := range s.Sizes {
		f, ok := format.ParseExport(name)
		if !ok {
			return outconf.OutputConfig{}, fmt.Errorf("sizes: unknown export format %q", name)
		}
		if _, ok := cfg.Get(f); !ok {
			return outconf.OutputConfig{}, fmt.Errorf("sizes: %s is not exported", f)
		}
	}
	return cfg, nil
}

// parseSize reads a size the way folder documents do: an integer is a
// square, a string is a "WxH" token where either side may be omitted.
func parseSize(v any) (outconf.SizeSpec, error) {
	switch v := v.(type) {
	case int64:
		return outconf.Square(int(min(v, math.MaxInt32))), nil
	case string:
		return outconf.ParseSize(v), nil
	default:
		return outconf.SizeSpec{}, fmt.Errorf("invalid size %v: must be an integer or a \"WxH\" string", v)
	}
}
