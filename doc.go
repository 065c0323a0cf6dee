// Package piconvert batch converts vector and image files between formats.
//
// Rendering is delegated to Inkscape, with an in-process rasterizer as a
// fast path for bitmap targets. This package owns the orchestration: it
// walks a source tree, resolves the output configuration of every folder
// and file, fans every source out to its targets, skips destinations that
// already exist, and reports progress as a stream of lifecycle events.
//
// The CLI lives in cmd/piconvert; this root package exposes the same
// conversion as a Go API.
//
// # Quick start
//
//	c := piconvert.New(piconvert.Options{})
//	c.Import(format.ImportFormats()...).
//	    Export(format.ExportSVG).
//	    Export(format.ExportPNG, outconf.Square(128), outconf.ParseSize("64x"))
//
//	c.On(events.ListenerFunc(func(e events.Event) {
//	    if e.Type == events.TaskFailed {
//	        log.Printf("%s: %v", e.Task, e.Err)
//	    }
//	}))
//
//	err := c.Run(ctx, "pictures", "piconvert", piconvert.RunOptions{Recursive: true})
//
// # Configuration documents
//
// A folder may hold a piconvert.yml (or piconvert.yaml, .piconvert.yml,
// .piconvert.yaml) document mapping export formats to size lists:
//
//	svg: ~
//	png: [128, "64x32", "256x"]
//
// It replaces, never merges with, the configuration inherited from the
// parent folder. A document named after a source file (logo.yml next to
// logo.ai) replaces the folder configuration for that file only.
//
// # Destinations
//
// Outputs are named <stem>[.<W>x<H>].<format> and mirror the source tree
// under the destination directory. Existing outputs are skipped unless
// [RunOptions.Force] is set.
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive warnings
// and, with [RunOptions.Verbose], progress details. A nil Logger silences
// all output. Per-target outcomes are reported through events, not logs.
package piconvert
