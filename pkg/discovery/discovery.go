// Package discovery lists the convertible files and the subdirectories of a
// single directory level. Recursion is left to the caller so configuration
// can be re-resolved at every level before descending.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kataras/piconvert/pkg/format"
)

// HiddenMarker is the name prefix of entries excluded from traversal.
const HiddenMarker = "."

// Listing is the content of one directory level, in lexical order.
type Listing struct {
	Files []string // absolute paths of matching source files
	Dirs  []string // absolute paths of non-hidden subdirectories
}

// IsHidden reports whether an entry name is excluded from traversal.
func IsHidden(name string) bool {
	return name == "" || strings.HasPrefix(name, HiddenMarker)
}

// Discover lists the immediate children of dir. A child is a matching file
// when it is a regular file, not hidden, and its lowercased extension is one
// of imports. A child is a subdirectory when it is a directory and not
// hidden. Symbolic links are classified by their target; link cycles are not
// detected.
func Discover(dir string, imports []format.ImportFormat) (Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Listing{}, fmt.Errorf("read directory %q: %w", dir, err)
	}

	accept := make(map[format.ImportFormat]bool, len(imports))
	for _, f := range imports {
		accept[f] = true
	}

	var listing Listing
	for _, entry := range entries { // os.ReadDir returns entries sorted by name
		name := entry.Name()
		if IsHidden(name) {
			continue
		}
		path := filepath.Join(dir, name)

		info, err := os.Stat(path) // follows symlinks
		if err != nil {
			continue
		}

		switch {
		case info.IsDir():
			listing.Dirs = append(listing.Dirs, path)
		case info.Mode().IsRegular():
			if f, ok := format.ImportOf(name); ok && accept[f] {
				listing.Files = append(listing.Files, path)
			}
		}
	}
	return listing, nil
}
