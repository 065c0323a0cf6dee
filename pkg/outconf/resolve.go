package outconf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FolderConfigNames are the folder-level document names, in lookup order.
var FolderConfigNames = []string{
	"piconvert.yml",
	"piconvert.yaml",
	".piconvert.yml",
	".piconvert.yaml",
}

// FileConfigExtensions are the extensions of file-level documents, in lookup
// order. A file-level document is named after its source file minus the
// source extension: "logo.ai" is configured by "logo.yml".
var FileConfigExtensions = []string{".yml", ".yaml"}

// Resolution is the configuration governing a scope.
type Resolution struct {
	Config OutputConfig
	// Path is the document that produced Config, empty when inherited.
	Path string
	// Ignored lists unknown format keys found in the document.
	Ignored []string
}

// Inherited reports whether the parent configuration was passed through.
func (r Resolution) Inherited() bool { return r.Path == "" }

// ResolveFolder returns the configuration for directory dir: the first
// folder-level document found replaces parent entirely, otherwise parent is
// returned unchanged.
func ResolveFolder(dir string, parent OutputConfig) (Resolution, error) {
	candidates := make([]string, len(FolderConfigNames))
	for i, name := range FolderConfigNames {
		candidates[i] = filepath.Join(dir, name)
	}
	return resolve(candidates, parent)
}

// ResolveFile returns the configuration for the source file at path: a
// colocated file-level document replaces parent entirely, otherwise parent
// is returned unchanged.
func ResolveFile(path string, parent OutputConfig) (Resolution, error) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	candidates := make([]string, len(FileConfigExtensions))
	for i, ext := range FileConfigExtensions {
		candidates[i] = stem + ext
	}
	return resolve(candidates, parent)
}

func resolve(candidates []string, parent OutputConfig) (Resolution, error) {
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Resolution{}, &ParseError{Path: candidate, Err: err}
		}
		if info.IsDir() {
			continue
		}
		return Load(candidate)
	}
	return Resolution{Config: parent}, nil
}

// Load reads and parses the document at path.
func Load(path string) (Resolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolution{}, &ParseError{Path: path, Err: err}
	}
	doc, err := ParseDocument(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return Resolution{}, pe
		}
		return Resolution{}, &ParseError{Path: path, Err: err}
	}
	return Resolution{Config: doc.Config, Path: path, Ignored: doc.Ignored}, nil
}
