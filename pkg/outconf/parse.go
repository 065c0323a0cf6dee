package outconf

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kataras/piconvert/pkg/format"

	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed configuration document.
type ParseError struct {
	Path string // document path, empty when parsed from memory
	Line int    // 1-based line of the offending node, 0 if unknown
	Err  error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "config"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	return fmt.Sprintf("parse %s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is the result of parsing a configuration document.
type Document struct {
	Config OutputConfig
	// Ignored lists keys that are not recognized export formats, in
	// document order.
	Ignored []string
}

// Parse decodes a YAML configuration document of the form
//
//	svg: ~              # one output at natural size
//	png: [128, "64x32", "x48"]
//	pdf:
//
// into an OutputConfig, preserving key order. Unknown formats are dropped.
func Parse(data []byte) (OutputConfig, error) {
	doc, err := ParseDocument(data)
	return doc.Config, err
}

// ParseDocument is like [Parse] but also reports ignored keys.
func ParseDocument(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, &ParseError{Err: err}
	}

	// An empty document is an empty config.
	if root.Kind == 0 || len(root.Content) == 0 {
		return Document{}, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return Document{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return Document{}, &ParseError{Line: node.Line, Err: errors.New("document must be a mapping of format to sizes")}
	}

	var doc Document
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return Document{}, &ParseError{Line: key.Line, Err: errors.New("format key must be a scalar")}
		}

		// Unknown formats are dropped whatever their value looks like.
		f, ok := format.ParseExport(key.Value)
		if !ok {
			doc.Ignored = append(doc.Ignored, key.Value)
			continue
		}

		sizes, err := decodeSizes(value)
		if err != nil {
			return Document{}, &ParseError{Line: value.Line, Err: fmt.Errorf("format %q: %w", key.Value, err)}
		}
		doc.Config = doc.Config.Set(f, sizes)
	}

	return doc, nil
}

func decodeSizes(node *yaml.Node) ([]SizeSpec, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		s, err := decodeSize(node)
		if err != nil {
			return nil, err
		}
		return []SizeSpec{s}, nil
	case yaml.SequenceNode:
		sizes := make([]SizeSpec, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				return nil, fmt.Errorf("line %d: size must be a number or a \"WxH\" string", item.Line)
			}
			s, err := decodeSize(item)
			if err != nil {
				return nil, err
			}
			sizes = append(sizes, s)
		}
		return sizes, nil
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil, errors.New("dangling alias")
		}
		return decodeSizes(node.Alias)
	default:
		return nil, errors.New("sizes must be null, a size or a list of sizes")
	}
}

func decodeSize(node *yaml.Node) (SizeSpec, error) {
	switch node.Tag {
	case "!!int":
		n, err := strconv.ParseInt(strings.ReplaceAll(node.Value, "_", ""), 0, 64)
		if err != nil {
			return SizeSpec{}, fmt.Errorf("line %d: invalid size %q", node.Line, node.Value)
		}
		return Square(int(min(n, math.MaxInt32))), nil
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return SizeSpec{}, fmt.Errorf("line %d: invalid size %q", node.Line, node.Value)
		}
		return Square(int(math.Min(math.Max(f, 0), math.MaxInt32))), nil
	case "!!bool":
		return SizeSpec{}, fmt.Errorf("line %d: invalid size %q", node.Line, node.Value)
	default:
		return ParseSize(node.Value), nil
	}
}
