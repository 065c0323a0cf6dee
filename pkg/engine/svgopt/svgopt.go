// Package svgopt applies a lossless structural cleanup to SVG documents:
// editor namespaces, metadata, comments, empty containers and formatting
// whitespace are removed. Geometry, styles and text content are untouched.
package svgopt

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EditorNamespaces are the prefixes whose elements and attributes are
// dropped, together with their xmlns declarations.
var EditorNamespaces = []string{"sodipodi", "inkscape"}

// preserveSpace lists elements whose whitespace-only text is significant.
var preserveSpace = map[string]bool{
	"text": true, "tspan": true, "textPath": true,
	"style": true, "script": true, "title": true, "desc": true,
}

// Optimizer is the cleanup pass. The zero value drops EditorNamespaces.
type Optimizer struct {
	// Namespaces overrides EditorNamespaces when non-nil.
	Namespaces []string
	// KeepMetadata retains <metadata> elements.
	KeepMetadata bool
}

// Optimize runs the zero-value Optimizer.
func Optimize(svg []byte) ([]byte, error) {
	return (&Optimizer{}).Optimize(svg)
}

// Optimize returns the cleaned document. Running it on its own output
// returns the same bytes.
func (o *Optimizer) Optimize(svg []byte) ([]byte, error) {
	doc, err := parse(svg)
	if err != nil {
		return nil, err
	}

	drop := o.Namespaces
	if drop == nil {
		drop = EditorNamespaces
	}
	dropped := make(map[string]bool, len(drop))
	for _, ns := range drop {
		dropped[ns] = true
	}

	doc.children = o.clean(doc.children, dropped, false)
	if !doc.hasElement() {
		return nil, errors.New("svgopt: document has no root element")
	}

	var buf bytes.Buffer
	doc.write(&buf)
	return buf.Bytes(), nil
}

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

type node struct {
	kind     nodeKind
	name     xml.Name // element name with Space holding the raw prefix
	attrs    []xml.Attr
	text     []byte // text, comment, directive body or procinst instruction
	target   string // procinst target
	children []*node
}

func (n *node) hasElement() bool {
	for _, c := range n.children {
		if c.kind == elementNode {
			return true
		}
	}
	return false
}

func parse(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	root := &node{}
	stack := []*node{root}
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("svgopt: %w", err)
		}
		parent := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			el := &node{kind: elementNode, name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			parent.children = append(parent.children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("svgopt: unexpected end element </%s>", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.children = append(parent.children, &node{kind: textNode, text: bytes.Clone(t)})
		case xml.Comment:
			parent.children = append(parent.children, &node{kind: commentNode, text: bytes.Clone(t)})
		case xml.ProcInst:
			parent.children = append(parent.children, &node{kind: procInstNode, target: t.Target, text: bytes.Clone(t.Inst)})
		case xml.Directive:
			parent.children = append(parent.children, &node{kind: directiveNode, text: bytes.Clone(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("svgopt: unclosed element <%s>", qualified(stack[len(stack)-1].name))
	}
	return root, nil
}

// clean filters children bottom-up so that containers emptied by the
// removal of their content are themselves removed in the same pass.
func (o *Optimizer) clean(children []*node, dropped map[string]bool, keepSpace bool) []*node {
	out := children[:0]
	for _, c := range children {
		switch c.kind {
		case commentNode:
			continue
		case procInstNode:
			if c.target != "xml" {
				continue
			}
		case textNode:
			if !keepSpace && len(bytes.TrimSpace(c.text)) == 0 {
				continue
			}
		case elementNode:
			if dropped[c.name.Space] {
				continue
			}
			if c.name.Space == "" && c.name.Local == "metadata" && !o.KeepMetadata {
				continue
			}
			c.attrs = cleanAttrs(c.attrs, dropped)
			c.children = o.clean(c.children, dropped, keepSpace || preserveSpace[c.name.Local])
			if isEmptyContainer(c) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func cleanAttrs(attrs []xml.Attr, dropped map[string]bool) []xml.Attr {
	out := attrs[:0]
	for _, a := range attrs {
		if dropped[a.Name.Space] {
			continue
		}
		if a.Name.Space == "xmlns" && dropped[a.Name.Local] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func isEmptyContainer(n *node) bool {
	if n.name.Space != "" || len(n.children) > 0 {
		return false
	}
	switch n.name.Local {
	case "defs":
		return true
	case "g":
		return len(n.attrs) == 0
	}
	return false
}

func (n *node) write(buf *bytes.Buffer) {
	for _, c := range n.children {
		switch c.kind {
		case elementNode:
			buf.WriteByte('<')
			buf.WriteString(qualified(c.name))
			for _, a := range c.attrs {
				buf.WriteByte(' ')
				buf.WriteString(qualified(a.Name))
				buf.WriteString(`="`)
				escapeAttr(buf, a.Value)
				buf.WriteByte('"')
			}
			if len(c.children) == 0 {
				buf.WriteString("/>")
				continue
			}
			buf.WriteByte('>')
			c.write(buf)
			buf.WriteString("</")
			buf.WriteString(qualified(c.name))
			buf.WriteByte('>')
		case textNode:
			escapeText(buf, c.text)
		case procInstNode:
			buf.WriteString("<?")
			buf.WriteString(c.target)
			if len(c.text) > 0 {
				buf.WriteByte(' ')
				buf.Write(bytes.TrimSpace(c.text))
			}
			buf.WriteString("?>")
		case directiveNode:
			buf.WriteString("<!")
			buf.Write(c.text)
			buf.WriteByte('>')
		}
	}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	`"`, "&quot;",
	"\n", "&#xA;",
	"\r", "&#xD;",
	"\t", "&#x9;",
)

func escapeAttr(buf *bytes.Buffer, s string) {
	_, _ = attrEscaper.WriteString(buf, s)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeText(buf *bytes.Buffer, b []byte) {
	_, _ = textEscaper.WriteString(buf, string(b))
}
