// Package view is a minimal element tree for the login gate. Render
// returns a tree rather than markup so state-machine tests can assert
// on structure, and the HTML serializer escapes all text and attribute
// content structurally.
package view

import (
	"sort"
	"strings"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
	KindFragment
)

// Node is one node of the gate's view tree.
type Node struct {
	Kind     Kind
	Tag      string            // for KindElement
	Attrs    map[string]string // for KindElement
	Children []*Node
	Text     string // for KindText
}

// El creates an element node.
func El(tag string, attrs map[string]string, children ...*Node) *Node {
	return &Node{Kind: KindElement, Tag: tag, Attrs: attrs, Children: children}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Fragment groups children without a wrapping element.
func Fragment(children ...*Node) *Node {
	return &Node{Kind: KindFragment, Children: children}
}

// Find returns the first descendant element (including n itself) whose
// attribute matches, or nil. Intended for tests and small trees.
func (n *Node) Find(attr, value string) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindElement && n.Attrs[attr] == value {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(attr, value); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element with the given tag, in
// document order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	n.walk(func(node *Node) {
		if node.Kind == KindElement && node.Tag == tag {
			out = append(out, node)
		}
	})
	return out
}

// TextContent concatenates all text nodes under n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.walk(func(node *Node) {
		if node.Kind == KindText {
			b.WriteString(node.Text)
		}
	})
	return b.String()
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// voidElements have no closing tag.
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true,
	"link": true, "meta": true,
}

// HTML serializes the tree. All text and attribute values are escaped;
// there is deliberately no raw-HTML node kind.
func (n *Node) HTML() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if n == nil {
		return
	}

	switch n.Kind {
	case KindText:
		b.WriteString(escapeHTML(n.Text))

	case KindFragment:
		for _, c := range n.Children {
			c.render(b)
		}

	case KindElement:
		b.WriteByte('<')
		b.WriteString(n.Tag)

		// Sorted attribute order keeps output deterministic.
		keys := make([]string, 0, len(n.Attrs))
		for k := range n.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteString(`="`)
			b.WriteString(escapeAttr(n.Attrs[k]))
			b.WriteByte('"')
		}
		b.WriteByte('>')

		if voidElements[n.Tag] {
			return
		}
		for _, c := range n.Children {
			c.render(b)
		}
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteByte('>')
	}
}

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// escapeAttr escapes attribute values. In addition to the standard
// entities it escapes whitespace characters that could break attribute
// parsing.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
