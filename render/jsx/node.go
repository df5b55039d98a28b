package jsx

import "strings"

// Node is a host element or a text run.
type Node struct {
	// Tag is the element name. Empty for text.
	Tag      string
	Text     string
	Style    map[string]any
	Attrs    map[string]string
	Children []*Node
}

// IsText reports whether n is a text run.
func (n *Node) IsText() bool { return n.Tag == "" }

// TextContent concatenates all text below n.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.walk(func(c *Node) {
		if c.IsText() {
			b.WriteString(c.Text)
			b.WriteByte(' ')
		}
	})
	return b.String()
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) { n.walk(fn) }

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}
