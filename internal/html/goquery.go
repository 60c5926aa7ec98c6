package html

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// gqDocument wraps goquery.Document to implement the Document interface.
type gqDocument struct {
	doc *goquery.Document
}

// gqNode wraps a parse-tree node. Wrappers are cheap and created on
// demand; identity comparisons must go through Unwrap.
type gqNode struct {
	n *nethtml.Node
}

// Parse parses an HTML string into a Document.
func Parse(htmlStr string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &gqDocument{doc: doc}, nil
}

// Document implementation

func (d *gqDocument) Head() Node {
	return d.first("head")
}

func (d *gqDocument) Body() Node {
	return d.first("body")
}

func (d *gqDocument) first(selector string) Node {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return &gqNode{n: sel.Get(0)}
}

// Query returns all elements matching the selector as a materialized
// snapshot, so callers can mutate the tree while iterating. goquery
// treats an invalid selector as matching nothing, which is exactly the
// fail-closed behavior rule pruning relies on.
func (d *gqDocument) Query(selector string) []Node {
	sel := d.doc.Find(selector)
	nodes := make([]Node, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		nodes[i] = &gqNode{n: s.Get(0)}
	})
	return nodes
}

func (d *gqDocument) CreateElement(tag string, attrs ...Attr) Node {
	n := &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, a := range attrs {
		n.Attr = append(n.Attr, nethtml.Attribute{Key: a.Key, Val: a.Val})
	}
	return &gqNode{n: n}
}

func (d *gqDocument) CreateTextNode(text string) Node {
	return &gqNode{n: &nethtml.Node{Type: nethtml.TextNode, Data: text}}
}

// HTML returns the complete HTML document as string.
func (d *gqDocument) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return out, nil
}

// Node implementation

func (n *gqNode) TagName() string {
	if n.n.Type != nethtml.ElementNode {
		return ""
	}
	return n.n.Data
}

func (n *gqNode) Attr(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n *gqNode) SetAttr(name, value string) {
	for i, a := range n.n.Attr {
		if a.Key == name {
			n.n.Attr[i].Val = value
			return
		}
	}
	n.n.Attr = append(n.n.Attr, nethtml.Attribute{Key: name, Val: value})
}

func (n *gqNode) RemoveAttr(name string) {
	attrs := n.n.Attr[:0]
	for _, a := range n.n.Attr {
		if a.Key != name {
			attrs = append(attrs, a)
		}
	}
	n.n.Attr = attrs
}

// Text returns the concatenated text content of the subtree.
func (n *gqNode) Text() string {
	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(c *nethtml.Node) {
		if c.Type == nethtml.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n.n)
	return b.String()
}

// SetText replaces the element's children with a single text node. The
// renderer emits text children of style and script elements literally,
// so CSS content survives without entity escaping.
func (n *gqNode) SetText(content string) {
	for c := n.n.FirstChild; c != nil; {
		next := c.NextSibling
		n.n.RemoveChild(c)
		c = next
	}
	n.n.AppendChild(&nethtml.Node{Type: nethtml.TextNode, Data: content})
}

func (n *gqNode) AppendChild(child Node) {
	c := child.Unwrap()
	detach(c)
	n.n.AppendChild(c)
}

// InsertAfter inserts sibling immediately after this node.
func (n *gqNode) InsertAfter(sibling Node) {
	s := sibling.Unwrap()
	detach(s)
	parent := n.n.Parent
	if parent == nil {
		return
	}
	if n.n.NextSibling != nil {
		parent.InsertBefore(s, n.n.NextSibling)
	} else {
		parent.AppendChild(s)
	}
}

func (n *gqNode) Remove() {
	detach(n.n)
}

func (n *gqNode) Unwrap() *nethtml.Node {
	return n.n
}

func detach(n *nethtml.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
