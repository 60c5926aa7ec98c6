package html

import nethtml "golang.org/x/net/html"

// Attr is a single element attribute.
type Attr struct {
	Key string
	Val string
}

// Node is the mutation capability the processing pipeline needs from a
// single DOM element. Implementations wrap a concrete parser's node.
type Node interface {
	// Core node information
	TagName() string
	Attr(name string) (string, bool)

	// Content access
	Text() string

	// Modification
	SetAttr(name, value string)
	RemoveAttr(name string)
	SetText(content string)
	AppendChild(child Node)
	InsertAfter(sibling Node)
	Remove()

	// Unwrap exposes the underlying parse-tree node, used as a stable
	// identity key and for subtree assembly.
	Unwrap() *nethtml.Node
}

// Document represents the complete HTML document.
type Document interface {
	// Root access
	Head() Node
	Body() Node

	// Query returns a materialized snapshot of the elements matching a
	// CSS selector. An invalid selector matches nothing.
	Query(selector string) []Node

	// Node creation
	CreateElement(tag string, attrs ...Attr) Node
	CreateTextNode(text string) Node

	// Serialization
	HTML() (string, error)
}
