// Package processor extracts translatable text from markup and writes
// translations back without disturbing the surrounding structure.
package processor

import "github.com/ZaguanLabs/appshelf"

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = appshelf.ContentProcessor

// TextNode is an alias to the main package type.
type TextNode = appshelf.TextNode

// Node types reported in TextNode.NodeType.
const (
	NodeText      = "html_text"
	NodeAttribute = "html_attr"
)
