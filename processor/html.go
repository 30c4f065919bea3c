package processor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/appshelf"
	"golang.org/x/net/html"
)

// TranslatableAttributes lists attributes whose values are user-visible text.
var TranslatableAttributes = []string{"alt", "title", "placeholder", "aria-label"}

// HTMLProcessor extracts and applies translations to HTML documents and
// fragments such as store descriptions. Fragments are returned as fragments:
// the <html>, <head> and <body> wrappers added by the parser are dropped.
type HTMLProcessor struct {
	ignoredTags map[string]bool
	attributes  []string
}

// NewHTMLProcessor creates a new HTML processor with default ignored tags.
func NewHTMLProcessor() *HTMLProcessor {
	return &HTMLProcessor{
		ignoredTags: appshelf.IgnoredTags,
		attributes:  TranslatableAttributes,
	}
}

// NewHTMLProcessorWithIgnoredTags creates a new HTML processor with custom ignored tags.
func NewHTMLProcessorWithIgnoredTags(tags []string) *HTMLProcessor {
	ignored := make(map[string]bool)
	for _, tag := range tags {
		ignored[strings.ToLower(tag)] = true
	}
	return &HTMLProcessor{
		ignoredTags: ignored,
		attributes:  TranslatableAttributes,
	}
}

// segment is one translatable location in the parsed tree.
type segment struct {
	node *html.Node
	attr string // empty for text nodes
	hash string
}

type parsedHTML struct {
	doc      *goquery.Document
	fragment bool
	segments []segment
}

// Extract parses HTML and returns one TextNode per distinct text. Repeated
// texts share a node; Apply writes the translation to every occurrence.
func (p *HTMLProcessor) Extract(content string) (interface{}, []appshelf.TextNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil, &appshelf.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	parsed := &parsedHTML{
		doc:      doc,
		fragment: !strings.Contains(strings.ToLower(content), "<html"),
	}

	var nodes []appshelf.TextNode
	seen := make(map[string]bool)

	add := func(n *html.Node, attr, text string) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return
		}
		hash := appshelf.HashText(trimmed)
		parsed.segments = append(parsed.segments, segment{node: n, attr: attr, hash: hash})
		if seen[hash] {
			return
		}
		seen[hash] = true

		node := appshelf.TextNode{
			ID:       fmt.Sprintf("node-%d", len(nodes)),
			Text:     trimmed,
			Hash:     hash,
			NodeType: NodeText,
			Metadata: map[string]string{},
		}
		if attr != "" {
			node.NodeType = NodeAttribute
			node.Metadata["attribute"] = attr
			node.Metadata["parent_tag"] = n.Data
			node.Context = fmt.Sprintf("%s attribute of <%s>", attr, n.Data)
		} else {
			if n.Parent != nil {
				node.Metadata["parent_tag"] = n.Parent.Data
			}
			node.Context = buildContext(n)
		}
		nodes = append(nodes, node)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if p.skip(n) {
				return
			}
			for _, name := range p.attributes {
				if val, ok := attrValue(n, name); ok {
					add(n, name, val)
				}
			}
		case html.TextNode:
			add(n, "", n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, root := range doc.Selection.Nodes {
		walk(root)
	}

	return parsed, nodes, nil
}

// Apply writes translations, keyed by TextNode.Hash, back into the parsed
// tree and serializes it. Texts without a translation are left as they were.
func (p *HTMLProcessor) Apply(parsed interface{}, nodes []appshelf.TextNode, translations map[string]string) (string, error) {
	ph, ok := parsed.(*parsedHTML)
	if !ok {
		return "", &appshelf.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "html",
		}
	}

	for _, seg := range ph.segments {
		translated, ok := translations[seg.hash]
		if !ok {
			continue
		}
		if seg.attr == "" {
			seg.node.Data = preserveWhitespace(seg.node.Data, translated)
			continue
		}
		setAttr(seg.node, seg.attr, translated)
	}

	var (
		out string
		err error
	)
	if ph.fragment {
		out, err = ph.doc.Find("body").Html()
	} else {
		out, err = ph.doc.Html()
	}
	if err != nil {
		return "", &appshelf.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}

	return out, nil
}

// ContentType returns "html".
func (p *HTMLProcessor) ContentType() string {
	return "html"
}

// skip reports whether an element and its subtree stay untranslated.
func (p *HTMLProcessor) skip(n *html.Node) bool {
	if p.ignoredTags[strings.ToLower(n.Data)] {
		return true
	}
	if _, ok := attrValue(n, "data-no-translate"); ok {
		return true
	}
	if v, ok := attrValue(n, "translate"); ok && strings.EqualFold(v, "no") {
		return true
	}
	return false
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
}

// buildContext describes where a text node sits so the backend can
// disambiguate short strings like "Open" or "Free".
func buildContext(n *html.Node) string {
	parent := n.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return ""
	}

	var parts []string

	switch {
	case hasAttr(parent, "class"):
		class, _ := attrValue(parent, "class")
		parts = append(parts, fmt.Sprintf("in <%s class=\"%s\">", parent.Data, class))
	case hasAttr(parent, "id"):
		id, _ := attrValue(parent, "id")
		parts = append(parts, fmt.Sprintf("in <%s id=\"%s\">", parent.Data, id))
	default:
		parts = append(parts, fmt.Sprintf("in <%s>", parent.Data))
	}

	var siblings []string
	for sib := parent.FirstChild; sib != nil && len(siblings) < 3; sib = sib.NextSibling {
		if sib == n || sib.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(sib.Data); text != "" && len(text) < 100 {
			siblings = append(siblings, text)
		}
	}
	if len(siblings) > 0 {
		parts = append(parts, "with: "+strings.Join(siblings, ", "))
	}

	var ancestors []string
	for a, i := parent.Parent, 0; a != nil && i < 3; a, i = a.Parent, i+1 {
		if a.Type == html.ElementNode && a.Data != "html" && a.Data != "body" {
			ancestors = append([]string{a.Data}, ancestors...)
		}
	}
	if len(ancestors) > 0 {
		parts = append(parts, "inside: "+strings.Join(ancestors, " > "))
	}

	return strings.Join(parts, " | ")
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrValue(n, key)
	return ok
}

// preserveWhitespace keeps the original leading and trailing whitespace.
func preserveWhitespace(original, translated string) string {
	trimmedLeft := strings.TrimLeft(original, " \t\n\r")
	leading := original[:len(original)-len(trimmedLeft)]
	trailing := trimmedLeft[len(strings.TrimRight(trimmedLeft, " \t\n\r")):]
	return leading + translated + trailing
}

// Verify HTMLProcessor implements ContentProcessor
var _ ContentProcessor = (*HTMLProcessor)(nil)
