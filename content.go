package blogsync

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// NodeKind discriminates the block and inline node kinds of a rich-content
// document. The wire form matches the editor's document JSON: a node object
// with a "type" tag, optional "attrs"/"marks", and nested "content".
type NodeKind string

const (
	NodeDoc            NodeKind = "doc"
	NodeParagraph      NodeKind = "paragraph"
	NodeHeading        NodeKind = "heading"
	NodeText           NodeKind = "text"
	NodeCodeBlock      NodeKind = "codeBlock"
	NodeBlockquote     NodeKind = "blockquote"
	NodeBulletList     NodeKind = "bulletList"
	NodeOrderedList    NodeKind = "orderedList"
	NodeListItem       NodeKind = "listItem"
	NodeImage          NodeKind = "image"
	NodeHardBreak      NodeKind = "hardBreak"
	NodeHorizontalRule NodeKind = "horizontalRule"
)

// Mark is an inline annotation on a text node (bold, italic, code, link).
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is one node of a rich-content document tree. A document is a Node of
// kind NodeDoc whose Content holds the block nodes.
type Node struct {
	Kind    NodeKind       `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
}

// ParseMarkdown builds a document tree from markdown source. The subset the
// wizard needs is handled explicitly; anything else degrades to its inline
// text rather than failing.
func ParseMarkdown(source string) (*Node, error) {
	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(src))
	return &Node{Kind: NodeDoc, Content: convertChildren(root, src)}, nil
}

func convertChildren(n ast.Node, src []byte) []*Node {
	var out []*Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, convertNode(c, src)...)
	}
	return out
}

func convertNode(n ast.Node, src []byte) []*Node {
	switch v := n.(type) {
	case *ast.Paragraph:
		return []*Node{{Kind: NodeParagraph, Content: convertChildren(v, src)}}
	case *ast.TextBlock:
		return []*Node{{Kind: NodeParagraph, Content: convertChildren(v, src)}}
	case *ast.Heading:
		return []*Node{{
			Kind:    NodeHeading,
			Attrs:   map[string]any{"level": v.Level},
			Content: convertChildren(v, src),
		}}
	case *ast.Text:
		var nodes []*Node
		if txt := string(v.Segment.Value(src)); txt != "" {
			nodes = append(nodes, &Node{Kind: NodeText, Text: txt})
		}
		if v.HardLineBreak() {
			nodes = append(nodes, &Node{Kind: NodeHardBreak})
		} else if v.SoftLineBreak() {
			nodes = append(nodes, &Node{Kind: NodeText, Text: " "})
		}
		return nodes
	case *ast.String:
		return []*Node{{Kind: NodeText, Text: string(v.Value)}}
	case *ast.Emphasis:
		children := convertChildren(v, src)
		mark := "italic"
		if v.Level >= 2 {
			mark = "bold"
		}
		applyMark(children, Mark{Type: mark})
		return children
	case *ast.CodeSpan:
		var sb strings.Builder
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(src))
			}
		}
		return []*Node{{Kind: NodeText, Text: sb.String(), Marks: []Mark{{Type: "code"}}}}
	case *ast.Link:
		children := convertChildren(v, src)
		applyMark(children, Mark{Type: "link", Attrs: map[string]any{"href": string(v.Destination)}})
		return children
	case *ast.AutoLink:
		url := string(v.URL(src))
		return []*Node{{
			Kind:  NodeText,
			Text:  url,
			Marks: []Mark{{Type: "link", Attrs: map[string]any{"href": url}}},
		}}
	case *ast.Image:
		attrs := map[string]any{"src": string(v.Destination)}
		if alt := string(v.Text(src)); alt != "" {
			attrs["alt"] = alt
		}
		return []*Node{{Kind: NodeImage, Attrs: attrs}}
	case *ast.FencedCodeBlock:
		var attrs map[string]any
		if lang := string(v.Language(src)); lang != "" {
			attrs = map[string]any{"language": lang}
		}
		return []*Node{{
			Kind:    NodeCodeBlock,
			Attrs:   attrs,
			Content: []*Node{{Kind: NodeText, Text: blockLines(v, src)}},
		}}
	case *ast.CodeBlock:
		return []*Node{{
			Kind:    NodeCodeBlock,
			Content: []*Node{{Kind: NodeText, Text: blockLines(v, src)}},
		}}
	case *ast.Blockquote:
		return []*Node{{Kind: NodeBlockquote, Content: convertChildren(v, src)}}
	case *ast.List:
		kind := NodeBulletList
		var attrs map[string]any
		if v.IsOrdered() {
			kind = NodeOrderedList
			attrs = map[string]any{"start": v.Start}
		}
		return []*Node{{Kind: kind, Attrs: attrs, Content: convertChildren(v, src)}}
	case *ast.ListItem:
		return []*Node{{Kind: NodeListItem, Content: convertChildren(v, src)}}
	case *ast.ThematicBreak:
		return []*Node{{Kind: NodeHorizontalRule}}
	default:
		// Tables, raw HTML and other unhandled constructs degrade to their
		// inline text.
		return convertChildren(n, src)
	}
}

func applyMark(nodes []*Node, mark Mark) {
	for _, n := range nodes {
		if n.Kind == NodeText {
			n.Marks = append(n.Marks, mark)
		}
		applyMark(n.Content, mark)
	}
}

func blockLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

// Markdown serializes the document tree back to markdown source.
func (n *Node) Markdown() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeDoc:
		return joinBlocks(n.Content)
	case NodeParagraph:
		return renderInline(n.Content)
	case NodeHeading:
		level := n.intAttr("level", 1)
		if level < 1 {
			level = 1
		} else if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + renderInline(n.Content)
	case NodeCodeBlock:
		code := n.childText()
		if !strings.HasSuffix(code, "\n") {
			code += "\n"
		}
		lang, _ := n.Attrs["language"].(string)
		return "```" + lang + "\n" + code + "```"
	case NodeBlockquote:
		var sb strings.Builder
		for i, line := range strings.Split(joinBlocks(n.Content), "\n") {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("> " + line)
		}
		return sb.String()
	case NodeBulletList:
		var sb strings.Builder
		for i, item := range n.Content {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("- " + item.Markdown())
		}
		return sb.String()
	case NodeOrderedList:
		start := n.intAttr("start", 1)
		var sb strings.Builder
		for i, item := range n.Content {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("%d. %s", start+i, item.Markdown()))
		}
		return sb.String()
	case NodeListItem:
		return joinBlocks(n.Content)
	case NodeImage:
		src, _ := n.Attrs["src"].(string)
		alt, _ := n.Attrs["alt"].(string)
		return fmt.Sprintf("![%s](%s)", alt, src)
	case NodeHorizontalRule:
		return "---"
	case NodeHardBreak:
		return "\n"
	case NodeText:
		return n.markedText()
	default:
		return renderInline(n.Content)
	}
}

// HTML renders the document to HTML through goldmark.
func (n *Node) HTML() (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(n.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

// PlainText flattens the document to its text content, block-separated by
// newlines. Used for offline indexing and terminal previews.
func (n *Node) PlainText() string {
	if n == nil {
		return ""
	}
	if n.Kind == NodeText {
		return n.Text
	}
	parts := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if t := c.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	sep := "\n"
	if n.Kind == NodeParagraph || n.Kind == NodeHeading || n.Kind == NodeListItem {
		sep = ""
	}
	return strings.Join(parts, sep)
}

// IsEmpty reports whether the document holds no text, images, or code.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	if n.Kind == NodeImage {
		return false
	}
	if strings.TrimSpace(n.Text) != "" {
		return false
	}
	for _, c := range n.Content {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func (n *Node) markedText() string {
	out := n.Text
	var href string
	for _, m := range n.Marks {
		switch m.Type {
		case "code":
			out = "`" + out + "`"
		case "bold":
			out = "**" + out + "**"
		case "italic":
			out = "*" + out + "*"
		case "link":
			href, _ = m.Attrs["href"].(string)
		}
	}
	if href != "" {
		out = "[" + out + "](" + href + ")"
	}
	return out
}

func (n *Node) childText() string {
	var sb strings.Builder
	for _, c := range n.Content {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// intAttr reads an integer attribute, tolerating the float64 that JSON
// round-trips produce.
func (n *Node) intAttr(name string, def int) int {
	switch v := n.Attrs[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func joinBlocks(nodes []*Node) string {
	parts := make([]string, 0, len(nodes))
	for _, b := range nodes {
		parts = append(parts, b.Markdown())
	}
	return strings.Join(parts, "\n\n")
}

func renderInline(nodes []*Node) string {
	var sb strings.Builder
	for _, c := range nodes {
		sb.WriteString(c.Markdown())
	}
	return sb.String()
}
