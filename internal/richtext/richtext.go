// Package richtext renders the editor's JSON document tree (TipTap /
// ProseMirror format) into a small, escaped HTML fragment for email previews.
package richtext

import (
	"encoding/json"
	"html/template"
	"net/url"
	"strconv"
	"strings"
)

// Node is one element of a document tree.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
}

// Mark is inline formatting applied to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes raw as a document tree. A top-level array is wrapped in a
// "doc" node. The boolean is false when raw is not a JSON document.
func Parse(raw string) (*Node, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	switch raw[0] {
	case '{':
		var n Node
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, false
		}
		return &n, true
	case '[':
		var children []*Node
		if err := json.Unmarshal([]byte(raw), &children); err != nil {
			return nil, false
		}
		return &Node{Type: "doc", Content: children}, true
	}
	return nil, false
}

// Preview renders stored content for a notification. Previews truncated with
// a trailing "..." are trimmed first; content that is not a document tree, or
// whose tree renders to nothing, is shown as escaped plain text.
func Preview(raw string) template.HTML {
	clean := strings.TrimSpace(raw)
	if strings.HasSuffix(clean, "...") {
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "..."))
	}
	if clean == "" {
		return ""
	}

	if n, ok := Parse(clean); ok {
		if out := RenderHTML(n); out != "" {
			return out
		}
	}
	return template.HTML(template.HTMLEscapeString(clean))
}

// RenderHTML renders a tree. All text and attribute values are escaped and
// link targets are limited to http, https and mailto.
func RenderHTML(n *Node) template.HTML {
	var b strings.Builder
	render(&b, n)
	return template.HTML(b.String())
}

func render(b *strings.Builder, n *Node) {
	if n == nil {
		return
	}

	switch n.Type {
	case "text":
		renderText(b, n)
	case "paragraph":
		wrap(b, "p", n)
	case "heading":
		wrap(b, "h"+strconv.Itoa(headingLevel(n)), n)
	case "blockquote":
		wrap(b, "blockquote", n)
	case "orderedList":
		wrap(b, "ol", n)
	case "bulletList":
		wrap(b, "ul", n)
	case "listItem":
		wrap(b, "li", n)
	case "codeBlock":
		b.WriteString("<pre>")
		wrap(b, "code", n)
		b.WriteString("</pre>")
	case "hardBreak":
		b.WriteString("<br/>")
	case "image":
		src := safeURL(attr(n.Attrs, "src"))
		if src == "" {
			return
		}
		b.WriteString(`<img src="`)
		b.WriteString(template.HTMLEscapeString(src))
		b.WriteString(`" alt="`)
		b.WriteString(template.HTMLEscapeString(attr(n.Attrs, "alt")))
		b.WriteString(`" style="max-width:100%; height:auto;" />`)
	case "link":
		b.WriteString(`<a href="`)
		b.WriteString(template.HTMLEscapeString(safeURL(attr(n.Attrs, "href"))))
		b.WriteString(`" target="_blank">`)
		b.WriteString(template.HTMLEscapeString(n.Text))
		b.WriteString("</a>")
	default:
		children(b, n)
	}
}

func wrap(b *strings.Builder, tag string, n *Node) {
	b.WriteString("<" + tag + ">")
	children(b, n)
	b.WriteString("</" + tag + ">")
}

func children(b *strings.Builder, n *Node) {
	for _, c := range n.Content {
		render(b, c)
	}
}

func renderText(b *strings.Builder, n *Node) {
	text := template.HTMLEscapeString(n.Text)
	for _, m := range n.Marks {
		switch m.Type {
		case "bold":
			text = "<strong>" + text + "</strong>"
		case "italic":
			text = "<em>" + text + "</em>"
		case "code":
			text = "<code>" + text + "</code>"
		case "link":
			text = `<a href="` + template.HTMLEscapeString(safeURL(attr(m.Attrs, "href"))) + `" target="_blank">` + text + "</a>"
		}
	}
	b.WriteString(text)
}

// headingLevel returns attrs.level clamped to 1..6, defaulting to 1.
func headingLevel(n *Node) int {
	level := 1
	switch v := n.Attrs["level"].(type) {
	case float64:
		level = int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			level = i
		}
	}
	if level < 1 || level > 6 {
		return 1
	}
	return level
}

func attr(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

// safeURL drops URLs whose scheme could run script in a mail client.
func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return raw
	}
	return ""
}
