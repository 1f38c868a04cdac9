package richtext

import (
	"html/template"
	"testing"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want template.HTML
	}{
		{
			name: "plain text",
			raw:  "  How do I reverse a list?  ",
			want: "How do I reverse a list?",
		},
		{
			name: "plain text is escaped",
			raw:  "<script>alert(1)</script>",
			want: "&lt;script&gt;alert(1)&lt;/script&gt;",
		},
		{
			name: "empty",
			raw:  "   ",
			want: "",
		},
		{
			name: "paragraph with marks",
			raw:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":[{"type":"bold"}]},{"type":"text","text":" there","marks":[{"type":"italic"},{"type":"code"}]}]}]}`,
			want: "<p><strong>hi</strong><code><em> there</em></code></p>",
		},
		{
			name: "truncated preview suffix is stripped before parsing",
			raw:  `{"type":"paragraph","content":[{"type":"text","text":"x"}]}...`,
			want: "<p>x</p>",
		},
		{
			name: "top-level array",
			raw:  `[{"type":"paragraph","content":[{"type":"text","text":"a"}]},{"type":"hardBreak"}]`,
			want: "<p>a</p><br/>",
		},
		{
			name: "heading default and explicit level",
			raw:  `{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"A"}]},{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"B"}]}]}`,
			want: "<h1>A</h1><h3>B</h3>",
		},
		{
			name: "heading level out of range falls back to 1",
			raw:  `{"type":"heading","attrs":{"level":9},"content":[{"type":"text","text":"A"}]}`,
			want: "<h1>A</h1>",
		},
		{
			name: "lists and quotes",
			raw:  `{"type":"doc","content":[{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"text","text":"1"}]}]},{"type":"orderedList","content":[{"type":"listItem","content":[{"type":"text","text":"2"}]}]},{"type":"blockquote","content":[{"type":"text","text":"q"}]}]}`,
			want: "<ul><li>1</li></ul><ol><li>2</li></ol><blockquote>q</blockquote>",
		},
		{
			name: "code block",
			raw:  `{"type":"codeBlock","content":[{"type":"text","text":"a < b"}]}`,
			want: "<pre><code>a &lt; b</code></pre>",
		},
		{
			name: "image with and without src",
			raw:  `{"type":"doc","content":[{"type":"image","attrs":{"src":"https://x.io/a.png","alt":"a\"b"}},{"type":"image","attrs":{}}]}`,
			want: `<img src="https://x.io/a.png" alt="a&#34;b" style="max-width:100%; height:auto;" />`,
		},
		{
			name: "link with script scheme is neutralized",
			raw:  `{"type":"link","attrs":{"href":"javascript:alert(1)"},"text":"click"}`,
			want: `<a href="" target="_blank">click</a>`,
		},
		{
			name: "unknown node recurses into children",
			raw:  `{"type":"mention","content":[{"type":"text","text":"@bob"}]}`,
			want: "@bob",
		},
		{
			name: "malformed json falls back to text",
			raw:  `{"type":`,
			want: "{&#34;type&#34;:",
		},
		{
			name: "tree rendering to nothing falls back to text",
			raw:  `{"type":"doc"}`,
			want: "{&#34;type&#34;:&#34;doc&#34;}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview(tt.raw)
			if got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if _, ok := Parse("plain"); ok {
		t.Error("plain text should not parse")
	}

	n, ok := Parse(`{"type":"doc","content":[{"type":"text","text":"x"}]}`)
	if !ok {
		t.Fatal("expected document to parse")
	}
	if n.Type != "doc" || len(n.Content) != 1 || n.Content[0].Text != "x" {
		t.Errorf("unexpected tree: %+v", n)
	}
}
