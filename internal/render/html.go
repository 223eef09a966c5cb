package render

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/docredact/internal/model"
)

const stylesheet = `body { font-family: Arial, sans-serif; margin: 40px; line-height: 1.6; }
.paragraph { margin-bottom: 15px; white-space: pre-wrap; }
.empty { min-height: 1em; }`

// HTML writes a standalone HTML page with one div per paragraph.
// Empty paragraphs are kept so the page mirrors the document's spacing.
// The tree is built node by node, so paragraph text is always escaped.
func HTML(w io.Writer, title string, paragraphs []model.Paragraph) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	titleNode := element(atom.Title)
	titleNode.AppendChild(text(title))
	head.AppendChild(titleNode)
	style := element(atom.Style)
	style.AppendChild(text(stylesheet))
	head.AppendChild(style)
	root.AppendChild(head)

	body := element(atom.Body)
	if title != "" {
		h1 := element(atom.H1)
		h1.AppendChild(text(title))
		body.AppendChild(h1)
	}
	for _, p := range paragraphs {
		class := "paragraph"
		if p.FlatText == "" {
			class += " empty"
		}
		div := element(atom.Div,
			html.Attribute{Key: "class", Val: class},
			html.Attribute{Key: "data-paragraph", Val: itoa(p.ID)},
		)
		if p.FlatText != "" {
			div.AppendChild(text(p.FlatText))
		}
		body.AppendChild(div)
	}
	root.AppendChild(body)

	return html.Render(w, doc)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
