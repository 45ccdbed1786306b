package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Elements that introduce a paragraph break in the extracted text.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "header": {}, "footer": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "tr": {}, "br": {}, "blockquote": {}, "pre": {},
}

var skipElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "head": {},
}

// extractHTML strips markup while keeping paragraph boundaries so the chunker
// can still prefer breaking between blocks.
func extractHTML(content []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(decodeText(content)))
	if err != nil {
		return "", fmt.Errorf("invalid html: %w", err)
	}

	var b strings.Builder
	walkHTML(doc, &b)
	return b.String(), nil
}

func walkHTML(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if _, skip := skipElements[n.Data]; skip {
			return
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, b)
	}

	if n.Type == html.ElementNode {
		if _, block := blockElements[n.Data]; block {
			b.WriteString("\n\n")
		}
	}
}
