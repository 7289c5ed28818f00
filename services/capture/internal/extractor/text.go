package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	hiddenStyleRun = regexp.MustCompile(`(?i)(display\s*:\s*none|visibility\s*:\s*hidden)`)
)

// skipped elements never contribute visible text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Head:     true,
}

// block elements are rendered on their own line.
var block = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true, atom.Body: true,
}

// visibleText approximates innerText: text of rendered nodes, with block
// elements on separate lines and table cells separated by spaces.
func visibleText(nodes []*html.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeVisible(&b, n)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeVisible(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] || isHidden(n) {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	if n.DataAtom == atom.Br {
		b.WriteByte('\n')
		return
	}

	isBlock := block[n.DataAtom]
	if isBlock {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisible(b, c)
	}
	switch {
	case isBlock:
		b.WriteByte('\n')
	case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
		b.WriteByte(' ')
	}
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "style":
			if hiddenStyleRun.MatchString(a.Val) {
				return true
			}
		}
	}
	return false
}

// normalizeText collapses every whitespace run, line breaks included, to one
// space and trims the ends, so body text always comes out on a single line.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncate cuts text to at most max characters (runes), never splitting a rune.
func truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}

// collapseSpaces is the document.title normalization: all whitespace runs
// become a single space.
func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
