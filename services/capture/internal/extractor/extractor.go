package extractor

import (
	"bytes"
	"strings"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultSelectors lists content regions in priority order: job-description
// containers first, then semantic landmarks, then generic content wrappers.
var DefaultSelectors = []string{
	"[itemtype*='JobPosting']",
	"[class*='job-description']",
	"[id*='job-description']",
	"[class*='jobDescription']",
	"[id*='jobDescription']",
	"[class*='job-details']",
	"[data-testid*='jobDescription']",
	"article",
	"main",
	"[role='main']",
	"#content",
	".content",
}

// Extractor turns a page's HTML into a PageDocument.
type Extractor struct {
	selectors []string
	maxChars  int
}

func New(maxChars int, selectors ...string) *Extractor {
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}
	return &Extractor{
		selectors: selectors,
		maxChars:  maxChars,
	}
}

// Extract parses rawHTML fresh on each call, so the caller's page snapshot
// is never modified and repeated calls yield identical documents.
func (e *Extractor) Extract(pageURL string, rawHTML []byte) (*models.PageDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, errors.Extraction("could not parse page content", err)
	}
	return e.ExtractDocument(pageURL, doc), nil
}

func (e *Extractor) ExtractDocument(pageURL string, doc *goquery.Document) *models.PageDocument {
	return &models.PageDocument{
		URL:             pageURL,
		Title:           collapseSpaces(doc.Find("title").First().Text()),
		BodyText:        truncate(normalizeText(e.bodyText(doc)), e.maxChars),
		MetaDescription: metaDescription(doc),
	}
}

// bodyText returns the text of the first selector whose matches render any
// visible text, falling back to the whole body.
func (e *Extractor) bodyText(doc *goquery.Document) string {
	for _, selector := range e.selectors {
		matches := doc.Find(selector)
		if matches.Length() == 0 {
			continue
		}
		// Nested matches of the same selector would repeat their text.
		outermost := matches.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(selector).Length() == 0
		})
		text := visibleText(outermost.Nodes)
		if strings.TrimSpace(text) != "" {
			return text
		}
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return visibleText([]*html.Node{doc.Selection.Nodes[0]})
	}
	return visibleText(body.Nodes)
}

func metaDescription(doc *goquery.Document) string {
	description := ""
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(name, "description") {
			return true
		}
		description, _ = s.Attr("content")
		return false
	})
	return description
}
