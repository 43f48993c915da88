package websearch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips markup, scripts and boilerplate from an HTML
// fragment and collapses whitespace. Plain text passes through with
// only whitespace normalization.
func CleanHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<>") {
		return collapseWhitespace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseWhitespace(fragment)
	}

	doc.Find("script, style, nav, footer, iframe, noscript").Remove()

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
