package htmlutil

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Thin wrappers over goquery. All scrape heuristics live in the scraper
// package; this package only locates structure.

type Link struct {
	Text string
	Href string
}

func Parse(data []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(data))
}

// Tables returns every <table> in the document, in document order.
func Tables(doc *goquery.Document) []*goquery.Selection {
	var tables []*goquery.Selection
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		tables = append(tables, s)
	})
	return tables
}

// Links returns the anchors under the selection.
func Links(sel *goquery.Selection) []Link {
	var links []Link
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		links = append(links, Link{Text: CellText(a), Href: href})
	})
	return links
}

// InfoboxField looks up a row of an infobox-style table by its leftmost
// header label, case-insensitively, and returns the value cell's text.
func InfoboxField(table *goquery.Selection, label string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(label))
	var value string
	var found bool

	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		header := tr.Find("th").First()
		if header.Length() == 0 {
			return true
		}
		if strings.ToLower(CellText(header)) != want {
			return true
		}
		cell := tr.Find("td").First()
		if cell.Length() == 0 {
			return true
		}
		value = CellText(cell)
		found = true
		return false
	})

	return value, found
}

// CellText returns the selection's text with NBSPs folded and whitespace
// trimmed.
func CellText(sel *goquery.Selection) string {
	text := strings.ReplaceAll(sel.Text(), " ", " ")
	return strings.TrimSpace(text)
}

// AbsoluteURL resolves href against base. Returns the empty string when
// either side is unparseable.
func AbsoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}
