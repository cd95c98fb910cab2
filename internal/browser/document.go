package browser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cardledger/soldscraper/internal/scraper"
)

// selectionItem exposes one rendered element through scraper.Item
type selectionItem struct {
	sel *goquery.Selection
}

var _ scraper.Item = selectionItem{}

// Text returns the trimmed text of the first element matching selector
func (i selectionItem) Text(selector string) (string, bool) {
	found := i.sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(found.Text())
	return text, text != ""
}

// Attr returns the trimmed attribute of the first element matching selector
func (i selectionItem) Attr(selector, name string) (string, bool) {
	found := i.sel.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	v, ok := found.Attr(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// createDocument creates a goquery document from a reader
func createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse rendered HTML: %w", err)
	}
	return doc, nil
}

// documentItems returns every element matching selector in document order
func documentItems(doc *goquery.Document, selector string) []scraper.Item {
	var items []scraper.Item
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		items = append(items, selectionItem{sel: s})
	})
	return items
}

// ItemsFromHTML parses html and returns the elements matching selector
func ItemsFromHTML(html, selector string) ([]scraper.Item, error) {
	doc, err := createDocument(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return documentItems(doc, selector), nil
}
