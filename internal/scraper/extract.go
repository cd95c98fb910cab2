package scraper

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	amountRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

	soldDateLayouts = []string{
		"Jan 2, 2006",
		"Jan 2 2006",
		"January 2, 2006",
		"January 2 2006",
		"2 Jan 2006",
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
	}
)

// Extractor reads raw listings out of rendered result items
type Extractor struct {
	selectors   Selectors
	soldPrefix  string
	currency    string
	skipLeading int
	maxListings int
	base        *url.URL
}

// NewExtractor creates an extractor for market's result page layout
func NewExtractor(market Marketplace) *Extractor {
	base, _ := url.Parse(market.BaseURL)
	return &Extractor{
		selectors:   market.Selectors,
		soldPrefix:  market.SoldPrefix,
		currency:    market.Currency,
		skipLeading: market.SkipLeading,
		maxListings: market.MaxListings,
		base:        base,
	}
}

// Extract skips the leading advertisement slot and collects up to the
// listing cap of complete items in rendered order. Incomplete items are
// dropped without using up a slot.
func (e *Extractor) Extract(items []Item) []RawListing {
	var listings []RawListing
	for i := e.skipLeading; i < len(items) && len(listings) < e.maxListings; i++ {
		raw, ok := e.extractItem(items[i])
		if !ok {
			continue
		}
		listings = append(listings, raw)
	}
	return listings
}

func (e *Extractor) extractItem(item Item) (RawListing, bool) {
	soldDate, ok := item.Text(e.selectors.SoldDate)
	if !ok {
		return RawListing{}, false
	}
	price, ok := item.Text(e.selectors.Price)
	if !ok {
		return RawListing{}, false
	}
	title, ok := item.Text(e.selectors.Title)
	if !ok {
		return RawListing{}, false
	}
	link, ok := item.Attr(e.selectors.Link, e.selectors.LinkAttr)
	if !ok {
		return RawListing{}, false
	}

	raw := RawListing{
		SoldDateText: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(soldDate), e.soldPrefix)),
		PriceText:    strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(price), e.currency)),
		Title:        strings.TrimSpace(title),
		ListingURL:   e.resolve(strings.TrimSpace(link)),
	}

	// unreadable dates or prices count as missing fields
	if _, err := ParseSoldDate(raw.SoldDateText); err != nil {
		return RawListing{}, false
	}
	if _, err := ParsePrice(raw.PriceText); err != nil {
		return RawListing{}, false
	}
	return raw, true
}

func (e *Extractor) resolve(link string) string {
	if e.base == nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return e.base.ResolveReference(ref).String()
}

// ParseSoldDate reads a sold-date caption and returns it as YYYY-MM-DD
func ParseSoldDate(text string) (string, error) {
	text = strings.Join(strings.Fields(text), " ")
	for _, layout := range soldDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognised sold date %q", text)
}

// ParsePrice reads the first amount in text, rounded to cents
func ParsePrice(text string) (float64, error) {
	m := amountRe.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no amount in price %q", text)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return math.Round(v*100) / 100, nil
}
