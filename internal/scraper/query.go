package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cardledger/soldscraper/helpers"
)

const deltaGlyph = "δ"

// QueryBuilder turns card identity into a marketplace search
type QueryBuilder struct {
	market Marketplace
}

// NewQueryBuilder creates a query builder bound to one marketplace
func NewQueryBuilder(market Marketplace) *QueryBuilder {
	return &QueryBuilder{market: market.clone()}
}

// Build derives the search keywords and exclusion terms for q.
// q is expected to be validated already.
func (b *QueryBuilder) Build(q CardQuery) SearchSpecification {
	name := strings.ReplaceAll(q.Name, deltaGlyph, "Delta Species")

	var keywords string
	if b.isJapanese(q.UniqueID) {
		keywords = fmt.Sprintf("%s %s Japanese", name, q.SetName)
	} else {
		keywords = fmt.Sprintf("%s %s/%s %s", name, q.Number, q.SetPrintedTotal, q.SetName)
	}

	return SearchSpecification{
		Keywords:       keywords,
		ExclusionTerms: b.exclusions(q.SetName),
	}
}

func (b *QueryBuilder) isJapanese(uniqueID string) bool {
	prefix, err := helpers.GetSplitPart(uniqueID, b.market.IDSeparator, 0)
	if err != nil {
		return false
	}
	return strings.HasSuffix(prefix, b.market.JapaneseMarker)
}

func (b *QueryBuilder) exclusions(setName string) []string {
	terms := append([]string(nil), b.market.DefaultExclusions...)

	switch {
	case setName == b.market.BaseSetName:
		terms = append(terms, "1st", "First", "shadowless", "1ed")
	case strings.Contains(setName, b.market.JapaneseMarker):
		terms = append(terms, "1st", "First", "1ed")
	}
	return terms
}

// BuildURL renders the sold-listings search URL for spec
func (b *QueryBuilder) BuildURL(spec SearchSpecification) string {
	m := b.market
	return m.BaseURL +
		"&_nkw=" + encodeComponent(spec.Query()) +
		m.Category +
		m.TitleDesc +
		m.Relevance +
		m.SoldComplete
}

// encodeComponent percent-encodes s for use as a single query value,
// spaces as %20 rather than '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
