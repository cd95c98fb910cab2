package scraper

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSkipsAdAndCapsAtTen(t *testing.T) {
	items := []Item{adItem()}
	for n := 1; n <= 15; n++ {
		items = append(items, goodItem(n))
	}

	got := NewExtractor(EbayMarketplace()).Extract(items)
	require.Len(t, got, 10)
	for i, raw := range got {
		assert.Equal(t, fmt.Sprintf("Pikachu 58/102 Base Set #%d", i+1), raw.Title)
	}
}

func TestExtractAlwaysSkipsFirstItem(t *testing.T) {
	// a perfectly valid first item is still treated as the ad slot
	items := []Item{goodItem(99), goodItem(1)}
	got := NewExtractor(EbayMarketplace()).Extract(items)
	require.Len(t, got, 1)
	assert.Equal(t, "Pikachu 58/102 Base Set #1", got[0].Title)
}

func TestExtractMalformedItemDoesNotUseSlot(t *testing.T) {
	sel := EbayMarketplace().Selectors

	items := []Item{adItem()}
	for n := 1; n <= 11; n++ {
		item := goodItem(n)
		if n == 3 {
			delete(item, sel.Price)
		}
		items = append(items, item)
	}

	got := NewExtractor(EbayMarketplace()).Extract(items)
	require.Len(t, got, 10)
	for _, raw := range got {
		assert.NotEqual(t, "Pikachu 58/102 Base Set #3", raw.Title)
	}
	assert.Equal(t, "Pikachu 58/102 Base Set #11", got[9].Title)
}

func TestExtractDropsIncompleteItems(t *testing.T) {
	sel := EbayMarketplace().Selectors

	missing := []string{sel.SoldDate, sel.Price, sel.Title, sel.Link + "@" + sel.LinkAttr}
	items := []Item{adItem()}
	for i, key := range missing {
		item := goodItem(i + 1)
		delete(item, key)
		items = append(items, item)
	}
	blank := goodItem(7)
	blank[sel.Title] = ""
	unparseable := goodItem(8)
	unparseable[sel.SoldDate] = "Sold recently"
	items = append(items, blank, unparseable)

	assert.Empty(t, NewExtractor(EbayMarketplace()).Extract(items))
}

func TestExtractCleansFields(t *testing.T) {
	sel := EbayMarketplace().Selectors
	item := fakeItem{
		sel.SoldDate:                  "  Sold  Mar 5, 2024 ",
		sel.Price:                     "$1,204.99",
		sel.Title:                     "  Charizard Holo 4/102  ",
		sel.Link + "@" + sel.LinkAttr: "/itm/12345",
	}

	got := NewExtractor(EbayMarketplace()).Extract([]Item{adItem(), item})
	want := []RawListing{{
		SoldDateText: "Mar 5, 2024",
		PriceText:    "1,204.99",
		Title:        "Charizard Holo 4/102",
		ListingURL:   "https://www.ebay.com/itm/12345",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractEmpty(t *testing.T) {
	e := NewExtractor(EbayMarketplace())
	assert.Empty(t, e.Extract(nil))
	assert.Empty(t, e.Extract([]Item{adItem()}))
}

func TestParseSoldDate(t *testing.T) {
	tests := map[string]string{
		"Oct 12, 2024":    "2024-10-12",
		"Oct  2 2024":     "2024-10-02",
		"January 3, 2023": "2023-01-03",
		"7 Feb 2022":      "2022-02-07",
		"2021-12-31":      "2021-12-31",
		"12/31/2020":      "2020-12-31",
	}
	for in, want := range tests {
		got, err := ParseSoldDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSoldDate("yesterday")
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	tests := map[string]float64{
		"12.50":         12.5,
		"1,204.99":      1204.99,
		"7":             7,
		"5.00 to $9.00": 5,
		"3.456":         3.46,
	}
	for in, want := range tests {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.0001, in)
	}

	_, err := ParsePrice("free")
	assert.Error(t, err)
}

func TestClassifyListing(t *testing.T) {
	listing, err := ClassifyListing(RawListing{
		SoldDateText: "Oct 12, 2024",
		PriceText:    "250.00",
		Title:        "Charizard Holo 1st Edition LP",
		ListingURL:   "https://www.ebay.com/itm/1",
	})
	require.NoError(t, err)

	want := Listing{
		SoldDate:      "2024-10-12",
		ItemPrice:     250,
		CardboardType: CardboardFirstEditionHolo,
		Condition:     ConditionLP,
		Title:         "Charizard Holo 1st Edition LP",
		ListingURL:    "https://www.ebay.com/itm/1",
	}
	if diff := cmp.Diff(want, listing); diff != "" {
		t.Errorf("ClassifyListing() mismatch (-want +got):\n%s", diff)
	}

	_, err = ClassifyListing(RawListing{SoldDateText: "soon", PriceText: "1"})
	assert.Error(t, err)
}
