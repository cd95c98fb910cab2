package scraper

// Selectors contains CSS selectors for the sold-listing result page
type Selectors struct {
	Item     string
	SoldDate string
	Price    string
	Title    string
	Link     string
	LinkAttr string
}

// Marketplace describes a search endpoint and how to read its result page.
// Values are copied on use, so a Marketplace is never shared mutable state.
type Marketplace struct {
	Name              string
	BaseURL           string
	Category          string
	TitleDesc         string
	Relevance         string
	SoldComplete      string
	DefaultExclusions []string

	// BaseSetName triggers first-edition and shadowless exclusions
	BaseSetName string
	// JapaneseMarker is the suffix of the unique id prefix for Japanese cards
	JapaneseMarker string
	// IDSeparator splits the unique id into set prefix and card number
	IDSeparator string

	Selectors   Selectors
	SoldPrefix  string
	Currency    string
	SkipLeading int
	MaxListings int
}

// EbayMarketplace returns the eBay sold-listings configuration
func EbayMarketplace() Marketplace {
	return Marketplace{
		Name:         "ebay",
		BaseURL:      "https://www.ebay.com/sch/i.html?_from=R40",
		Category:     "&_sacat=183454",
		TitleDesc:    "&LH_TitleDesc=1",
		Relevance:    "&rt=nc",
		SoldComplete: "&LH_Sold=1&LH_Complete=1",
		DefaultExclusions: []string{
			"Graded", "Grade", "PGO", "CGC", "BGS", "PSA",
			"Pick", "Singles", "Choose", "Sealed",
			"Korean", "italian", "german", "signed", "Gem",
		},
		BaseSetName:    "Base",
		JapaneseMarker: "jp",
		IDSeparator:    "-",
		Selectors: Selectors{
			Item:     "div.s-item__info.clearfix",
			SoldDate: ".s-item__caption--row span span",
			Price:    ".s-item__price span.POSITIVE",
			Title:    `.s-item__title span[role="heading"]`,
			Link:     ".s-item__link",
			LinkAttr: "href",
		},
		SoldPrefix:  "Sold ",
		Currency:    "$",
		SkipLeading: 1,
		MaxListings: 10,
	}
}

// WithBaseURL returns a copy pointing at a different search endpoint
func (m Marketplace) WithBaseURL(baseURL string) Marketplace {
	if baseURL != "" {
		m.BaseURL = baseURL
	}
	return m
}

func (m Marketplace) clone() Marketplace {
	m.DefaultExclusions = append([]string(nil), m.DefaultExclusions...)
	return m
}
