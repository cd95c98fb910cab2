package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// CardQuery identifies the card whose sold listings are scraped
type CardQuery struct {
	Name            string `json:"name"`
	Number          string `json:"number"`
	SetPrintedTotal string `json:"set_printedTotal"`
	SetName         string `json:"set_name"`
	UniqueID        string `json:"unique_id"`
}

// UnmarshalJSON accepts each field as a string or a number, since catalogue
// rows carry set totals and collector numbers as integers
func (q *CardQuery) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            flexString `json:"name"`
		Number          flexString `json:"number"`
		SetPrintedTotal flexString `json:"set_printedTotal"`
		SetName         flexString `json:"set_name"`
		UniqueID        flexString `json:"unique_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = CardQuery{
		Name:            string(raw.Name),
		Number:          string(raw.Number),
		SetPrintedTotal: string(raw.SetPrintedTotal),
		SetName:         string(raw.SetName),
		UniqueID:        string(raw.UniqueID),
	}
	return nil
}

// flexString decodes a JSON string or number; null leaves it empty
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// Validate returns a validation error naming every missing field
func (q CardQuery) Validate() error {
	fields := []struct {
		key   string
		value string
	}{
		{"name", q.Name},
		{"number", q.Number},
		{"set_printedTotal", q.SetPrintedTotal},
		{"set_name", q.SetName},
		{"unique_id", q.UniqueID},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidation("card_query",
			"Missing required card data parameters: "+strings.Join(missing, ", "))
	}
	return nil
}

// SearchSpecification is the marketplace search derived from one CardQuery
type SearchSpecification struct {
	Keywords       string
	ExclusionTerms []string
}

// Query renders the keywords followed by every exclusion term negated with "-"
func (s SearchSpecification) Query() string {
	var b strings.Builder
	b.WriteString(s.Keywords)
	for _, term := range s.ExclusionTerms {
		b.WriteString(" -")
		b.WriteString(term)
	}
	return b.String()
}

// RawListing holds the text read from one rendered result item
type RawListing struct {
	SoldDateText string
	PriceText    string
	Title        string
	ListingURL   string
}

// CardboardType is the finish or printing variant of a card
type CardboardType string

const (
	CardboardNormal             CardboardType = "Normal"
	CardboardReverse            CardboardType = "Reverse"
	CardboardHolofoil           CardboardType = "Holofoil"
	CardboardFirstEditionHolo   CardboardType = "1st Edition Holofoil"
	CardboardFirstEditionNormal CardboardType = "1st Edition Normal"
)

// Condition is a coarse used-item grade
type Condition string

const (
	ConditionNM Condition = "NM"
	ConditionLP Condition = "LP"
	ConditionMP Condition = "MP"
	ConditionHP Condition = "HP"
)

// Listing is a classified sold listing
type Listing struct {
	SoldDate      string        `json:"soldDate"`
	ItemPrice     float64       `json:"itemPrice"`
	CardboardType CardboardType `json:"cardboardType"`
	Condition     Condition     `json:"condition"`
	Title         string        `json:"title"`
	ListingURL    string        `json:"listing_url"`
}

// ScrapeResult is the output of one scrape
type ScrapeResult struct {
	Data      []Listing `json:"data"`
	SourceURL string    `json:"source_url"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON keeps "data" an array even when nothing was found
func (r ScrapeResult) MarshalJSON() ([]byte, error) {
	type alias ScrapeResult
	out := alias(r)
	if out.Data == nil {
		out.Data = []Listing{}
	}
	out.Timestamp = out.Timestamp.UTC()
	return json.Marshal(out)
}
