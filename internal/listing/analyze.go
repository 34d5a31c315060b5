package listing

import (
	"fmt"
	"math"
)

// Analysis is the result of a natural-language filter over the dataset.
type Analysis struct {
	Interpretation string    `json:"query_interpretation"`
	Filter         Filter    `json:"filters"`
	FilterSource   string    `json:"filter_source"`
	Matches        []Listing `json:"matches"`
	TotalMatches   int       `json:"total_matches"`
	Summary        string    `json:"summary"`
}

// Range is the span of a numeric column.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PortfolioStats describes the whole dataset.
type PortfolioStats struct {
	TotalProperties int     `json:"total_properties"`
	AvgSizeSF       float64 `json:"avg_size_sf"`
	AvgRentPerSF    float64 `json:"avg_rent_per_sf"`
	AvgGCI3Years    float64 `json:"avg_gci_3_years"`
	SizeRange       Range   `json:"size_range"`
	RentRange       Range   `json:"rent_range"`
}

// Dataset is an immutable set of listings.
type Dataset struct {
	listings []Listing
}

// NewDataset wraps listings.
func NewDataset(listings []Listing) *Dataset {
	return &Dataset{listings: listings}
}

// Len returns the number of listings.
func (d *Dataset) Len() int { return len(d.listings) }

// Filter applies f. limit caps the returned matches; zero or less returns all
// of them. TotalMatches always counts every match.
func (d *Dataset) Filter(f Filter, limit int) Analysis {
	matches := f.Apply(d.listings)
	a := Analysis{
		Interpretation: f.Describe(),
		Filter:         f,
		TotalMatches:   len(matches),
		Summary:        summarize(matches),
		Matches:        matches,
	}
	if a.Filter == nil {
		a.Filter = Filter{}
	}
	if limit > 0 && len(a.Matches) > limit {
		a.Matches = a.Matches[:limit]
	}
	return a
}

// Stats reports averages and ranges over every listing.
func (d *Dataset) Stats() PortfolioStats {
	st := PortfolioStats{TotalProperties: len(d.listings)}
	if len(d.listings) == 0 {
		return st
	}
	st.SizeRange = Range{Min: math.Inf(1), Max: math.Inf(-1)}
	st.RentRange = st.SizeRange
	var size, rent, gci float64
	for _, l := range d.listings {
		size += l.SizeSF
		rent += l.RentPerSF
		gci += l.GCIValue
		st.SizeRange.Min = min(st.SizeRange.Min, l.SizeSF)
		st.SizeRange.Max = max(st.SizeRange.Max, l.SizeSF)
		st.RentRange.Min = min(st.RentRange.Min, l.RentPerSF)
		st.RentRange.Max = max(st.RentRange.Max, l.RentPerSF)
	}
	n := float64(len(d.listings))
	st.AvgSizeSF = size / n
	st.AvgRentPerSF = rent / n
	st.AvgGCI3Years = gci / n
	return st
}

func summarize(matches []Listing) string {
	if len(matches) == 0 {
		return "No properties match your criteria."
	}
	var size, rent, gci float64
	for _, m := range matches {
		size += m.SizeSF
		rent += m.RentPerSF
		gci += m.GCIValue
	}
	n := float64(len(matches))
	return fmt.Sprintf(
		"Found %d matching properties totalling %.0f SF. Average size %.0f SF, average rent $%.2f/SF/year, average GCI (3 years) $%.2f.",
		len(matches), size, size/n, rent/n, gci/n,
	)
}
