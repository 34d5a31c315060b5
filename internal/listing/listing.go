// Package listing reads the tabular property dataset and renders rows as
// the sentences the knowledge base indexes.
package listing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names of the property dataset.
const (
	ColSuite       = "Suite"
	ColAddress     = "Property Address"
	ColFloor       = "Floor"
	ColSize        = "Size (SF)"
	ColRent        = "Rent/SF/Year"
	ColMonthlyRent = "Monthly Rent"
	ColAnnualRent  = "Annual Rent"
	ColGCI         = "GCI On 3 Years"
	ColAssociate1  = "Associate 1"
	ColAssociate2  = "Associate 2"
	ColAssociate3  = "Associate 3"
	ColAssociate4  = "Associate 4"
	ColBrokerEmail = "BROKER Email ID"
)

// requiredColumns identify a CSV as a listing export.
var requiredColumns = []string{ColSuite, ColAddress, ColSize, ColRent}

// Listing is one row of the dataset. Money and size columns keep their
// original text for rendering alongside the parsed values.
type Listing struct {
	Suite       string    `json:"suite"`
	Address     string    `json:"property_address"`
	Floor       string    `json:"floor"`
	Size        string    `json:"size"`
	Rent        string    `json:"rent_per_sf_year"`
	MonthlyRent string    `json:"monthly_rent"`
	AnnualRent  string    `json:"annual_rent"`
	GCI         string    `json:"gci_3_years"`
	Associates  [4]string `json:"associates"`
	BrokerEmail string    `json:"broker_email"`

	SizeSF    float64 `json:"size_sf"`
	RentPerSF float64 `json:"rent_per_sf"`
	GCIValue  float64 `json:"gci_value"`
}

// ErrNotListingCSV is returned when the header lacks the listing columns.
var ErrNotListingCSV = errors.New("csv header is not a listing export")

// IsListingHeader reports whether header carries the listing columns.
func IsListingHeader(header []string) bool {
	cols := columnIndex(header)
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return false
		}
	}
	return true
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return cols
}

// ParseCSV reads listings from r. The first record must be a listing header.
func ParseCSV(r io.Reader) ([]Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !IsListingHeader(header) {
		return nil, ErrNotListingCSV
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return FromRecords(header, records), nil
}

// FromRecords maps already-parsed CSV records onto listings. Blank rows are skipped.
func FromRecords(header []string, records [][]string) []Listing {
	cols := columnIndex(header)
	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	out := make([]Listing, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}
		l := Listing{
			Suite:       get(rec, ColSuite),
			Address:     get(rec, ColAddress),
			Floor:       get(rec, ColFloor),
			Size:        get(rec, ColSize),
			Rent:        get(rec, ColRent),
			MonthlyRent: get(rec, ColMonthlyRent),
			AnnualRent:  get(rec, ColAnnualRent),
			GCI:         get(rec, ColGCI),
			Associates: [4]string{
				get(rec, ColAssociate1), get(rec, ColAssociate2),
				get(rec, ColAssociate3), get(rec, ColAssociate4),
			},
			BrokerEmail: get(rec, ColBrokerEmail),
		}
		l.SizeSF = ParseAmount(l.Size)
		l.RentPerSF = ParseAmount(l.Rent)
		l.GCIValue = ParseAmount(l.GCI)
		out = append(out, l)
	}
	return out
}

// LoadCSV reads the dataset at path.
func LoadCSV(path string) ([]Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

var amountCleaner = strings.NewReplacer("$", "", ",", "", `"`, "")

// ParseAmount strips currency symbols, separators and quotes. Unparseable
// values are zero.
func ParseAmount(s string) float64 {
	s = amountCleaner.Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Format renders a listing as an indexable sentence. The size and rent
// phrases ("offers N SF", "at $N per year") are what criteria filtering
// reads back.
func Format(l Listing) string {
	rent := l.Rent
	if rent != "" && !strings.HasPrefix(rent, "$") {
		rent = "$" + rent
	}
	return fmt.Sprintf(
		"Suite %s at %s (Floor %s) offers %s SF at %s per year. "+
			"Monthly rent is %s. Annual rent is %s. GCI on 3 years is %s. "+
			"Handled by %s (Email: %s), with support from %s, %s, and %s.",
		l.Suite, l.Address, l.Floor, l.Size, rent,
		l.MonthlyRent, l.AnnualRent, l.GCI,
		l.Associates[0], l.BrokerEmail, l.Associates[1], l.Associates[2], l.Associates[3],
	)
}
