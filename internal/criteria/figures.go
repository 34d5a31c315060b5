package criteria

import (
	"regexp"
	"strconv"
	"strings"

	"crerag/internal/domain"
)

// Listing chunks are rendered as "... offers 20,000 SF at $87.00 per year. ..."
var (
	chunkSizeRe = regexp.MustCompile(`(?i)\boffers\s+([\d,]+(?:\.\d+)?)\s*SF\b`)
	chunkRentRe = regexp.MustCompile(`(?i)\bat\s+\$\s*([\d,]+(?:\.\d+)?)\s+per\s+year\b`)
)

// Figures are the numbers detected in a chunk. A nil field means the chunk
// carries no detectable figure of that kind.
type Figures struct {
	SizeSF *float64
	Rent   *float64
}

// ParseFigures reads the size and rent figures embedded in chunk text.
func ParseFigures(text string) Figures {
	var f Figures
	if m := chunkSizeRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseFloat(m[1]); ok {
			f.SizeSF = &v
		}
	}
	if m := chunkRentRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseFloat(m[1]); ok {
			f.Rent = &v
		}
	}
	return f
}

// Matches reports whether text satisfies c. A chunk is rejected only on
// evidence: a detected size at or below min_size, or a detected rent at or
// above max_rent.
func Matches(c domain.Criteria, text string) bool {
	if c.Empty() {
		return true
	}
	f := ParseFigures(text)
	if minSize, ok := c.MinSize(); ok && f.SizeSF != nil && *f.SizeSF <= float64(minSize) {
		return false
	}
	if maxRent, ok := c.MaxRent(); ok && f.Rent != nil && *f.Rent >= float64(maxRent) {
		return false
	}
	return true
}

func parseFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
