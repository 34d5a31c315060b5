// Package criteria turns free-text real-estate queries into numeric
// constraints and checks listing text against them.
package criteria

import (
	"regexp"
	"strconv"
	"strings"

	"crerag/internal/domain"
)

const unitPattern = `\s*(?:sf|sq\.?\s*ft\.?|sqft|square\s+f(?:ee|oo)t)\b`

// Phrasings per constraint, tried in order. The first match wins.
var (
	minSizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\babove\s+([\d,]+)` + unitPattern),
		regexp.MustCompile(`(?i)\bover\s+([\d,]+)` + unitPattern),
		regexp.MustCompile(`(?i)\bmore\s+than\s+([\d,]+)` + unitPattern),
		regexp.MustCompile(`(?i)\bgreater\s+than\s+([\d,]+)` + unitPattern),
		regexp.MustCompile(`(?i)\blarger\s+than\s+([\d,]+)` + unitPattern),
		regexp.MustCompile(`(?i)>\s*([\d,]+)` + unitPattern),
	}
	maxRentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbelow\s+\$\s*([\d,]+)`),
		regexp.MustCompile(`(?i)\bunder\s+\$\s*([\d,]+)`),
		regexp.MustCompile(`(?i)\bless\s+than\s+\$\s*([\d,]+)`),
		regexp.MustCompile(`(?i)\bcheaper\s+than\s+\$\s*([\d,]+)`),
		regexp.MustCompile(`(?i)<\s*\$\s*([\d,]+)`),
	}
)

// Extract parses query for size and rent constraints. It never fails;
// phrasings it does not recognise simply produce no criteria.
func Extract(query string) domain.Criteria {
	c := domain.Criteria{}
	if v, ok := firstMatch(minSizePatterns, query); ok {
		c[domain.CriterionMinSize] = v
	}
	if v, ok := firstMatch(maxRentPatterns, query); ok {
		c[domain.CriterionMaxRent] = v
	}
	return c
}

func firstMatch(patterns []*regexp.Regexp, text string) (int, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return parseInt(m[1])
	}
	return 0, false
}

// parseInt strips thousands separators before parsing.
func parseInt(s string) (int, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
