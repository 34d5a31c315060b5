package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crerag/internal/domain"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.Criteria
	}{
		{"above with separator", "Properties above 15,000 SF", domain.Criteria{"min_size": 15000}},
		{"over", "anything over 8000 sf downtown?", domain.Criteria{"min_size": 8000}},
		{"greater-than sign", "suites >12,500 SF", domain.Criteria{"min_size": 12500}},
		{"square feet unit", "more than 3,000 square feet", domain.Criteria{"min_size": 3000}},
		{"rent below", "rent below $90", domain.Criteria{"max_rent": 90}},
		{"rent under", "under $1,200 please", domain.Criteria{"max_rent": 1200}},
		{"rent less-than sign", "<$75 per SF", domain.Criteria{"max_rent": 75}},
		{"both", "above 10,000 SF and under $100", domain.Criteria{"min_size": 10000, "max_rent": 100}},
		{"none", "who handles 36 W 36th St?", domain.Criteria{}},
		{"size without unit", "above 15000 people", domain.Criteria{}},
		{"rent without dollar", "below 90", domain.Criteria{}},
		{"bare separators", "above ,,, SF", domain.Criteria{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.query))
		})
	}
}

func TestExtract_FirstPhrasingWins(t *testing.T) {
	c := Extract("above 20,000 SF or maybe over 5,000 SF")
	size, ok := c.MinSize()
	assert.True(t, ok)
	assert.Equal(t, 20000, size)

	c = Extract("<$50 or below $80")
	rent, ok := c.MaxRent()
	assert.True(t, ok)
	assert.Equal(t, 80, rent, "below is tried before the < sign")
}

func TestParseFigures(t *testing.T) {
	f := ParseFigures("Suite 300 at 1 Main St (Floor 3) offers 20,000 SF at $87.50 per year. Monthly rent is $145,833.")
	if assert.NotNil(t, f.SizeSF) {
		assert.Equal(t, 20000.0, *f.SizeSF)
	}
	if assert.NotNil(t, f.Rent) {
		assert.Equal(t, 87.5, *f.Rent)
	}

	f = ParseFigures("Handled by Jane Doe.")
	assert.Nil(t, f.SizeSF)
	assert.Nil(t, f.Rent)
}

func TestMatches(t *testing.T) {
	big := "Suite 1 offers 20,000 SF at $80.00 per year."
	small := "Suite 2 offers 5,000 SF at $95.00 per year."
	noFigures := "Our brokers cover midtown Manhattan."

	sizeOnly := domain.Criteria{"min_size": 15000}
	assert.True(t, Matches(sizeOnly, big))
	assert.False(t, Matches(sizeOnly, small))
	assert.True(t, Matches(sizeOnly, noFigures), "missing figure never filters")

	rentOnly := domain.Criteria{"max_rent": 90}
	assert.True(t, Matches(rentOnly, big))
	assert.False(t, Matches(rentOnly, small))

	assert.False(t, Matches(domain.Criteria{"min_size": 20000}, big), "bound is exclusive")
	assert.False(t, Matches(domain.Criteria{"max_rent": 80}, big), "bound is exclusive")
	assert.True(t, Matches(domain.Criteria{}, small))
}
