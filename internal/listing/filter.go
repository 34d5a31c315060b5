package listing

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"crerag/internal/domain"
)

// Field is a numeric listing column a filter can compare.
type Field string

// Filterable columns, named as in the dataset header.
const (
	FieldSize Field = ColSize
	FieldRent Field = ColRent
	FieldGCI  Field = ColGCI
)

var fieldOrder = []Field{FieldSize, FieldRent, FieldGCI}

// Op is a comparison operator.
type Op string

// Operators.
const (
	OpGT  Op = "gt"
	OpLT  Op = "lt"
	OpEQ  Op = "eq"
	OpGTE Op = "gte"
	OpLTE Op = "lte"
)

var opOrder = []Op{OpGT, OpGTE, OpEQ, OpLTE, OpLT}

// Condition compares one field of a listing against a value.
type Condition struct {
	Field Field   `json:"field"`
	Op    Op      `json:"op"`
	Value float64 `json:"value"`
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter []Condition

func (f Field) value(l Listing) float64 {
	switch f {
	case FieldSize:
		return l.SizeSF
	case FieldRent:
		return l.RentPerSF
	case FieldGCI:
		return l.GCIValue
	}
	return 0
}

func (o Op) compare(a, b float64) bool {
	switch o {
	case OpGT:
		return a > b
	case OpLT:
		return a < b
	case OpEQ:
		return a == b
	case OpGTE:
		return a >= b
	case OpLTE:
		return a <= b
	}
	return false
}

// Match reports whether l satisfies the condition.
func (c Condition) Match(l Listing) bool {
	return c.Op.compare(c.Field.value(l), c.Value)
}

// Match reports whether l satisfies every condition.
func (f Filter) Match(l Listing) bool {
	for _, c := range f {
		if !c.Match(l) {
			return false
		}
	}
	return true
}

// Apply returns the listings that match, in dataset order.
func (f Filter) Apply(listings []Listing) []Listing {
	out := make([]Listing, 0)
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

var opWords = map[Op]string{
	OpGT:  "greater than",
	OpLT:  "less than",
	OpEQ:  "equal to",
	OpGTE: "at least",
	OpLTE: "at most",
}

func (c Condition) String() string {
	v := strconv.FormatFloat(c.Value, 'f', -1, 64)
	switch c.Field {
	case FieldSize:
		return fmt.Sprintf("size %s %s SF", opWords[c.Op], v)
	case FieldRent:
		return fmt.Sprintf("rent %s $%s per SF per year", opWords[c.Op], v)
	default:
		return fmt.Sprintf("GCI on 3 years %s $%s", opWords[c.Op], v)
	}
}

// Describe renders the filter as a phrase for users.
func (f Filter) Describe() string {
	if len(f) == 0 {
		return "no filters recognised; showing all properties"
	}
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = c.String()
	}
	return "properties with " + strings.Join(parts, " and ")
}

func (f Filter) sort() {
	slices.SortStableFunc(f, func(a, b Condition) int {
		if d := slices.Index(fieldOrder, a.Field) - slices.Index(fieldOrder, b.Field); d != 0 {
			return d
		}
		return slices.Index(opOrder, a.Op) - slices.Index(opOrder, b.Op)
	})
}

// FilterFromCriteria maps retrieval criteria onto the dataset columns:
// a minimum size is exclusive, as is a maximum rent.
func FilterFromCriteria(c domain.Criteria) Filter {
	var f Filter
	if v, ok := c.MinSize(); ok {
		f = append(f, Condition{Field: FieldSize, Op: OpGT, Value: float64(v)})
	}
	if v, ok := c.MaxRent(); ok {
		f = append(f, Condition{Field: FieldRent, Op: OpLT, Value: float64(v)})
	}
	return f
}

// ParseFilter reads a filter written as a JSON object keyed by column name,
// for example {"Size (SF)": {"gt": 15000}, "Rent/SF/Year": {"lte": "$90"}}.
// A surrounding markdown code fence is ignored, as are unknown columns and
// operators. Values may be numbers or money strings.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parsing filter: %w", err)
	}
	var f Filter
	for col, conds := range doc {
		field := Field(strings.TrimSpace(col))
		if !slices.Contains(fieldOrder, field) {
			continue
		}
		for op, rawVal := range conds {
			o := Op(strings.ToLower(strings.TrimSpace(op)))
			if _, ok := opWords[o]; !ok {
				continue
			}
			v, err := filterValue(rawVal)
			if err != nil {
				return nil, fmt.Errorf("parsing filter %s %s: %w", field, o, err)
			}
			f = append(f, Condition{Field: field, Op: o, Value: v})
		}
	}
	f.sort()
	return f, nil
}

func filterValue(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value must be a number or string, got %s", raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(amountCleaner.Replace(s)), 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	return v, nil
}
