package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crerag/internal/criteria"
	"crerag/internal/domain"
)

// Filter sources reported in Analysis.FilterSource.
const (
	SourceModel = "model"
	SourceRules = "rules"
)

const sampleMatches = 3

var errEmptySummary = errors.New("model returned an empty summary")

const filterPrompt = `You convert questions about a commercial real-estate portfolio into JSON filters.

Filterable columns:
- "Size (SF)": size in square feet
- "Rent/SF/Year": annual rent per square foot in dollars
- "GCI On 3 Years": gross commission income over three years in dollars

Operators: "gt", "lt", "eq", "gte", "lte".

Example: {"Size (SF)": {"gt": 15000}, "Rent/SF/Year": {"lt": 90}}

Return {} when the question has no numeric constraint. Reply with JSON only.`

const summaryPrompt = `You brief brokers and investors on search results from a commercial real-estate portfolio. Reply with a short professional summary of the key metrics and trends.`

// Analyzer answers natural-language questions about a dataset. With a chat
// model the question is parsed into a filter and the matches are summarized
// by the model; without one, or when the model fails, the size and rent
// rules used for retrieval apply and the summary is statistical.
type Analyzer struct {
	dataset *Dataset
	model   domain.ChatModel
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer. model may be nil.
func NewAnalyzer(dataset *Dataset, model domain.ChatModel, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{dataset: dataset, model: model, logger: logger.Named("analyze")}
}

// Analyze filters the dataset by the constraints in query.
func (a *Analyzer) Analyze(ctx context.Context, query string, limit int) Analysis {
	f, source := a.parse(ctx, query)
	res := a.dataset.Filter(f, limit)
	res.FilterSource = source
	if a.model != nil && res.TotalMatches > 0 {
		if s, err := a.summarize(ctx, query, res); err != nil {
			a.logger.Warn("model summary failed, using statistics", zap.Error(err))
		} else {
			res.Summary = s
		}
	}
	a.logger.Debug("portfolio analyzed",
		zap.String("interpretation", res.Interpretation),
		zap.String("source", source),
		zap.Int("matches", res.TotalMatches))
	return res
}

// Stats reports dataset-wide statistics.
func (a *Analyzer) Stats() PortfolioStats {
	return a.dataset.Stats()
}

func (a *Analyzer) parse(ctx context.Context, query string) (Filter, string) {
	if a.model != nil {
		reply, err := a.model.Complete(ctx, []domain.Message{
			{Role: "system", Content: filterPrompt},
			{Role: "user", Content: query},
		})
		if err == nil {
			f, perr := ParseFilter(reply)
			if perr == nil {
				return f, SourceModel
			}
			err = perr
		}
		a.logger.Warn("model filter parse failed, using rules", zap.Error(err))
	}
	return FilterFromCriteria(criteria.Extract(query)), SourceRules
}

func (a *Analyzer) summarize(ctx context.Context, query string, res Analysis) (string, error) {
	sample := res.Matches
	if len(sample) > sampleMatches {
		sample = sample[:sampleMatches]
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", query)
	fmt.Fprintf(&b, "Filters: %s\n", res.Interpretation)
	fmt.Fprintf(&b, "%s\n", res.Summary)
	fmt.Fprintf(&b, "Sample matches: %s", data)

	reply, err := a.model.Complete(ctx, []domain.Message{
		{Role: "system", Content: summaryPrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptySummary
	}
	return reply, nil
}
