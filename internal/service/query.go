package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crerag/internal/criteria"
	"crerag/internal/domain"
	"crerag/internal/metrics"
	"crerag/internal/vectorstore"
)

// Score thresholds for the two retrieval paths.
const (
	standardThreshold = 0.1
	relaxedThreshold  = 0.05
	criteriaThreshold = 0.01
	maxCandidatePool  = 100
)

// Query returns up to topK chunk texts relevant to text, best first.
// It never fails: any retrieval problem yields an empty slice.
func (kb *KnowledgeBase) Query(ctx context.Context, text string, topK int) []string {
	results := kb.Search(ctx, text, topK)
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

// Search is Query with scores and chunk positions.
func (kb *KnowledgeBase) Search(ctx context.Context, text string, topK int) (results []domain.SearchResult) {
	if topK <= 0 {
		topK = kb.defaultTopK
	}
	start := time.Now()
	path := metrics.PathEmpty

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	defer func() {
		if r := recover(); r != nil {
			kb.logger.Error("retrieval panicked", zap.Any("panic", r), zap.String("query", text))
			results, path = []domain.SearchResult{}, metrics.PathError
		}
		kb.metrics.ObserveQuery(path, time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return []domain.SearchResult{}
	}
	var err error
	results, path, err = retrieve(kb.index, kb.store.View(), text, topK)
	if err != nil {
		kb.logger.Warn("retrieval failed", zap.String("query", text), zap.Error(err))
		return []domain.SearchResult{}
	}
	kb.logger.Debug("query served",
		zap.String("query", text),
		zap.String("path", path),
		zap.Int("results", len(results)))
	return results
}

// retrieve ranks chunks against text and applies criteria filtering or the
// threshold ladder. It returns the path that produced the results.
func retrieve(ix *vectorstore.Index, chunks []string, text string, topK int) ([]domain.SearchResult, string, error) {
	if len(chunks) == 0 || ix == nil {
		return []domain.SearchResult{}, metrics.PathEmpty, nil
	}
	if ix.Len() != len(chunks) {
		return nil, metrics.PathError, fmt.Errorf("index has %d rows for %d chunks", ix.Len(), len(chunks))
	}

	crit := criteria.Extract(text)
	ranked, err := ix.Search(text)
	if err != nil {
		return nil, metrics.PathError, err
	}

	if !crit.Empty() {
		pool := candidatePool(len(chunks), topK)
		candidates := above(ranked[:pool], criteriaThreshold)
		var kept []vectorstore.Scored
		for _, c := range candidates {
			if criteria.Matches(crit, chunks[c.Index]) {
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			return toResults(limit(kept, topK), chunks), metrics.PathCriteria, nil
		}
		if len(candidates) > 0 {
			return toResults(limit(candidates, topK), chunks), metrics.PathCriteriaFallback, nil
		}
		return []domain.SearchResult{}, metrics.PathEmpty, nil
	}

	if hits := limit(above(ranked, standardThreshold), topK); len(hits) > 0 {
		return toResults(hits, chunks), metrics.PathStandard, nil
	}
	if hits := limit(above(ranked, relaxedThreshold), topK); len(hits) > 0 {
		return toResults(hits, chunks), metrics.PathRelaxed, nil
	}
	return []domain.SearchResult{}, metrics.PathEmpty, nil
}

// candidatePool sizes the criteria path's pool: half the corpus, at least
// topK, at most maxCandidatePool and never more than the corpus.
func candidatePool(total, topK int) int {
	n := total / 2
	if n < topK {
		n = topK
	}
	if n > maxCandidatePool {
		n = maxCandidatePool
	}
	if n > total {
		n = total
	}
	return n
}

func above(ranked []vectorstore.Scored, threshold float64) []vectorstore.Scored {
	out := make([]vectorstore.Scored, 0, len(ranked))
	for _, s := range ranked {
		if s.Score > threshold {
			out = append(out, s)
		}
	}
	return out
}

func limit(s []vectorstore.Scored, n int) []vectorstore.Scored {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func toResults(scored []vectorstore.Scored, chunks []string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(scored))
	for i, s := range scored {
		out[i] = domain.SearchResult{Index: s.Index, Score: s.Score, Text: chunks[s.Index]}
	}
	return out
}
