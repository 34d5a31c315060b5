package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crerag/internal/domain"
)

const (
	summaryMaxSentences = 3
	extractConcurrency  = 4
)

// Extractor turns a named file into chunks.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]string, error)
}

// FileInput is one uploaded or discovered file.
type FileInput struct {
	Name string
	Data []byte
}

// FileFailure reports a file that produced no chunks.
type FileFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// IngestReport describes the outcome of an ingestion batch.
type IngestReport struct {
	FilesProcessed int                       `json:"files_processed"`
	ChunksAdded    int                       `json:"chunks_added"`
	Failed         []FileFailure             `json:"failed_files"`
	Documents      []domain.DocumentMetadata `json:"documents"`
	Summary        string                    `json:"summary,omitempty"`
}

// Ingester extracts files and adds them to a knowledge base.
type Ingester struct {
	kb         *KnowledgeBase
	extractor  Extractor
	summarizer domain.Summarizer
	logger     *zap.Logger
}

// NewIngester wires an ingester. summarizer may be nil.
func NewIngester(kb *KnowledgeBase, extractor Extractor, summarizer domain.Summarizer, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{kb: kb, extractor: extractor, summarizer: summarizer, logger: logger.Named("ingest")}
}

// IngestFiles extracts every file, isolating per-file failures, and adds
// the successful ones as a single batch. It fails with domain.ErrNoContent
// when no file yields any chunk.
func (in *Ingester) IngestFiles(ctx context.Context, files []FileInput) (*IngestReport, error) {
	extracted := make([][]string, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, err := in.extractor.Extract(gctx, f.Name, f.Data)
			if err == nil && len(chunks) == 0 {
				err = domain.ErrNoContent
			}
			if err != nil {
				var ee *domain.ExtractionError
				if !errors.As(err, &ee) {
					err = &domain.ExtractionError{Filename: f.Name, Err: err}
				}
				errs[i] = err
				return nil
			}
			extracted[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &IngestReport{Failed: []FileFailure{}, Documents: []domain.DocumentMetadata{}}
	var batch []NewDocument
	var text strings.Builder
	for i, f := range files {
		if errs[i] != nil {
			in.logger.Warn("file skipped", zap.String("file", f.Name), zap.Error(errs[i]))
			report.Failed = append(report.Failed, FileFailure{Filename: f.Name, Error: errs[i].Error()})
			continue
		}
		batch = append(batch, NewDocument{Chunks: extracted[i], Source: f.Name, ByteSize: len(f.Data)})
		report.FilesProcessed++
		report.ChunksAdded += len(extracted[i])
		for _, c := range extracted[i] {
			text.WriteString(c)
			text.WriteString("\n")
		}
	}
	if len(batch) == 0 {
		return report, domain.ErrNoContent
	}

	docs, err := in.kb.AddDocuments(ctx, batch)
	if err != nil {
		return report, err
	}
	report.Documents = docs

	if in.summarizer != nil {
		summary, err := in.summarizer.Summarize(text.String(), summaryMaxSentences)
		if err != nil {
			in.logger.Warn("summary failed", zap.Error(err))
		} else {
			report.Summary = summary
		}
	}
	in.logger.Info("files ingested",
		zap.Int("files", report.FilesProcessed),
		zap.Int("chunks", report.ChunksAdded),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}
