package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"crerag/internal/chat"
	"crerag/internal/chunker"
	"crerag/internal/config"
	"crerag/internal/domain"
	"crerag/internal/extract"
	"crerag/internal/listing"
	"crerag/internal/llm"
	"crerag/internal/logging"
	"crerag/internal/metrics"
	"crerag/internal/persistence"
	"crerag/internal/service"
	"crerag/internal/summarizer"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	kb       *service.KnowledgeBase
	ingester *service.Ingester
	model    domain.ChatModel // nil when no API key is configured
	chat     *chat.Service
	analyzer *listing.Analyzer // nil when the listings CSV is absent
	closers  []func() error
}

type appOptions struct {
	// stderrLogs routes logs to a console logger on stderr for stdio transports.
	stderrLogs bool
	// withChat builds the chat service and its model client.
	withChat bool
	// withListings loads the listings CSV and builds the portfolio analyzer.
	withListings bool
}

func loadConfig() (*config.AppConfig, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

// newApp loads configuration and assembles the knowledge base and the
// services layered on it.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if opts.stderrLogs {
		logger, err = logging.Stderr(cfg.Log)
	} else {
		logger, err = logging.New(cfg.Log)
	}
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	persister, err := a.openPersister()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.kb = service.NewKnowledgeBase(persister, service.Options{
		MaxFeatures: cfg.KnowledgeBase.MaxFeatures,
		DefaultTopK: cfg.KnowledgeBase.DefaultTopK,
		Logger:      logger,
		Metrics:     a.metrics,
	})
	if err := a.kb.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ingester = service.NewIngester(a.kb, extract.New(ch, extract.NewPDFReader()), summarizer.NewFrequencySummarizer(), logger)

	if opts.withChat || opts.withListings {
		client, err := llm.NewClient(cfg.LLM, logger)
		if err != nil {
			logger.Warn("language model unavailable; chat replies report the error and analysis uses rules", zap.Error(err))
		} else {
			a.model = client
		}
	}

	if opts.withChat {
		a.chat = chat.NewService(a.kb, a.model, chat.Options{
			HistoryLimit:  cfg.LLM.HistoryLimit,
			ContextChunks: cfg.LLM.ContextChunks,
			Logger:        logger,
			Metrics:       a.metrics,
		})
	}

	if opts.withListings && cfg.Listings.CSVPath != "" {
		listings, err := listing.LoadCSV(cfg.Listings.CSVPath)
		switch {
		case err == nil:
			ds := listing.NewDataset(listings)
			a.analyzer = listing.NewAnalyzer(ds, a.model, logger)
			logger.Info("listings loaded", zap.String("path", cfg.Listings.CSVPath), zap.Int("count", ds.Len()))
		case errors.Is(err, os.ErrNotExist):
			logger.Info("no listings dataset", zap.String("path", cfg.Listings.CSVPath))
		default:
			logger.Warn("listings dataset not loaded", zap.String("path", cfg.Listings.CSVPath), zap.Error(err))
		}
	}
	return a, nil
}

func (a *app) openPersister() (domain.Persister, error) {
	kbc := a.cfg.KnowledgeBase
	switch kbc.Backend {
	case "sqlite":
		st, err := persistence.OpenSQLite(kbc.ResolvedSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		a.logger.Info("using sqlite store", zap.String("path", st.Path()))
		return st, nil
	default:
		fs := persistence.NewFileStore(kbc.DataDir)
		a.logger.Info("using file store", zap.String("dir", fs.Dir()))
		return fs, nil
	}
}

// Close releases the persister and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
