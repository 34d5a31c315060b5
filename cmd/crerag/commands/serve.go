package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crerag/internal/httpapi"
	"crerag/internal/watcher"
)

var (
	serveAddr     string
	serveWatchDir string
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the chat, query, upload and document management endpoints over HTTP.

Prometheus metrics are exposed on /metrics and a liveness probe on /healthz.
With --watch, files dropped into the given directory are ingested as well.`,
		Example: `  crerag serve
  crerag serve --addr :9000 --watch ./inbox`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&serveWatchDir, "watch", "", "Drop folder to ingest from while serving")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{withChat: true, withListings: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sc := a.cfg.Server
	addr := sc.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	h := &httpapi.Handler{
		KB:             a.kb,
		Ingester:       a.ingester,
		Chat:           a.chat,
		Logger:         a.logger,
		RateLimiter:    httpapi.NewRateLimiter(sc.RateLimitPerMin),
		Gatherer:       a.registry,
		MaxUploadBytes: int64(sc.MaxUploadMB) << 20,
	}
	if a.analyzer != nil {
		h.Analyzer = a.analyzer
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  time.Duration(sc.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(sc.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if serveWatchDir != "" {
		w := watcher.New(serveWatchDir, a.ingester, a.kb, a.logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				a.logger.Error("drop folder watcher stopped", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", addr), zap.Int("chunks", a.kb.Stats().TotalChunks))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
