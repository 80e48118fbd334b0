package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ai_blog_writer/rag"
	"ai_blog_writer/server"
	"ai_blog_writer/tracing"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API:

  GET /api/blog?topic=...[&format=html]   write a post with the editor loop
  GET /api/blog/runs/{id}                 fetch a recent result
  GET /api/rag?query=...                  answer with retrieval
  GET /healthz`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger := slog.Default()

		shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
			Enabled:     cfg.Telemetry.Enabled,
			Endpoint:    cfg.Telemetry.Endpoint,
			Protocol:    cfg.Telemetry.Protocol,
			Insecure:    cfg.Telemetry.Insecure,
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     version,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()

		llm, err := buildLLM(cfg.LLM)
		if err != nil {
			return err
		}
		refiner, err := buildRefiner(cfg, llm, logger)
		if err != nil {
			return err
		}
		ragSvc, store, closeStore, err := buildRAG(ctx, cfg, llm, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		if cfg.VectorStore.SeedOnStart {
			if _, err := rag.Seed(ctx, store, nil, logger); err != nil {
				return err
			}
		}

		limiter := server.NewRateLimiter(cfg.Server.RateLimitRPM, cfg.Server.RateLimitBurst, logger)
		defer limiter.Stop()
		srv, err := server.New(refiner, ragSvc, server.Options{
			RequestTimeout: cfg.Server.RequestTimeout,
			RunCacheSize:   cfg.Server.RunCacheSize,
			RateLimiter:    limiter,
			Logger:         logger,
		})
		if err != nil {
			return err
		}

		listen := cfg.Server.Addr
		if serveAddr != "" {
			listen = serveAddr
		}
		httpSrv := &http.Server{
			Addr:              listen,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting web server", "addr", listen)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down web server")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(sctx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "http listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
