package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"casaspese/internal/amqp"
	"casaspese/internal/backend"
	"casaspese/internal/cli"
	apphttp "casaspese/internal/http"
	applog "casaspese/internal/log"
	"casaspese/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := applog.Setup("text", "info")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := applog.Setup(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := cli.SignalContext()
	defer stop()

	result, err := backend.NewFactory(logger.Logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := result.Cleanup(cleanupCtx); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	// The export pipeline is optional; without a broker expenses are
	// still recorded, just not mirrored to the ledger sheet.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(result.Store, result.Store, result.Store, publisher)
	server := apphttp.NewServer(svc, cfg, logger)
	defer server.Close()

	httpServer := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        server.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0, // SSE streams stay open
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if result.Run != nil {
		g.Go(func() error { return result.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
