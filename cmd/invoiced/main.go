package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional YAML/JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "invoiced: %v\n", err); werr != nil {
			fmt.Printf("invoiced: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	srv := server.New(server.Deps{
		Processor:      a.Processor,
		Exporter:       a.Exporter,
		Jobs:           a.Jobs,
		Queue:          queue,
		Health:         a.Ping,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var health *server.HealthService
	if cfg.Server.GRPCHealthAddr != "" {
		health, err = server.StartHealthService(cfg.Server.GRPCHealthAddr, logger)
		if err != nil {
			return fmt.Errorf("grpc health: %w", err)
		}
		health.SetServing(true)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown.signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("http.serve_failed", "error", serveErr)
		}
	}

	if health != nil {
		health.SetServing(false)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown_error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	if health != nil {
		health.Stop()
	}
	logger.Info("shutdown.complete")
	return serveErr
}
