// Command financas serves the personal finance web application.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"financas/internal/amqp"
	"financas/internal/auth"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/log"
	"financas/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentApp)
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	// The publisher stays a nil interface when export is off so the
	// transaction manager marks rows as not exported.
	var publisher services.SyncPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("Transaction export enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Transaction export disabled - no AMQP_URL provided")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr: cfg.Addr(),
		Auth: auth.NewSessionAuth(repo, auth.Options{
			TTL:          cfg.SessionTTL,
			SecureCookie: cfg.SecureCookies,
		}),
		Plans:               repo,
		Transactions:        repo,
		Publisher:           publisher,
		Sessions:            repo,
		Ready:               repo.Ping,
		Logger:              logger.WithComponent(log.ComponentHTTP),
		SessionTTL:          cfg.SessionTTL,
		RateLimitPerMinute:  cfg.RateLimitPerMinute,
		BalanceCacheTTL:     cfg.BalanceCacheTTL,
		BalanceCacheEntries: cfg.BalanceCacheEntries,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting financas server", "addr", cfg.Addr(), log.FieldOperation, log.OpStartup)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
