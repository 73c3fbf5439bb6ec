package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/auth"
	"finboard/internal/cli"
	"finboard/internal/config"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
	"finboard/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTPublicKeyFile, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to initialize token verifier", applog.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// A nil interface, not a nil *amqp.Client, disables publishing.
	var publisher services.ChangePublisher
	if cfg.AMQPURL != "" {
		client := amqp.NewLazyClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		defer client.Close()
		publisher = client
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(repo, publisher)
	defer ledger.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              cfg.Addr(),
		Verifier:          verifier,
		Logger:            logger,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		RequestTimeout:    cfg.RequestTimeout,
		TrustedProxyCIDRs: cfg.TrustedProxies,
	}, ledger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finboard server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
