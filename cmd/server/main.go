package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/activitymap"
	"github.com/goliatone/go-print"
	"go.uber.org/zap"
)

func main() {
	cfg, err := identity.LoadOptions()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := identity.NewZap(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Debug {
		redacted := cfg
		redacted.SigningKey = "********"
		redacted.VerificationKeys = nil
		fmt.Println(print.MaybeHighlightJSON(redacted))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg identity.Options, zl *zap.Logger) error {
	logger := identity.NewZapLogger(zl)

	db, err := identity.OpenDB(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := identity.NewService(db, cfg, logger)
	if err != nil {
		return err
	}
	svc.Controller.Debug = cfg.Debug
	svc.WithActivitySink(activitymap.LogSink(logger))

	srv := svc.NewServer()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "driver", cfg.DatabaseDriver)
		errc <- srv.Serve(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
