package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerStake/internal/api"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, m := newMetrics()
	a, err := newApp(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(cfg.KnownTokens) > 0 {
		if err := a.syncer.LoadKnownPrices(ctx); err != nil {
			logger.Warn("known token prices unavailable", zap.Error(err))
		}
	}
	if err := a.syncer.Update(ctx, cfg.Pools); err != nil {
		// Serve anyway; /healthz reports the sync error until a refresh succeeds.
		logger.Error("initial pool sync failed", zap.Error(err))
	}

	server := api.NewServer(a.syncer, a.newCard, reg, logger)
	defer server.Close()

	scheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
		if err := a.syncer.Refresh(ctx); err != nil {
			logger.Warn("scheduled pool sync failed", zap.Error(err))
		}
		server.RefreshCards(ctx)
	}); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", cfg.RefreshCron, err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server start", zap.String("listen", cfg.Listen), zap.Int("pools", len(a.syncer.Pools())), zap.String("refresh_cron", cfg.RefreshCron))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http server shutdown")
	return httpServer.Shutdown(shutdownCtx)
}
