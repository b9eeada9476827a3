package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerStake/internal/storage"
)

func runPools(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer, err := newSyncer(cfg, logger, nil)
	if err != nil {
		return err
	}
	if err := syncer.Update(ctx, cfg.Pools); err != nil {
		return err
	}
	if err := syncer.PriceErr(); err != nil {
		logger.Warn("prices unavailable", zap.Error(err))
	}

	snapshot := syncer.Snapshot()
	if cfg.Out != "" {
		if err := storage.NewJsonlStorage(cfg.Out).PutPoolSnapshot(snapshot); err != nil {
			return err
		}
		logger.Info("pool snapshot written", zap.String("out", cfg.Out), zap.Int("pools", len(snapshot.Pools)))
	}
	return printJSON(snapshot)
}

func runPrices(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer, err := newSyncer(cfg, logger, nil)
	if err != nil {
		return err
	}
	if len(cfg.KnownTokens) > 0 {
		if err := syncer.LoadKnownPrices(ctx); err != nil {
			logger.Warn("known token prices unavailable", zap.Error(err))
		}
	}
	if len(cfg.Pools) > 0 {
		if err := syncer.Update(ctx, cfg.Pools); err != nil {
			return err
		}
	}
	return printJSON(syncer.Prices())
}
