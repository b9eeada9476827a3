package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"balancerStake/internal/position"
)

func runPosition(cmd *cobra.Command, args []string) error {
	return withCard(cmd, args[0], nil)
}

func runStake(cmd *cobra.Command, args []string) error {
	return withCard(cmd, args[0], func(ctx context.Context, card *position.Card) error {
		return card.Stake(ctx, args[1])
	})
}

func runUnstake(cmd *cobra.Command, args []string) error {
	return withCard(cmd, args[0], func(ctx context.Context, card *position.Card) error {
		return card.Unstake(ctx, args[1])
	})
}

func runClaim(cmd *cobra.Command, args []string) error {
	return withCard(cmd, args[0], func(ctx context.Context, card *position.Card) error {
		return card.Claim(ctx)
	})
}

func runUnstakeClaim(cmd *cobra.Command, args []string) error {
	return withCard(cmd, args[0], func(ctx context.Context, card *position.Card) error {
		return card.UnstakeAndClaim(ctx)
	})
}

// withCard loads the card for poolID, runs action if any, and prints the
// resulting position. The position is printed even when action fails.
func withCard(cmd *cobra.Command, poolID string, action func(context.Context, *position.Card) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	card, err := a.loadCard(ctx, poolID)
	if err != nil {
		return err
	}
	defer card.Close()

	var actionErr error
	if action != nil {
		actionErr = action(ctx, card)
	}
	if err := printJSON(card.Snapshot()); err != nil {
		return err
	}
	return actionErr
}
