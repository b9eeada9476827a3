package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "stakectl",
		Short:        "Balancer pool staking client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Sync pool details and token prices",
		RunE:  runPools,
	}
	addSyncFlags(poolsCmd.Flags())
	poolsCmd.Flags().String("out", "", "append the pool snapshot to this JSONL file")
	root.AddCommand(poolsCmd)

	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Look up USD prices for known tokens and pool constituents",
		RunE:  runPrices,
	}
	addSyncFlags(pricesCmd.Flags())
	root.AddCommand(pricesCmd)

	positionCmd := &cobra.Command{
		Use:   "position <pool>",
		Short: "Show LP balance, stake, allowance, and unclaimed rewards",
		Args:  cobra.ExactArgs(1),
		RunE:  runPosition,
	}
	addPositionFlags(positionCmd.Flags())
	root.AddCommand(positionCmd)

	stakeCmd := &cobra.Command{
		Use:   "stake <pool> <amount>",
		Short: "Stake LP tokens, approving the rewards contract if needed",
		Args:  cobra.ExactArgs(2),
		RunE:  runStake,
	}
	addPositionFlags(stakeCmd.Flags())
	root.AddCommand(stakeCmd)

	unstakeCmd := &cobra.Command{
		Use:   "unstake <pool> <amount>",
		Short: "Withdraw staked LP tokens",
		Args:  cobra.ExactArgs(2),
		RunE:  runUnstake,
	}
	addPositionFlags(unstakeCmd.Flags())
	root.AddCommand(unstakeCmd)

	claimCmd := &cobra.Command{
		Use:   "claim <pool>",
		Short: "Claim unclaimed rewards",
		Args:  cobra.ExactArgs(1),
		RunE:  runClaim,
	}
	addPositionFlags(claimCmd.Flags())
	root.AddCommand(claimCmd)

	unstakeClaimCmd := &cobra.Command{
		Use:   "unstake-claim <pool>",
		Short: "Withdraw the whole stake, then claim rewards",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnstakeClaim,
	}
	addPositionFlags(unstakeClaimCmd.Flags())
	root.AddCommand(unstakeClaimCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pools and position actions over HTTP",
		RunE:  runServe,
	}
	addPositionFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("refresh-cron", "@every 1m", "cron spec for pool and position refresh")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSyncFlags(flags *pflag.FlagSet) {
	flags.StringSlice("pools", nil, "pool ids (comma-separated)")
	flags.String("subgraph-url", "", "pool indexing service GraphQL URL")
	flags.String("price-url", "", "price service base URL")
	flags.String("price-platform", "", "price service platform for address lookups")
	flags.String("pool-url", "", "pool page URL prefix")
	flags.StringSlice("known-tokens", nil, "price id to token address mappings (id=address, comma-separated)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addPositionFlags(flags *pflag.FlagSet) {
	addSyncFlags(flags)
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.Uint64("chain-id", 0, "expected chain id, 0 accepts the RPC's")
	flags.String("rewards-address", "", "rewards contract address")
	flags.String("private-key", "", "hex private key used to sign transactions")
	flags.String("account", "", "read-only account address when no private key is set")
	flags.Int("max-retries", 0, "retry attempts per position read")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Duration("receipt-poll", 2*time.Second, "receipt polling interval")
	flags.Duration("celebrate-for", 3*time.Second, "how long the celebrate flag stays set")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
