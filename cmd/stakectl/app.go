package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"balancerStake/internal/chain"
	"balancerStake/internal/config"
	"balancerStake/internal/contracts"
	"balancerStake/internal/metrics"
	"balancerStake/internal/model"
	"balancerStake/internal/pools"
	"balancerStake/internal/position"
	"balancerStake/internal/price"
	"balancerStake/internal/subgraph"
	"balancerStake/internal/wallet"
)

const httpTimeout = 30 * time.Second

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newSyncer(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*pools.Syncer, error) {
	if cfg.SubgraphURL == "" {
		return nil, fmt.Errorf("subgraph url is required")
	}
	httpClient := &http.Client{Timeout: httpTimeout}
	return pools.NewSyncer(pools.Config{
		PoolURL:     cfg.PoolURL,
		KnownTokens: cfg.KnownTokens,
	},
		subgraph.NewClient(cfg.SubgraphURL, httpClient),
		price.NewClient(cfg.PriceURL, cfg.PricePlatform, httpClient),
		logger,
		m,
	), nil
}

// app bundles the on-chain side of a position command.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	chain   *chain.Client
	signer  chain.Signer
	account *common.Address
	rewards *contracts.Rewards
	syncer  *pools.Syncer
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.RewardsAddress) {
		return nil, fmt.Errorf("invalid rewards address: %s", cfg.RewardsAddress)
	}

	var signer chain.Signer
	var keySigner *wallet.KeySigner
	if cfg.PrivateKey != "" {
		s, err := wallet.NewKeySigner(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		keySigner = s
		signer = s
	}
	account, err := wallet.ResolveAccount(keySigner, cfg.Account)
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.ReceiptPoll)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if cfg.ChainID != 0 && chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match configured %d", chainID, cfg.ChainID)
	}

	rewards, err := contracts.NewRewards(common.HexToAddress(cfg.RewardsAddress), client, signer)
	if err != nil {
		client.Close()
		return nil, err
	}

	syncer, err := newSyncer(cfg, logger, m)
	if err != nil {
		client.Close()
		return nil, err
	}

	fields := []zap.Field{zap.String("chain_id", chainID.String()), zap.Bool("read_only", signer == nil)}
	if account != nil {
		fields = append(fields, zap.String("account", account.Hex()))
	}
	logger.Info("connected", fields...)

	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		chain:   client,
		signer:  signer,
		account: account,
		rewards: rewards,
		syncer:  syncer,
	}, nil
}

func (a *app) Close() {
	a.chain.Close()
}

// newCard builds the position card for pool against the LP token at the
// pool's address.
func (a *app) newCard(pool model.PoolInfo) (*position.Card, error) {
	if !common.IsHexAddress(pool.LPToken.Address) {
		return nil, fmt.Errorf("invalid lp token address: %s", pool.LPToken.Address)
	}
	token, err := contracts.NewERC20(common.HexToAddress(pool.LPToken.Address), a.chain, a.signer)
	if err != nil {
		return nil, err
	}
	return position.NewCard(position.Config{
		MaxRetries:   a.cfg.MaxRetries,
		RetryBackoff: a.cfg.RetryBackoff,
		CelebrateFor: a.cfg.CelebrateFor,
	}, pool, a.account, position.Deps{
		Rewards: a.rewards,
		Token:   token,
		Waiter:  a.chain,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
}

// loadCard syncs the single pool and returns its loaded card.
func (a *app) loadCard(ctx context.Context, poolID string) (*position.Card, error) {
	if err := a.syncer.Update(ctx, []string{poolID}); err != nil {
		return nil, err
	}
	pool, ok := a.syncer.Pool(poolID)
	if !ok {
		return nil, fmt.Errorf("pool %s not found", poolID)
	}

	card, err := a.newCard(pool)
	if err != nil {
		return nil, err
	}
	if err := card.Refresh(ctx); err != nil {
		a.logger.Warn("position read failed", zap.String("pool", pool.Address), zap.Error(err))
	}
	return card, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	return reg, metrics.New(reg)
}
