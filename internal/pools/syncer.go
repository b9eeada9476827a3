package pools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"balancerStake/internal/metrics"
	"balancerStake/internal/model"
	"balancerStake/internal/price"
	"balancerStake/internal/subgraph"
)

var (
	// ErrSync marks a failed indexing-service sync. Prior pool state is kept.
	ErrSync = errors.New("pool sync failed")
	// ErrPrice marks a failed price lookup. Prior prices are kept.
	ErrPrice = errors.New("price lookup failed")
)

// SubgraphClient fetches pool records by id.
type SubgraphClient interface {
	Pools(ctx context.Context, ids []string) ([]subgraph.PoolRecord, error)
}

// PriceClient looks up USD prices.
type PriceClient interface {
	Prices(ctx context.Context, mode price.Mode, keys []string) (map[string]float64, error)
}

// Config controls pool normalization and known-token pricing.
type Config struct {
	PoolURL string
	// KnownTokens maps a price-service id to the token address it prices.
	KnownTokens map[string]string
}

// Syncer keeps the pool list for a set of pool ids and the running token
// price map. Pool state is replaced wholesale on every successful sync.
type Syncer struct {
	cfg      Config
	subgraph SubgraphClient
	prices   PriceClient
	logger   *zap.Logger
	metrics  *metrics.Metrics

	// refreshMu serializes syncs so results land in call order.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	ids       []string
	syncedKey string
	synced    bool
	pools     []model.PoolInfo
	tokens    []string
	err       error
	priceErr  error
	syncedAt  time.Time

	priceMap *xsync.Map[string, float64]
}

func NewSyncer(cfg Config, subgraphClient SubgraphClient, priceClient PriceClient, logger *zap.Logger, m *metrics.Metrics) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		cfg:      cfg,
		subgraph: subgraphClient,
		prices:   priceClient,
		logger:   logger,
		metrics:  m,
		priceMap: xsync.NewMap[string, float64](),
	}
}

// Update sets the pool ids and syncs if the id set differs from the last
// successful sync.
func (s *Syncer) Update(ctx context.Context, ids []string) error {
	ids = cleanIDs(ids)
	key := idSetKey(ids)

	s.mu.Lock()
	unchanged := s.synced && s.err == nil && s.syncedKey == key
	s.ids = ids
	s.mu.Unlock()

	if unchanged {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh re-queries the indexing service for the current ids.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	ids := append([]string(nil), s.ids...)
	s.mu.RUnlock()
	key := idSetKey(ids)

	if len(ids) == 0 {
		s.mu.Lock()
		s.pools = nil
		s.tokens = nil
		s.err = nil
		s.syncedKey = key
		s.synced = true
		s.syncedAt = time.Now().UTC()
		s.mu.Unlock()
		s.logger.Debug("pool ids empty, cleared pools")
		return nil
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.logger.Warn("pool sync failed", zap.Int("ids", len(ids)), zap.Error(err))
		return err
	}

	pools, tokens, err := Normalize(records, s.cfg.PoolURL)
	if err != nil {
		err = fmt.Errorf("%w: normalize: %w", ErrSync, err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.logger.Warn("pool sync failed", zap.Int("ids", len(ids)), zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.pools = pools
	s.tokens = tokens
	s.err = nil
	s.syncedKey = key
	s.synced = true
	s.syncedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("pools synced", zap.Int("requested", len(ids)), zap.Int("pools", len(pools)), zap.Int("tokens", len(tokens)))

	if err := s.updatePrices(ctx, price.ByAddress, tokens, nil); err != nil {
		s.logger.Warn("token price lookup failed", zap.Int("tokens", len(tokens)), zap.Error(err))
	}
	return nil
}

func (s *Syncer) fetch(ctx context.Context, ids []string) ([]subgraph.PoolRecord, error) {
	if s.subgraph == nil {
		return nil, fmt.Errorf("%w: subgraph client is nil", ErrSync)
	}
	records, err := s.subgraph.Pools(ctx, ids)
	s.metrics.ObserveSubgraph(err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSync, err)
	}
	return records, nil
}

// LoadKnownPrices prices the configured known tokens by price-service id and
// stores the results under their mapped token addresses.
func (s *Syncer) LoadKnownPrices(ctx context.Context) error {
	if len(s.cfg.KnownTokens) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.cfg.KnownTokens))
	for id := range s.cfg.KnownTokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err := s.updatePrices(ctx, price.ByID, ids, func(id string) (string, bool) {
		addr, ok := s.cfg.KnownTokens[id]
		return addr, ok
	})
	if err != nil {
		s.logger.Warn("known token price lookup failed", zap.Int("tokens", len(ids)), zap.Error(err))
	}
	return err
}

// updatePrices merges a lookup into the price map. keyToAddress maps response
// keys to token addresses; nil means the keys already are addresses.
func (s *Syncer) updatePrices(ctx context.Context, mode price.Mode, keys []string, keyToAddress func(string) (string, bool)) error {
	if len(keys) == 0 {
		return nil
	}
	if s.prices == nil {
		return fmt.Errorf("%w: price client is nil", ErrPrice)
	}

	result, err := s.prices.Prices(ctx, mode, keys)
	s.metrics.ObservePrice(mode.String(), err)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrPrice, err)
		s.mu.Lock()
		s.priceErr = err
		s.mu.Unlock()
		return err
	}

	for key, usd := range result {
		addr := key
		if keyToAddress != nil {
			mapped, ok := keyToAddress(key)
			if !ok {
				continue
			}
			addr = mapped
		}
		s.priceMap.Store(canonicalAddress(addr), usd)
	}

	s.mu.Lock()
	s.priceErr = nil
	s.mu.Unlock()
	return nil
}

// Pools returns a copy of the current pool list.
func (s *Syncer) Pools() []model.PoolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PoolInfo, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool.Clone())
	}
	return out
}

// Pool looks up a synced pool by address, case-insensitively.
func (s *Syncer) Pool(address string) (model.PoolInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pool := range s.pools {
		if strings.EqualFold(pool.Address, address) {
			return pool.Clone(), true
		}
	}
	return model.PoolInfo{}, false
}

// Prices returns a copy of the running price map keyed by checksummed address.
func (s *Syncer) Prices() model.TokenPrice {
	out := make(model.TokenPrice, s.priceMap.Size())
	s.priceMap.Range(func(key string, value float64) bool {
		out[key] = value
		return true
	})
	return out
}

// Price returns the USD price of a token, if known.
func (s *Syncer) Price(address string) (float64, bool) {
	return s.priceMap.Load(canonicalAddress(address))
}

// IDs returns the pool ids currently requested.
func (s *Syncer) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...)
}

// Tokens returns the constituent token addresses of the current pools.
func (s *Syncer) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.tokens...)
}

// Err returns the last sync error, or nil after a successful sync.
func (s *Syncer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// PriceErr returns the last price lookup error, or nil after a successful lookup.
func (s *Syncer) PriceErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priceErr
}

// Snapshot returns the pools and prices as one exportable record.
func (s *Syncer) Snapshot() model.PoolSnapshot {
	s.mu.RLock()
	syncedAt := s.syncedAt
	s.mu.RUnlock()
	return model.PoolSnapshot{
		SyncedAt: syncedAt.Format(time.RFC3339Nano),
		Pools:    s.Pools(),
		Prices:   s.Prices(),
	}
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

func idSetKey(ids []string) string {
	lower := make([]string, 0, len(ids))
	for _, id := range ids {
		lower = append(lower, strings.ToLower(id))
	}
	sort.Strings(lower)
	return strings.Join(lower, ",")
}

func canonicalAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return strings.ToLower(addr)
}
