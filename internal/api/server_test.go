package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"balancerStake/internal/chain"
	"balancerStake/internal/metrics"
	"balancerStake/internal/model"
	"balancerStake/internal/position"
)

const poolAddr = "0x1Eff8aF5D577060BA4ac8A29A13525bb0Ee2A3D5"

var account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type fakePools struct {
	mu    sync.Mutex
	pools []model.PoolInfo
	err   error
}

func (f *fakePools) Pools() []model.PoolInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.PoolInfo(nil), f.pools...)
}

func (f *fakePools) Pool(address string) (model.PoolInfo, bool) {
	for _, pool := range f.Pools() {
		if strings.EqualFold(pool.Address, address) {
			return pool, true
		}
	}
	return model.PoolInfo{}, false
}

func (f *fakePools) Prices() model.TokenPrice { return model.TokenPrice{"0xabc": 2.5} }
func (f *fakePools) IDs() []string            { return []string{strings.ToLower(poolAddr)} }
func (f *fakePools) Err() error               { return f.err }
func (f *fakePools) PriceErr() error          { return nil }

func (f *fakePools) set(pools ...model.PoolInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools = pools
}

type ledger struct {
	mu        sync.Mutex
	balance   *big.Int
	staked    *big.Int
	unclaimed *big.Int
	reads     int
	sent      []string
	revert    bool
}

func (l *ledger) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func (l *ledger) get(v *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	return new(big.Int).Set(v), nil
}

func (l *ledger) DepositedBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return l.get(l.staked)
}

func (l *ledger) UnclaimedRewards(context.Context, common.Address, common.Address) (*big.Int, error) {
	return l.get(l.unclaimed)
}

func (l *ledger) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return l.get(l.balance)
}

func (l *ledger) Allowance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return l.get(l.balance)
}

func (l *ledger) send(kind string) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, kind)
	return common.BytesToHash([]byte(kind)), nil
}

func (l *ledger) DepositPoolTokens(_ context.Context, _ common.Address, amount *big.Int) (common.Hash, error) {
	l.mu.Lock()
	if !l.revert {
		l.balance = new(big.Int).Sub(l.balance, amount)
		l.staked = new(big.Int).Add(l.staked, amount)
	}
	l.mu.Unlock()
	return l.send("deposit")
}

func (l *ledger) WithdrawPoolTokens(context.Context, common.Address, *big.Int) (common.Hash, error) {
	return l.send("withdraw")
}

func (l *ledger) WithdrawUnclaimedPoolRewards(context.Context, common.Address) (common.Hash, error) {
	return l.send("claim")
}

func (l *ledger) Approve(context.Context, common.Address, *big.Int) (common.Hash, error) {
	return l.send("approve")
}

func (l *ledger) WaitMined(context.Context, common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.revert {
		return nil, fmt.Errorf("tx: %w", chain.ErrReverted)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestServer(t *testing.T, l *ledger, acct *common.Address) (*Server, *fakePools, http.Handler) {
	t.Helper()
	pools := &fakePools{pools: []model.PoolInfo{{Pair: "WETH/DAI", Address: poolAddr}}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	factory := func(pool model.PoolInfo) (*position.Card, error) {
		return position.NewCard(position.Config{}, pool, acct, position.Deps{
			Rewards: l,
			Token:   l,
			Waiter:  l,
			Metrics: m,
		})
	}
	srv := NewServer(pools, factory, reg, nil)
	t.Cleanup(srv.Close)
	return srv, pools, srv.NewRouter()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) actionResponse {
	t.Helper()
	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthAndPools(t *testing.T) {
	l := &ledger{balance: eth(0), staked: eth(0), unclaimed: eth(0)}
	_, pools, h := newTestServer(t, l, &account)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	pools.err = errors.New("pool sync failed: boom")
	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	rec = do(t, h, http.MethodGet, "/pools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.PoolInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "WETH/DAI", got[0].Pair)

	rec = do(t, h, http.MethodGet, "/prices", "")
	assert.JSONEq(t, `{"0xabc":2.5}`, rec.Body.String())
}

func TestPositionLookup(t *testing.T) {
	l := &ledger{balance: eth(10), staked: eth(4), unclaimed: eth(1)}
	_, _, h := newTestServer(t, l, &account)

	rec := do(t, h, http.MethodGet, "/pools/"+strings.ToLower(poolAddr)+"/position", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.PositionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 10.0, snap.Balance.Value)
	assert.Equal(t, 4.0, snap.Staked.Value)

	rec = do(t, h, http.MethodGet, "/pools/nothex/position", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/pools/0x0000000000000000000000000000000000000001/position", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStakeRoute(t *testing.T) {
	l := &ledger{balance: eth(10), staked: eth(0), unclaimed: eth(0)}
	_, _, h := newTestServer(t, l, &account)

	rec := do(t, h, http.MethodPost, "/pools/"+poolAddr+"/stake", `{"amount":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeAction(t, rec)
	assert.Empty(t, resp.Error)
	assert.Equal(t, 6.0, resp.Position.Balance.Value)
	assert.Equal(t, 4.0, resp.Position.Staked.Value)
	assert.True(t, resp.Position.Celebrate)
	assert.Equal(t, []string{"deposit"}, l.sent)
}

func TestActionErrorsMapToStatus(t *testing.T) {
	l := &ledger{balance: eth(10), staked: eth(0), unclaimed: eth(0)}
	_, _, h := newTestServer(t, l, &account)
	base := "/pools/" + poolAddr

	rec := do(t, h, http.MethodPost, base+"/stake", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/stake", `{"amount":"11"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "11", decodeAction(t, rec).Position.StakeInput)

	rec = do(t, h, http.MethodPost, base+"/unstake", `{"amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/claim", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/unstake-claim", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/stake", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	l.mu.Lock()
	l.revert = true
	l.mu.Unlock()
	rec = do(t, h, http.MethodPost, base+"/stake", `{"amount":"1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeAction(t, rec).Error, "reverted")
}

func TestActionWithoutAccount(t *testing.T) {
	l := &ledger{balance: eth(10), staked: eth(0), unclaimed: eth(0)}
	_, _, h := newTestServer(t, l, nil)

	rec := do(t, h, http.MethodPost, "/pools/"+poolAddr+"/stake", `{"amount":"1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, l.reads)
}

func TestRefreshCardsDropsRemovedPools(t *testing.T) {
	l := &ledger{balance: eth(1), staked: eth(0), unclaimed: eth(0)}
	srv, pools, h := newTestServer(t, l, &account)

	rec := do(t, h, http.MethodGet, "/pools/"+poolAddr+"/position", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, srv.CardCount())

	l.mu.Lock()
	before := l.reads
	l.mu.Unlock()
	srv.RefreshCards(context.Background())
	l.mu.Lock()
	assert.Greater(t, l.reads, before)
	l.mu.Unlock()

	pools.set()
	srv.RefreshCards(context.Background())
	assert.Equal(t, 0, srv.CardCount())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("x: %w", position.ErrBusy)))
	assert.Equal(t, http.StatusBadGateway, statusFor(&position.PartialUnwindError{Err: errors.New("claim")}))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("rpc down")))
}

func TestMetricsRoute(t *testing.T) {
	l := &ledger{balance: eth(1), staked: eth(0), unclaimed: eth(0)}
	_, _, h := newTestServer(t, l, &account)

	do(t, h, http.MethodGet, "/pools/"+poolAddr+"/position", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stake_position_reads_total")
}
