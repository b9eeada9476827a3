package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"balancerStake/internal/chain"
	"balancerStake/internal/contracts"
	"balancerStake/internal/model"
	"balancerStake/internal/position"
)

// PoolSource is the synced pool list the server reads from.
type PoolSource interface {
	Pools() []model.PoolInfo
	Pool(address string) (model.PoolInfo, bool)
	Prices() model.TokenPrice
	IDs() []string
	Err() error
	PriceErr() error
}

// CardFactory builds the position card for one pool.
type CardFactory func(pool model.PoolInfo) (*position.Card, error)

// Server exposes pools, prices, and position actions over HTTP.
type Server struct {
	pools    PoolSource
	newCard  CardFactory
	cards    *xsync.Map[string, *position.Card]
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func NewServer(pools PoolSource, newCard CardFactory, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pools:    pools,
		newCard:  newCard,
		cards:    xsync.NewMap[string, *position.Card](),
		gatherer: gatherer,
		logger:   logger,
	}
}

// NewRouter returns the router with every route registered.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pools", s.HandlePools).Methods(http.MethodGet)
	r.HandleFunc("/prices", s.HandlePrices).Methods(http.MethodGet)

	r.HandleFunc("/pools/{address}/position", s.HandlePosition).Methods(http.MethodGet)
	r.HandleFunc("/pools/{address}/stake", s.HandleStake).Methods(http.MethodPost)
	r.HandleFunc("/pools/{address}/unstake", s.HandleUnstake).Methods(http.MethodPost)
	r.HandleFunc("/pools/{address}/claim", s.HandleClaim).Methods(http.MethodPost)
	r.HandleFunc("/pools/{address}/unstake-claim", s.HandleUnstakeAndClaim).Methods(http.MethodPost)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

type healthResponse struct {
	Status   string   `json:"status"`
	Pools    int      `json:"pools"`
	IDs      []string `json:"ids"`
	SyncErr  string   `json:"sync_error,omitempty"`
	PriceErr string   `json:"price_error,omitempty"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Pools: len(s.pools.Pools()), IDs: s.pools.IDs()}
	if err := s.pools.Err(); err != nil {
		resp.Status = "degraded"
		resp.SyncErr = err.Error()
	}
	if err := s.pools.PriceErr(); err != nil {
		resp.PriceErr = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandlePools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pools.Pools())
}

func (s *Server) HandlePrices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pools.Prices())
}

func (s *Server) HandlePosition(w http.ResponseWriter, r *http.Request) {
	card, ok := s.cardFor(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		if err := card.Refresh(r.Context()); err != nil {
			s.logger.Warn("position refresh failed", zap.String("pool", card.Pool().Address), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, card.Snapshot())
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) HandleStake(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, (*position.Card).Stake)
}

func (s *Server) HandleUnstake(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, (*position.Card).Unstake)
}

func (s *Server) HandleClaim(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, (*position.Card).Claim)
}

func (s *Server) HandleUnstakeAndClaim(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, (*position.Card).UnstakeAndClaim)
}

func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request, action func(*position.Card, context.Context, string) error) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	s.handleAction(w, r, func(card *position.Card, ctx context.Context) error {
		return action(card, ctx, req.Amount)
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, action func(*position.Card, context.Context) error) {
	card, ok := s.cardFor(w, r)
	if !ok {
		return
	}

	// A submitted transaction is followed to inclusion even if the client
	// goes away.
	ctx := context.WithoutCancel(r.Context())
	if err := action(card, ctx); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("position action failed", zap.String("pool", card.Pool().Address), zap.Error(err))
		}
		writeJSON(w, status, actionResponse{Error: err.Error(), Position: card.Snapshot()})
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Position: card.Snapshot()})
}

type actionResponse struct {
	Error    string                 `json:"error,omitempty"`
	Position model.PositionSnapshot `json:"position"`
}

// cardFor resolves the {address} route variable to a live card, creating and
// loading it on first use.
func (s *Server) cardFor(w http.ResponseWriter, r *http.Request) (*position.Card, bool) {
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid pool address")
		return nil, false
	}
	pool, ok := s.pools.Pool(address)
	if !ok {
		writeError(w, http.StatusNotFound, "pool not found")
		return nil, false
	}

	card, err := s.loadCard(r.Context(), pool)
	if err != nil {
		s.logger.Error("create position card", zap.String("pool", pool.Address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return card, true
}

func (s *Server) loadCard(ctx context.Context, pool model.PoolInfo) (*position.Card, error) {
	key := common.HexToAddress(pool.Address).Hex()
	if card, ok := s.cards.Load(key); ok {
		return card, nil
	}

	var createErr error
	card, ok := s.cards.Compute(key, func(old *position.Card, loaded bool) (*position.Card, xsync.ComputeOp) {
		if loaded {
			return old, xsync.CancelOp
		}
		card, err := s.newCard(pool)
		if err != nil {
			createErr = err
			return nil, xsync.CancelOp
		}
		return card, xsync.UpdateOp
	})
	if createErr != nil {
		return nil, createErr
	}
	if !ok {
		return nil, fmt.Errorf("card for %s not created", key)
	}
	if err := card.Refresh(ctx); err != nil {
		s.logger.Warn("initial position read failed", zap.String("pool", key), zap.Error(err))
	}
	return card, nil
}

// RefreshCards drops cards whose pool left the synced set and re-reads the
// rest.
func (s *Server) RefreshCards(ctx context.Context) {
	live := make(map[string]struct{})
	for _, pool := range s.pools.Pools() {
		live[common.HexToAddress(pool.Address).Hex()] = struct{}{}
	}

	s.cards.Range(func(key string, card *position.Card) bool {
		if _, ok := live[key]; !ok {
			s.cards.Delete(key)
			card.Close()
			s.logger.Info("dropped position card", zap.String("pool", key))
			return true
		}
		if card.Operation() != position.OpNone {
			return true
		}
		if err := card.Refresh(ctx); err != nil {
			s.logger.Warn("position refresh failed", zap.String("pool", key), zap.Error(err))
		}
		return true
	})
}

// CardCount reports how many cards are live.
func (s *Server) CardCount() int {
	return s.cards.Size()
}

// Close releases every card.
func (s *Server) Close() {
	s.cards.Range(func(key string, card *position.Card) bool {
		card.Close()
		s.cards.Delete(key)
		return true
	})
}

func statusFor(err error) int {
	var partial *position.PartialUnwindError
	switch {
	case errors.As(err, &partial):
		return http.StatusBadGateway
	case errors.Is(err, position.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, position.ErrNoAccount), errors.Is(err, contracts.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, position.ErrInvalidAmount),
		errors.Is(err, position.ErrInsufficientBalance),
		errors.Is(err, position.ErrInsufficientStake),
		errors.Is(err, position.ErrNothingToClaim):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrReverted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
