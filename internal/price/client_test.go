package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricesByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "dai,weth", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"dai":{"usd":1.001},"weth":{"usd":1800.5}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "ethereum", srv.Client())
	prices, err := client.Prices(context.Background(), ByID, []string{"dai", "weth"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"dai": 1.001, "weth": 1800.5}, prices)
}

func TestPricesByAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/token_price/ethereum", r.URL.Path)
		assert.Equal(t, "0xabc,0xdef", r.URL.Query().Get("contract_addresses"))
		_, _ = w.Write([]byte(`{"0xabc":{"usd":2},"0xdef":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "ethereum", nil)
	prices, err := client.Prices(context.Background(), ByAddress, []string{"0xABC", "0xdef"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"0xabc": 2}, prices)
}

func TestPricesEmptyKeysSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	prices, err := NewClient(srv.URL, "ethereum", nil).Prices(context.Background(), ByAddress, nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.False(t, called)
}

func TestPricesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "ethereum", nil).Prices(context.Background(), ByID, []string{"dai"})
	require.ErrorContains(t, err, "status 429")
}
