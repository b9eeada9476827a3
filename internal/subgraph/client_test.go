package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolsLowercasesIDsAndKeepsOrder(t *testing.T) {
	var got graphRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"pools":[
			{"id":"0xbbb","totalWeight":"10","liquidity":"2000.5","tokens":[{"symbol":"WBTC","address":"0x3","decimals":8,"denormWeight":"5","balance":"1.5"}]},
			{"id":"0xaaa","totalWeight":"20","liquidity":"100","tokens":[]}
		]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	pools, err := client.Pools(context.Background(), []string{"0xAAA", " 0xBBB"})
	require.NoError(t, err)

	ids, ok := got.Variables["ids"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"0xaaa", "0xbbb"}, ids)

	require.Len(t, pools, 2)
	assert.Equal(t, "0xbbb", pools[0].ID)
	assert.Equal(t, "0xaaa", pools[1].ID)
	assert.Equal(t, uint8(8), pools[0].Tokens[0].Decimals)
	assert.Equal(t, "2000.5", pools[0].Liquidity)
}

func TestPoolsGraphErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad query"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Pools(context.Background(), []string{"0x1"})
	require.ErrorContains(t, err, "bad query")
}

func TestPoolsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Pools(context.Background(), []string{"0x1"})
	require.ErrorContains(t, err, "status 503")
}
