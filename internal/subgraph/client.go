package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const poolsQuery = `query Pools($ids: [ID!]) {
  pools(where: {id_in: $ids}) {
    id
    totalWeight
    liquidity
    tokens {
      symbol
      name
      address
      decimals
      denormWeight
      balance
    }
  }
}`

// PoolRecord is one pool as returned by the indexing service. Numeric fields
// are BigDecimal strings.
type PoolRecord struct {
	ID          string        `json:"id"`
	TotalWeight string        `json:"totalWeight"`
	Liquidity   string        `json:"liquidity"`
	Tokens      []TokenRecord `json:"tokens"`
}

// TokenRecord is one constituent token of a PoolRecord.
type TokenRecord struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Decimals     uint8  `json:"decimals"`
	DenormWeight string `json:"denormWeight"`
	Balance      string `json:"balance"`
}

type graphRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphError struct {
	Message string `json:"message"`
}

type poolsResponse struct {
	Data struct {
		Pools []PoolRecord `json:"pools"`
	} `json:"data"`
	Errors []graphError `json:"errors"`
}

// Client queries a Balancer subgraph endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient}
}

// Pools fetches all pools whose id is in ids, in one request. The subgraph
// matches ids case-sensitively against lower-case hex.
func (c *Client) Pools(ctx context.Context, ids []string) ([]PoolRecord, error) {
	lower := make([]string, 0, len(ids))
	for _, id := range ids {
		lower = append(lower, strings.ToLower(strings.TrimSpace(id)))
	}

	var resp poolsResponse
	if err := c.do(ctx, graphRequest{Query: poolsQuery, Variables: map[string]interface{}{"ids": lower}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("subgraph errors: %s", strings.Join(msgs, "; "))
	}
	return resp.Data.Pools, nil
}

func (c *Client) do(ctx context.Context, payload graphRequest, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("subgraph status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
