package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mode selects how keys are interpreted by the price service.
type Mode int

const (
	ByID Mode = iota
	ByAddress
)

func (m Mode) String() string {
	switch m {
	case ByID:
		return "id"
	case ByAddress:
		return "address"
	default:
		return "unknown"
	}
}

// Client looks up USD prices from a CoinGecko-compatible API.
type Client struct {
	baseURL    string
	platform   string
	httpClient *http.Client
}

func NewClient(baseURL, platform string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		platform:   platform,
		httpClient: httpClient,
	}
}

// Prices returns key -> USD price. Keys missing from the response are absent
// from the result. Address keys come back lower-cased.
func (c *Client) Prices(ctx context.Context, mode Mode, keys []string) (map[string]float64, error) {
	out := make(map[string]float64)
	if len(keys) == 0 {
		return out, nil
	}

	query := url.Values{}
	query.Set("vs_currencies", "usd")

	var endpoint string
	switch mode {
	case ByID:
		endpoint = c.baseURL + "/simple/price"
		query.Set("ids", strings.Join(keys, ","))
	case ByAddress:
		endpoint = fmt.Sprintf("%s/simple/token_price/%s", c.baseURL, url.PathEscape(c.platform))
		lower := make([]string, 0, len(keys))
		for _, key := range keys {
			lower = append(lower, strings.ToLower(key))
		}
		query.Set("contract_addresses", strings.Join(lower, ","))
	default:
		return nil, fmt.Errorf("unsupported price mode %d", mode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for key, quotes := range payload {
		usd, ok := quotes["usd"]
		if !ok {
			continue
		}
		out[key] = usd
	}
	return out, nil
}
