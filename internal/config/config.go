package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	ChainID        uint64
	RewardsAddress string
	SubgraphURL    string
	PriceURL       string
	PricePlatform  string
	PoolURL        string
	Pools          []string
	KnownTokens    map[string]string
	PrivateKey     string
	Account        string
	MaxRetries     int
	RetryBackoff   time.Duration
	ReceiptPoll    time.Duration
	CelebrateFor   time.Duration
	Listen         string
	RefreshCron    string
	Out            string
	LogLevel       string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("subgraph-url", "https://api.thegraph.com/subgraphs/name/balancer-labs/balancer")
	v.SetDefault("price-url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price-platform", "ethereum")
	v.SetDefault("pool-url", "https://pools.balancer.exchange/#/pool/")
	v.SetDefault("max-retries", 0)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("receipt-poll", 2*time.Second)
	v.SetDefault("celebrate-for", 3*time.Second)
	v.SetDefault("listen", ":8080")
	v.SetDefault("refresh-cron", "@every 1m")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		RewardsAddress: v.GetString("rewards-address"),
		SubgraphURL:    v.GetString("subgraph-url"),
		PriceURL:       v.GetString("price-url"),
		PricePlatform:  v.GetString("price-platform"),
		PoolURL:        v.GetString("pool-url"),
		Pools:          getStringSlice(v, "pools"),
		KnownTokens:    getStringMap(v, "known-tokens"),
		PrivateKey:     v.GetString("private-key"),
		Account:        v.GetString("account"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		ReceiptPoll:    v.GetDuration("receipt-poll"),
		CelebrateFor:   v.GetDuration("celebrate-for"),
		Listen:         v.GetString("listen"),
		RefreshCron:    v.GetString("refresh-cron"),
		Out:            v.GetString("out"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the fields every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.RewardsAddress == "" {
		return fmt.Errorf("rewards address is required")
	}
	if c.SubgraphURL == "" {
		return fmt.Errorf("subgraph url is required")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
