package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadFromFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stake.yaml")
	content := []byte(`
rpc: http://localhost:8545
rewards-address: "0x1111111111111111111111111111111111111111"
pools:
  - "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
  - " 0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb "
known-tokens:
  dai: "0x6B175474E89094C44Da98b954EedeAC495271d0F"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Duration("celebrate-for", 3*time.Second, "")
	if err := flags.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.RPCURL != "http://localhost:8545" {
		t.Fatalf("rpc mismatch: %s", cfg.RPCURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level mismatch: %s", cfg.LogLevel)
	}
	if len(cfg.Pools) != 2 || cfg.Pools[1] != "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Fatalf("pools mismatch: %+v", cfg.Pools)
	}
	if cfg.KnownTokens["dai"] != "0x6B175474E89094C44Da98b954EedeAC495271d0F" {
		t.Fatalf("known tokens mismatch: %+v", cfg.KnownTokens)
	}
	if cfg.CelebrateFor != 3*time.Second {
		t.Fatalf("celebrate mismatch: %s", cfg.CelebrateFor)
	}
	if cfg.ReceiptPoll != 2*time.Second {
		t.Fatalf("receipt poll default mismatch: %s", cfg.ReceiptPoll)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap("weth=0x1, dai = 0x2,broken,=0x3")
	if len(got) != 2 || got["weth"] != "0x1" || got["dai"] != "0x2" {
		t.Fatalf("map mismatch: %+v", got)
	}
}

func TestValidateMissingRPC(t *testing.T) {
	if err := (Config{RewardsAddress: "0x1", SubgraphURL: "x"}).Validate(); err == nil {
		t.Fatalf("expected error for missing rpc")
	}
}
