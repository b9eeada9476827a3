package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"balancerStake/internal/model"
)

func TestJsonlStorageAppendsSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "pools.jsonl")
	store := NewJsonlStorage(path)

	first := model.PoolSnapshot{
		SyncedAt: "2024-01-01T00:00:00Z",
		Pools:    []model.PoolInfo{{Pair: "WETH/DAI", Address: "0xabc", Liquidity: 12.5}},
		Prices:   model.TokenPrice{"0xdef": 1.01},
	}
	second := model.PoolSnapshot{SyncedAt: "2024-01-01T00:01:00Z"}

	if err := store.PutPoolSnapshot(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.PutPoolSnapshot(second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.PoolSnapshot
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var snap model.PoolSnapshot
		if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, snap)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].Pools[0].Pair != "WETH/DAI" || got[0].Prices["0xdef"] != 1.01 {
		t.Fatalf("unexpected first snapshot: %+v", got[0])
	}
	if got[1].SyncedAt != second.SyncedAt {
		t.Fatalf("unexpected second snapshot: %+v", got[1])
	}
}

func TestJsonlStorageRequiresPath(t *testing.T) {
	if err := NewJsonlStorage("").PutPoolSnapshot(model.PoolSnapshot{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
