package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSubgraph(nil)
	m.ObserveSubgraph(errors.New("down"))
	m.ObserveSubgraph(errors.New("down"))
	m.ObserveTx("deposit", time.Now(), nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.subgraphRequests.WithLabelValues(ResultOK)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.subgraphRequests.WithLabelValues(ResultError)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("deposit", ResultOK)))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSubgraph(nil)
	m.ObservePrice("id", nil)
	m.ObserveRead("balance", nil)
	m.ObserveTx("claim", time.Now(), nil)
}
