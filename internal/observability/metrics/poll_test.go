package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimedPoll(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	reg.MustRegister(pollerLastSuccessGauge)

	errStale := errors.New("stale")
	require.NoError(t, TimedPoll("vault-stats-ok", func(ctx context.Context) error { return nil })(ctx))
	assert.ErrorIs(t, TimedPoll("vault-stats-failing", func(ctx context.Context) error { return errStale })(ctx), errStale)

	families, err := reg.Gather()
	require.NoError(t, err)
	successes := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "poller_last_success_timestamp_seconds" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "type" {
					successes[label.GetValue()] = m.GetGauge().GetValue()
				}
			}
		}
	}

	assert.Positive(t, successes["vault-stats-ok"])
	assert.NotContains(t, successes, "vault-stats-failing")
}
