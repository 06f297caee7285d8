package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCustomMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	InitCustomMetrics(reg)

	CredentialRefreshTotal.WithLabelValues("success").Inc()
	SyncRunsTotal.WithLabelValues("media", "success").Inc()
	AnalyticsDuration.WithLabelValues("overview").Observe(0.01)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "insights_credential_refresh_total")
	assert.Contains(t, names, "insights_sync_runs_total")
	assert.Contains(t, names, "insights_analytics_duration_seconds")
	assert.GreaterOrEqual(t, testutil.ToFloat64(CredentialRefreshTotal.WithLabelValues("success")), 1.0)

	// A second registration only logs.
	InitCustomMetrics(reg)
}
