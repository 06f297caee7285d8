package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	CredentialRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_credential_refresh_total",
		Help: "Credential refresh attempts by outcome (success, transient, failed).",
	}, []string{"outcome"})

	SyncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_sync_runs_total",
		Help: "Ingestion runs by sync type and final status.",
	}, []string{"type", "status"})

	SyncItemsWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_sync_items_written_total",
		Help: "Documents written by ingestion runs.",
	}, []string{"type"})

	AnalyticsDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insights_analytics_duration_seconds",
		Help:    "Time spent computing analytics views.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
)

// InitCustomMetrics registers the service metrics with reg. Collectors exist
// before registration, so unregistered use in tests is safe.
func InitCustomMetrics(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for name, c := range map[string]prometheus.Collector{
		"CredentialRefreshTotal": CredentialRefreshTotal,
		"SyncRunsTotal":          SyncRunsTotal,
		"SyncItemsWrittenTotal":  SyncItemsWrittenTotal,
		"AnalyticsDuration":      AnalyticsDuration,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
}
