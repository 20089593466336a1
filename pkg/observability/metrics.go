package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the banking core.
type Metrics struct {
	// AuthorizationsStarted counts authorization URLs issued.
	AuthorizationsStarted prometheus.Counter
	// TokenExchanges counts code-for-token exchanges by outcome.
	TokenExchanges *prometheus.CounterVec
	// TokenRefreshes counts refresh-grant attempts by outcome.
	TokenRefreshes *prometheus.CounterVec
	// ProviderRequests counts outbound provider API calls by endpoint and status class.
	ProviderRequests *prometheus.CounterVec
	// SyncRuns counts account sync runs by outcome.
	SyncRuns *prometheus.CounterVec
	// SyncDuration observes end-to-end sync duration in seconds.
	SyncDuration prometheus.Histogram
	// AccountsReconciled counts accounts created or adjusted during sync.
	AccountsReconciled *prometheus.CounterVec
}

// NewMetrics registers and returns the banking core metrics on the given
// registerer. Use prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthorizationsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "floose_bank_authorizations_started_total",
			Help: "Number of OAuth2 authorization URLs issued.",
		}),
		TokenExchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floose_bank_token_exchanges_total",
			Help: "Number of authorization-code token exchanges.",
		}, []string{"outcome"}),
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floose_bank_token_refreshes_total",
			Help: "Number of refresh-grant attempts.",
		}, []string{"outcome"}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floose_bank_provider_requests_total",
			Help: "Number of outbound provider API requests.",
		}, []string{"endpoint", "status"}),
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floose_bank_sync_runs_total",
			Help: "Number of account synchronization runs.",
		}, []string{"outcome"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "floose_bank_sync_duration_seconds",
			Help:    "Duration of account synchronization runs.",
			Buckets: prometheus.DefBuckets,
		}),
		AccountsReconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floose_bank_accounts_reconciled_total",
			Help: "Number of accounts created or adjusted by the sync engine.",
		}, []string{"action"}),
	}
}
