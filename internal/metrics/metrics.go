package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "offertory"

const (
	OutcomeVerified = "verified"
	OutcomeClaimed  = "claimed"
	OutcomeError    = "error"
)

const (
	RowsImported = "imported"
	RowsDropped  = "dropped"
	RowsConflict = "conflict"
)

var enabled atomic.Bool

var (
	verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Verification attempts by outcome.",
	}, []string{"outcome"})

	importRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Statement rows seen by the importer.",
	}, []string{"result"})

	matchTiers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "match_tier_total",
		Help:      "Winning match tier per pending receipt on load.",
	}, []string{"tier"})
)

// Register attaches the collectors to reg and starts recording.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{verifications, importRows, matchTiers} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering collector: %w", err)
		}
	}

	enabled.Store(true)

	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func IncVerification(outcome string) {
	if !enabled.Load() {
		return
	}

	verifications.WithLabelValues(outcome).Inc()
}

func AddImportRows(result string, n int) {
	if !enabled.Load() || n <= 0 {
		return
	}

	importRows.WithLabelValues(result).Add(float64(n))
}

func IncMatchTier(tier string) {
	if !enabled.Load() {
		return
	}

	matchTiers.WithLabelValues(tier).Inc()
}
