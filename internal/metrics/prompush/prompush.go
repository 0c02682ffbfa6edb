// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A batch search has no long-lived HTTP server to scrape, so the collected
// registry is pushed to a Pushgateway when the run ends.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"crosswarped.com/cliques/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	words         *prometheus.CounterVec // cliques_words_total{kind}
	fingerprints  prometheus.Counter
	combinations  prometheus.Counter
	rows          prometheus.Counter
	phaseDuration *prometheus.SummaryVec // cliques_phase_duration_seconds{phase,status}
}

// NewBackend constructs a backend pushing to gatewayURL under jobName.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "cliques"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		words: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.WordsTotal,
				Help: "Dictionary words seen, partitioned by kind (read, admissible).",
			},
			[]string{"kind"},
		),
		fingerprints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.FingerprintsTotal,
			Help: "Distinct admissible fingerprints (anagram classes).",
		}),
		combinations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.CombinationsTotal,
			Help: "Combinations of pairwise disjoint fingerprints found.",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Result rows written after anagram expansion.",
		}),
		phaseDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.PhaseDurationSecs,
				Help:       "Duration of search phases in seconds, partitioned by phase and status.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"phase", "status"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"words":          b.words,
		"fingerprints":   b.fingerprints,
		"combinations":   b.combinations,
		"rows":           b.rows,
		"phase duration": b.phaseDuration,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.WordsTotal:
		b.words.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.FingerprintsTotal:
		b.fingerprints.Add(delta)
	case metrics.CombinationsTotal:
		b.combinations.Add(delta)
	case metrics.RowsTotal:
		b.rows.Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.PhaseDurationSecs {
		return
	}
	b.phaseDuration.WithLabelValues(labels["phase"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
