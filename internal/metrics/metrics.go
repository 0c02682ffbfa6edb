// Package metrics records operational metrics of a clique search behind a
// narrow, pluggable Backend.
//
// The default backend is a no-op, so callers can record unconditionally.
// Concrete metric systems live in subpackages (see prompush) and are installed
// once at startup with SetBackend.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

const (
	WordsTotal        = "cliques_words_total"
	FingerprintsTotal = "cliques_fingerprints_total"
	CombinationsTotal = "cliques_combinations_total"
	RowsTotal         = "cliques_rows_total"
	PhaseDurationSecs = "cliques_phase_duration_seconds"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordPhase observes how long a search phase (reduce, index, search) took.
func RecordPhase(phase string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	backend.ObserveHistogram(PhaseDurationSecs, d.Seconds(), Labels{
		"phase":  phase,
		"status": status,
	})
}

// RecordWords counts dictionary words of the given kind ("read" or
// "admissible").
func RecordWords(kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(WordsTotal, float64(n), Labels{"kind": kind})
}

func RecordFingerprints(n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(FingerprintsTotal, float64(n), nil)
}

func RecordCombinations(n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(CombinationsTotal, float64(n), nil)
}

func RecordRows(n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(n), nil)
}
