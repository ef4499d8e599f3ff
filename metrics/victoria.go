package metrics

import (
	"fmt"
	"io"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
)

// Victoria records events into a VictoriaMetrics set.
type Victoria struct {
	set *vm.Set
}

// NewVictoria creates a collector backed by a fresh metrics set.
func NewVictoria() *Victoria {
	return &Victoria{set: vm.NewSet()}
}

// Set exposes the underlying set, e.g. to register it globally.
func (v *Victoria) Set() *vm.Set {
	return v.set
}

// WritePrometheus writes all metrics in Prometheus text exposition format.
func (v *Victoria) WritePrometheus(w io.Writer) {
	v.set.WritePrometheus(w)
}

// RecordMutation implements Collector.
func (v *Victoria) RecordMutation(op string) {
	v.set.GetOrCreateCounter(fmt.Sprintf(`labelstore_mutations_total{op=%q}`, op)).Inc()
}

// RecordSave implements Collector.
func (v *Victoria) RecordSave(duration time.Duration, bytes int, err error) {
	if err != nil {
		v.set.GetOrCreateCounter(`labelstore_save_errors_total`).Inc()
		return
	}
	v.set.GetOrCreateCounter(`labelstore_saves_total`).Inc()
	v.set.GetOrCreateHistogram(`labelstore_save_duration_seconds`).Update(duration.Seconds())
	v.set.GetOrCreateHistogram(`labelstore_save_bytes`).Update(float64(bytes))
}

// RecordRemote implements Collector.
func (v *Victoria) RecordRemote(op string, attempts int, duration time.Duration, err error) {
	v.set.GetOrCreateCounter(fmt.Sprintf(`labelstore_remote_calls_total{op=%q}`, op)).Inc()
	v.set.GetOrCreateHistogram(fmt.Sprintf(`labelstore_remote_duration_seconds{op=%q}`, op)).Update(duration.Seconds())
	if attempts > 1 {
		v.set.GetOrCreateCounter(fmt.Sprintf(`labelstore_remote_retries_total{op=%q}`, op)).Add(attempts - 1)
	}
	if err != nil {
		v.set.GetOrCreateCounter(fmt.Sprintf(`labelstore_remote_errors_total{op=%q}`, op)).Inc()
	}
}

// RecordCacheLookup implements Collector.
func (v *Victoria) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	v.set.GetOrCreateCounter(fmt.Sprintf(`labelstore_cache_lookups_total{kind=%q,result=%q}`, kind, result)).Inc()
}
