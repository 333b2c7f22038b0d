package portal

import (
	"net/http"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "disabled"
		if enabled {
			name = "enabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			for b.Loop() {
				m.CartMutated("add")
			}
		})
	}
}

func BenchmarkObserveRequestParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.ObserveRequest(http.MethodGet, "/skus", http.StatusOK, 12*time.Millisecond, nil)
		}
	})
}

func BenchmarkSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.ObserveRequest(http.MethodPost, "/applications", http.StatusCreated, 40*time.Millisecond, nil)
	b.ReportAllocs()
	for b.Loop() {
		_ = m.Snapshot()
	}
}
