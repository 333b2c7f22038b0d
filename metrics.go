package portal

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pgcportal/portal/guard"
	"github.com/pgcportal/portal/session"
)

// MetricID identifies one counter or histogram.
type MetricID uint16

const (
	// MetricRequest counts completed API requests.
	MetricRequest MetricID = iota
	// MetricRequestFailure counts requests that returned an error.
	MetricRequestFailure
	// MetricUnauthorized counts 401 responses.
	MetricUnauthorized
	MetricLoginSuccess
	MetricLoginFailure
	MetricLogout
	// MetricRemoteLogoutFailure counts server logouts that failed after the
	// local session was already cleared.
	MetricRemoteLogoutFailure
	MetricSessionRehydrated
	MetricSessionExpired
	MetricGuardApplied
	// MetricGuardReset counts fallbacks to the default guard mapping.
	MetricGuardReset
	MetricCartMutation
	MetricCartMigrated
	MetricCheckoutSuccess
	MetricCheckoutFailure
	MetricNavigationBoot
	MetricNavigationRedirect
	MetricNavigationForbidden
	MetricNavigationRender
	// MetricRequestLatency is the only histogram.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a set of lock-free counters. A nil or disabled Metrics drops
// every observation.
//
// Metrics implements the observer interfaces of api, cart, session and guard.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when latency is enabled, the request
// latency buckets. A disabled Metrics returns empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// ObserveRequest implements api.Observer.
func (m *Metrics) ObserveRequest(_, _ string, status int, latency time.Duration, err error) {
	m.Inc(MetricRequest)
	if err != nil {
		m.Inc(MetricRequestFailure)
	}
	if status == http.StatusUnauthorized {
		m.Inc(MetricUnauthorized)
	}
	m.Observe(MetricRequestLatency, latency)
}

// CartMutated implements cart.Observer.
func (m *Metrics) CartMutated(string) {
	m.Inc(MetricCartMutation)
}

// CartMigrated implements cart.Observer.
func (m *Metrics) CartMigrated(string) {
	m.Inc(MetricCartMigrated)
}

// ObserveSession implements session.Observer.
func (m *Metrics) ObserveSession(event string) {
	switch event {
	case session.EventLogin:
		m.Inc(MetricLoginSuccess)
	case session.EventLoginFailed:
		m.Inc(MetricLoginFailure)
	case session.EventLogout:
		m.Inc(MetricLogout)
	case session.EventRemoteLogout:
		m.Inc(MetricRemoteLogoutFailure)
	case session.EventRehydrated:
		m.Inc(MetricSessionRehydrated)
	case session.EventExpired:
		m.Inc(MetricSessionExpired)
	case session.EventGuardApplied:
		m.Inc(MetricGuardApplied)
	case session.EventGuardReset:
		m.Inc(MetricGuardReset)
	}
}

// ObserveNavigation implements guard.Observer.
func (m *Metrics) ObserveNavigation(outcome guard.Outcome) {
	switch outcome {
	case guard.OutcomeBoot:
		m.Inc(MetricNavigationBoot)
	case guard.OutcomeRedirect:
		m.Inc(MetricNavigationRedirect)
	case guard.OutcomeForbidden:
		m.Inc(MetricNavigationForbidden)
	case guard.OutcomeRender:
		m.Inc(MetricNavigationRender)
	}
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
