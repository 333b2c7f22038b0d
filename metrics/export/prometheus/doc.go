// Package prometheus renders portal metrics in the Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads a [portal.Portal] and exposes an
// [http.Handler]. Counters are named portal_*_total; the single histogram is
// portal_api_request_latency_seconds. A live portal also contributes the
// session and cart gauges from [portal.Portal.Gauges].
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate portal state.
package prometheus
