// Package otel exports portal metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per portal counter
// and one Int64ObservableGauge per latency bucket. A single callback reads
// [portal.Portal.MetricsSnapshot] on each collection cycle. Session and cart
// gauges are registered when the source is a live portal.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate portal state.
package otel
