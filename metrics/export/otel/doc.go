// Package otel binds authority counters to OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per lifecycle stage
// (login, refresh, logout, revocation, register, validate) with the stage's
// counters split by an "outcome" attribute. Validation latency is a gauge
// of cumulative bucket counts keyed by "le". One callback reads the
// snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate authority state.
package otel
