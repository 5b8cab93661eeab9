// Package prometheus exposes authority counters as a Prometheus collector.
//
// [Collector] reads [tokenauth.Authority.MetricsSnapshot] on every scrape.
// Counters are named tokenauth_*_total; the one histogram is
// tokenauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry. Callers register the
//     Collector on their own registry.
//   - Mutate authority state.
package prometheus
