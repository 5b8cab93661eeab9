package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/w22116972/tokenauth"
	"github.com/w22116972/tokenauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tokenauth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() tokenauth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenauth.MetricsSnapshot{
		Counters:   make(map[tokenauth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokenauth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// point returns the value observed for name whose attribute key equals
// value. An empty key selects the point without attributes.
func point(rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	match := func(set attribute.Set) bool {
		if key == "" {
			return set.Len() == 0
		}
		v, ok := set.Value(attribute.Key(key))
		return ok && v.AsString() == value
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					if match(dp.Attributes) {
						return dp.Value, true
					}
				}
			}
		}
	}
	return 0, false
}

func TestExporterObservesSnapshot(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: tokenauth.MetricsSnapshot{
			Counters: map[tokenauth.MetricID]uint64{
				tokenauth.MetricLoginSuccess:      3,
				tokenauth.MetricRefreshMismatch:   1,
				tokenauth.MetricLogout:            4,
				tokenauth.MetricRevocationWritten: 2,
				tokenauth.MetricValidateRevoked:   6,
			},
			Histograms: map[tokenauth.MetricID][]uint64{
				tokenauth.MetricValidateLatency: {2, 1, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 5,
	}

	exp, err := NewExporter(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	cases := []struct {
		name, key, value string
		want             int64
	}{
		{"tokenauth.login", "outcome", "success", 3},
		{"tokenauth.login", "outcome", "rate_limited", 0},
		{"tokenauth.refresh", "outcome", "mismatch", 1},
		{"tokenauth.refresh", "outcome", "rotated", 0},
		{"tokenauth.logout", "", "", 4},
		{"tokenauth.revocation.written", "", "", 2},
		{"tokenauth.validate", "outcome", "revoked", 6},
		{"tokenauth.audit.dropped", "", "", 5},
		{"tokenauth.validate.latency.bucket", "le", "0.005", 2},
		{"tokenauth.validate.latency.bucket", "le", "0.01", 3},
		{"tokenauth.validate.latency.bucket", "le", "+Inf", 4},
		{"tokenauth.validate.latency.count", "", "", 4},
	}
	for _, tc := range cases {
		got, ok := point(rm, tc.name, tc.key, tc.value)
		if !ok {
			t.Fatalf("%s{%s=%q} not collected", tc.name, tc.key, tc.value)
		}
		if got != tc.want {
			t.Fatalf("%s{%s=%q} = %d, want %d", tc.name, tc.key, tc.value, got, tc.want)
		}
	}
}

func TestFamiliesCoverEveryCounter(t *testing.T) {
	seen := map[tokenauth.MetricID]int{}
	for _, f := range families {
		for _, o := range f.outcomes {
			seen[o.id]++
		}
	}
	for _, def := range internaldefs.CounterDefs {
		if seen[def.ID] != 1 {
			t.Fatalf("%s observed by %d families, want 1", def.Name, seen[def.ID])
		}
	}
	if len(seen) != len(internaldefs.CounterDefs) {
		t.Fatalf("families observe %d counters, defs list %d", len(seen), len(internaldefs.CounterDefs))
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newReader()
	if _, err := NewExporter(provider.Meter("tokenauth-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollect(t *testing.T) {
	reader, provider := newReader()
	src := &fakeSource{
		snapshot: tokenauth.MetricsSnapshot{
			Counters: map[tokenauth.MetricID]uint64{tokenauth.MetricLogout: 1},
		},
	}

	exp, err := NewExporter(provider.Meter("tokenauth-test"), src)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokenauth.MetricLogout] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
