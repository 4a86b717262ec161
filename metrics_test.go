package signon

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics()

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login_success = %d, want 2", got)
	}
	if got := m.Value(MetricLoginFailure); got != 1 {
		t.Fatalf("login_failure = %d, want 1", got)
	}
	if got := m.Value(MetricSignupCompleted); got != 0 {
		t.Fatalf("untouched counter = %d, want 0", got)
	}
}

func TestMetricsOutOfRange(t *testing.T) {
	m := NewMetrics()
	m.Inc(metricIDCount)
	m.Inc(metricIDCount + 100)
	if got := m.Value(metricIDCount + 100); got != 0 {
		t.Fatalf("out-of-range counter = %d, want 0", got)
	}
	if MetricID(9999).Name() != "unknown" {
		t.Fatal("out-of-range Name should be unknown")
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil registry returned a nonzero value")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("nil registry snapshot should be empty")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.Inc(MetricSignupInitiated)
	m.Inc(MetricSignupVerified)
	m.Inc(MetricSignupVerified)

	snap := m.Snapshot()
	if len(snap.Counters) != int(metricIDCount) {
		t.Fatalf("snapshot has %d counters, want %d", len(snap.Counters), metricIDCount)
	}
	if snap.Counters[MetricSignupVerified] != 2 {
		t.Fatalf("signup_verified = %d, want 2", snap.Counters[MetricSignupVerified])
	}

	// Snapshot is a copy; later increments must not leak into it.
	m.Inc(MetricSignupVerified)
	if snap.Counters[MetricSignupVerified] != 2 {
		t.Fatal("snapshot mutated after a later Inc")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricSignupInitiated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSignupInitiated); got != 8000 {
		t.Fatalf("signup_initiated = %d, want 8000", got)
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricLoginSuccess)
		}
	})
}

func TestMetricNamesUniqueAndStable(t *testing.T) {
	seen := make(map[string]MetricID, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		name := id.Name()
		if name == "" || name == "unknown" {
			t.Fatalf("metric %d has no name", id)
		}
		if prev, ok := seen[name]; ok {
			t.Fatalf("metrics %d and %d share the name %q", prev, id, name)
		}
		seen[name] = id
	}
}
