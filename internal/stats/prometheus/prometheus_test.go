package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/3vilTid/Catalogue-Web-App/internal/stats"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry != prometheus.DefaultRegisterer {
		t.Error("New(nil) should use the default registerer")
	}
}

func TestCollector_Counter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricRequests, 5)
	c.IncCounter(stats.MetricRequests, 3)

	f := gather(t, reg, stats.MetricRequests)
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if f.GetHelp() != stats.Help(stats.MetricRequests) {
		t.Errorf("help = %q, want %q", f.GetHelp(), stats.Help(stats.MetricRequests))
	}
}

func TestCollector_Gauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricOnline, 1)
	c.SetGauge(stats.MetricOnline, 0)

	f := gather(t, reg, stats.MetricOnline)
	if got := f.GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Errorf("gauge value = %v, want 0", got)
	}
}

func TestCollector_Histogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	for _, v := range []float64{0.01, 0.2, 3} {
		c.ObserveHistogram(stats.MetricFetchSeconds, v)
	}

	f := gather(t, reg, stats.MetricFetchSeconds)
	if got := f.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("histogram count = %v, want 3", got)
	}
}

func TestCollector_UnknownNameUsedAsHelp(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter("adhoc_total", 1)

	if f := gather(t, reg, "adhoc_total"); f.GetHelp() != "adhoc_total" {
		t.Errorf("help = %q, want %q", f.GetHelp(), "adhoc_total")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricPartitionHits, 1)
				c.ObserveHistogram(stats.MetricFetchSeconds, float64(j))
			}
		}()
	}
	wg.Wait()

	if got := gather(t, reg, stats.MetricPartitionHits).GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("counter value = %v, want 1000", got)
	}
	if got := gather(t, reg, stats.MetricFetchSeconds).GetMetric()[0].GetHistogram().GetSampleCount(); got != 1000 {
		t.Errorf("histogram count = %v, want 1000", got)
	}
}

func TestCollector_AdoptsRegisteredMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: stats.MetricSnapshotSaves,
		Help: stats.Help(stats.MetricSnapshotSaves),
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter(stats.MetricSnapshotSaves, 5)

	if got := gather(t, reg, stats.MetricSnapshotSaves).GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}
