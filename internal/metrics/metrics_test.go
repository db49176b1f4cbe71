package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/talgya/cityscape/internal/engine"
)

func TestObserveTickSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	snap := engine.Snapshot{
		Buildings: make([]engine.Update, 5),
		Economics: engine.Economics{
			Population:     120,
			Jobs:           60,
			TaxRevenue:     400,
			EmploymentRate: 0.5,
		},
		Happiness: 64,
		Pollution: 17,
		Transport: engine.Transport{WellConnected: 3, Isolated: 1},
	}
	c.ObserveTick(snap, 9000, 2*time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"ticks", testutil.ToFloat64(c.Ticks), 1},
		{"population", testutil.ToFloat64(c.Population), 120},
		{"employment", testutil.ToFloat64(c.EmploymentRate), 0.5},
		{"happiness", testutil.ToFloat64(c.Happiness), 64},
		{"funds", testutil.ToFloat64(c.Funds), 9000},
		{"bright", testutil.ToFloat64(c.Buildings.WithLabelValues("bright")), 3},
		{"dim", testutil.ToFloat64(c.Buildings.WithLabelValues("dim")), 1},
		{"dark", testutil.ToFloat64(c.Buildings.WithLabelValues("dark")), 1},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %v, want %v", ch.name, ch.got, ch.want)
		}
	}
}

func TestNewCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	a.ObserveError()
	if got := testutil.ToFloat64(b.TickErrors); got != 1 {
		t.Errorf("shared tick errors = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	c.ObserveTick(engine.Snapshot{Happiness: 50}, 100, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "citysim_happiness 50") {
		t.Errorf("metrics output missing happiness:\n%s", body)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveTick(engine.Snapshot{}, 0, 0)
	c.ObserveError()
}
