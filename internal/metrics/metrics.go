// Package metrics exports city tick results as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/cityscape/internal/engine"
)

// Collector bundles the city gauges and tick counters.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	TickErrors   prometheus.Counter
	TickDuration prometheus.Histogram

	Population      prometheus.Gauge
	Jobs            prometheus.Gauge
	Pollution       prometheus.Gauge
	Happiness       prometheus.Gauge
	EmploymentRate  prometheus.Gauge
	TaxRevenue      prometheus.Gauge
	MaintenanceCost prometheus.Gauge
	PowerDemand     prometheus.Gauge
	Funds           prometheus.Gauge
	Buildings       *prometheus.GaugeVec // By connectivity status
}

// NewCollector registers city metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citysim_ticks_total",
		Help: "Total number of simulation ticks applied.",
	}), "citysim_ticks_total"); err != nil {
		return nil, err
	}
	if c.TickErrors, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citysim_tick_errors_total",
		Help: "Total number of ticks rejected because of an invalid grid.",
	}), "citysim_tick_errors_total"); err != nil {
		return nil, err
	}
	if c.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "citysim_tick_duration_seconds",
		Help:    "Wall-clock time spent computing one tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "citysim_tick_duration_seconds"); err != nil {
		return nil, err
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Population, "citysim_population", "Connectivity-scaled city population."},
		{&c.Jobs, "citysim_jobs", "Connectivity-scaled city jobs."},
		{&c.Pollution, "citysim_pollution", "City pollution, floored at zero."},
		{&c.Happiness, "citysim_happiness", "City-wide happiness, 0-100."},
		{&c.EmploymentRate, "citysim_employment_rate", "Jobs per resident, capped at 1."},
		{&c.TaxRevenue, "citysim_tax_revenue", "Tax collected in the last tick."},
		{&c.MaintenanceCost, "citysim_maintenance_cost", "Maintenance paid in the last tick."},
		{&c.PowerDemand, "citysim_power_demand", "Total power demand of all buildings."},
		{&c.Funds, "citysim_funds", "Treasury balance."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}), g.name); err != nil {
			return nil, err
		}
	}

	if c.Buildings, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "citysim_buildings",
		Help: "Number of buildings by connectivity status.",
	}, []string{"status"}), "citysim_buildings"); err != nil {
		return nil, err
	}

	return c, nil
}

// ObserveTick records one applied snapshot.
func (c *Collector) ObserveTick(snap engine.Snapshot, funds int, took time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(took.Seconds())

	eco := snap.Economics
	c.Population.Set(float64(eco.Population))
	c.Jobs.Set(float64(eco.Jobs))
	c.Pollution.Set(float64(snap.Pollution))
	c.Happiness.Set(float64(snap.Happiness))
	c.EmploymentRate.Set(eco.EmploymentRate)
	c.TaxRevenue.Set(float64(eco.TaxRevenue))
	c.MaintenanceCost.Set(float64(eco.MaintenanceCost))
	c.PowerDemand.Set(eco.PowerDemand)
	c.Funds.Set(float64(funds))

	dim := len(snap.Buildings) - snap.Transport.WellConnected - snap.Transport.Isolated
	c.Buildings.WithLabelValues("bright").Set(float64(snap.Transport.WellConnected))
	c.Buildings.WithLabelValues("dim").Set(float64(dim))
	c.Buildings.WithLabelValues("dark").Set(float64(snap.Transport.Isolated))
}

// ObserveError records a rejected tick.
func (c *Collector) ObserveError() {
	if c == nil {
		return
	}
	c.TickErrors.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
