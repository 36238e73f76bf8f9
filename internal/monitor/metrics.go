package monitor

import (
	"fmt"
	"net/http"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	modes  = []core.Mode{core.Live, core.Authoring}
	states = []core.ResolutionState{core.NotStarted, core.InProgress, core.Complete}
)

// Collector exposes anchor and host loop metrics to Prometheus.
type Collector struct {
	gatherer prometheus.Gatherer

	Anchors      *prometheus.GaugeVec
	Resolutions  *prometheus.CounterVec
	PendingTasks prometheus.Gauge
	Ticks        prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	anchors := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geoanchor_anchors",
		Help: "Number of registered anchors, labeled by mode and resolution state.",
	}, []string{"mode", "state"})
	anchors, err := registerGaugeVec(reg, anchors, "geoanchor_anchors")
	if err != nil {
		return nil, err
	}

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanchor_resolutions_total",
		Help: "Terminated resolution attempts, labeled by outcome and altitude type.",
	}, []string{"outcome", "altitude_type"})
	resolutions, err = registerCounterVec(reg, resolutions, "geoanchor_resolutions_total")
	if err != nil {
		return nil, err
	}

	pending, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoanchor_scheduler_pending_tasks",
		Help: "Continuations waiting on an asynchronous resolve.",
	}), "geoanchor_scheduler_pending_tasks")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_host_ticks_total",
		Help: "Host loop ticks executed.",
	}), "geoanchor_host_ticks_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Anchors:      anchors,
		Resolutions:  resolutions,
		PendingTasks: pending,
		Ticks:        ticks,
	}, nil
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetAnchorCounts publishes every mode and state pair, zero included.
func (c *Collector) SetAnchorCounts(counts map[core.Mode]map[core.ResolutionState]int) {
	if c == nil || c.Anchors == nil {
		return
	}
	for _, m := range modes {
		for _, s := range states {
			c.Anchors.WithLabelValues(m.String(), s.String()).Set(float64(counts[m][s]))
		}
	}
}

// ObserveResolution counts a journaled resolution record.
func (c *Collector) ObserveResolution(rec core.ResolutionRecord) {
	if c == nil || c.Resolutions == nil {
		return
	}
	c.Resolutions.WithLabelValues(string(rec.Outcome), rec.AltitudeType.String()).Inc()
}

func (c *Collector) SetPendingTasks(n int) {
	if c == nil || c.PendingTasks == nil {
		return
	}
	c.PendingTasks.Set(float64(n))
}

func (c *Collector) IncTicks() {
	if c == nil || c.Ticks == nil {
		return
	}
	c.Ticks.Inc()
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

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
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
