package metrics

import (
	"fmt"
	"net/http"

	"github.com/netwatch/backend/internal/netstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for status dispatch. It satisfies
// netstate.DispatchObserver so a Registry can drive it directly.
type Collector struct {
	gatherer prometheus.Gatherer

	Dispatches     *prometheus.CounterVec
	ListenerPanics *prometheus.CounterVec
	Listeners      prometheus.Gauge
	CurrentStatus  *prometheus.GaugeVec
	StreamClients  prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	dispatches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_dispatches_total",
		Help: "Connectivity statuses dispatched to listeners, labeled by status.",
	}, []string{"status"}), "netwatch_dispatches_total")
	if err != nil {
		return nil, err
	}
	panics, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netwatch_listener_panics_total",
		Help: "Listener invocations that panicked, labeled by the status being dispatched.",
	}, []string{"status"}), "netwatch_listener_panics_total")
	if err != nil {
		return nil, err
	}
	listeners, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netwatch_listeners",
		Help: "Listeners registered at the most recent dispatch.",
	}), "netwatch_listeners")
	if err != nil {
		return nil, err
	}
	current, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "netwatch_status",
		Help: "1 for the most recently dispatched connectivity status, 0 for the others.",
	}, []string{"status"}), "netwatch_status")
	if err != nil {
		return nil, err
	}
	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netwatch_stream_clients",
		Help: "Connected websocket status stream clients.",
	}), "netwatch_stream_clients")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Dispatches:     dispatches,
		ListenerPanics: panics,
		Listeners:      listeners,
		CurrentStatus:  current,
		StreamClients:  clients,
	}, nil
}

func (c *Collector) OnDispatch(status netstate.ConnectStatus, listeners int) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(status.String()).Inc()
	c.Listeners.Set(float64(listeners))
	for _, s := range netstate.AllStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		c.CurrentStatus.WithLabelValues(s.String()).Set(v)
	}
}

func (c *Collector) OnListenerPanic(status netstate.ConnectStatus) {
	if c == nil {
		return
	}
	c.ListenerPanics.WithLabelValues(status.String()).Inc()
}

// SetStreamClients records the number of connected stream clients.
func (c *Collector) SetStreamClients(n int) {
	if c == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
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
