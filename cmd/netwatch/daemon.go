package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/netwatch/backend/internal/config"
	"github.com/netwatch/backend/internal/metrics"
	"github.com/netwatch/backend/internal/mock"
	"github.com/netwatch/backend/internal/monitor"
	"github.com/netwatch/backend/internal/netstate"
	"github.com/netwatch/backend/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
)

// daemon owns every long-lived component and the wiring between them:
// provider and signal source feed the detector, the detector dispatches
// through the registry to websocket clients and the metrics collector.
type daemon struct {
	mu  sync.Mutex
	cfg *config.Config

	registry  *netstate.Registry
	collector *metrics.Collector
	detector  *monitor.Detector
	session   *monitor.Session
	hub       *ws.Hub
	server    *ws.Server

	filter atomic.Pointer[config.InterfaceFilter]
	iface  *monitor.InterfaceProvider // nil in mock mode
	gen    *mock.Generator            // nil unless in mock mode
	poll   *monitor.PollSignal
	source monitor.SignalSource

	newNetlink func() monitor.SignalSource
}

func newDaemon(cfg *config.Config, promReg prometheus.Registerer) (*daemon, error) {
	d := &daemon{
		cfg:        cfg,
		registry:   netstate.NewRegistry(),
		newNetlink: func() monitor.SignalSource { return monitor.NewNetlinkSignal(0) },
	}
	filter := cfg.Monitor.Interfaces
	d.filter.Store(&filter)

	if cfg.Metrics.Enabled {
		collector, err := metrics.NewCollector(promReg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		d.collector = collector
		d.registry.SetObserver(collector)
	}

	var provider monitor.Provider
	if cfg.Monitor.Signal == config.SignalMock {
		gen, err := mock.NewGenerator(cfg.Mock)
		if err != nil {
			return nil, err
		}
		d.gen = gen
		provider = gen
	} else {
		d.iface = monitor.NewInterfaceProvider(monitor.InterfaceProviderOptions{
			Filter: func(name string) bool { return d.filter.Load().Allows(name) },
		})
		provider = d.iface
		d.poll = monitor.NewPollSignal(cfg.Monitor.PollInterval, d.iface.Fingerprint)
	}

	detector, err := monitor.NewDetector(provider, d.registry, detectorOptions(cfg))
	if err != nil {
		return nil, err
	}
	d.detector = detector
	d.session = monitor.NewSession(detector)

	d.hub = ws.NewHub(d.registry, detector, cfg.Server.MaxConnections)
	if d.collector != nil {
		d.hub.SetObserver(d.collector)
	}
	d.server = ws.NewServer(d.hub, detector, d.session, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	if d.collector != nil {
		d.server.SetMetricsHandler(cfg.Metrics.Path, d.collector.Handler())
	}
	return d, nil
}

func detectorOptions(cfg *config.Config) monitor.DetectorOptions {
	return monitor.DetectorOptions{
		SuppressUnchanged: cfg.Monitor.SuppressUnchanged,
		FailureThreshold:  cfg.Monitor.FailureThreshold,
	}
}

// signalSource picks the change signal for the configured kind. auto uses
// rtnetlink when the host supports it and polling otherwise.
func (d *daemon) signalSource(kind string) (monitor.SignalSource, error) {
	if d.gen != nil {
		return d.gen, nil
	}
	switch kind {
	case config.SignalNetlink:
		return d.newNetlink(), nil
	case config.SignalPoll:
		return d.poll, nil
	case config.SignalAuto:
		if monitor.NetlinkSupported() {
			return d.newNetlink(), nil
		}
		log.Printf("Netlink unavailable, polling every %v", d.cfg.Monitor.PollInterval)
		return d.poll, nil
	}
	return nil, fmt.Errorf("signal source %q not available", kind)
}

func (d *daemon) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, err := d.signalSource(d.cfg.Monitor.Signal)
	if err != nil {
		return err
	}
	err = d.session.Start(src)
	if err != nil && d.cfg.Monitor.Signal == config.SignalAuto && d.poll != nil && src != d.poll {
		log.Printf("Falling back to polling: %v", err)
		src = d.poll
		err = d.session.Start(src)
	}
	if err != nil {
		return err
	}
	d.source = src
	return nil
}

// reload applies next. Detector, interface filter and connection limit
// changes apply immediately; a signal or poll interval change restarts the
// session on a new source. Listeners stay registered across the restart.
func (d *daemon) reload(next *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	changes := config.Diff(d.cfg, next)
	if len(changes) == 0 {
		log.Println("Config reloaded, no changes")
	}
	for _, c := range changes {
		log.Printf("Config change: %s", c)
	}

	if (d.gen != nil) != (next.Monitor.Signal == config.SignalMock) {
		log.Printf("Switching between mock and live monitoring requires a restart, keeping %s", d.cfg.Monitor.Signal)
		next.Monitor.Signal = d.cfg.Monitor.Signal
	}

	d.detector.SetOptions(detectorOptions(next))
	filter := next.Monitor.Interfaces
	d.filter.Store(&filter)
	d.hub.SetMaxConnections(next.Server.MaxConnections)

	restart := next.Monitor.Signal != d.cfg.Monitor.Signal
	if d.poll != nil && next.Monitor.PollInterval != d.cfg.Monitor.PollInterval {
		d.poll.SetInterval(next.Monitor.PollInterval)
		restart = restart || d.source == d.poll
	}
	prevSignal := d.cfg.Monitor.Signal
	d.cfg = next

	if !restart {
		return nil
	}
	src, err := d.signalSource(next.Monitor.Signal)
	if err == nil {
		err = d.session.Start(src)
	}
	if err == nil {
		d.source = src
		return nil
	}

	// Session.Start released the old registration before failing, so
	// monitoring is down until a working source is registered again.
	next.Monitor.Signal = prevSignal
	if rerr := d.restore(src); rerr != nil {
		return fmt.Errorf("switching signal source: %w (restore failed: %v)", err, rerr)
	}
	return fmt.Errorf("switching signal source: %w", err)
}

// restore re-registers the session after failed was refused, trying the
// previous source first and then polling.
func (d *daemon) restore(failed monitor.SignalSource) error {
	var lastErr error
	for _, src := range []monitor.SignalSource{d.source, d.poll} {
		if src == nil || src == failed {
			continue
		}
		if err := d.session.Start(src); err != nil {
			lastErr = err
			continue
		}
		log.Printf("Signal source switch failed, monitoring continues on %s", src.Name())
		d.source = src
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no fallback signal source")
	}
	return lastErr
}

func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	d.server.SetupRoutes(mux)
	return mux
}

// stop ends monitoring and disconnects stream clients.
func (d *daemon) stop() {
	if err := d.session.Stop(); err != nil {
		log.Printf("Stopping session: %v", err)
	}
	d.hub.Close()
}
