package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/netwatch/backend/internal/netstate"
)

// DetectorOptions tunes a Detector. The zero value is usable.
type DetectorOptions struct {
	// QueryTimeout bounds each provider query. Zero means no extra bound
	// beyond the signal's context.
	QueryTimeout time.Duration

	// SuppressUnchanged skips dispatch when a signal classifies to the same
	// status as the previous dispatch.
	SuppressUnchanged bool

	// FailureThreshold is the number of consecutive provider failures after
	// which the provider is reported as failed. Defaults to 3.
	FailureThreshold int
}

// Detector turns connectivity-change signals into status dispatches. Each
// signal triggers exactly one fresh provider query; nothing is cached
// between signals.
type Detector struct {
	mu       sync.Mutex // serializes HandleSignal
	provider Provider
	registry *netstate.Registry
	health   *providerHealth

	optMu sync.RWMutex // protects opts
	opts  DetectorOptions

	lastMu   sync.RWMutex
	last     netstate.Event
	hasLast  bool
	seq      uint64
	events   chan<- netstate.Event // nil disables event emission
	dropped  int64
	lastDrop time.Time
}

func NewDetector(provider Provider, registry *netstate.Registry, opts DetectorOptions) (*Detector, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if registry == nil {
		registry = netstate.NewRegistry()
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	return &Detector{
		provider: provider,
		registry: registry,
		health:   newProviderHealth(opts.FailureThreshold),
		opts:     opts,
	}, nil
}

// Registry returns the registry the detector dispatches to.
func (d *Detector) Registry() *netstate.Registry { return d.registry }

// Provider returns the provider queried on each signal.
func (d *Detector) Provider() Provider { return d.provider }

// SetOptions replaces the detector options. Takes effect on the next signal.
func (d *Detector) SetOptions(opts DetectorOptions) {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	d.optMu.Lock()
	d.opts = opts
	d.optMu.Unlock()
	d.health.setThreshold(opts.FailureThreshold)
}

// SetEvents configures a channel that receives one Event per dispatched
// status. Sends never block; events are dropped when the channel is full.
// Pass nil to disable.
func (d *Detector) SetEvents(ch chan<- netstate.Event) {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	d.events = ch
}

// HandleSignal processes one connectivity-change signal: query, classify,
// dispatch. It returns after every listener has been called. Concurrent
// calls are serialized. Listeners must not call HandleSignal themselves.
func (d *Detector) HandleSignal(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.optMu.RLock()
	opts := d.opts
	d.optMu.RUnlock()

	snap, err := d.query(ctx, opts.QueryTimeout)
	if err != nil {
		log.Printf("[%s] query error: %v", d.provider.Name(), err)
		d.health.recordFailure(err)
		snap = nil
	} else {
		d.health.recordSuccess()
	}
	if status, changed := d.health.transition(); changed {
		log.Printf("[%s] provider health is now %s", d.provider.Name(), status)
	}

	status := netstate.Classify(snap)

	d.lastMu.RLock()
	unchanged := d.hasLast && d.last.Status == status
	d.lastMu.RUnlock()
	if opts.SuppressUnchanged && unchanged {
		return
	}

	ev := d.record(status, snap)
	log.Printf("Connectivity changed: %s (%s)", status, snap)
	d.registry.Dispatch(status)
	d.emit(ev)
}

// query asks the provider for a snapshot within the optional timeout.
func (d *Detector) query(ctx context.Context, timeout time.Duration) (*netstate.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return queryProvider(ctx, d.provider)
}

func (d *Detector) record(status netstate.ConnectStatus, snap *netstate.Snapshot) netstate.Event {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	d.seq++
	var copied *netstate.Snapshot
	if snap != nil {
		s := *snap
		copied = &s
	}
	d.last = netstate.Event{
		Seq:      d.seq,
		Status:   status,
		Snapshot: copied,
		At:       time.Now(),
	}
	d.hasLast = true
	return d.last
}

// emit sends ev to the events channel if configured. Dropped events are
// counted and logged at most once per 10 seconds.
func (d *Detector) emit(ev netstate.Event) {
	d.lastMu.Lock()
	defer d.lastMu.Unlock()
	if d.events == nil {
		return
	}
	select {
	case d.events <- ev:
	default:
		d.dropped++
		now := time.Now()
		if d.lastDrop.IsZero() || now.Sub(d.lastDrop) >= 10*time.Second {
			log.Printf("Status events dropped: %d (channel full)", d.dropped)
			d.dropped = 0
			d.lastDrop = now
		}
	}
}

// Last returns the most recently dispatched event.
func (d *Detector) Last() (netstate.Event, bool) {
	d.lastMu.RLock()
	defer d.lastMu.RUnlock()
	return d.last, d.hasLast
}

// Health returns a copy of the provider health.
func (d *Detector) Health() Health {
	return d.health.snapshot(d.provider.Name())
}
