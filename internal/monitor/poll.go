package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

// Fingerprinter summarizes connectivity-relevant system state as a string
// that changes whenever the state does.
type Fingerprinter func(ctx context.Context) (string, error)

// PollSignal turns periodic fingerprinting into edge-triggered signals: the
// handler runs once on registration and then only when the fingerprint
// changes between ticks. Used where no kernel notification is available.
type PollSignal struct {
	mu          sync.Mutex
	interval    time.Duration
	fingerprint Fingerprinter
	active      *pollRegistration
}

func NewPollSignal(interval time.Duration, fp Fingerprinter) *PollSignal {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PollSignal{interval: interval, fingerprint: fp}
}

func (p *PollSignal) Name() string { return "poll" }

// SetInterval changes the poll interval. Takes effect on the next
// registration.
func (p *PollSignal) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

func (p *PollSignal) Register(handler SignalHandler) (Registration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return nil, ErrAlreadyRegistered
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &pollRegistration{p: p, cancel: cancel}
	p.active = reg
	go p.run(ctx, p.interval, handler)
	return reg, nil
}

func (p *PollSignal) run(ctx context.Context, interval time.Duration, handler SignalHandler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last, lastErr := p.fingerprint(ctx)
	if ctx.Err() != nil {
		return
	}
	handler(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fp, err := p.fingerprint(ctx)
			if err != nil && lastErr == nil {
				log.Printf("[poll] fingerprint error: %v", err)
			}
			changed := fp != last || (err == nil) != (lastErr == nil)
			last, lastErr = fp, err
			if !changed || ctx.Err() != nil {
				continue
			}
			handler(ctx)
		}
	}
}

type pollRegistration struct {
	p      *PollSignal
	cancel context.CancelFunc
	once   sync.Once
}

// Close stops the poll loop. It does not wait for an in-flight handler, so
// it can be called from inside one.
func (r *pollRegistration) Close() error {
	r.once.Do(func() {
		r.cancel()
		r.p.mu.Lock()
		if r.p.active == r {
			r.p.active = nil
		}
		r.p.mu.Unlock()
	})
	return nil
}
