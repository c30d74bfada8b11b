package mock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/netwatch/backend/internal/config"
	"github.com/netwatch/backend/internal/monitor"
	"github.com/netwatch/backend/internal/netstate"
)

var (
	ErrEmptyScript = errors.New("mock script has no steps")
	errStepFailed  = errors.New("mock step configured to fail")
)

// Generator replays a scripted sequence of connectivity states. It is at
// once the provider answering queries, the signal source announcing each
// scripted change, and the telephony source.
type Generator struct {
	mu        sync.Mutex
	steps     []config.MockStep
	idx       int
	interval  time.Duration
	loop      bool
	operator  string
	phoneType netstate.PhoneType
	active    *registration
}

func NewGenerator(cfg config.MockConfig) (*Generator, error) {
	if len(cfg.Script) == 0 {
		return nil, ErrEmptyScript
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Generator{
		steps:     append([]config.MockStep(nil), cfg.Script...),
		interval:  interval,
		loop:      cfg.Loop,
		operator:  cfg.Operator,
		phoneType: cfg.PhoneType,
	}, nil
}

func (g *Generator) Name() string { return "mock" }

// ActiveConnection reports the current scripted step.
func (g *Generator) ActiveConnection(context.Context) (*netstate.Snapshot, error) {
	g.mu.Lock()
	step := g.steps[g.idx]
	g.mu.Unlock()

	switch {
	case step.Fail:
		return nil, errStepFailed
	case step.Absent:
		return nil, nil
	}
	return &netstate.Snapshot{
		Connected: step.Connected,
		Medium:    step.Medium,
		Radio:     step.Radio,
		Interface: step.Interface,
	}, nil
}

func (g *Generator) OperatorName(context.Context) (string, error) {
	return g.operator, nil
}

func (g *Generator) PhoneType(context.Context) (netstate.PhoneType, error) {
	return g.phoneType, nil
}

// Step returns the index of the current scripted step.
func (g *Generator) Step() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx
}

// Advance moves to the next step, wrapping when looping is enabled. It
// reports false once a non-looping script has reached its last step.
func (g *Generator) Advance() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	next := g.idx + 1
	if next >= len(g.steps) {
		if !g.loop {
			return false
		}
		next = 0
	}
	g.idx = next
	return true
}

// Register starts replaying the script. The handler runs once immediately
// for the current step and again after every Advance performed by the
// replay loop.
func (g *Generator) Register(handler monitor.SignalHandler) (monitor.Registration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return nil, monitor.ErrAlreadyRegistered
	}
	ctx, cancel := context.WithCancel(context.Background())
	reg := &registration{g: g, cancel: cancel}
	g.active = reg
	go g.run(ctx, handler)
	return reg, nil
}

func (g *Generator) run(ctx context.Context, handler monitor.SignalHandler) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	handler(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !g.Advance() {
				log.Printf("[mock] script finished at step %d", g.Step())
				return
			}
			if ctx.Err() != nil {
				return
			}
			handler(ctx)
		}
	}
}

func (g *Generator) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("mock(step %d/%d)", g.idx+1, len(g.steps))
}

type registration struct {
	g      *Generator
	cancel context.CancelFunc
	once   sync.Once
}

func (r *registration) Close() error {
	r.once.Do(func() {
		r.cancel()
		r.g.mu.Lock()
		if r.g.active == r {
			r.g.active = nil
		}
		r.g.mu.Unlock()
	})
	return nil
}
