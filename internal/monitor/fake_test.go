package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/netwatch/backend/internal/netstate"
)

// fakeProvider returns whatever snapshot or error it was last given.
type fakeProvider struct {
	mu      sync.Mutex
	snap    *netstate.Snapshot
	err     error
	panics  bool
	queries int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) ActiveConnection(context.Context) (*netstate.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.panics {
		panic("provider exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.snap == nil {
		return nil, nil
	}
	s := *p.snap
	return &s, nil
}

func (p *fakeProvider) set(snap *netstate.Snapshot, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap, p.err = snap, err
}

func (p *fakeProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

// fakeTelephonyProvider adds telephony answers to fakeProvider.
type fakeTelephonyProvider struct {
	fakeProvider
	operator  string
	phoneType netstate.PhoneType
	telErr    error
	telPanics bool
}

func (p *fakeTelephonyProvider) OperatorName(context.Context) (string, error) {
	if p.telPanics {
		panic("modem gone")
	}
	return p.operator, p.telErr
}

func (p *fakeTelephonyProvider) PhoneType(context.Context) (netstate.PhoneType, error) {
	if p.telPanics {
		panic("modem gone")
	}
	return p.phoneType, p.telErr
}

// manualSignal is a SignalSource driven by the test through fire().
type manualSignal struct {
	mu          sync.Mutex
	handler     SignalHandler
	registers   int
	closes      int
	registerErr error
	closeErr    error
	leakReg     bool // return a registration alongside registerErr
}

var errRegisterRefused = errors.New("register refused")

func (m *manualSignal) Name() string { return "manual" }

func (m *manualSignal) Register(h SignalHandler) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers++
	if m.registerErr != nil {
		if m.leakReg {
			m.handler = h
			return &manualRegistration{m: m}, m.registerErr
		}
		return nil, m.registerErr
	}
	if m.handler != nil {
		return nil, ErrAlreadyRegistered
	}
	m.handler = h
	return &manualRegistration{m: m}, nil
}

// fire delivers one signal to the current handler, if any.
func (m *manualSignal) fire() {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(context.Background())
	}
}

// fireStale delivers a signal to a handler even after it was released,
// imitating a platform that races one last delivery past unregistration.
func (m *manualSignal) fireStale(h SignalHandler) {
	h(context.Background())
}

func (m *manualSignal) current() SignalHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler
}

func (m *manualSignal) counts() (registers, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registers, m.closes
}

type manualRegistration struct {
	m    *manualSignal
	once sync.Once
}

func (r *manualRegistration) Close() error {
	var err error
	r.once.Do(func() {
		r.m.mu.Lock()
		defer r.m.mu.Unlock()
		r.m.closes++
		r.m.handler = nil
		err = r.m.closeErr
	})
	return err
}

// statusLog is a concurrency-safe listener that records what it receives.
type statusLog struct {
	mu  sync.Mutex
	got []netstate.ConnectStatus
}

func (l *statusLog) OnStatusChanged(s netstate.ConnectStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, s)
}

func (l *statusLog) statuses() []netstate.ConnectStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]netstate.ConnectStatus(nil), l.got...)
}
