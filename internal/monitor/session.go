package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Session owns the detector's registration with a signal source. Stopping a
// session also clears every listener from the registry.
type Session struct {
	mu       sync.Mutex
	detector *Detector
	source   SignalSource
	reg      Registration

	// gen changes on every Start and Stop. A handler only forwards signals
	// while the generation it was created under is current, so a source
	// that delivers one last signal after Close cannot reach listeners.
	gen atomic.Uint64
}

func NewSession(detector *Detector) *Session {
	return &Session{detector: detector}
}

// Start registers the detector with src. A registration still held from an
// earlier Start is released first. If registration fails the session is
// left stopped.
func (s *Session) Start(src SignalSource) error {
	if src == nil {
		return ErrNoSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reg != nil {
		log.Printf("Session already registered with %s, releasing before restart", s.source.Name())
		s.releaseLocked()
	}

	gen := s.gen.Add(1)
	handler := func(ctx context.Context) {
		if s.gen.Load() != gen {
			return
		}
		s.detector.HandleSignal(ctx)
	}

	reg, err := src.Register(handler)
	if err != nil {
		if reg != nil {
			if cerr := reg.Close(); cerr != nil {
				log.Printf("Releasing refused %s registration: %v", src.Name(), cerr)
			}
		}
		s.gen.Add(1)
		return fmt.Errorf("registering with %s: %w", src.Name(), err)
	}

	s.source = src
	s.reg = reg
	log.Printf("Session started on %s signals", src.Name())
	return nil
}

// Stop releases the signal registration and clears the listener registry.
// Stopping a session that is not running only clears the registry.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.reg != nil {
		name := s.source.Name()
		err = s.releaseLocked()
		log.Printf("Session stopped on %s signals", name)
	}
	s.detector.Registry().Clear()
	return err
}

// Running reports whether the session holds a registration.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg != nil
}

// releaseLocked closes the current registration. Caller must hold s.mu.
func (s *Session) releaseLocked() error {
	s.gen.Add(1)
	err := s.reg.Close()
	if err != nil {
		log.Printf("Releasing %s registration: %v", s.source.Name(), err)
		err = fmt.Errorf("releasing %s registration: %w", s.source.Name(), err)
	}
	s.reg = nil
	s.source = nil
	return err
}
