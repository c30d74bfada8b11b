//go:build linux

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	netlinkGroups = unix.RTMGRP_LINK | unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR | unix.RTMGRP_IPV4_ROUTE
	// netlinkWake bounds how long a blocked receive waits before checking
	// for cancellation and pending debounced signals.
	netlinkWake = 100 * time.Millisecond
)

// NetlinkSignal delivers a signal whenever the kernel announces a link,
// address or IPv4 route change over rtnetlink. Bursts of messages arriving
// within the debounce window collapse into one signal. The handler also runs
// once on registration.
type NetlinkSignal struct {
	mu       sync.Mutex
	debounce time.Duration
	active   *netlinkRegistration
}

func NewNetlinkSignal(debounce time.Duration) *NetlinkSignal {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &NetlinkSignal{debounce: debounce}
}

func (n *NetlinkSignal) Name() string { return "netlink" }

func (n *NetlinkSignal) Register(handler SignalHandler) (Registration, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active != nil {
		return nil, ErrAlreadyRegistered
	}

	fd, err := openNetlink()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &netlinkRegistration{n: n, cancel: cancel}
	n.active = reg
	go n.run(ctx, fd, handler)
	return reg, nil
}

func openNetlink() (int, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return -1, fmt.Errorf("netlink socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: netlinkGroups}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netlink bind: %w", err)
	}
	tv := unix.NsecToTimeval(netlinkWake.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("netlink receive timeout: %w", err)
	}
	return fd, nil
}

func (n *NetlinkSignal) run(ctx context.Context, fd int, handler SignalHandler) {
	defer unix.Close(fd)

	handler(ctx)

	buf := make([]byte, 1<<16)
	var pending bool
	var lastMsg time.Time
	for {
		if ctx.Err() != nil {
			return
		}
		if pending && time.Since(lastMsg) >= n.debounce {
			pending = false
			handler(ctx)
			continue
		}

		nr, _, err := unix.Recvfrom(fd, buf, 0)
		switch {
		case err == nil:
			if nr > 0 {
				pending = true
				lastMsg = time.Now()
			}
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.ENOBUFS):
			// The kernel dropped messages; something changed.
			pending = true
			lastMsg = time.Now()
		default:
			log.Printf("[netlink] receive error, stopping: %v", err)
			return
		}
	}
}

type netlinkRegistration struct {
	n      *NetlinkSignal
	cancel context.CancelFunc
	once   sync.Once
}

// Close stops the receive loop; the socket is closed by the loop itself
// within one wake interval. Safe to call from inside the handler.
func (r *netlinkRegistration) Close() error {
	r.once.Do(func() {
		r.cancel()
		r.n.mu.Lock()
		if r.n.active == r {
			r.n.active = nil
		}
		r.n.mu.Unlock()
	})
	return nil
}

// NetlinkSupported reports whether NetlinkSignal can be used on this host.
func NetlinkSupported() bool {
	fd, err := openNetlink()
	if err != nil {
		return false
	}
	unix.Close(fd)
	return true
}
