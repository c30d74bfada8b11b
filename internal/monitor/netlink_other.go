//go:build !linux

package monitor

import "time"

// NetlinkSignal is only available on Linux. Register always fails here so
// callers fall back to PollSignal.
type NetlinkSignal struct{}

func NewNetlinkSignal(time.Duration) *NetlinkSignal { return &NetlinkSignal{} }

func (n *NetlinkSignal) Name() string { return "netlink" }

func (n *NetlinkSignal) Register(SignalHandler) (Registration, error) {
	return nil, ErrNetlinkUnsupported
}

func NetlinkSupported() bool { return false }
