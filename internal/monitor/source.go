package monitor

import (
	"context"
	"errors"

	"github.com/netwatch/backend/internal/netstate"
)

var (
	ErrNoProvider         = errors.New("monitor: no connectivity provider")
	ErrNoSource           = errors.New("monitor: no signal source")
	ErrAlreadyRegistered  = errors.New("monitor: signal handler already registered")
	ErrNetlinkUnsupported = errors.New("monitor: netlink signals are not supported on this platform")
)

// Provider answers queries about the device's active connection. It is the
// boundary to the operating system (or a simulation of it).
type Provider interface {
	// Name returns a short lowercase identifier used in logs.
	Name() string

	// ActiveConnection returns the current active connection, or nil when
	// no connection is active. An error means the query could not be
	// completed at all.
	ActiveConnection(ctx context.Context) (*netstate.Snapshot, error)
}

// TelephonyInfo is implemented by providers that know about the device's
// mobile radio.
type TelephonyInfo interface {
	OperatorName(ctx context.Context) (string, error)
	PhoneType(ctx context.Context) (netstate.PhoneType, error)
}

// SignalHandler is invoked once per connectivity-change signal. The signal
// carries no payload; handlers re-query the provider.
type SignalHandler func(ctx context.Context)

// SignalSource delivers connectivity-change signals. Implementations call the
// handler from a single goroutine, one signal at a time, and stop calling it
// once the registration is closed. Registering while a registration is
// already held returns ErrAlreadyRegistered.
type SignalSource interface {
	Name() string
	Register(handler SignalHandler) (Registration, error)
}

// Registration is a held signal subscription. Close releases it and is safe
// to call more than once.
type Registration interface {
	Close() error
}
