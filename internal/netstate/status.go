// Package netstate classifies network connectivity snapshots and fans the
// resulting status out to registered listeners.
package netstate

import "fmt"

// ConnectStatus is the classification of the device's active connection.
type ConnectStatus int

const (
	// NoNetwork means no active connection was reported at all.
	NoNetwork ConnectStatus = iota
	// NoConnected means an active connection exists but is not connected.
	NoConnected
	Wifi
	// Mobile is the coarse mobile status. Classify never produces it;
	// mobile connections always resolve to a generation.
	Mobile
	Mobile2G
	Mobile3G
	Mobile4G
	MobileUnknown
	Other
)

var statusNames = map[ConnectStatus]string{
	NoNetwork:     "NO_NETWORK",
	NoConnected:   "NO_CONNECTED",
	Wifi:          "WIFI",
	Mobile:        "MOBILE",
	Mobile2G:      "MOBILE_2G",
	Mobile3G:      "MOBILE_3G",
	Mobile4G:      "MOBILE_4G",
	MobileUnknown: "MOBILE_UNKNOWN",
	Other:         "OTHER",
}

// AllStatuses lists every status in declaration order.
var AllStatuses = []ConnectStatus{
	NoNetwork, NoConnected, Wifi, Mobile, Mobile2G, Mobile3G, Mobile4G, MobileUnknown, Other,
}

func (s ConnectStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConnectStatus(%d)", int(s))
}

// IsMobile reports whether s is any of the mobile statuses.
func (s ConnectStatus) IsMobile() bool {
	switch s {
	case Mobile, Mobile2G, Mobile3G, Mobile4G, MobileUnknown:
		return true
	}
	return false
}

// IsConnected reports whether s describes a usable connection.
func (s ConnectStatus) IsConnected() bool {
	return s != NoNetwork && s != NoConnected
}

// ParseStatus converts a status name such as "MOBILE_4G" back to its value.
func ParseStatus(name string) (ConnectStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return NoNetwork, fmt.Errorf("unknown connect status %q", name)
}

func (s ConnectStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("invalid connect status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *ConnectStatus) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
