package netstate

import (
	"fmt"
	"strings"
)

// Medium is the transport of the active connection.
type Medium int

const (
	MediumNone Medium = iota
	MediumWifi
	MediumMobile
	MediumOther
)

func (m Medium) String() string {
	switch m {
	case MediumWifi:
		return "wifi"
	case MediumMobile:
		return "mobile"
	case MediumOther:
		return "other"
	default:
		return "none"
	}
}

// ParseMedium accepts "none", "wifi", "mobile" or "other" (case-insensitive).
func ParseMedium(s string) (Medium, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MediumNone, nil
	case "wifi", "wi-fi", "wlan":
		return MediumWifi, nil
	case "mobile", "cellular", "wwan":
		return MediumMobile, nil
	case "other", "ethernet", "wired":
		return MediumOther, nil
	}
	return MediumNone, fmt.Errorf("unknown medium %q", s)
}

func (m Medium) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Medium) UnmarshalText(text []byte) error {
	v, err := ParseMedium(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Snapshot holds the facts reported for the active connection at query time.
// A nil *Snapshot means the provider reported no active connection.
type Snapshot struct {
	Connected bool      `json:"connected"`
	Medium    Medium    `json:"medium"`
	Radio     RadioTech `json:"radio,omitempty"` // only meaningful for MediumMobile
	Interface string    `json:"interface,omitempty"`
}

func (s *Snapshot) String() string {
	if s == nil {
		return "<no active connection>"
	}
	if s.Medium == MediumMobile {
		return fmt.Sprintf("%s connected=%t medium=%s radio=%s", s.Interface, s.Connected, s.Medium, s.Radio)
	}
	return fmt.Sprintf("%s connected=%t medium=%s", s.Interface, s.Connected, s.Medium)
}

// PhoneType is the telephony standard of the device's radio.
type PhoneType int

const (
	PhoneNone PhoneType = 0
	PhoneGSM  PhoneType = 1
	PhoneCDMA PhoneType = 2
	PhoneSIP  PhoneType = 3
)

func (p PhoneType) String() string {
	switch p {
	case PhoneGSM:
		return "GSM"
	case PhoneCDMA:
		return "CDMA"
	case PhoneSIP:
		return "SIP"
	default:
		return "NONE"
	}
}

func (p PhoneType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PhoneType) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "", "NONE":
		*p = PhoneNone
	case "GSM":
		*p = PhoneGSM
	case "CDMA":
		*p = PhoneCDMA
	case "SIP":
		*p = PhoneSIP
	default:
		return fmt.Errorf("unknown phone type %q", string(text))
	}
	return nil
}
