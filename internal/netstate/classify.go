package netstate

// Classify maps a snapshot to exactly one status. It is pure and total: a nil
// snapshot is NoNetwork, and a disconnected snapshot is NoConnected whatever
// its medium.
func Classify(s *Snapshot) ConnectStatus {
	if s == nil {
		return NoNetwork
	}
	if !s.Connected {
		return NoConnected
	}
	switch s.Medium {
	case MediumWifi:
		return Wifi
	case MediumMobile:
		switch s.Radio.Generation() {
		case Generation2G:
			return Mobile2G
		case Generation3G:
			return Mobile3G
		case Generation4G:
			return Mobile4G
		default:
			return MobileUnknown
		}
	default:
		return Other
	}
}

// IsConnected reports whether s is an active, connected snapshot.
func IsConnected(s *Snapshot) bool {
	return s != nil && s.Connected
}

// IsMobile reports whether s is a connected mobile snapshot, regardless of
// radio generation.
func IsMobile(s *Snapshot) bool {
	return IsConnected(s) && s.Medium == MediumMobile
}

// IsWifi reports whether s is a connected Wi-Fi snapshot.
func IsWifi(s *Snapshot) bool {
	return IsConnected(s) && s.Medium == MediumWifi
}

// Is2G reports whether s is a connected mobile snapshot on a 2G radio.
func Is2G(s *Snapshot) bool { return IsMobile(s) && s.Radio.Generation() == Generation2G }

// Is3G reports whether s is a connected mobile snapshot on a 3G radio.
func Is3G(s *Snapshot) bool { return IsMobile(s) && s.Radio.Generation() == Generation3G }

// Is4G reports whether s is a connected mobile snapshot on a 4G radio.
func Is4G(s *Snapshot) bool { return IsMobile(s) && s.Radio.Generation() == Generation4G }
