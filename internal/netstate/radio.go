package netstate

import (
	"fmt"
	"strconv"
	"strings"
)

// RadioTech is a mobile radio-technology code. Values match the Android
// TelephonyManager NETWORK_TYPE_* constants so codes reported by a modem or
// a phone bridge can be used unchanged.
type RadioTech int

const (
	RadioUnknown RadioTech = 0
	RadioGPRS    RadioTech = 1
	RadioEDGE    RadioTech = 2
	RadioUMTS    RadioTech = 3
	RadioCDMA    RadioTech = 4
	RadioEVDO0   RadioTech = 5
	RadioEVDOA   RadioTech = 6
	Radio1xRTT   RadioTech = 7
	RadioHSDPA   RadioTech = 8
	RadioHSUPA   RadioTech = 9
	RadioHSPA    RadioTech = 10
	RadioIDEN    RadioTech = 11
	RadioEVDOB   RadioTech = 12
	RadioLTE     RadioTech = 13
	RadioEHRPD   RadioTech = 14
	RadioHSPAP   RadioTech = 15
	RadioGSM     RadioTech = 16
	RadioTDSCDMA RadioTech = 17
	RadioIWLAN   RadioTech = 18
	RadioLTECA   RadioTech = 19
	RadioNR      RadioTech = 20
)

// Generation is the family a radio technology belongs to.
type Generation int

const (
	GenerationUnknown Generation = iota
	Generation2G
	Generation3G
	Generation4G
)

func (g Generation) String() string {
	switch g {
	case Generation2G:
		return "2G"
	case Generation3G:
		return "3G"
	case Generation4G:
		return "4G"
	default:
		return "unknown"
	}
}

// generationTable is the fixed code-to-family mapping. Codes absent from the
// table (including LTE_CA and NR) are GenerationUnknown.
var generationTable = map[RadioTech]Generation{
	RadioGPRS:  Generation2G,
	RadioGSM:   Generation2G,
	RadioEDGE:  Generation2G,
	RadioCDMA:  Generation2G,
	Radio1xRTT: Generation2G,
	RadioIDEN:  Generation2G,

	RadioUMTS:    Generation3G,
	RadioEVDO0:   Generation3G,
	RadioEVDOA:   Generation3G,
	RadioHSDPA:   Generation3G,
	RadioHSUPA:   Generation3G,
	RadioHSPA:    Generation3G,
	RadioEVDOB:   Generation3G,
	RadioEHRPD:   Generation3G,
	RadioHSPAP:   Generation3G,
	RadioTDSCDMA: Generation3G,

	RadioLTE:   Generation4G,
	RadioIWLAN: Generation4G,
}

// Generation returns the family of r.
func (r RadioTech) Generation() Generation {
	return generationTable[r]
}

var radioNames = map[RadioTech]string{
	RadioUnknown: "UNKNOWN",
	RadioGPRS:    "GPRS",
	RadioEDGE:    "EDGE",
	RadioUMTS:    "UMTS",
	RadioCDMA:    "CDMA",
	RadioEVDO0:   "EVDO_0",
	RadioEVDOA:   "EVDO_A",
	Radio1xRTT:   "1xRTT",
	RadioHSDPA:   "HSDPA",
	RadioHSUPA:   "HSUPA",
	RadioHSPA:    "HSPA",
	RadioIDEN:    "iDEN",
	RadioEVDOB:   "EVDO_B",
	RadioLTE:     "LTE",
	RadioEHRPD:   "EHRPD",
	RadioHSPAP:   "HSPAP",
	RadioGSM:     "GSM",
	RadioTDSCDMA: "TD_SCDMA",
	RadioIWLAN:   "IWLAN",
	RadioLTECA:   "LTE_CA",
	RadioNR:      "NR",
}

func (r RadioTech) String() string {
	if name, ok := radioNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// ParseRadioTech accepts a symbolic name (case-insensitive, e.g. "lte",
// "1xRTT", "TD_SCDMA") or a numeric code. Unlisted numeric codes are
// accepted as-is and classify as GenerationUnknown.
func ParseRadioTech(s string) (RadioTech, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RadioUnknown, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return RadioUnknown, fmt.Errorf("negative radio code %d", n)
		}
		return RadioTech(n), nil
	}
	for r, name := range radioNames {
		if strings.EqualFold(name, s) {
			return r, nil
		}
	}
	return RadioUnknown, fmt.Errorf("unknown radio technology %q", s)
}

func (r RadioTech) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RadioTech) UnmarshalText(text []byte) error {
	v, err := ParseRadioTech(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
