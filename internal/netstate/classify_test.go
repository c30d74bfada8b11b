package netstate

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		snap *Snapshot
		want ConnectStatus
	}{
		{"nil snapshot", nil, NoNetwork},
		{"disconnected wifi", &Snapshot{Connected: false, Medium: MediumWifi}, NoConnected},
		{"disconnected mobile", &Snapshot{Connected: false, Medium: MediumMobile, Radio: RadioLTE}, NoConnected},
		{"wifi", &Snapshot{Connected: true, Medium: MediumWifi}, Wifi},
		{"wifi ignores radio", &Snapshot{Connected: true, Medium: MediumWifi, Radio: RadioLTE}, Wifi},
		{"mobile LTE", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioLTE}, Mobile4G},
		{"mobile IWLAN", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioIWLAN}, Mobile4G},
		{"mobile HSPAP", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioHSPAP}, Mobile3G},
		{"mobile EDGE", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioEDGE}, Mobile2G},
		{"mobile NR", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioNR}, MobileUnknown},
		{"mobile unknown code", &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioTech(99)}, MobileUnknown},
		{"mobile zero code", &Snapshot{Connected: true, Medium: MediumMobile}, MobileUnknown},
		{"other", &Snapshot{Connected: true, Medium: MediumOther}, Other},
		{"connected medium none", &Snapshot{Connected: true, Medium: MediumNone}, Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.snap)
			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
			if again := Classify(tt.snap); again != got {
				t.Errorf("Classify() not stable: %s then %s", got, again)
			}
		})
	}
}

func TestClassifyNeverReturnsCoarseMobile(t *testing.T) {
	for code := RadioTech(0); code <= 30; code++ {
		s := &Snapshot{Connected: true, Medium: MediumMobile, Radio: code}
		got := Classify(s)
		if got == Mobile {
			t.Fatalf("Classify(radio=%s) returned coarse MOBILE", code)
		}
		if !got.IsMobile() {
			t.Errorf("Classify(radio=%s) = %s, want a mobile status", code, got)
		}
		if !IsMobile(s) {
			t.Errorf("IsMobile(radio=%s) = false, want true", code)
		}
	}
}

func TestGenerationTable(t *testing.T) {
	want := map[Generation][]RadioTech{
		Generation2G: {RadioGPRS, RadioGSM, RadioEDGE, RadioCDMA, Radio1xRTT, RadioIDEN},
		Generation3G: {RadioUMTS, RadioEVDO0, RadioEVDOA, RadioHSDPA, RadioHSUPA, RadioHSPA,
			RadioEVDOB, RadioEHRPD, RadioHSPAP, RadioTDSCDMA},
		Generation4G: {RadioLTE, RadioIWLAN},
	}

	listed := make(map[RadioTech]bool)
	for gen, codes := range want {
		for _, code := range codes {
			listed[code] = true
			if got := code.Generation(); got != gen {
				t.Errorf("%s.Generation() = %s, want %s", code, got, gen)
			}
		}
	}

	for code := RadioTech(0); code <= 30; code++ {
		if listed[code] {
			continue
		}
		if got := code.Generation(); got != GenerationUnknown {
			t.Errorf("%s.Generation() = %s, want unknown", code, got)
		}
	}
}

func TestPredicates(t *testing.T) {
	lte := &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioLTE}
	umts := &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioUMTS}
	gprs := &Snapshot{Connected: true, Medium: MediumMobile, Radio: RadioGPRS}
	wifi := &Snapshot{Connected: true, Medium: MediumWifi, Radio: RadioLTE}
	down := &Snapshot{Connected: false, Medium: MediumMobile, Radio: RadioLTE}

	tests := []struct {
		name string
		fn   func(*Snapshot) bool
		snap *Snapshot
		want bool
	}{
		{"IsConnected nil", IsConnected, nil, false},
		{"IsConnected down", IsConnected, down, false},
		{"IsConnected wifi", IsConnected, wifi, true},
		{"IsMobile lte", IsMobile, lte, true},
		{"IsMobile wifi", IsMobile, wifi, false},
		{"IsMobile down", IsMobile, down, false},
		{"IsWifi wifi", IsWifi, wifi, true},
		{"IsWifi lte", IsWifi, lte, false},
		{"Is4G lte", Is4G, lte, true},
		{"Is4G wifi with radio", Is4G, wifi, false},
		{"Is4G down", Is4G, down, false},
		{"Is3G umts", Is3G, umts, true},
		{"Is3G lte", Is3G, lte, false},
		{"Is2G gprs", Is2G, gprs, true},
		{"Is2G nil", Is2G, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.snap); got != tt.want {
				t.Errorf("got %t, want %t", got, tt.want)
			}
		})
	}
}

func TestParseRadioTech(t *testing.T) {
	tests := []struct {
		in      string
		want    RadioTech
		wantErr bool
	}{
		{"LTE", RadioLTE, false},
		{"lte", RadioLTE, false},
		{"1xRTT", Radio1xRTT, false},
		{"1XRTT", Radio1xRTT, false},
		{"iden", RadioIDEN, false},
		{"TD_SCDMA", RadioTDSCDMA, false},
		{"13", RadioLTE, false},
		{"42", RadioTech(42), false},
		{"", RadioUnknown, false},
		{"-1", RadioUnknown, true},
		{"6G", RadioUnknown, true},
	}

	for _, tt := range tests {
		got, err := ParseRadioTech(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRadioTech(%q) err = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRadioTech(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range AllStatuses {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", int(s), err)
		}
		var back ConnectStatus
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != s {
			t.Errorf("text round trip of %s gave %s", s, back)
		}
	}

	if _, err := ConnectStatus(100).MarshalText(); err == nil {
		t.Error("MarshalText on invalid status should fail")
	}
	if _, err := ParseStatus("LTE"); err == nil {
		t.Error("ParseStatus(LTE) should fail")
	}
}

func TestStatusPredicates(t *testing.T) {
	if NoNetwork.IsConnected() || NoConnected.IsConnected() {
		t.Error("NO_NETWORK and NO_CONNECTED must not report connected")
	}
	if !Other.IsConnected() || !Wifi.IsConnected() {
		t.Error("OTHER and WIFI should report connected")
	}
	if Wifi.IsMobile() || Other.IsMobile() {
		t.Error("WIFI and OTHER are not mobile")
	}
	if !Mobile.IsMobile() || !MobileUnknown.IsMobile() {
		t.Error("MOBILE and MOBILE_UNKNOWN are mobile")
	}
}
