package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/netwatch/backend/internal/netstate"
)

func TestQueriesFollowSnapshot(t *testing.T) {
	tests := []struct {
		name                    string
		snap                    *netstate.Snapshot
		err                     error
		status                  netstate.ConnectStatus
		connected, mobile, wifi bool
		is2G, is3G, is4G        bool
	}{
		{name: "absent", status: netstate.NoNetwork},
		{name: "error", err: errors.New("denied"), status: netstate.NoNetwork},
		{
			name:   "wifi down",
			snap:   &netstate.Snapshot{Medium: netstate.MediumWifi},
			status: netstate.NoConnected,
		},
		{
			name:      "wifi",
			snap:      &netstate.Snapshot{Connected: true, Medium: netstate.MediumWifi},
			status:    netstate.Wifi,
			connected: true, wifi: true,
		},
		{
			name:      "edge",
			snap:      &netstate.Snapshot{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioEDGE},
			status:    netstate.Mobile2G,
			connected: true, mobile: true, is2G: true,
		},
		{
			name:      "hspa",
			snap:      &netstate.Snapshot{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioHSPA},
			status:    netstate.Mobile3G,
			connected: true, mobile: true, is3G: true,
		},
		{
			name:      "lte",
			snap:      &netstate.Snapshot{Connected: true, Medium: netstate.MediumMobile, Radio: netstate.RadioLTE},
			status:    netstate.Mobile4G,
			connected: true, mobile: true, is4G: true,
		},
		{
			name:      "ethernet",
			snap:      &netstate.Snapshot{Connected: true, Medium: netstate.MediumOther},
			status:    netstate.Other,
			connected: true,
		},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			p.set(tt.snap, tt.err)
			q := NewQueries(p)

			if got := q.Status(ctx); got != tt.status {
				t.Errorf("Status = %s, want %s", got, tt.status)
			}
			if got := q.IsConnected(ctx); got != tt.connected {
				t.Errorf("IsConnected = %v, want %v", got, tt.connected)
			}
			if got := q.IsMobileConnected(ctx); got != tt.mobile {
				t.Errorf("IsMobileConnected = %v, want %v", got, tt.mobile)
			}
			if got := q.IsWifiConnected(ctx); got != tt.wifi {
				t.Errorf("IsWifiConnected = %v, want %v", got, tt.wifi)
			}
			if got := q.Is2GConnected(ctx); got != tt.is2G {
				t.Errorf("Is2GConnected = %v, want %v", got, tt.is2G)
			}
			if got := q.Is3GConnected(ctx); got != tt.is3G {
				t.Errorf("Is3GConnected = %v, want %v", got, tt.is3G)
			}
			if got := q.Is4GConnected(ctx); got != tt.is4G {
				t.Errorf("Is4GConnected = %v, want %v", got, tt.is4G)
			}

			r := q.Report(ctx)
			if r.Status != tt.status || r.Connected != tt.connected || r.Connected4G != tt.is4G {
				t.Errorf("Report = %+v disagrees with individual queries", r)
			}
		})
	}
}

func TestQueriesQueryEveryCall(t *testing.T) {
	p := &fakeProvider{}
	q := NewQueries(p)
	ctx := context.Background()

	p.set(&netstate.Snapshot{Connected: true, Medium: netstate.MediumWifi}, nil)
	if !q.IsWifiConnected(ctx) {
		t.Fatal("IsWifiConnected = false, want true")
	}
	p.set(nil, nil)
	if q.IsWifiConnected(ctx) {
		t.Error("IsWifiConnected answered from a stale snapshot")
	}
	if p.queryCount() != 2 {
		t.Errorf("queries = %d, want 2", p.queryCount())
	}
}

func TestQueriesTelephony(t *testing.T) {
	ctx := context.Background()

	plain := NewQueries(&fakeProvider{})
	if got := plain.OperatorName(ctx); got != "" {
		t.Errorf("OperatorName without telephony = %q, want empty", got)
	}
	if got := plain.PhoneType(ctx); got != netstate.PhoneNone {
		t.Errorf("PhoneType without telephony = %s, want NONE", got)
	}

	tel := &fakeTelephonyProvider{operator: "Example Mobile", phoneType: netstate.PhoneGSM}
	q := NewQueries(tel)
	if got := q.OperatorName(ctx); got != "Example Mobile" {
		t.Errorf("OperatorName = %q, want %q", got, "Example Mobile")
	}
	if got := q.PhoneType(ctx); got != netstate.PhoneGSM {
		t.Errorf("PhoneType = %s, want GSM", got)
	}
	r := q.Report(ctx)
	if r.OperatorName != "Example Mobile" || r.PhoneType != netstate.PhoneGSM {
		t.Errorf("Report telephony = %q/%s", r.OperatorName, r.PhoneType)
	}

	tel.telErr = errors.New("no sim")
	if got := q.OperatorName(ctx); got != "" {
		t.Errorf("OperatorName on error = %q, want empty", got)
	}
	if got := q.PhoneType(ctx); got != netstate.PhoneNone {
		t.Errorf("PhoneType on error = %s, want NONE", got)
	}
}

func TestQueriesRecoverProviderPanic(t *testing.T) {
	ctx := context.Background()
	q := NewQueries(&fakeProvider{panics: true})

	if q.IsConnected(ctx) {
		t.Error("IsConnected = true for a panicking provider")
	}
	if got := q.Status(ctx); got != netstate.NoNetwork {
		t.Errorf("Status = %s, want NO_NETWORK", got)
	}
	r := q.Report(ctx)
	if r.Status != netstate.NoNetwork || r.Connected || r.Snapshot != nil {
		t.Errorf("Report = %+v, want NO_NETWORK without snapshot", r)
	}

	tel := &fakeTelephonyProvider{telPanics: true}
	tq := NewQueries(tel)
	if got := tq.OperatorName(ctx); got != "" {
		t.Errorf("OperatorName = %q, want empty after panic", got)
	}
	if got := tq.PhoneType(ctx); got != netstate.PhoneNone {
		t.Errorf("PhoneType = %s, want NONE after panic", got)
	}
}
