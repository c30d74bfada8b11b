package monitor

import (
	"context"
	"fmt"
	"log"

	"github.com/netwatch/backend/internal/netstate"
)

// Queries answers one-off connectivity questions. Every call performs its own
// provider query; a failed query answers as if there were no network.
type Queries struct {
	provider Provider
}

func NewQueries(provider Provider) *Queries {
	return &Queries{provider: provider}
}

// queryProvider asks p for the active connection. A panicking provider is
// reported as a failed query.
func queryProvider(ctx context.Context, p Provider) (snap *netstate.Snapshot, err error) {
	defer recoverQuery(&err)
	return p.ActiveConnection(ctx)
}

func recoverQuery(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("provider panic: %v", r)
	}
}

func (q *Queries) snapshot(ctx context.Context) *netstate.Snapshot {
	snap, err := queryProvider(ctx, q.provider)
	if err != nil {
		log.Printf("[%s] query error: %v", q.provider.Name(), err)
		return nil
	}
	return snap
}

// Snapshot returns the current active connection, or nil.
func (q *Queries) Snapshot(ctx context.Context) *netstate.Snapshot {
	return q.snapshot(ctx)
}

func (q *Queries) Status(ctx context.Context) netstate.ConnectStatus {
	return netstate.Classify(q.snapshot(ctx))
}

func (q *Queries) IsConnected(ctx context.Context) bool {
	return netstate.IsConnected(q.snapshot(ctx))
}

func (q *Queries) IsMobileConnected(ctx context.Context) bool {
	return netstate.IsMobile(q.snapshot(ctx))
}

func (q *Queries) IsWifiConnected(ctx context.Context) bool {
	return netstate.IsWifi(q.snapshot(ctx))
}

func (q *Queries) Is2GConnected(ctx context.Context) bool {
	return netstate.Is2G(q.snapshot(ctx))
}

func (q *Queries) Is3GConnected(ctx context.Context) bool {
	return netstate.Is3G(q.snapshot(ctx))
}

func (q *Queries) Is4GConnected(ctx context.Context) bool {
	return netstate.Is4G(q.snapshot(ctx))
}

// OperatorName returns the mobile operator name, or "" when the provider has
// no telephony information.
func (q *Queries) OperatorName(ctx context.Context) string {
	ti, ok := q.provider.(TelephonyInfo)
	if !ok {
		return ""
	}
	name, err := func() (name string, err error) {
		defer recoverQuery(&err)
		return ti.OperatorName(ctx)
	}()
	if err != nil {
		log.Printf("[%s] operator query error: %v", q.provider.Name(), err)
		return ""
	}
	return name
}

// PhoneType returns the radio's phone type, PhoneNone when unknown.
func (q *Queries) PhoneType(ctx context.Context) netstate.PhoneType {
	ti, ok := q.provider.(TelephonyInfo)
	if !ok {
		return netstate.PhoneNone
	}
	pt, err := func() (pt netstate.PhoneType, err error) {
		defer recoverQuery(&err)
		return ti.PhoneType(ctx)
	}()
	if err != nil {
		log.Printf("[%s] phone type query error: %v", q.provider.Name(), err)
		return netstate.PhoneNone
	}
	return pt
}

// Report is a single consistent answer to every query, computed from one
// provider query.
type Report struct {
	Status          netstate.ConnectStatus `json:"status"`
	Connected       bool                   `json:"connected"`
	MobileConnected bool                   `json:"mobileConnected"`
	WifiConnected   bool                   `json:"wifiConnected"`
	Connected2G     bool                   `json:"connected2g"`
	Connected3G     bool                   `json:"connected3g"`
	Connected4G     bool                   `json:"connected4g"`
	Snapshot        *netstate.Snapshot     `json:"snapshot,omitempty"`
	OperatorName    string                 `json:"operatorName,omitempty"`
	PhoneType       netstate.PhoneType     `json:"phoneType"`
}

func (q *Queries) Report(ctx context.Context) Report {
	snap := q.snapshot(ctx)
	return Report{
		Status:          netstate.Classify(snap),
		Connected:       netstate.IsConnected(snap),
		MobileConnected: netstate.IsMobile(snap),
		WifiConnected:   netstate.IsWifi(snap),
		Connected2G:     netstate.Is2G(snap),
		Connected3G:     netstate.Is3G(snap),
		Connected4G:     netstate.Is4G(snap),
		Snapshot:        snap,
		OperatorName:    q.OperatorName(ctx),
		PhoneType:       q.PhoneType(ctx),
	}
}
