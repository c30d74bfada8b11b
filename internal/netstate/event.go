package netstate

import "time"

// Event records one processed connectivity signal.
type Event struct {
	Seq      uint64        `json:"seq"`
	Status   ConnectStatus `json:"status"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"` // nil when no connection or the query failed
	At       time.Time     `json:"at"`
}
