package ws

import (
	"time"

	"github.com/netwatch/backend/internal/monitor"
	"github.com/netwatch/backend/internal/netstate"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgStatus   MessageType = "status"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

// SnapshotPayload is sent once when a client connects. Status is absent
// until the first signal has been processed.
type SnapshotPayload struct {
	Status   *netstate.ConnectStatus `json:"status,omitempty"`
	Snapshot *netstate.Snapshot      `json:"snapshot,omitempty"`
	At       time.Time               `json:"at"`
	Health   monitor.Health          `json:"health"`
}

// StatusPayload carries one dispatched status.
type StatusPayload struct {
	Status netstate.ConnectStatus `json:"status"`
	At     time.Time              `json:"at"`
}
