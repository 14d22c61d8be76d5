package models

import "time"

// CameraEvent is a single entry of the persisted event log.
type CameraEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CONNECTED | DISCONNECTED | PROPERTY_CHANGE | WARNING | ERROR | CAPTURE | RECORDING
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

// Event log types.
const (
	EventConnected      = "CONNECTED"
	EventDisconnected   = "DISCONNECTED"
	EventPropertyChange = "PROPERTY_CHANGE"
	EventWarning        = "WARNING"
	EventError          = "ERROR"
	EventCapture        = "CAPTURE"
	EventRecording      = "RECORDING"
)
