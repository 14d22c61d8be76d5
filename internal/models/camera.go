package models

import "time"

// ConnectionState describes the service's view of the device link.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
)

// SlotInfo describes one media slot of the camera.
type SlotInfo struct {
	Index          int    `json:"index"`
	Status         string `json:"status"` // OK | NO_CARD | FULL | ERROR
	RemainingShots int    `json:"remaining_shots"`
}

// CameraStatus carries the periodic hardware readout pushed by the device.
type CameraStatus struct {
	BatteryPercent int        `json:"battery_percent"`
	Lens           string     `json:"lens,omitempty"`
	FocalLengthMM  int        `json:"focal_length_mm,omitempty"`
	OverheatState  string     `json:"overheat_state,omitempty"` // NORMAL | PRE_OVERHEAT | OVERHEAT
	Slots          []SlotInfo `json:"slots,omitempty"`
}

// KnownCamera is a discovery result remembered across restarts.
type KnownCamera struct {
	MAC      string    `json:"mac"`
	IP       string    `json:"ip"`
	Model    string    `json:"model"`
	LastSeen time.Time `json:"last_seen"`
}

// StateSnapshot is the last-known service state handed to HTTP clients.
// It is a copy assembled from update messages; mutating it has no effect
// on the control loop.
type StateSnapshot struct {
	Connection ConnectionState `json:"connection"`
	Model      string          `json:"model,omitempty"`
	Address    string          `json:"address,omitempty"`
	Recording  bool            `json:"recording"`
	Properties []Property      `json:"properties"`
	Status     CameraStatus    `json:"status"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
