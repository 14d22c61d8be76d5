// Package camera defines the surface this service consumes from the vendor
// control library: a request/response session per connected body plus an
// asynchronous event stream. The real protocol lives behind these
// interfaces; the package also ships a deterministic simulated backend.
package camera

import (
	"context"

	"controlling_camera/internal/models"
)

// PropertyRecord is the vendor's view of one setting: raw value, the
// formatted rendition the catalogue produced, allowed raw values and
// writability. Codes are opaque to this service.
type PropertyRecord struct {
	Code     models.PropertyCode
	Value    string
	Raw      int64
	Allowed  []int64
	Writable bool
}

// Info identifies the connected body.
type Info struct {
	Model   string
	Address string
}

// Target names a camera to connect to. Username/Password/Fingerprint are
// only used for SSH-tunneled connections.
type Target struct {
	IP          string
	MAC         string
	Username    string
	Password    string
	Fingerprint string
}

// DiscoveredCamera is one network discovery hit.
type DiscoveredCamera struct {
	Model string `json:"model"`
	IP    string `json:"ip"`
	MAC   string `json:"mac"`
}

// Session is the live connection to a single camera. All calls are
// synchronous request/response against the vendor library; asynchronous
// device activity arrives on Events. The channel is closed when the
// device drops the link or Close is called.
type Session interface {
	Info() Info
	GetProperty(ctx context.Context, code models.PropertyCode) (PropertyRecord, error)
	GetAllProperties(ctx context.Context) ([]PropertyRecord, error)
	SetProperty(ctx context.Context, code models.PropertyCode, raw int64) error
	Capture(ctx context.Context) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	HalfPressShutter(ctx context.Context) error
	ReleaseShutter(ctx context.Context) error
	Events() <-chan Event
	Close() error
}

// Connector establishes sessions and answers discovery queries.
type Connector interface {
	Discover(ctx context.Context) ([]DiscoveredCamera, error)
	Connect(ctx context.Context, target Target) (Session, error)
	FetchSSHFingerprint(ctx context.Context, target Target) (string, error)
}

// EventKind discriminates Event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventPropertyChanged
	EventWarning
	EventError
	EventDownloadComplete
	EventInfoChanged
)

// Event is one entry of the device's asynchronous stream. Only the fields
// relevant to the Kind are populated.
type Event struct {
	Kind EventKind

	// EventDisconnected
	Err error

	// EventPropertyChanged
	Codes []models.PropertyCode

	// EventWarning
	WarningCode int
	Params      []int

	// EventError
	ErrorCode int

	// EventInfoChanged
	Status models.CameraStatus
}

// String names the kind for log lines.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventPropertyChanged:
		return "property_changed"
	case EventWarning:
		return "warning"
	case EventError:
		return "error"
	case EventDownloadComplete:
		return "download_complete"
	case EventInfoChanged:
		return "info_changed"
	default:
		return "unknown"
	}
}
