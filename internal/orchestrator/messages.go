package orchestrator

import (
	"controlling_camera/internal/camera"
	"controlling_camera/internal/models"
)

// Command is a UI-originated request to the control loop. Commands are
// fire-and-forget: outcomes come back as Update messages.
type Command interface {
	// Name identifies the command for logs and metrics.
	Name() string
}

type ConnectCommand struct {
	Target camera.Target
}

type DisconnectCommand struct{}

type SetPropertyCommand struct {
	Code       models.PropertyCode
	ValueIndex int
}

type SetPropertyRawCommand struct {
	Code models.PropertyCode
	Raw  int64
}

type CaptureCommand struct{}

type StartRecordingCommand struct{}

type StopRecordingCommand struct{}

type HalfPressShutterCommand struct{}

type ReleaseShutterCommand struct{}

type SyncPropertiesCommand struct{}

type DiscoverCommand struct{}

type FetchFingerprintCommand struct {
	Target camera.Target
}

func (ConnectCommand) Name() string          { return "connect" }
func (DisconnectCommand) Name() string       { return "disconnect" }
func (SetPropertyCommand) Name() string      { return "set_property" }
func (SetPropertyRawCommand) Name() string   { return "set_property_raw" }
func (CaptureCommand) Name() string          { return "capture" }
func (StartRecordingCommand) Name() string   { return "start_recording" }
func (StopRecordingCommand) Name() string    { return "stop_recording" }
func (HalfPressShutterCommand) Name() string { return "half_press_shutter" }
func (ReleaseShutterCommand) Name() string   { return "release_shutter" }
func (SyncPropertiesCommand) Name() string   { return "sync_properties" }
func (DiscoverCommand) Name() string         { return "discover" }
func (FetchFingerprintCommand) Name() string { return "fetch_ssh_fingerprint" }

// Update is a service-originated message to the UI. Every update is a
// self-contained copy; receivers never share memory with the loop.
type Update interface {
	// Type is the envelope tag used on the websocket and MQTT mirrors.
	Type() string
}

type ConnectedUpdate struct {
	Model   string `json:"model"`
	Address string `json:"address"`
}

type DisconnectedUpdate struct {
	Err string `json:"error,omitempty"`
}

type PropertyChangedUpdate struct {
	Property models.Property `json:"property"`
}

type PropertiesLoadedUpdate struct {
	Count int `json:"count"`
}

type ErrorUpdate struct {
	Message string `json:"message"`
}

type WarningUpdate struct {
	Kind   string `json:"kind"`
	Params []int  `json:"params,omitempty"`
}

type CaptureCompleteUpdate struct {
	Success bool `json:"success"`
}

type RecordingStateUpdate struct {
	IsRecording bool `json:"is_recording"`
}

type DiscoveryStartedUpdate struct{}

type DiscoveryResultUpdate struct {
	Cameras []camera.DiscoveredCamera `json:"cameras"`
}

type CameraInfoUpdate struct {
	Status models.CameraStatus `json:"status"`
}

type FingerprintUpdate struct {
	IP          string `json:"ip"`
	MAC         string `json:"mac"`
	Fingerprint string `json:"fingerprint"`
}

type SdkEventUpdate struct {
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

func (ConnectedUpdate) Type() string        { return "connected" }
func (DisconnectedUpdate) Type() string     { return "disconnected" }
func (PropertyChangedUpdate) Type() string  { return "property_changed" }
func (PropertiesLoadedUpdate) Type() string { return "properties_loaded" }
func (ErrorUpdate) Type() string            { return "error" }
func (WarningUpdate) Type() string          { return "warning" }
func (CaptureCompleteUpdate) Type() string  { return "capture_complete" }
func (RecordingStateUpdate) Type() string   { return "recording_state_changed" }
func (DiscoveryStartedUpdate) Type() string { return "discovery_started" }
func (DiscoveryResultUpdate) Type() string  { return "discovery_result" }
func (CameraInfoUpdate) Type() string       { return "camera_info" }
func (FingerprintUpdate) Type() string      { return "ssh_fingerprint" }
func (SdkEventUpdate) Type() string         { return "sdk_event" }
