package service

import (
	"controlling_camera/internal/camera"
	"controlling_camera/internal/models"
	"controlling_camera/internal/orchestrator"
)

// commandSink is the slice of the orchestrator the controller needs.
type commandSink interface {
	Submit(cmd orchestrator.Command) error
}

// ControllerService translates API calls into control-loop commands.
// Submit never blocks; a full queue surfaces as orchestrator.ErrQueueFull
// and the handler maps it to 503.
type ControllerService struct {
	sink commandSink
}

func NewControllerService(sink commandSink) *ControllerService {
	return &ControllerService{sink: sink}
}

func (s *ControllerService) Connect(target camera.Target) error {
	return s.sink.Submit(orchestrator.ConnectCommand{Target: target})
}

func (s *ControllerService) Disconnect() error {
	return s.sink.Submit(orchestrator.DisconnectCommand{})
}

func (s *ControllerService) SetProperty(code models.PropertyCode, valueIndex int) error {
	return s.sink.Submit(orchestrator.SetPropertyCommand{Code: code, ValueIndex: valueIndex})
}

func (s *ControllerService) SetPropertyRaw(code models.PropertyCode, raw int64) error {
	return s.sink.Submit(orchestrator.SetPropertyRawCommand{Code: code, Raw: raw})
}

func (s *ControllerService) Capture() error {
	return s.sink.Submit(orchestrator.CaptureCommand{})
}

func (s *ControllerService) StartRecording() error {
	return s.sink.Submit(orchestrator.StartRecordingCommand{})
}

func (s *ControllerService) StopRecording() error {
	return s.sink.Submit(orchestrator.StopRecordingCommand{})
}

func (s *ControllerService) HalfPressShutter() error {
	return s.sink.Submit(orchestrator.HalfPressShutterCommand{})
}

func (s *ControllerService) ReleaseShutter() error {
	return s.sink.Submit(orchestrator.ReleaseShutterCommand{})
}

func (s *ControllerService) SyncProperties() error {
	return s.sink.Submit(orchestrator.SyncPropertiesCommand{})
}

func (s *ControllerService) Discover() error {
	return s.sink.Submit(orchestrator.DiscoverCommand{})
}

func (s *ControllerService) FetchFingerprint(target camera.Target) error {
	return s.sink.Submit(orchestrator.FetchFingerprintCommand{Target: target})
}
