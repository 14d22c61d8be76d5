package camera

import (
	"context"
	"fmt"
	"sync"

	"controlling_camera/internal/models"
)

// Property codes served by the simulated camera. Real bodies report many
// more; these are enough to exercise every control path.
const (
	CodeISO          models.PropertyCode = "ISO"
	CodeShutterSpeed models.PropertyCode = "ShutterSpeed"
	CodeFNumber      models.PropertyCode = "FNumber"
	CodeWhiteBalance models.PropertyCode = "WhiteBalance"
	CodeDriveMode    models.PropertyCode = "DriveMode"
	CodeExposureMode models.PropertyCode = "ExposureMode"
	CodeBatteryLevel models.PropertyCode = "BatteryLevel"
)

// SimConnector is an in-process stand-in for the vendor control library.
// Sessions it hands out behave deterministically: every mutating call
// produces the matching event on the stream before the call returns, so
// the orchestrator sees the same ordering a real body would produce,
// minus network latency.
type SimConnector struct{}

// NewSimConnector returns a connector backed by the simulated camera.
func NewSimConnector() *SimConnector { return &SimConnector{} }

// Discover reports the single simulated body.
func (c *SimConnector) Discover(_ context.Context) ([]DiscoveredCamera, error) {
	return []DiscoveredCamera{
		{Model: "SIM-A1", IP: "192.0.2.10", MAC: "02:00:5e:00:53:01"},
	}, nil
}

// Connect opens a session against the simulated body.
func (c *SimConnector) Connect(_ context.Context, target Target) (Session, error) {
	if target.IP == "" {
		return nil, fmt.Errorf("connect: target IP is empty")
	}
	if target.Fingerprint != "" && target.Fingerprint != simFingerprint {
		return nil, fmt.Errorf("connect %s: host key mismatch", target.IP)
	}
	return newSimSession(target), nil
}

const simFingerprint = "SHA256:5Im5hc2ltdWxhdGVkIGhvc3Qga2V5IGhhc2gA"

// FetchSSHFingerprint returns the simulated host key fingerprint.
func (c *SimConnector) FetchSSHFingerprint(_ context.Context, target Target) (string, error) {
	if target.IP == "" {
		return "", fmt.Errorf("fetch fingerprint: target IP is empty")
	}
	return simFingerprint, nil
}

type simSession struct {
	mu        sync.Mutex
	info      Info
	props     map[models.PropertyCode]*PropertyRecord
	order     []models.PropertyCode
	events    chan Event
	recording bool
	closed    bool
	closeOnce sync.Once
	battery   int
}

func newSimSession(target Target) *simSession {
	s := &simSession{
		info:    Info{Model: "SIM-A1", Address: target.IP},
		props:   make(map[models.PropertyCode]*PropertyRecord),
		events:  make(chan Event, 64),
		battery: 87,
	}
	s.addProperty(CodeISO, 400, []int64{100, 200, 400, 800, 1600, 3200, 6400, 12800}, true)
	s.addProperty(CodeShutterSpeed, 250, []int64{8000, 4000, 2000, 1000, 500, 250, 125, 60, 30, 15, 8, 4}, true)
	s.addProperty(CodeFNumber, 28, []int64{14, 20, 28, 40, 56, 80, 110}, true)
	s.addProperty(CodeWhiteBalance, 0, []int64{0, 1, 2, 3, 4}, true)
	s.addProperty(CodeDriveMode, 0, []int64{0, 1, 2}, true)
	s.addProperty(CodeExposureMode, 1, []int64{0, 1, 2, 3}, true)
	s.addProperty(CodeBatteryLevel, int64(s.battery), nil, false)

	s.emit(Event{Kind: EventConnected})
	s.emit(Event{Kind: EventInfoChanged, Status: s.statusLocked()})
	return s
}

func (s *simSession) addProperty(code models.PropertyCode, raw int64, allowed []int64, writable bool) {
	s.props[code] = &PropertyRecord{
		Code:     code,
		Value:    formatSimValue(code, raw),
		Raw:      raw,
		Allowed:  allowed,
		Writable: writable,
	}
	s.order = append(s.order, code)
}

// formatSimValue is the simulated stand-in for the vendor's per-property
// display formatting.
func formatSimValue(code models.PropertyCode, raw int64) string {
	switch code {
	case CodeISO:
		return fmt.Sprintf("ISO %d", raw)
	case CodeShutterSpeed:
		return fmt.Sprintf("1/%d", raw)
	case CodeFNumber:
		return fmt.Sprintf("f/%.1f", float64(raw)/10)
	case CodeWhiteBalance:
		names := []string{"Auto", "Daylight", "Cloudy", "Tungsten", "Flash"}
		if raw >= 0 && int(raw) < len(names) {
			return names[raw]
		}
	case CodeDriveMode:
		names := []string{"Single", "Continuous", "Timer"}
		if raw >= 0 && int(raw) < len(names) {
			return names[raw]
		}
	case CodeExposureMode:
		names := []string{"P", "A", "S", "M"}
		if raw >= 0 && int(raw) < len(names) {
			return names[raw]
		}
	case CodeBatteryLevel:
		return fmt.Sprintf("%d%%", raw)
	}
	return fmt.Sprintf("%d", raw)
}

// emit delivers an event to the stream, dropping when the buffer is full.
// Callers hold no lock or the session lock; the channel is buffered so
// this never blocks the calling request.
func (s *simSession) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *simSession) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *simSession) GetProperty(_ context.Context, code models.PropertyCode) (PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return PropertyRecord{}, fmt.Errorf("session closed")
	}
	p, ok := s.props[code]
	if !ok {
		return PropertyRecord{}, fmt.Errorf("unknown property %q", code)
	}
	return cloneRecord(p), nil
}

func (s *simSession) GetAllProperties(_ context.Context) ([]PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session closed")
	}
	out := make([]PropertyRecord, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, cloneRecord(s.props[code]))
	}
	return out, nil
}

// SetProperty applies a write the way real bodies do: the raw value is
// clamped to the nearest allowed value, and the result is reported back
// through a PropertyChanged event rather than the call's return.
func (s *simSession) SetProperty(_ context.Context, code models.PropertyCode, raw int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	p, ok := s.props[code]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown property %q", code)
	}
	if !p.Writable {
		s.mu.Unlock()
		return fmt.Errorf("property %q is not writable", code)
	}
	p.Raw = clampToAllowed(p.Allowed, raw)
	p.Value = formatSimValue(code, p.Raw)
	s.mu.Unlock()

	s.emit(Event{Kind: EventPropertyChanged, Codes: []models.PropertyCode{code}})
	return nil
}

func (s *simSession) Capture(_ context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	if s.battery > 0 {
		s.battery--
	}
	s.props[CodeBatteryLevel].Raw = int64(s.battery)
	s.props[CodeBatteryLevel].Value = formatSimValue(CodeBatteryLevel, int64(s.battery))
	status := s.statusLocked()
	s.mu.Unlock()

	s.emit(Event{Kind: EventDownloadComplete})
	s.emit(Event{Kind: EventInfoChanged, Status: status})
	return nil
}

func (s *simSession) StartRecording(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if s.recording {
		return fmt.Errorf("already recording")
	}
	s.recording = true
	return nil
}

func (s *simSession) StopRecording(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	if !s.recording {
		return fmt.Errorf("not recording")
	}
	s.recording = false
	return nil
}

// HalfPressShutter reports a focus lock straight away. Real bodies take
// up to a second and may never answer in continuous AF; the orchestrator's
// release deadline covers that case.
func (s *simSession) HalfPressShutter(_ context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventWarning, WarningCode: WarningAFStatus, Params: []int{afParamFocused}})
	return nil
}

func (s *simSession) ReleaseShutter(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session closed")
	}
	return nil
}

func (s *simSession) Events() <-chan Event {
	return s.events
}

func (s *simSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}

// statusLocked assembles the hardware readout; callers hold s.mu.
func (s *simSession) statusLocked() models.CameraStatus {
	return models.CameraStatus{
		BatteryPercent: s.battery,
		Lens:           "SIM 24-70mm F2.8",
		FocalLengthMM:  50,
		OverheatState:  "NORMAL",
		Slots: []models.SlotInfo{
			{Index: 1, Status: "OK", RemainingShots: 999},
			{Index: 2, Status: "NO_CARD"},
		},
	}
}

func cloneRecord(p *PropertyRecord) PropertyRecord {
	out := *p
	out.Allowed = append([]int64(nil), p.Allowed...)
	return out
}

// clampToAllowed snaps raw to the nearest allowed value. Unconstrained
// properties accept any raw value.
func clampToAllowed(allowed []int64, raw int64) int64 {
	if len(allowed) == 0 {
		return raw
	}
	best := allowed[0]
	bestDist := absDiff(raw, best)
	for _, v := range allowed[1:] {
		if d := absDiff(raw, v); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
