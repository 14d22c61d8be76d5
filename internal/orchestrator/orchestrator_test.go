package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/logger"
	"controlling_camera/internal/models"
)

// ---- fakes ----

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}
func (c *fakeClock) Now() time.Time              { return c.t }
func (c *fakeClock) Advance(d time.Duration)     { c.t = c.t.Add(d) }

type setCall struct {
	code models.PropertyCode
	raw  int64
}

type fakeSession struct {
	info   camera.Info
	props  map[models.PropertyCode]camera.PropertyRecord
	events chan camera.Event

	setCalls       []setCall
	setErr         error
	releaseCalls   int
	halfPressCalls int
	captureErr     error
	getAllCalls    int
	closed         bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		info: camera.Info{Model: "FAKE-1", Address: "10.0.0.2"},
		props: map[models.PropertyCode]camera.PropertyRecord{
			"ISO": {Code: "ISO", Value: "ISO 400", Raw: 400,
				Allowed: []int64{100, 200, 400, 800, 1600}, Writable: true},
			"ShutterSpeed": {Code: "ShutterSpeed", Value: "1/250", Raw: 250,
				Allowed: []int64{1000, 500, 250, 125, 60}, Writable: true},
			"BatteryLevel": {Code: "BatteryLevel", Value: "80%", Raw: 80, Writable: false},
		},
		events: make(chan camera.Event, 16),
	}
}

func (s *fakeSession) Info() camera.Info { return s.info }
func (s *fakeSession) GetProperty(_ context.Context, code models.PropertyCode) (camera.PropertyRecord, error) {
	p, ok := s.props[code]
	if !ok {
		return camera.PropertyRecord{}, fmt.Errorf("unknown property %q", code)
	}
	return p, nil
}
func (s *fakeSession) GetAllProperties(_ context.Context) ([]camera.PropertyRecord, error) {
	s.getAllCalls++
	out := make([]camera.PropertyRecord, 0, len(s.props))
	for _, code := range []models.PropertyCode{"ISO", "ShutterSpeed", "BatteryLevel"} {
		out = append(out, s.props[code])
	}
	return out, nil
}
func (s *fakeSession) SetProperty(_ context.Context, code models.PropertyCode, raw int64) error {
	s.setCalls = append(s.setCalls, setCall{code: code, raw: raw})
	return s.setErr
}
func (s *fakeSession) Capture(_ context.Context) error          { return s.captureErr }
func (s *fakeSession) StartRecording(_ context.Context) error   { return nil }
func (s *fakeSession) StopRecording(_ context.Context) error    { return nil }
func (s *fakeSession) HalfPressShutter(_ context.Context) error { s.halfPressCalls++; return nil }
func (s *fakeSession) ReleaseShutter(_ context.Context) error   { s.releaseCalls++; return nil }
func (s *fakeSession) Events() <-chan camera.Event              { return s.events }
func (s *fakeSession) Close() error                             { s.closed = true; return nil }

type fakeConnector struct {
	session    *fakeSession
	connectErr error
}

func (c *fakeConnector) Discover(_ context.Context) ([]camera.DiscoveredCamera, error) {
	return []camera.DiscoveredCamera{{Model: "FAKE-1", IP: "10.0.0.2", MAC: "02:00:00:00:00:01"}}, nil
}
func (c *fakeConnector) Connect(_ context.Context, _ camera.Target) (camera.Session, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.session, nil
}
func (c *fakeConnector) FetchSSHFingerprint(_ context.Context, _ camera.Target) (string, error) {
	return "SHA256:fake", nil
}

// ---- harness ----

// newTestOrchestrator wires a connected orchestrator around fakes and a
// fake clock; commands and events are driven through the handlers
// directly so time is fully simulated.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeSession, *fakeClock) {
	t.Helper()
	sess := newFakeSession()
	clock := newFakeClock()
	o := New(&fakeConnector{session: sess}, DefaultConfig(), logger.Get(logger.ErrorLevel))
	o.now = clock.Now
	o.handleCommand(context.Background(), ConnectCommand{Target: camera.Target{IP: "10.0.0.2"}})
	if o.session == nil {
		t.Fatalf("expected session after connect")
	}
	drainUpdates(o)
	return o, sess, clock
}

func drainUpdates(o *Orchestrator) []Update {
	var out []Update
	for {
		select {
		case u := <-o.updates:
			out = append(out, u)
		default:
			return out
		}
	}
}

func updatesOfType(us []Update, typ string) []Update {
	var out []Update
	for _, u := range us {
		if u.Type() == typ {
			out = append(out, u)
		}
	}
	return out
}

// ---- debounce / write pipeline through the loop handlers ----

func TestAdjustments_CoalesceToSingleWrite(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	// A, then B, then A again, all inside the debounce window.
	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 1})
	clock.Advance(100 * time.Millisecond)
	o.handleCommand(ctx, SetPropertyCommand{Code: "ShutterSpeed", ValueIndex: 0})
	clock.Advance(100 * time.Millisecond)
	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 3})

	// Nothing flushes until the last edit's window elapses.
	clock.Advance(300 * time.Millisecond)
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 0 {
		t.Fatalf("expected no writes before debounce elapsed, got %d", len(sess.setCalls))
	}

	clock.Advance(200 * time.Millisecond)
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(sess.setCalls))
	}
	if sess.setCalls[0].code != "ISO" || sess.setCalls[0].raw != 800 {
		t.Fatalf("expected last adjustment (ISO index 3 -> 800) to win, got %+v", sess.setCalls[0])
	}
}

func TestIsInFlight_AtMostOneCode(t *testing.T) {
	o, _, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 2})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)

	if !o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("expected ISO in flight after dispatch")
	}
	if o.writes.IsInFlight("ShutterSpeed", clock.Now()) {
		t.Fatalf("expected no other code in flight")
	}
}

func TestSoftTimeout_UnblocksNewAdjustments(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 2})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)

	// No confirmation ever arrives.
	clock.Advance(1999 * time.Millisecond)
	if !o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("expected write still in flight just before timeout")
	}
	clock.Advance(1 * time.Millisecond)
	if o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("expected in-flight cleared for all codes after soft timeout")
	}

	// A fresh adjustment queues and flushes despite the stale record.
	o.handleCommand(ctx, SetPropertyCommand{Code: "ShutterSpeed", ValueIndex: 1})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 2 {
		t.Fatalf("expected second write after timeout recovery, got %d", len(sess.setCalls))
	}
	if sess.setCalls[1].code != "ShutterSpeed" {
		t.Fatalf("unexpected second write: %+v", sess.setCalls[1])
	}
}

func TestLiveInFlight_DelaysNextFlush(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 2})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)

	// Queue another edit while the first is unconfirmed.
	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 4})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 1 {
		t.Fatalf("expected flush held back by live in-flight write, got %d writes", len(sess.setCalls))
	}

	// Confirmation clears the slot on the fast path; the held edit goes out.
	o.handleDeviceEvent(ctx, camera.Event{Kind: camera.EventPropertyChanged, Codes: []models.PropertyCode{"ISO"}})
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 2 {
		t.Fatalf("expected held edit dispatched after confirmation, got %d writes", len(sess.setCalls))
	}
	if sess.setCalls[1].raw != 1600 {
		t.Fatalf("expected ISO index 4 -> 1600, got %+v", sess.setCalls[1])
	}
}

func TestRoundTrip_CacheHoldsDeviceConfirmedValue(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 1})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)
	if len(sess.setCalls) != 1 || sess.setCalls[0].raw != 200 {
		t.Fatalf("expected write of ISO 200, got %+v", sess.setCalls)
	}

	// The device clamps to a different value than requested.
	p := sess.props["ISO"]
	p.Raw, p.Value = 400, "ISO 400"
	sess.props["ISO"] = p
	o.handleDeviceEvent(ctx, camera.Event{Kind: camera.EventPropertyChanged, Codes: []models.PropertyCode{"ISO"}})

	got, ok := o.cache.Get("ISO")
	if !ok {
		t.Fatalf("expected ISO in cache")
	}
	if got.CurrentRaw != 400 {
		t.Fatalf("cache should hold the device-confirmed raw (400), got %d", got.CurrentRaw)
	}
	if o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("confirmation should clear the in-flight record")
	}
}

func TestStaleConfirmation_AppliedToCacheUnconditionally(t *testing.T) {
	o, sess, _ := newTestOrchestrator(t)
	ctx := context.Background()

	p := sess.props["ShutterSpeed"]
	p.Raw, p.Value = 125, "1/125"
	sess.props["ShutterSpeed"] = p

	// No write is in flight for this code.
	o.handleDeviceEvent(ctx, camera.Event{Kind: camera.EventPropertyChanged, Codes: []models.PropertyCode{"ShutterSpeed"}})
	got, _ := o.cache.Get("ShutterSpeed")
	if got.CurrentRaw != 125 {
		t.Fatalf("stale confirmation must still update the cache, got %d", got.CurrentRaw)
	}
}

// ---- autofocus ----

func TestAF_EventPathReleasesOnce(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, HalfPressShutterCommand{})
	if sess.halfPressCalls != 1 || !o.af.Engaged() {
		t.Fatalf("expected engaged AF cycle after half press")
	}

	// Focus confirmation arrives at t+500ms, before the 1s deadline.
	clock.Advance(500 * time.Millisecond)
	o.handleDeviceEvent(ctx, camera.Event{
		Kind: camera.EventWarning, WarningCode: camera.WarningAFStatus, Params: []int{1},
	})
	if sess.releaseCalls != 1 {
		t.Fatalf("expected one release on the event path, got %d", sess.releaseCalls)
	}
	if o.af.Engaged() {
		t.Fatalf("expected AF disengaged after event-path release")
	}

	// The timer path must not fire a second release at t+1000ms.
	clock.Advance(500 * time.Millisecond)
	o.handleDeadlines(ctx)
	if sess.releaseCalls != 1 {
		t.Fatalf("timer path double-fired: %d releases", sess.releaseCalls)
	}
}

func TestAF_TimerPathReleasesOnce(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, HalfPressShutterCommand{})

	// No focus result ever arrives.
	clock.Advance(1000 * time.Millisecond)
	o.handleDeadlines(ctx)
	if sess.releaseCalls != 1 {
		t.Fatalf("expected one release on the timer path, got %d", sess.releaseCalls)
	}
	if o.af.Engaged() {
		t.Fatalf("expected AF disengaged after timer release")
	}

	// A later pass must not fire again.
	clock.Advance(1000 * time.Millisecond)
	o.handleDeadlines(ctx)
	if sess.releaseCalls != 1 {
		t.Fatalf("expected no further releases, got %d", sess.releaseCalls)
	}
}

func TestAF_UnlockAlwaysResyncs(t *testing.T) {
	o, sess, _ := newTestOrchestrator(t)
	ctx := context.Background()

	syncsBefore := sess.getAllCalls
	if o.af.Engaged() {
		t.Fatalf("precondition: AF not engaged")
	}
	o.handleDeviceEvent(ctx, camera.Event{
		Kind: camera.EventWarning, WarningCode: camera.WarningAFStatus, Params: []int{3},
	})
	if sess.getAllCalls != syncsBefore+1 {
		t.Fatalf("expected full resync on unlock regardless of engagement")
	}
	if sess.releaseCalls != 0 {
		t.Fatalf("unlock must not trigger a release")
	}
}

// ---- disconnect / lifecycle ----

func TestDisconnect_ClearsEverything(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 1})
	clock.Advance(400 * time.Millisecond)
	o.handleDeadlines(ctx)
	o.handleCommand(ctx, SetPropertyCommand{Code: "ShutterSpeed", ValueIndex: 1})
	o.handleCommand(ctx, HalfPressShutterCommand{})
	drainUpdates(o)

	o.handleCommand(ctx, DisconnectCommand{})

	if o.cache.Len() != 0 {
		t.Fatalf("expected empty cache after disconnect, got %d entries", o.cache.Len())
	}
	if o.writes.pending != nil || o.writes.inflight != nil {
		t.Fatalf("expected write slots cleared after disconnect")
	}
	if o.af.Engaged() {
		t.Fatalf("expected AF cleared after disconnect")
	}
	if o.session != nil {
		t.Fatalf("expected session released")
	}
	if !sess.closed {
		t.Fatalf("expected session closed")
	}
	us := drainUpdates(o)
	if len(updatesOfType(us, "disconnected")) != 1 {
		t.Fatalf("expected one disconnected update, got %#v", us)
	}
}

func TestDeviceDisconnectEvent_ClearsStateAndReportsError(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	o.handleDeviceEvent(ctx, camera.Event{Kind: camera.EventDisconnected, Err: errors.New("link lost")})

	if o.session != nil || o.cache.Len() != 0 {
		t.Fatalf("expected all state cleared on device-initiated disconnect")
	}
	us := drainUpdates(o)
	dis := updatesOfType(us, "disconnected")
	if len(dis) != 1 {
		t.Fatalf("expected disconnected update, got %#v", us)
	}
	if dis[0].(DisconnectedUpdate).Err != "link lost" {
		t.Fatalf("expected error carried on disconnect, got %+v", dis[0])
	}
}

func TestCommandsWithoutSession_EmitErrorUpdates(t *testing.T) {
	o := New(&fakeConnector{session: newFakeSession()}, DefaultConfig(), logger.Get(logger.ErrorLevel))
	ctx := context.Background()

	o.handleCommand(ctx, CaptureCommand{})
	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 0})
	o.handleCommand(ctx, HalfPressShutterCommand{})

	us := drainUpdates(o)
	if got := len(updatesOfType(us, "error")); got != 3 {
		t.Fatalf("expected 3 error updates, got %d (%#v)", got, us)
	}
}

func TestWriteRejection_KeepsInFlightForSoftTimeout(t *testing.T) {
	o, sess, clock := newTestOrchestrator(t)
	ctx := context.Background()
	sess.setErr = errors.New("device refused")

	o.handleCommand(ctx, SetPropertyCommand{Code: "ISO", ValueIndex: 1})
	clock.Advance(400 * time.Millisecond)
	drainUpdates(o)
	o.handleDeadlines(ctx)

	us := drainUpdates(o)
	if len(updatesOfType(us, "error")) != 1 {
		t.Fatalf("expected an error update on write rejection, got %#v", us)
	}
	// Not rolled back eagerly: the record rides out the soft timeout.
	if !o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("expected in-flight record kept after rejection")
	}
	clock.Advance(2 * time.Second)
	if o.writes.IsInFlight("ISO", clock.Now()) {
		t.Fatalf("expected rejection to clear via soft timeout")
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	o := New(&fakeConnector{session: newFakeSession()}, Config{CommandBuffer: 1}, logger.Get(logger.ErrorLevel))
	if err := o.Submit(CaptureCommand{}); err != nil {
		t.Fatalf("unexpected error on first submit: %v", err)
	}
	if err := o.Submit(CaptureCommand{}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestEmit_NeverBlocksWhenUIFull(t *testing.T) {
	o := New(&fakeConnector{session: newFakeSession()}, Config{UpdateBuffer: 1}, logger.Get(logger.ErrorLevel))
	o.emit(ErrorUpdate{Message: "one"})

	done := make(chan struct{})
	go func() {
		o.emit(ErrorUpdate{Message: "two"}) // buffer full; must drop, not block
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("emit blocked on a full update channel")
	}
}

// ---- full loop against the simulated camera ----

func TestRunLoop_ConnectAdjustConfirm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debounce = 10 * time.Millisecond
	o := New(camera.NewSimConnector(), cfg, logger.Get(logger.ErrorLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	if err := o.Submit(ConnectCommand{Target: camera.Target{IP: "192.0.2.10"}}); err != nil {
		t.Fatalf("submit connect: %v", err)
	}
	waitForUpdate(t, o.Updates(), "properties_loaded")

	if err := o.Submit(SetPropertyCommand{Code: camera.CodeISO, ValueIndex: 4}); err != nil {
		t.Fatalf("submit set: %v", err)
	}
	u := waitForUpdate(t, o.Updates(), "property_changed")
	pc := u.(PropertyChangedUpdate)
	if pc.Property.Code != camera.CodeISO || pc.Property.CurrentRaw != 1600 {
		t.Fatalf("expected confirmed ISO 1600, got %+v", pc.Property)
	}

	if err := o.Submit(DisconnectCommand{}); err != nil {
		t.Fatalf("submit disconnect: %v", err)
	}
	waitForUpdate(t, o.Updates(), "disconnected")
}

func waitForUpdate(t *testing.T, ch <-chan Update, typ string) Update {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatalf("update channel closed while waiting for %q", typ)
			}
			if u.Type() == typ {
				return u
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q update", typ)
		}
	}
}
