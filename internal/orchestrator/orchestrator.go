// Package orchestrator is the single-owner control loop between the UI
// and the camera. One goroutine multiplexes UI commands, device events
// and timer deadlines; it alone touches the property cache, the write
// pipeline, the autofocus state and the live session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/logger"
	"controlling_camera/internal/metrics"
	"controlling_camera/internal/models"
)

// Config carries the loop's tuning knobs. Zero fields fall back to the
// reference defaults.
type Config struct {
	Debounce         time.Duration // quiet window before a queued edit is written
	InFlightTimeout  time.Duration // soft timeout on an unconfirmed write
	AFReleaseTimeout time.Duration // auto-release backstop after half-press
	CommandBuffer    int
	UpdateBuffer     int
}

// DefaultConfig returns the reference timing values.
func DefaultConfig() Config {
	return Config{
		Debounce:         400 * time.Millisecond,
		InFlightTimeout:  2000 * time.Millisecond,
		AFReleaseTimeout: 1000 * time.Millisecond,
		CommandBuffer:    16,
		UpdateBuffer:     64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.InFlightTimeout <= 0 {
		c.InFlightTimeout = d.InFlightTimeout
	}
	if c.AFReleaseTimeout <= 0 {
		c.AFReleaseTimeout = d.AFReleaseTimeout
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = d.CommandBuffer
	}
	if c.UpdateBuffer <= 0 {
		c.UpdateBuffer = d.UpdateBuffer
	}
	return c
}

// ErrQueueFull is returned by Submit when the command channel is full.
var ErrQueueFull = errors.New("command queue full")

// Orchestrator runs the control loop for a single camera connection.
type Orchestrator struct {
	cfg       Config
	log       *logger.Logger
	connector camera.Connector

	cmds    chan Command
	updates chan Update

	// now is the loop's clock; tests swap it for a fake.
	now func() time.Time

	// Loop-owned state below. Only Run's goroutine (or tests driving the
	// handlers directly) touches these.
	session   camera.Session
	events    <-chan camera.Event
	cache     *propertyCache
	writes    *writePipeline
	af        *afController
	recording bool
}

// New builds an orchestrator; call Run to start the loop.
func New(connector camera.Connector, cfg Config, log *logger.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:       cfg,
		log:       log.Named("orchestrator"),
		connector: connector,
		cmds:      make(chan Command, cfg.CommandBuffer),
		updates:   make(chan Update, cfg.UpdateBuffer),
		now:       time.Now,
		cache:     newPropertyCache(),
		writes:    newWritePipeline(cfg.Debounce, cfg.InFlightTimeout),
		af:        newAFController(cfg.AFReleaseTimeout),
	}
}

// Submit enqueues a command without blocking. A full queue returns
// ErrQueueFull; the UI decides whether to retry.
func (o *Orchestrator) Submit(cmd Command) error {
	select {
	case o.cmds <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Updates is the service→UI channel. It is closed when Run returns.
func (o *Orchestrator) Updates() <-chan Update {
	return o.updates
}

// Run executes the control loop until ctx is cancelled. Each iteration
// waits on whichever is ready first: a command, a device event, or the
// soonest of the debounce-flush and AF-release deadlines. Handling runs
// to completion before the next wait, so state transitions never
// interleave.
func (o *Orchestrator) Run(ctx context.Context) {
	defer func() {
		o.closeSession()
		close(o.updates)
	}()

	timer := time.NewTimer(0)
	stopTimer(timer)
	defer timer.Stop()

	for {
		var timerC <-chan time.Time
		if deadline, ok := o.nextDeadline(); ok {
			resetTimer(timer, deadline.Sub(o.now()))
			timerC = timer.C
		} else {
			stopTimer(timer)
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-o.cmds:
			metrics.CommandsReceived.WithLabelValues(cmd.Name()).Inc()
			o.handleCommand(ctx, cmd)
		case ev, ok := <-o.events: // nil channel while disconnected; never ready
			if !ok {
				o.resetConnection("connection closed by device")
				continue
			}
			o.handleDeviceEvent(ctx, ev)
		case <-timerC:
			o.handleDeadlines(ctx)
		}
	}
}

// nextDeadline is the earlier of the write-flush and AF-release deadlines.
func (o *Orchestrator) nextDeadline() (time.Time, bool) {
	deadline, ok := o.writes.NextDeadline()
	if afDeadline, afOK := o.af.Deadline(); afOK && (!ok || afDeadline.Before(deadline)) {
		deadline, ok = afDeadline, true
	}
	return deadline, ok
}

func (o *Orchestrator) handleCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case ConnectCommand:
		o.connect(ctx, c.Target)
	case DisconnectCommand:
		if o.session == nil {
			o.emit(ErrorUpdate{Message: "not connected"})
			return
		}
		o.resetConnection("")
	case SetPropertyCommand:
		o.requestAdjustment(c.Code, c.ValueIndex)
	case SetPropertyRawCommand:
		o.requestRawAdjustment(c.Code, c.Raw)
	case CaptureCommand:
		o.capture(ctx)
	case StartRecordingCommand:
		o.setRecording(ctx, true)
	case StopRecordingCommand:
		o.setRecording(ctx, false)
	case HalfPressShutterCommand:
		o.halfPress(ctx)
	case ReleaseShutterCommand:
		o.releaseShutter(ctx)
	case SyncPropertiesCommand:
		if !o.requireSession() {
			return
		}
		o.syncProperties(ctx)
	case DiscoverCommand:
		o.discover(ctx)
	case FetchFingerprintCommand:
		o.fetchFingerprint(ctx, c.Target)
	default:
		o.log.Warnw("unknown_command", "command", cmd.Name())
	}
}

// handleDeadlines fires whichever soft timers are due. The AF timer path
// runs first so a release triggered here can never race a flush.
func (o *Orchestrator) handleDeadlines(ctx context.Context) {
	now := o.now()

	if o.af.Due(now) {
		o.af.Disengage()
		metrics.AFReleases.WithLabelValues("timer").Inc()
		if o.session != nil {
			if err := o.session.ReleaseShutter(ctx); err != nil {
				o.emit(ErrorUpdate{Message: fmt.Sprintf("release shutter: %v", err)})
			}
		}
	}

	if pc, ok := o.writes.TakeDue(now); ok {
		o.dispatchWrite(ctx, pc)
	}
}

func (o *Orchestrator) requireSession() bool {
	if o.session == nil {
		o.emit(ErrorUpdate{Message: "not connected"})
		return false
	}
	return true
}

func (o *Orchestrator) connect(ctx context.Context, target camera.Target) {
	if o.session != nil {
		o.emit(ErrorUpdate{Message: "already connected"})
		return
	}
	sess, err := o.connector.Connect(ctx, target)
	if err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("connect %s: %v", target.IP, err)})
		return
	}
	o.session = sess
	o.events = sess.Events()

	info := sess.Info()
	o.emit(ConnectedUpdate{Model: info.Model, Address: info.Address})
	o.syncProperties(ctx)
}

// syncProperties refetches the full property set and rebuilds the cache.
func (o *Orchestrator) syncProperties(ctx context.Context) {
	records, err := o.session.GetAllProperties(ctx)
	if err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("sync properties: %v", err)})
		return
	}
	for _, rec := range records {
		p := recordToProperty(rec)
		o.cache.Put(p)
		o.emit(PropertyChangedUpdate{Property: p})
	}
	o.emit(PropertiesLoadedUpdate{Count: len(records)})
}

// requestAdjustment queues an indexed edit. The request never writes
// directly; it lands in the single pending slot and waits out the
// debounce window, which fixes a minimum spacing between device writes
// no matter how fast the UI scrubs.
func (o *Orchestrator) requestAdjustment(code models.PropertyCode, idx int) {
	if !o.requireSession() {
		return
	}
	p, ok := o.cache.Get(code)
	if !ok {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("unknown property %q", code)})
		return
	}
	if !p.Writable {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("property %q is not writable", code)})
		return
	}
	if !p.ValueIndexValid(idx) {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("property %q: value index %d out of range", code, idx)})
		return
	}
	if o.writes.RequestIndexed(code, idx, o.now()) {
		metrics.WritesCoalesced.Inc()
	}
}

func (o *Orchestrator) requestRawAdjustment(code models.PropertyCode, raw int64) {
	if !o.requireSession() {
		return
	}
	if p, ok := o.cache.Get(code); ok && !p.Writable {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("property %q is not writable", code)})
		return
	}
	if o.writes.RequestRaw(code, raw, o.now()) {
		metrics.WritesCoalesced.Inc()
	}
}

// dispatchWrite resolves the queued edit to a raw value and issues the
// device call. The in-flight record is kept even when the call errors:
// the device's real state is unknown until the next confirmation, and the
// soft timeout unblocks editing either way.
func (o *Orchestrator) dispatchWrite(ctx context.Context, pc pendingChange) {
	if o.session == nil {
		return
	}
	raw := pc.raw
	if !pc.useRaw {
		p, ok := o.cache.Get(pc.code)
		if !ok || !p.ValueIndexValid(pc.valueIndex) {
			o.emit(ErrorUpdate{Message: fmt.Sprintf("property %q changed while the edit was queued", pc.code)})
			return
		}
		raw = p.Allowed[pc.valueIndex]
	}

	o.writes.MarkInFlight(pc.code, o.now())
	metrics.WritesDispatched.Inc()
	if err := o.session.SetProperty(ctx, pc.code, raw); err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("set %q: %v", pc.code, err)})
	}
}

func (o *Orchestrator) capture(ctx context.Context) {
	if !o.requireSession() {
		return
	}
	if err := o.session.Capture(ctx); err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("capture: %v", err)})
		o.emit(CaptureCompleteUpdate{Success: false})
		return
	}
	o.emit(CaptureCompleteUpdate{Success: true})
}

func (o *Orchestrator) setRecording(ctx context.Context, start bool) {
	if !o.requireSession() {
		return
	}
	var err error
	if start {
		err = o.session.StartRecording(ctx)
	} else {
		err = o.session.StopRecording(ctx)
	}
	if err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("recording: %v", err)})
		return
	}
	o.recording = start
	o.emit(RecordingStateUpdate{IsRecording: start})
}

func (o *Orchestrator) halfPress(ctx context.Context) {
	if !o.requireSession() {
		return
	}
	if o.af.Engaged() {
		o.emit(ErrorUpdate{Message: "autofocus already engaged"})
		return
	}
	if err := o.session.HalfPressShutter(ctx); err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("half press: %v", err)})
		return
	}
	o.af.Engage(o.now())
}

func (o *Orchestrator) releaseShutter(ctx context.Context) {
	if !o.requireSession() {
		return
	}
	o.af.Disengage()
	if err := o.session.ReleaseShutter(ctx); err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("release shutter: %v", err)})
	}
}

func (o *Orchestrator) discover(ctx context.Context) {
	o.emit(DiscoveryStartedUpdate{})
	cams, err := o.connector.Discover(ctx)
	if err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("discover: %v", err)})
		return
	}
	o.emit(DiscoveryResultUpdate{Cameras: cams})
}

func (o *Orchestrator) fetchFingerprint(ctx context.Context, target camera.Target) {
	fp, err := o.connector.FetchSSHFingerprint(ctx, target)
	if err != nil {
		o.emit(ErrorUpdate{Message: fmt.Sprintf("fetch fingerprint %s: %v", target.IP, err)})
		return
	}
	o.emit(FingerprintUpdate{IP: target.IP, MAC: target.MAC, Fingerprint: fp})
}

// resetConnection clears every piece of connection-scoped state in one
// step and tells the UI. Nothing else runs between the clears: the loop
// is single-threaded.
func (o *Orchestrator) resetConnection(errMsg string) {
	o.cache.Clear()
	o.writes.Reset()
	o.af.Disengage()
	o.recording = false
	o.closeSession()
	o.emit(DisconnectedUpdate{Err: errMsg})
}

func (o *Orchestrator) closeSession() {
	if o.session != nil {
		if err := o.session.Close(); err != nil {
			o.log.Warnw("session_close_failed", "err", err)
		}
		o.session = nil
	}
	o.events = nil
}

// emit forwards an update without ever blocking the loop. A slow or gone
// UI costs dropped updates, never a stalled device connection.
func (o *Orchestrator) emit(u Update) {
	select {
	case o.updates <- u:
	default:
		metrics.UpdatesDropped.Inc()
		o.log.Warnw("update_dropped", "type", u.Type())
	}
}

func recordToProperty(rec camera.PropertyRecord) models.Property {
	return models.Property{
		Code:         rec.Code,
		CurrentValue: rec.Value,
		CurrentRaw:   rec.Raw,
		Allowed:      append([]int64(nil), rec.Allowed...),
		Writable:     rec.Writable,
	}
}

// stopTimer stops t and drains a fired-but-unread tick.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
