package orchestrator

import (
	"time"

	"controlling_camera/internal/models"
)

// pendingChange is the single debounce slot. There is one for the whole
// session, not one per property: a newer adjustment to any property
// overwrites an older one, and only the most recent edit survives the
// debounce window.
type pendingChange struct {
	code       models.PropertyCode
	valueIndex int
	raw        int64
	useRaw     bool
	queuedAt   time.Time
}

// inFlightWrite tracks the one dispatched-but-unconfirmed device write.
// After the soft timeout it is treated as dead for gating purposes but is
// not cancelled or retried; the next confirmation or a disconnect
// supersedes it.
type inFlightWrite struct {
	code   models.PropertyCode
	sentAt time.Time
}

// writePipeline is the debounce → in-flight → confirm/timeout bookkeeping
// for outbound property writes. All methods run on the control loop.
type writePipeline struct {
	debounce time.Duration
	timeout  time.Duration
	pending  *pendingChange
	inflight *inFlightWrite
}

func newWritePipeline(debounce, timeout time.Duration) *writePipeline {
	return &writePipeline{debounce: debounce, timeout: timeout}
}

// RequestIndexed queues an adjustment addressed by allowed-value index.
// It always lands in the pending slot, never writes directly; the returned
// flag reports whether an older pending change was overwritten.
func (w *writePipeline) RequestIndexed(code models.PropertyCode, idx int, now time.Time) bool {
	coalesced := w.pending != nil
	w.pending = &pendingChange{code: code, valueIndex: idx, queuedAt: now}
	return coalesced
}

// RequestRaw queues an adjustment carrying the raw value itself.
func (w *writePipeline) RequestRaw(code models.PropertyCode, raw int64, now time.Time) bool {
	coalesced := w.pending != nil
	w.pending = &pendingChange{code: code, raw: raw, useRaw: true, queuedAt: now}
	return coalesced
}

// inFlightLive reports whether a dispatched write is still unconfirmed and
// within its soft timeout.
func (w *writePipeline) inFlightLive(now time.Time) bool {
	return w.inflight != nil && now.Sub(w.inflight.sentAt) < w.timeout
}

// IsInFlight reports whether code has a live unconfirmed write. After the
// soft timeout this is false for every code even though the record lingers.
func (w *writePipeline) IsInFlight(code models.PropertyCode, now time.Time) bool {
	return w.inFlightLive(now) && w.inflight.code == code
}

// NextDeadline returns the instant the pending change becomes eligible for
// dispatch. While a live in-flight write would block the flush, the
// deadline is pushed out to that write's expiry.
func (w *writePipeline) NextDeadline() (time.Time, bool) {
	if w.pending == nil {
		return time.Time{}, false
	}
	due := w.pending.queuedAt.Add(w.debounce)
	if w.inflight != nil {
		if expiry := w.inflight.sentAt.Add(w.timeout); expiry.After(due) {
			due = expiry
		}
	}
	return due, true
}

// TakeDue removes and returns the pending change once its debounce window
// has elapsed and no live write blocks it. The caller resolves the target
// value and then records the dispatch via MarkInFlight.
func (w *writePipeline) TakeDue(now time.Time) (pendingChange, bool) {
	if w.pending == nil || now.Sub(w.pending.queuedAt) < w.debounce || w.inFlightLive(now) {
		return pendingChange{}, false
	}
	pc := *w.pending
	w.pending = nil
	return pc, true
}

// MarkInFlight records that a write for code was handed to the device.
func (w *writePipeline) MarkInFlight(code models.PropertyCode, now time.Time) {
	w.inflight = &inFlightWrite{code: code, sentAt: now}
}

// Confirm clears the in-flight record when the device confirms the same
// code. Runs on the fast path, independent of the debounce clock. A stale
// record left by a soft timeout is cleared the same way.
func (w *writePipeline) Confirm(code models.PropertyCode) bool {
	if w.inflight == nil || w.inflight.code != code {
		return false
	}
	w.inflight = nil
	return true
}

// Reset drops both slots; used on disconnect.
func (w *writePipeline) Reset() {
	w.pending = nil
	w.inflight = nil
}
