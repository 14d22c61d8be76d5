package orchestrator

import "time"

// afController tracks one half-press/auto-release autofocus cycle.
//
// The release deadline is a correctness backstop: in continuous AF the
// device never reports a focus result, so without it the shutter would
// stay half-pressed forever. release_shutter fires at most once per
// cycle — the event path clears the deadline before the timer could see
// it as due.
type afController struct {
	releaseAfter time.Duration
	engaged      bool
	deadline     time.Time
}

func newAFController(releaseAfter time.Duration) *afController {
	return &afController{releaseAfter: releaseAfter}
}

// Engage starts a cycle after a successful half-press.
func (a *afController) Engage(now time.Time) {
	a.engaged = true
	a.deadline = now.Add(a.releaseAfter)
}

// Disengage ends the cycle and cancels the timer path.
func (a *afController) Disengage() {
	a.engaged = false
	a.deadline = time.Time{}
}

func (a *afController) Engaged() bool { return a.engaged }

// Deadline reports the pending auto-release instant, if any.
func (a *afController) Deadline() (time.Time, bool) {
	if !a.engaged {
		return time.Time{}, false
	}
	return a.deadline, true
}

// Due reports whether the timer path should fire.
func (a *afController) Due(now time.Time) bool {
	return a.engaged && !now.Before(a.deadline)
}
