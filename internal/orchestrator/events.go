package orchestrator

import (
	"context"
	"fmt"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/metrics"
	"controlling_camera/internal/models"
)

// handleDeviceEvent is the event bridge: each device event becomes a cache
// mutation, an outward update, or both.
func (o *Orchestrator) handleDeviceEvent(ctx context.Context, ev camera.Event) {
	switch ev.Kind {
	case camera.EventConnected:
		if o.session != nil {
			info := o.session.Info()
			o.emit(ConnectedUpdate{Model: info.Model, Address: info.Address})
		}
	case camera.EventDisconnected:
		msg := ""
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		o.resetConnection(msg)
	case camera.EventPropertyChanged:
		o.onPropertyChanged(ctx, ev.Codes)
	case camera.EventWarning:
		o.onWarning(ctx, ev)
	case camera.EventError:
		o.emit(ErrorUpdate{Message: fmt.Sprintf("device error 0x%04x", ev.ErrorCode)})
	case camera.EventDownloadComplete:
		o.emit(SdkEventUpdate{Kind: "download_complete"})
	case camera.EventInfoChanged:
		o.emit(CameraInfoUpdate{Status: ev.Status})
	default:
		o.log.Warnw("unknown_device_event", "kind", int(ev.Kind))
	}
}

// onPropertyChanged refetches each changed code so the cache reflects what
// the device actually settled on, which may differ from what was written.
// A confirmation is applied unconditionally — even when no matching
// in-flight write exists, the cache tracks the device.
func (o *Orchestrator) onPropertyChanged(ctx context.Context, codes []models.PropertyCode) {
	if o.session == nil {
		return
	}
	for _, code := range codes {
		rec, err := o.session.GetProperty(ctx, code)
		if err != nil {
			o.emit(ErrorUpdate{Message: fmt.Sprintf("refresh %q: %v", code, err)})
			continue
		}
		p := recordToProperty(rec)
		o.cache.Put(p)
		if o.writes.Confirm(code) {
			metrics.WriteConfirmations.Inc()
		}
		o.emit(PropertyChangedUpdate{Property: p})
	}
}

// onWarning decodes autofocus results out of the warning stream and drives
// the AF controller; everything else passes through as a warning update.
func (o *Orchestrator) onWarning(ctx context.Context, ev camera.Event) {
	status, isAF := camera.DecodeAFStatus(ev.WarningCode, ev.Params)
	if !isAF {
		o.emit(WarningUpdate{Kind: fmt.Sprintf("0x%04x", ev.WarningCode), Params: ev.Params})
		return
	}

	switch status {
	case camera.AFStatusFocused, camera.AFStatusNotFocused:
		if o.af.Engaged() {
			// Clearing the deadline first guarantees the timer path can
			// never fire a second release for this cycle.
			o.af.Disengage()
			metrics.AFReleases.WithLabelValues("event").Inc()
			if err := o.session.ReleaseShutter(ctx); err != nil {
				o.emit(ErrorUpdate{Message: fmt.Sprintf("release shutter: %v", err)})
			}
		}
	case camera.AFStatusUnlocked:
		// An interrupted AF cycle can leave the cache stale whether or not
		// this controller thought it was engaged.
		o.af.Disengage()
		if o.session != nil {
			o.syncProperties(ctx)
		}
	}

	o.emit(WarningUpdate{Kind: "af_" + status.String(), Params: ev.Params})
}
