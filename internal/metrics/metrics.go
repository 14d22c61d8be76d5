// Package metrics registers the service's Prometheus instruments on the
// default registry; the HTTP layer exposes them under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsReceived counts commands accepted into the control loop,
	// labeled by command name.
	CommandsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camctl_commands_total",
		Help: "Commands received by the control loop.",
	}, []string{"command"})

	// WritesDispatched counts set_property calls issued to the device.
	WritesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camctl_property_writes_total",
		Help: "Property writes dispatched to the device.",
	})

	// WritesCoalesced counts adjustment requests that overwrote a pending
	// change before its debounce window elapsed.
	WritesCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camctl_property_writes_coalesced_total",
		Help: "Adjustment requests absorbed by debouncing.",
	})

	// WriteConfirmations counts in-flight writes confirmed by the device.
	WriteConfirmations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camctl_property_write_confirmations_total",
		Help: "In-flight writes confirmed by a device event.",
	})

	// AFReleases counts shutter releases by which path fired them.
	AFReleases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camctl_af_releases_total",
		Help: "Autofocus shutter releases, by trigger path.",
	}, []string{"path"}) // "event" or "timer"

	// UpdatesDropped counts updates discarded because the UI channel was full.
	UpdatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camctl_updates_dropped_total",
		Help: "Updates dropped due to a full or absent UI channel.",
	})
)
