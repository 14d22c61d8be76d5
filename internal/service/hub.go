package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"controlling_camera/internal/logger"
	"controlling_camera/internal/models"
	"controlling_camera/internal/orchestrator"
	"controlling_camera/internal/repository"
)

// Publisher is the slice of the MQTT client the hub uses; mqtt.ClientAPI
// satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// subscriberBuffer is the per-client queue on the outward stream. A
// client that falls this far behind starts losing updates.
const subscriberBuffer = 32

// persistTimeout bounds each event-log write so a slow disk never stalls
// the update stream.
const persistTimeout = 3 * time.Second

// Hub is the single consumer of the control loop's update channel. It
// maintains the last-known state snapshot, fans updates out to websocket
// subscribers, persists log-worthy updates, records discovery results,
// and optionally mirrors the stream onto MQTT.
type Hub struct {
	updates     <-chan orchestrator.Update
	log         *logger.Logger
	events      repository.EventRepo
	cameras     repository.CameraRepo
	broker      Publisher // nil disables the MQTT mirror
	topicPrefix string

	mu       sync.RWMutex
	closed   bool
	snapshot models.StateSnapshot
	subs     map[*Subscriber]struct{}
}

// Subscriber is one client's view of the update stream. Updates() yields
// until Close or hub shutdown; slow consumers lose messages rather than
// slowing the hub.
type Subscriber struct {
	hub  *Hub
	ch   chan orchestrator.Update
	once sync.Once
}

func (s *Subscriber) Updates() <-chan orchestrator.Update { return s.ch }

// Close detaches the subscriber. Safe to call more than once.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
	})
}

// NewHub wires the hub to the loop's update channel. broker may be nil.
func NewHub(updates <-chan orchestrator.Update, repos *repository.Repository, broker Publisher, topicPrefix string, log *logger.Logger) *Hub {
	return &Hub{
		updates:     updates,
		log:         log.Named("hub"),
		events:      repos.EventRepo,
		cameras:     repos.CameraRepo,
		broker:      broker,
		topicPrefix: topicPrefix,
		snapshot: models.StateSnapshot{
			Connection: models.ConnectionDisconnected,
			UpdatedAt:  time.Now().UTC(),
		},
		subs: make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new client. The subscription is live immediately;
// after hub shutdown the returned channel is already closed.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{hub: h, ch: make(chan orchestrator.Update, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// GetState returns a copy of the last-known snapshot.
func (h *Hub) GetState(ctx context.Context) (models.StateSnapshot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := h.snapshot
	if len(h.snapshot.Properties) > 0 {
		snap.Properties = make([]models.Property, len(h.snapshot.Properties))
		copy(snap.Properties, h.snapshot.Properties)
	}
	if len(h.snapshot.Status.Slots) > 0 {
		snap.Status.Slots = make([]models.SlotInfo, len(h.snapshot.Status.Slots))
		copy(snap.Status.Slots, h.snapshot.Status.Slots)
	}
	return snap, nil
}

// Run consumes updates until the channel closes or ctx is cancelled,
// then detaches every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-h.updates:
			if !ok {
				return
			}
			h.dispatch(ctx, u)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) dispatch(ctx context.Context, u orchestrator.Update) {
	h.applySnapshot(u)
	h.persist(ctx, u)
	h.mirror(u)
	h.fanout(u)
}

// applySnapshot folds the update into the last-known state.
func (h *Hub) applySnapshot(u orchestrator.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now().UTC()
	switch v := u.(type) {
	case orchestrator.ConnectedUpdate:
		h.snapshot = models.StateSnapshot{
			Connection: models.ConnectionConnected,
			Model:      v.Model,
			Address:    v.Address,
			UpdatedAt:  now,
		}
	case orchestrator.DisconnectedUpdate:
		h.snapshot = models.StateSnapshot{
			Connection: models.ConnectionDisconnected,
			UpdatedAt:  now,
		}
	case orchestrator.PropertyChangedUpdate:
		h.upsertProperty(v.Property)
		h.snapshot.UpdatedAt = now
	case orchestrator.RecordingStateUpdate:
		h.snapshot.Recording = v.IsRecording
		h.snapshot.UpdatedAt = now
	case orchestrator.CameraInfoUpdate:
		h.snapshot.Status = v.Status
		h.snapshot.UpdatedAt = now
	}
}

// upsertProperty replaces the snapshot entry for p.Code or appends it.
// Caller holds h.mu.
func (h *Hub) upsertProperty(p models.Property) {
	for i := range h.snapshot.Properties {
		if h.snapshot.Properties[i].Code == p.Code {
			h.snapshot.Properties[i] = p
			return
		}
	}
	h.snapshot.Properties = append(h.snapshot.Properties, p)
}

// persist appends log-worthy updates to the event log and records
// discovery results in the known-camera table. Failures are logged and
// dropped; the stream keeps flowing.
func (h *Hub) persist(ctx context.Context, u orchestrator.Update) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if v, ok := u.(orchestrator.DiscoveryResultUpdate); ok {
		for _, cam := range v.Cameras {
			err := h.cameras.Upsert(ctx, models.KnownCamera{MAC: cam.MAC, IP: cam.IP, Model: cam.Model})
			if err != nil {
				h.log.Errorw("camera_upsert_failed", "mac", cam.MAC, "error", err)
			}
		}
	}

	ev, ok := updateToEvent(u)
	if !ok {
		return
	}
	if err := h.events.Append(ctx, ev); err != nil {
		h.log.Errorw("event_append_failed", "type", ev.Type, "error", err)
	}
}

// updateToEvent maps an update to its persisted log entry. Updates that
// only mutate the snapshot (camera info, properties-loaded counts) are
// not logged.
func updateToEvent(u orchestrator.Update) (models.CameraEvent, bool) {
	switch v := u.(type) {
	case orchestrator.ConnectedUpdate:
		return models.CameraEvent{
			Type:        models.EventConnected,
			Description: fmt.Sprintf("connected to %s at %s", v.Model, v.Address),
		}, true
	case orchestrator.DisconnectedUpdate:
		ev := models.CameraEvent{Type: models.EventDisconnected, Description: "disconnected"}
		if v.Err != "" {
			ev.Description = "disconnected: " + v.Err
			ev.Metadata = map[string]any{"error": v.Err}
		}
		return ev, true
	case orchestrator.PropertyChangedUpdate:
		return models.CameraEvent{
			Type:        models.EventPropertyChange,
			Description: fmt.Sprintf("%s = %s", v.Property.Code, v.Property.CurrentValue),
			Metadata: map[string]any{
				"code":  string(v.Property.Code),
				"value": v.Property.CurrentValue,
				"raw":   v.Property.CurrentRaw,
			},
		}, true
	case orchestrator.WarningUpdate:
		return models.CameraEvent{
			Type:        models.EventWarning,
			Description: "device warning: " + v.Kind,
			Metadata:    map[string]any{"kind": v.Kind, "params": v.Params},
		}, true
	case orchestrator.ErrorUpdate:
		return models.CameraEvent{Type: models.EventError, Description: v.Message}, true
	case orchestrator.CaptureCompleteUpdate:
		desc := "capture complete"
		if !v.Success {
			desc = "capture failed"
		}
		return models.CameraEvent{
			Type:        models.EventCapture,
			Description: desc,
			Metadata:    map[string]any{"success": v.Success},
		}, true
	case orchestrator.RecordingStateUpdate:
		desc := "recording stopped"
		if v.IsRecording {
			desc = "recording started"
		}
		return models.CameraEvent{Type: models.EventRecording, Description: desc}, true
	}
	return models.CameraEvent{}, false
}

// mirror publishes the update envelope onto MQTT when a broker is wired.
func (h *Hub) mirror(u orchestrator.Update) {
	if h.broker == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"type": u.Type(), "data": u})
	if err != nil {
		h.log.Errorw("mqtt_marshal_failed", "type", u.Type(), "error", err)
		return
	}
	topic := h.topicPrefix + "/updates/" + u.Type()
	if err := h.broker.Publish(topic, payload); err != nil {
		h.log.Errorw("mqtt_publish_failed", "topic", topic, "error", err)
	}
}

// fanout delivers to every subscriber without blocking; a full client
// queue drops the update for that client only.
func (h *Hub) fanout(u orchestrator.Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- u:
		default:
			h.log.Debugw("subscriber_lagging", "type", u.Type())
		}
	}
}
