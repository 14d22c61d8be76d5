package service

import (
	"context"
	"time"

	"controlling_camera/internal/camera"
	"controlling_camera/internal/models"
	"controlling_camera/internal/orchestrator"
	"controlling_camera/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Controller exposes camera control operations. Every call is
// fire-and-forget into the control loop; results arrive as updates.
type Controller interface {
	Connect(target camera.Target) error
	Disconnect() error
	SetProperty(code models.PropertyCode, valueIndex int) error
	SetPropertyRaw(code models.PropertyCode, raw int64) error
	Capture() error
	StartRecording() error
	StopRecording() error
	HalfPressShutter() error
	ReleaseShutter() error
	SyncProperties() error
	Discover() error
	FetchFingerprint(target camera.Target) error
}

// Monitoring exposes the last-known service state without touching the
// control loop.
type Monitoring interface {
	GetState(ctx context.Context) (models.StateSnapshot, error)
}

// EventLog exposes the append-only log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.CameraEvent, error)
}

// Registry exposes cameras remembered from past discoveries.
type Registry interface {
	List(ctx context.Context) ([]models.KnownCamera, error)
}

// Updates hands out per-client subscriptions to the outward update
// stream.
type Updates interface {
	Subscribe() *Subscriber
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", or one of the models.Event* log types
}

// Service aggregates all sub-services.
type Service struct {
	Controller
	Monitoring
	EventLog
	Registry
	Updates
	Authorization
}

// AuthParams carries the config-sourced auth settings.
type AuthParams struct {
	SigningKey string
	TokenTTL   time.Duration
}

// NewService wires the repository layer and the control loop into
// concrete services. The hub must already be constructed; it doubles as
// the Monitoring and Updates implementation.
func NewService(orch *orchestrator.Orchestrator, hub *Hub, repos *repository.Repository, auth AuthParams) *Service {
	return &Service{
		Controller:    NewControllerService(orch),
		Monitoring:    hub,
		EventLog:      NewEventLogService(repos.EventRepo),
		Registry:      NewRegistryService(repos.CameraRepo),
		Updates:       hub,
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
