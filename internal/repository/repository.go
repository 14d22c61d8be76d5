package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_camera/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// EventRepo is the append-only log of device and service events.
type EventRepo interface {
	Append(ctx context.Context, e models.CameraEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.CameraEvent, error)
}

// CameraRepo remembers discovered cameras across restarts.
type CameraRepo interface {
	Upsert(ctx context.Context, cam models.KnownCamera) error
	List(ctx context.Context) ([]models.KnownCamera, error)
}

type Repository struct {
	EventRepo  EventRepo
	CameraRepo CameraRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo:  NewEventSQLite(db),
		CameraRepo: NewCameraSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
