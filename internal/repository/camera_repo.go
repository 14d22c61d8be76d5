package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_camera/internal/models"
)

type CameraSQLite struct {
	db *sql.DB
}

func NewCameraSQLite(db *sql.DB) *CameraSQLite { return &CameraSQLite{db: db} }

var _ CameraRepo = (*CameraSQLite)(nil)

const (
	upsertCameraSQL = `
		INSERT INTO known_cameras (mac, ip, model, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET
			ip=excluded.ip,
			model=excluded.model,
			last_seen=excluded.last_seen
	`

	selectCamerasSQL = `
		SELECT mac, ip, model, last_seen
		FROM known_cameras ORDER BY last_seen DESC
	`
)

// Upsert records a discovery hit keyed by MAC, refreshing address and
// last-seen on every sighting.
func (r *CameraSQLite) Upsert(ctx context.Context, cam models.KnownCamera) error {
	seen := cam.LastSeen
	if seen.IsZero() {
		seen = time.Now().UTC()
	} else {
		seen = seen.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertCameraSQL,
		cam.MAC,
		cam.IP,
		cam.Model,
		seen,
	)
	return err
}

// List returns all remembered cameras, most recently seen first.
func (r *CameraSQLite) List(ctx context.Context) ([]models.KnownCamera, error) {
	rows, err := r.db.QueryContext(ctx, selectCamerasSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.KnownCamera
	for rows.Next() {
		var cam models.KnownCamera
		if err := rows.Scan(&cam.MAC, &cam.IP, &cam.Model, &cam.LastSeen); err != nil {
			return nil, err
		}
		cam.LastSeen = cam.LastSeen.UTC()
		out = append(out, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
