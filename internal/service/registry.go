package service

import (
	"context"

	"controlling_camera/internal/models"
	"controlling_camera/internal/repository"
)

// RegistryService reads the known-camera table the hub maintains from
// discovery results.
type RegistryService struct {
	cameraRepo repository.CameraRepo
}

func NewRegistryService(cameraRepo repository.CameraRepo) *RegistryService {
	return &RegistryService{cameraRepo: cameraRepo}
}

func (s *RegistryService) List(ctx context.Context) ([]models.KnownCamera, error) {
	return s.cameraRepo.List(ctx)
}
