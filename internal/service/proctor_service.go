package service

import (
	"context"

	"github.com/proctorsoft/examgate/internal/model"
	"github.com/proctorsoft/examgate/internal/repository"
)

// ProctorService handles proctor account business logic.
type ProctorService struct {
	proctorRepo *repository.ProctorRepository
}

// NewProctorService creates a new ProctorService.
func NewProctorService(proctorRepo *repository.ProctorRepository) *ProctorService {
	return &ProctorService{proctorRepo: proctorRepo}
}

// GetByEmail retrieves a proctor by email.
func (s *ProctorService) GetByEmail(ctx context.Context, email string) (*model.Proctor, error) {
	return s.proctorRepo.GetByEmail(ctx, email)
}

// Create inserts a new proctor account.
func (s *ProctorService) Create(ctx context.Context, p *model.Proctor) error {
	return s.proctorRepo.Create(ctx, p)
}
