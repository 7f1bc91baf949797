package service

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

// DirectoryService is the read-only view of the org chart
type DirectoryService interface {
	GetUser(ctx context.Context, id string) (*entity.User, error)
	ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error)
	ListDepartments(ctx context.Context) ([]*entity.Department, error)
	ListSchools(ctx context.Context) ([]*entity.School, error)
	DepartmentSchool(ctx context.Context, department string) (string, error)
}

type directoryServiceImpl struct {
	repo   port.DirectoryRepository
	logger Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(repo port.DirectoryRepository, logger Logger) DirectoryService {
	return &directoryServiceImpl{repo: repo, logger: logger}
}

func (s *directoryServiceImpl) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get user", "error", err, "user_id", id)
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return user, nil
}

// ListUsers lists directory users, optionally narrowed to one role
func (s *directoryServiceImpl) ListUsers(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	if role != "" && !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, role)
	}
	return s.repo.ListUsers(ctx, role)
}

func (s *directoryServiceImpl) ListDepartments(ctx context.Context) ([]*entity.Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *directoryServiceImpl) ListSchools(ctx context.Context) ([]*entity.School, error) {
	return s.repo.ListSchools(ctx)
}

// DepartmentSchool returns the school a department belongs to
func (s *directoryServiceImpl) DepartmentSchool(ctx context.Context, department string) (string, error) {
	dept, err := s.repo.GetDepartmentByName(ctx, department)
	if err != nil {
		return "", err
	}
	if dept == nil {
		return "", fmt.Errorf("%w: unknown department %q", workflow.ErrValidation, department)
	}
	return dept.School, nil
}
