package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bi-dashboard/internal/dto"
	"bi-dashboard/internal/entities"
	"bi-dashboard/internal/repositories"
	"bi-dashboard/pkg/types"
)

type ReferenceServiceInterface interface {
	GetNetworks(ctx context.Context, filter types.Filter) ([]dto.NetworkDTO, uint64, error)
	GetBranches(ctx context.Context, filter types.Filter) ([]dto.BranchDTO, uint64, error)
	GetEmployees(ctx context.Context, filter types.Filter) ([]dto.EmployeeDTO, uint64, error)
}

// ReferenceService - чтение справочников для таблиц дашборда. Запись идёт только через сверку.
type ReferenceService struct {
	networkRepo  repositories.NetworkRepositoryInterface
	branchRepo   repositories.BranchRepositoryInterface
	employeeRepo repositories.EmployeeRepositoryInterface
	logger       *zap.Logger
}

func NewReferenceService(
	networkRepo repositories.NetworkRepositoryInterface,
	branchRepo repositories.BranchRepositoryInterface,
	employeeRepo repositories.EmployeeRepositoryInterface,
	logger *zap.Logger,
) ReferenceServiceInterface {
	return &ReferenceService{
		networkRepo:  networkRepo,
		branchRepo:   branchRepo,
		employeeRepo: employeeRepo,
		logger:       logger,
	}
}

func (s *ReferenceService) GetNetworks(ctx context.Context, filter types.Filter) ([]dto.NetworkDTO, uint64, error) {
	list, total, err := s.networkRepo.GetNetworks(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.NetworkDTO, 0, len(list))
	for _, n := range list {
		out = append(out, networkToDTO(n))
	}
	return out, total, nil
}

func (s *ReferenceService) GetBranches(ctx context.Context, filter types.Filter) ([]dto.BranchDTO, uint64, error) {
	list, total, err := s.branchRepo.GetBranches(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.BranchDTO, 0, len(list))
	for _, b := range list {
		out = append(out, branchToDTO(b))
	}
	return out, total, nil
}

func (s *ReferenceService) GetEmployees(ctx context.Context, filter types.Filter) ([]dto.EmployeeDTO, uint64, error) {
	list, total, err := s.employeeRepo.GetEmployees(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.EmployeeDTO, 0, len(list))
	for _, e := range list {
		out = append(out, employeeToDTO(e))
	}
	return out, total, nil
}

func networkToDTO(n entities.Network) dto.NetworkDTO {
	return dto.NetworkDTO{
		ID:        n.ID,
		Name:      n.Name,
		Active:    n.Active,
		CreatedAt: formatStamp(n.CreatedAt),
		UpdatedAt: formatStamp(n.UpdatedAt),
	}
}

func branchToDTO(b entities.Branch) dto.BranchDTO {
	out := dto.BranchDTO{
		ID:          b.ID,
		Name:        b.Name,
		Active:      b.Active,
		StartDate:   formatDate(b.StartDate),
		AutoCreated: b.AutoCreated,
		CreatedAt:   formatStamp(b.CreatedAt),
	}
	if b.Network != nil {
		out.Network = &dto.ShortNetworkDTO{ID: b.Network.ID, Name: b.Network.Name}
	}
	return out
}

func employeeToDTO(e entities.Employee) dto.EmployeeDTO {
	out := dto.EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		Active:    e.Active,
		StartDate: formatDate(e.StartDate),
		CreatedAt: formatStamp(e.CreatedAt),
	}
	if e.Branch != nil {
		out.Branch = &dto.ShortBranchDTO{ID: e.Branch.ID, Name: e.Branch.Name}
	}
	if e.Network != nil {
		out.Network = &dto.ShortNetworkDTO{ID: e.Network.ID, Name: e.Network.Name}
	}
	return out
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
