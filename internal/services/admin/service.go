// Package admin manages tenants, users and the reference data samples point at.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
)

// Service handles administration business logic.
type Service struct {
	repos   *repository.Repositories
	catalog compliance.Limits
	logger  *slog.Logger
}

// NewService creates a new admin service. catalog, when non-empty, is copied into
// every tenant created through CreateTenant.
func NewService(repos *repository.Repositories, catalog compliance.Limits, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, catalog: catalog, logger: logger}
}

// CreateTenant creates a tenant and seeds the default limit catalog.
func (s *Service) CreateTenant(ctx context.Context, name string) (*entity.Tenant, error) {
	v := common.NewValidator()
	v.Field("name", name, common.Required, common.MaxLength(200))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	t, err := s.repos.Tenants.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(s.catalog) > 0 {
		if err := s.repos.Limits.Upsert(ctx, limits.ForTenant(s.catalog, t.ID)...); err != nil {
			return nil, fmt.Errorf("seed limits: %w", err)
		}
	}
	s.logger.Info("tenant created", "tenant_id", t.ID, "name", t.Name, "limits", len(s.catalog))
	return t, nil
}

func (s *Service) ListTenants(ctx context.Context) ([]*entity.Tenant, error) {
	return s.repos.Tenants.List(ctx)
}

// CreateUserRequest represents user creation parameters.
type CreateUserRequest struct {
	Email string
	Name  string
	Role  string
}

func (s *Service) CreateUser(ctx context.Context, tenantID uuid.UUID, req CreateUserRequest) (*entity.User, error) {
	v := common.NewValidator()
	v.Field("email", req.Email, common.Required, common.Email)
	v.Field("name", req.Name, common.MaxLength(200))
	v.Field("role", req.Role, common.Required, common.OneOf(constants.RolesAsStrings()...))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	role, _ := constants.ParseRole(req.Role)
	u, err := s.repos.Users.Create(ctx, &entity.User{
		TenantID: tenantID,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Name:     strings.TrimSpace(req.Name),
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "tenant_id", tenantID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, tenantID uuid.UUID) ([]*entity.User, error) {
	return s.repos.Users.List(ctx, tenantID)
}

func (s *Service) CreateProject(ctx context.Context, tenantID uuid.UUID, name, client string) (*entity.Project, error) {
	v := common.NewValidator()
	v.Field("name", name, common.Required, common.MaxLength(200))
	v.Field("client", client, common.MaxLength(200))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	p, err := s.repos.Projects.Create(ctx, &entity.Project{
		TenantID: tenantID,
		Name:     strings.TrimSpace(name),
		Client:   strings.TrimSpace(client),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", "tenant_id", tenantID, "project_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context, tenantID uuid.UUID) ([]*entity.Project, error) {
	return s.repos.Projects.List(ctx, tenantID)
}

func (s *Service) CreateTask(ctx context.Context, tenantID uuid.UUID, name, description string) (*entity.Task, error) {
	v := common.NewValidator()
	v.Field("name", name, common.Required, common.MaxLength(200))
	v.Field("description", description, common.MaxLength(1000))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	t, err := s.repos.Tasks.Create(ctx, &entity.Task{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task created", "tenant_id", tenantID, "task_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, tenantID uuid.UUID) ([]*entity.Task, error) {
	return s.repos.Tasks.List(ctx, tenantID)
}

// CreatePersonnelRequest represents manual personnel entry. Due dates are YYYY-MM-DD or blank.
type CreatePersonnelRequest struct {
	Name                    string
	EmployeeID              string
	FitTestDueDate          string
	MedicalClearanceDueDate string
}

func (s *Service) CreatePersonnel(ctx context.Context, tenantID uuid.UUID, req CreatePersonnelRequest) (*entity.Personnel, error) {
	v := common.NewValidator()
	v.Field("name", req.Name, common.Required, common.MaxLength(200))
	v.Field("employee_id", req.EmployeeID, common.MaxLength(64))
	v.Field("fit_test_due_date", req.FitTestDueDate, common.DateLayout(constants.DateLayout))
	v.Field("medical_clearance_due_date", req.MedicalClearanceDueDate, common.DateLayout(constants.DateLayout))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	p, err := s.repos.Personnel.Create(ctx, &entity.Personnel{
		TenantID:                tenantID,
		Name:                    strings.TrimSpace(req.Name),
		EmployeeID:              strings.TrimSpace(req.EmployeeID),
		FitTestDueDate:          strings.TrimSpace(req.FitTestDueDate),
		MedicalClearanceDueDate: strings.TrimSpace(req.MedicalClearanceDueDate),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("personnel created", "tenant_id", tenantID, "personnel_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) ListPersonnel(ctx context.Context, tenantID uuid.UUID) ([]*entity.Personnel, error) {
	return s.repos.Personnel.List(ctx, tenantID)
}

// LoadLimits upserts a limit catalog into one tenant.
func (s *Service) LoadLimits(ctx context.Context, tenantID uuid.UUID, catalog compliance.Limits) (int, error) {
	if err := s.requireTenant(ctx, tenantID); err != nil {
		return 0, err
	}
	if err := s.repos.Limits.Upsert(ctx, limits.ForTenant(catalog, tenantID)...); err != nil {
		return 0, err
	}
	s.logger.Info("limits loaded", "tenant_id", tenantID, "count", len(catalog))
	return len(catalog), nil
}

func (s *Service) ListLimits(ctx context.Context, tenantID uuid.UUID) (compliance.Limits, error) {
	l, err := s.repos.Limits.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return compliance.Limits(l), nil
}

// CertificationReport lists every worker's fit-test and medical-clearance status,
// workers needing attention first.
func (s *Service) CertificationReport(ctx context.Context, tenantID uuid.UUID, now time.Time, window time.Duration) ([]compliance.PersonnelCertification, error) {
	people, err := s.repos.Personnel.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list personnel: %w", err)
	}
	flat := make([]entity.Personnel, 0, len(people))
	for _, p := range people {
		flat = append(flat, *p)
	}
	report := compliance.EvaluateCertifications(flat, now, window)

	attention := make([]compliance.PersonnelCertification, 0, len(report))
	current := make([]compliance.PersonnelCertification, 0, len(report))
	for _, r := range report {
		if r.Attention() {
			attention = append(attention, r)
		} else {
			current = append(current, r)
		}
	}
	s.logger.Info("certification report", "tenant_id", tenantID, "personnel", len(report), "attention", len(attention))
	return append(attention, current...), nil
}

func (s *Service) requireTenant(ctx context.Context, tenantID uuid.UUID) error {
	ok, err := s.repos.Tenants.Exists(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tenant %s: %w", tenantID, common.ErrNotFound)
	}
	return nil
}
