package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

type PersonnelRepository interface {
	Create(ctx context.Context, p *entity.Personnel) (*entity.Personnel, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Personnel, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Personnel, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Personnel, error)
	UpdateCertifications(ctx context.Context, tenantID, id uuid.UUID, fitTestDue, medicalClearanceDue string) error
}

type personnelRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewPersonnelRepository(db *DB, logger *slog.Logger) PersonnelRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &personnelRepository{db: db, logger: logger}
}

var personnelColumns = []string{"id", "tenant_id", "name", "employee_id", "fit_test_due_date", "medical_clearance_due_date", "created_at"}

func scanPersonnel(rows *sql.Rows) (*entity.Personnel, error) {
	var p entity.Personnel
	var created string
	if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.EmployeeID, &p.FitTestDueDate, &p.MedicalClearanceDueDate, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func (r *personnelRepository) Create(ctx context.Context, p *entity.Personnel) (*entity.Personnel, error) {
	out := *p
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Name = strings.TrimSpace(out.Name)
	out.CreatedAt = nowUTC()
	ins := r.db.builder().Insert("personnel").
		Columns(personnelColumns...).
		Values(out.ID.String(), out.TenantID.String(), out.Name, out.EmployeeID,
			out.FitTestDueDate, out.MedicalClearanceDueDate, formatTime(out.CreatedAt))
	if _, err := exec(ctx, r.db, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("personnel %q: %w", out.Name, common.ErrConflict)
		}
		r.logger.Error("failed to create personnel", "tenant_id", out.TenantID, "name", out.Name, "error", err)
		return nil, err
	}
	return &out, nil
}

func (r *personnelRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Personnel, error) {
	b := r.db.builder()
	sel := b.Select(personnelColumns...).From(b.Table("personnel")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("id", id.String())))
	p, err := queryOne(ctx, r.db, sel, scanPersonnel)
	if err != nil {
		return nil, fmt.Errorf("personnel %s: %w", id, err)
	}
	return p, nil
}

func (r *personnelRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Personnel, error) {
	b := r.db.builder()
	sel := b.Select(personnelColumns...).From(b.Table("personnel")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EqualFold("name", strings.TrimSpace(name))))
	p, err := queryOne(ctx, r.db, sel, scanPersonnel)
	if err != nil {
		return nil, fmt.Errorf("personnel %q: %w", name, err)
	}
	return p, nil
}

func (r *personnelRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Personnel, error) {
	b := r.db.builder()
	sel := b.Select(personnelColumns...).From(b.Table("personnel")).
		Where(entsql.EQ("tenant_id", tenantID.String())).
		OrderBy("name")
	out, err := queryAll(ctx, r.db, sel, scanPersonnel)
	if err != nil {
		r.logger.Error("failed to list personnel", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *personnelRepository) UpdateCertifications(ctx context.Context, tenantID, id uuid.UUID, fitTestDue, medicalClearanceDue string) error {
	upd := r.db.builder().Update("personnel").
		Set("fit_test_due_date", fitTestDue).
		Set("medical_clearance_due_date", medicalClearanceDue).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("id", id.String())))
	res, err := exec(ctx, r.db, upd)
	if err != nil {
		r.logger.Error("failed to update certifications", "personnel_id", id, "error", err)
		return err
	}
	return requireAffected(res, "personnel", id)
}
