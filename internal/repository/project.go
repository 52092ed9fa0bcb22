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

type ProjectRepository interface {
	Create(ctx context.Context, p *entity.Project) (*entity.Project, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Project, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Project, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Project, error)
}

type projectRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewProjectRepository(db *DB, logger *slog.Logger) ProjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &projectRepository{db: db, logger: logger}
}

var projectColumns = []string{"id", "tenant_id", "name", "client", "created_at"}

func scanProject(rows *sql.Rows) (*entity.Project, error) {
	var p entity.Project
	var created string
	if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Client, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	return &p, nil
}

func (r *projectRepository) Create(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	out := *p
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Name = strings.TrimSpace(out.Name)
	out.CreatedAt = nowUTC()
	ins := r.db.builder().Insert("projects").
		Columns(projectColumns...).
		Values(out.ID.String(), out.TenantID.String(), out.Name, out.Client, formatTime(out.CreatedAt))
	if _, err := exec(ctx, r.db, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("project %q: %w", out.Name, common.ErrConflict)
		}
		r.logger.Error("failed to create project", "tenant_id", out.TenantID, "name", out.Name, "error", err)
		return nil, err
	}
	return &out, nil
}

func (r *projectRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Project, error) {
	b := r.db.builder()
	sel := b.Select(projectColumns...).From(b.Table("projects")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("id", id.String())))
	p, err := queryOne(ctx, r.db, sel, scanProject)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", id, err)
	}
	return p, nil
}

func (r *projectRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Project, error) {
	b := r.db.builder()
	sel := b.Select(projectColumns...).From(b.Table("projects")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EqualFold("name", strings.TrimSpace(name))))
	p, err := queryOne(ctx, r.db, sel, scanProject)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", name, err)
	}
	return p, nil
}

func (r *projectRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Project, error) {
	b := r.db.builder()
	sel := b.Select(projectColumns...).From(b.Table("projects")).
		Where(entsql.EQ("tenant_id", tenantID.String())).
		OrderBy("name")
	out, err := queryAll(ctx, r.db, sel, scanProject)
	if err != nil {
		r.logger.Error("failed to list projects", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}

type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) (*entity.Task, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Task, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Task, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Task, error)
}

type taskRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTaskRepository(db *DB, logger *slog.Logger) TaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &taskRepository{db: db, logger: logger}
}

var taskColumns = []string{"id", "tenant_id", "name", "description", "created_at"}

func scanTask(rows *sql.Rows) (*entity.Task, error) {
	var t entity.Task
	var created string
	if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &created); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

func (r *taskRepository) Create(ctx context.Context, t *entity.Task) (*entity.Task, error) {
	out := *t
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Name = strings.TrimSpace(out.Name)
	out.CreatedAt = nowUTC()
	ins := r.db.builder().Insert("tasks").
		Columns(taskColumns...).
		Values(out.ID.String(), out.TenantID.String(), out.Name, out.Description, formatTime(out.CreatedAt))
	if _, err := exec(ctx, r.db, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %q: %w", out.Name, common.ErrConflict)
		}
		r.logger.Error("failed to create task", "tenant_id", out.TenantID, "name", out.Name, "error", err)
		return nil, err
	}
	return &out, nil
}

func (r *taskRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Task, error) {
	b := r.db.builder()
	sel := b.Select(taskColumns...).From(b.Table("tasks")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("id", id.String())))
	t, err := queryOne(ctx, r.db, sel, scanTask)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return t, nil
}

func (r *taskRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*entity.Task, error) {
	b := r.db.builder()
	sel := b.Select(taskColumns...).From(b.Table("tasks")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EqualFold("name", strings.TrimSpace(name))))
	t, err := queryOne(ctx, r.db, sel, scanTask)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", name, err)
	}
	return t, nil
}

func (r *taskRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*entity.Task, error) {
	b := r.db.builder()
	sel := b.Select(taskColumns...).From(b.Table("tasks")).
		Where(entsql.EQ("tenant_id", tenantID.String())).
		OrderBy("name")
	out, err := queryAll(ctx, r.db, sel, scanTask)
	if err != nil {
		r.logger.Error("failed to list tasks", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}
