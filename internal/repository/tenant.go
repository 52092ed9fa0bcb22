package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

type TenantRepository interface {
	Create(ctx context.Context, name string) (*entity.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error)
	List(ctx context.Context) ([]*entity.Tenant, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
}

type tenantRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewTenantRepository(db *DB, logger *slog.Logger) TenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &tenantRepository{db: db, logger: logger}
}

var tenantColumns = []string{"id", "name", "created_at"}

func scanTenant(rows *sql.Rows) (*entity.Tenant, error) {
	var t entity.Tenant
	var created string
	if err := rows.Scan(&t.ID, &t.Name, &created); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

func (r *tenantRepository) Create(ctx context.Context, name string) (*entity.Tenant, error) {
	t := &entity.Tenant{ID: uuid.New(), Name: strings.TrimSpace(name), CreatedAt: nowUTC()}
	ins := r.db.builder().Insert("tenants").
		Columns(tenantColumns...).
		Values(t.ID.String(), t.Name, formatTime(t.CreatedAt))
	if _, err := exec(ctx, r.db, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("tenant %q: %w", t.Name, common.ErrConflict)
		}
		r.logger.Error("failed to create tenant", "name", t.Name, "error", err)
		return nil, err
	}
	return t, nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	b := r.db.builder()
	sel := b.Select(tenantColumns...).From(b.Table("tenants")).Where(entsql.EQ("id", id.String()))
	t, err := queryOne(ctx, r.db, sel, scanTenant)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", id, err)
	}
	return t, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]*entity.Tenant, error) {
	b := r.db.builder()
	sel := b.Select(tenantColumns...).From(b.Table("tenants")).OrderBy("created_at", "name")
	out, err := queryAll(ctx, r.db, sel, scanTenant)
	if err != nil {
		r.logger.Error("failed to list tenants", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *tenantRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := r.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		r.logger.Error("failed to check tenant existence", "tenant_id", id, "error", err)
		return false, err
	}
}

func (r *tenantRepository) Count(ctx context.Context) (int, error) {
	b := r.db.builder()
	sel := b.Select(entsql.Count("*")).From(b.Table("tenants"))
	n, err := queryOne(ctx, r.db, sel, func(rows *sql.Rows) (int, error) {
		var n int
		err := rows.Scan(&n)
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type UserRepository interface {
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*entity.User, error)
}

type userRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepository{db: db, logger: logger}
}

var userColumns = []string{"id", "tenant_id", "email", "name", "role", "created_at"}

func scanUser(rows *sql.Rows) (*entity.User, error) {
	var u entity.User
	var role, created string
	if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &role, &created); err != nil {
		return nil, err
	}
	u.Role = constants.Role(role)
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	out := *u
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.CreatedAt = nowUTC()
	ins := r.db.builder().Insert("users").
		Columns(userColumns...).
		Values(out.ID.String(), out.TenantID.String(), out.Email, out.Name, string(out.Role), formatTime(out.CreatedAt))
	if _, err := exec(ctx, r.db, ins); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", out.Email, common.ErrConflict)
		}
		r.logger.Error("failed to create user", "tenant_id", out.TenantID, "email", out.Email, "error", err)
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*entity.User, error) {
	b := r.db.builder()
	sel := b.Select(userColumns...).From(b.Table("users")).
		Where(entsql.EQ("tenant_id", tenantID.String())).
		OrderBy("email")
	return queryAll(ctx, r.db, sel, scanUser)
}
