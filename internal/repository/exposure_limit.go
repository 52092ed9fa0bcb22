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

type ExposureLimitRepository interface {
	// Upsert replaces any limit for the same analyte (case-insensitive).
	Upsert(ctx context.Context, limits ...entity.ExposureLimit) error
	Get(ctx context.Context, tenantID uuid.UUID, analyte string) (*entity.ExposureLimit, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]entity.ExposureLimit, error)
}

type exposureLimitRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewExposureLimitRepository(db *DB, logger *slog.Logger) ExposureLimitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &exposureLimitRepository{db: db, logger: logger}
}

var limitColumns = []string{"tenant_id", "analyte", "units", "al", "pel", "stel", "el"}

func analyteKey(analyte string) string {
	return strings.ToLower(strings.TrimSpace(analyte))
}

func scanLimit(rows *sql.Rows) (entity.ExposureLimit, error) {
	var l entity.ExposureLimit
	var stel, el sql.NullFloat64
	if err := rows.Scan(&l.TenantID, &l.Analyte, &l.Units, &l.AL, &l.PEL, &stel, &el); err != nil {
		return entity.ExposureLimit{}, err
	}
	l.STEL = nullFloat(stel)
	l.EL = nullFloat(el)
	return l, nil
}

func (r *exposureLimitRepository) Upsert(ctx context.Context, limits ...entity.ExposureLimit) error {
	if len(limits) == 0 {
		return nil
	}
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		for _, l := range limits {
			key := analyteKey(l.Analyte)
			if key == "" {
				return fmt.Errorf("exposure limit without analyte: %w", common.ErrValidation)
			}
			del := b.Delete("exposure_limits").
				Where(entsql.And(entsql.EQ("tenant_id", l.TenantID.String()), entsql.EQ("analyte_key", key)))
			if _, err := exec(ctx, tx, del); err != nil {
				return err
			}
			ins := b.Insert("exposure_limits").
				Columns(append([]string{"analyte_key"}, limitColumns...)...).
				Values(key, l.TenantID.String(), strings.TrimSpace(l.Analyte), l.Units, l.AL, l.PEL, floatArg(l.STEL), floatArg(l.EL))
			if _, err := exec(ctx, tx, ins); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert exposure limits", "count", len(limits), "error", err)
		return err
	}
	return nil
}

func (r *exposureLimitRepository) Get(ctx context.Context, tenantID uuid.UUID, analyte string) (*entity.ExposureLimit, error) {
	b := r.db.builder()
	sel := b.Select(limitColumns...).From(b.Table("exposure_limits")).
		Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("analyte_key", analyteKey(analyte))))
	l, err := queryOne(ctx, r.db, sel, scanLimit)
	if err != nil {
		return nil, fmt.Errorf("exposure limit %q: %w", analyte, err)
	}
	return &l, nil
}

func (r *exposureLimitRepository) List(ctx context.Context, tenantID uuid.UUID) ([]entity.ExposureLimit, error) {
	b := r.db.builder()
	sel := b.Select(limitColumns...).From(b.Table("exposure_limits")).
		Where(entsql.EQ("tenant_id", tenantID.String())).
		OrderBy("analyte_key")
	out, err := queryAll(ctx, r.db, sel, scanLimit)
	if err != nil {
		r.logger.Error("failed to list exposure limits", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}
