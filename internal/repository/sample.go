package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

type SampleRepository interface {
	// Create inserts the sample and its optional result in one transaction,
	// assigning ids that are still uuid.Nil.
	Create(ctx context.Context, s *entity.Sample) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Sample, error)
	List(ctx context.Context, tenantID uuid.UUID, filter entity.SampleFilter) ([]*entity.Sample, error)
	// SaveResult replaces the sample's result, keeping the existing result id.
	SaveResult(ctx context.Context, tenantID, sampleID uuid.UUID, r *entity.Result) error
	// UpdateDerived stores new times, flow rate and the recomputed duration/volume.
	UpdateDerived(ctx context.Context, s *entity.Sample) error
}

type sampleRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSampleRepository(db *DB, logger *slog.Logger) SampleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sampleRepository{db: db, logger: logger}
}

var (
	sampleColumns = []string{
		"id", "tenant_id", "project_id", "task_id", "personnel_id", "description", "sample_type",
		"start_time", "stop_time", "flow_rate", "duration", "volume", "created_at",
	}
	resultColumns = []string{
		"id", "sample_id", "analyte", "concentration", "status", "method", "units", "reporting_limit", "lab",
	}
)

func (r *sampleRepository) Create(ctx context.Context, s *entity.Sample) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = nowUTC()
	if s.Result != nil {
		if s.Result.ID == uuid.Nil {
			s.Result.ID = uuid.New()
		}
		s.Result.SampleID = s.ID
	}

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		ins := b.Insert("samples").
			Columns(sampleColumns...).
			Values(s.ID.String(), s.TenantID.String(), s.ProjectID.String(), s.TaskID.String(), s.PersonnelID.String(),
				s.Description, string(s.SampleType), s.StartTime, s.StopTime, s.FlowRate, s.Duration, s.Volume,
				formatTime(s.CreatedAt))
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
		if s.Result != nil {
			if err := insertResult(ctx, tx, b, s.Result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to create sample", "tenant_id", s.TenantID, "sample_id", s.ID, "error", err)
		return err
	}
	return nil
}

func insertResult(ctx context.Context, q querier, b *entsql.DialectBuilder, res *entity.Result) error {
	ins := b.Insert("results").
		Columns(resultColumns...).
		Values(res.ID.String(), res.SampleID.String(), res.Analyte, floatArg(res.Concentration), string(res.Status),
			res.Method, res.Units, floatArg(res.ReportingLimit), res.Lab)
	if _, err := exec(ctx, q, ins); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// joined selects samples left-joined to their result.
func (r *sampleRepository) joined() (*entsql.Selector, *entsql.SelectTable) {
	b := r.db.builder()
	s := b.Table("samples").As("s")
	res := b.Table("results").As("r")
	cols := make([]string, 0, len(sampleColumns)+len(resultColumns))
	for _, c := range sampleColumns {
		cols = append(cols, s.C(c))
	}
	for _, c := range resultColumns {
		if c == "sample_id" {
			continue
		}
		cols = append(cols, res.C(c))
	}
	sel := b.Select(cols...).From(s).LeftJoin(res).On(s.C("id"), res.C("sample_id"))
	return sel, s
}

func scanSample(rows *sql.Rows) (*entity.Sample, error) {
	var (
		s                   entity.Sample
		sampleType, created string
		resID               sql.NullString
		analyte, status     sql.NullString
		method, units, lab  sql.NullString
		conc, rl            sql.NullFloat64
	)
	err := rows.Scan(
		&s.ID, &s.TenantID, &s.ProjectID, &s.TaskID, &s.PersonnelID, &s.Description, &sampleType,
		&s.StartTime, &s.StopTime, &s.FlowRate, &s.Duration, &s.Volume, &created,
		&resID, &analyte, &conc, &status, &method, &units, &rl, &lab,
	)
	if err != nil {
		return nil, err
	}
	s.SampleType = constants.SampleType(sampleType)
	s.CreatedAt = parseTime(created)
	if resID.Valid {
		id, err := uuid.Parse(resID.String)
		if err != nil {
			return nil, fmt.Errorf("result id %q: %w", resID.String, err)
		}
		s.Result = &entity.Result{
			ID:             id,
			SampleID:       s.ID,
			Analyte:        analyte.String,
			Concentration:  nullFloat(conc),
			Status:         constants.ResultStatus(status.String),
			Method:         method.String,
			Units:          units.String,
			ReportingLimit: nullFloat(rl),
			Lab:            lab.String,
		}
	}
	return &s, nil
}

func (r *sampleRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Sample, error) {
	sel, s := r.joined()
	sel.Where(entsql.And(entsql.EQ(s.C("tenant_id"), tenantID.String()), entsql.EQ(s.C("id"), id.String())))
	out, err := queryOne(ctx, r.db, sel, scanSample)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", id, err)
	}
	return out, nil
}

func (r *sampleRepository) List(ctx context.Context, tenantID uuid.UUID, filter entity.SampleFilter) ([]*entity.Sample, error) {
	sel, s := r.joined()
	preds := []*entsql.Predicate{entsql.EQ(s.C("tenant_id"), tenantID.String())}
	if filter.ProjectID != nil {
		preds = append(preds, entsql.EQ(s.C("project_id"), filter.ProjectID.String()))
	}
	if filter.TaskID != nil {
		preds = append(preds, entsql.EQ(s.C("task_id"), filter.TaskID.String()))
	}
	if filter.PersonnelID != nil {
		preds = append(preds, entsql.EQ(s.C("personnel_id"), filter.PersonnelID.String()))
	}
	if filter.SampleType != "" {
		preds = append(preds, entsql.EQ(s.C("sample_type"), string(filter.SampleType)))
	}
	sel.Where(entsql.And(preds...)).OrderBy(s.C("start_time"), s.C("created_at"), s.C("id"))

	out, err := queryAll(ctx, r.db, sel, scanSample)
	if err != nil {
		r.logger.Error("failed to list samples", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *sampleRepository) SaveResult(ctx context.Context, tenantID, sampleID uuid.UUID, res *entity.Result) error {
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		b := r.db.builder()
		owner := b.Select("id").From(b.Table("samples")).
			Where(entsql.And(entsql.EQ("tenant_id", tenantID.String()), entsql.EQ("id", sampleID.String())))
		if _, err := queryOne(ctx, tx, owner, scanString); err != nil {
			return fmt.Errorf("sample %s: %w", sampleID, err)
		}

		existing := b.Select("id").From(b.Table("results")).Where(entsql.EQ("sample_id", sampleID.String()))
		prevID, err := queryOne(ctx, tx, existing, scanString)
		switch {
		case err == nil:
			if res.ID == uuid.Nil {
				if res.ID, err = uuid.Parse(prevID); err != nil {
					return err
				}
			}
		case isNotFound(err):
		default:
			return err
		}
		if res.ID == uuid.Nil {
			res.ID = uuid.New()
		}
		res.SampleID = sampleID

		if _, err := exec(ctx, tx, b.Delete("results").Where(entsql.EQ("sample_id", sampleID.String()))); err != nil {
			return fmt.Errorf("delete result: %w", err)
		}
		return insertResult(ctx, tx, b, res)
	})
	if err != nil {
		if !isNotFound(err) {
			r.logger.Error("failed to save result", "sample_id", sampleID, "error", err)
		}
		return err
	}
	return nil
}

func (r *sampleRepository) UpdateDerived(ctx context.Context, s *entity.Sample) error {
	upd := r.db.builder().Update("samples").
		Set("start_time", s.StartTime).
		Set("stop_time", s.StopTime).
		Set("flow_rate", s.FlowRate).
		Set("duration", s.Duration).
		Set("volume", s.Volume).
		Where(entsql.And(entsql.EQ("tenant_id", s.TenantID.String()), entsql.EQ("id", s.ID.String())))
	res, err := exec(ctx, r.db, upd)
	if err != nil {
		r.logger.Error("failed to update sample", "sample_id", s.ID, "error", err)
		return err
	}
	return requireAffected(res, "sample", s.ID)
}

func scanString(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}
