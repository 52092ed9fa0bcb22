// Package imports commits reconciled tabular imports to the database.
package imports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	"github.com/joseph-ayodele/exposure-tracker/internal/reconcile"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
)

// Report summarizes one import. Rows counts reconciled data rows; Committed counts
// rows written. On a commit failure the earlier rows stay committed.
type Report struct {
	Kind      constants.ImportKind `json:"kind"`
	Rows      int                  `json:"rows"`
	Committed int                  `json:"committed"`
	Updated   int                  `json:"updated,omitempty"`
	IDs       []uuid.UUID          `json:"ids"`
}

// Service handles import business logic.
type Service struct {
	repos          *repository.Repositories
	metrics        *metrics.Recorder
	logger         *slog.Logger
	clock          func() time.Time
	strictAnalytes bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStrictAnalytes rejects analytes missing from the tenant's limit catalog, when
// the tenant has one.
func WithStrictAnalytes() ServiceOption {
	return func(s *Service) { s.strictAnalytes = true }
}

// WithClock overrides the clock used for the default sample date.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a new import service.
func NewService(repos *repository.Repositories, rec *metrics.Recorder, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repos: repos, metrics: rec, logger: logger, clock: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

type options struct {
	sampleDate string
	delimiter  rune
	sheet      string
}

// Option tunes a single import call.
type Option func(*options)

// WithSampleDate sets the date combined with HH:mm start/stop cells.
func WithSampleDate(date string) Option {
	return func(o *options) { o.sampleDate = date }
}

func WithDelimiter(d rune) Option {
	return func(o *options) { o.delimiter = d }
}

// WithSheet selects the worksheet of an XLSX import; default is the first sheet.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

func collect(opts []Option) options {
	o := options{delimiter: reconcile.DefaultDelimiter}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// ImportSamples reconciles pasted or delimited sample text and commits it row by row.
func (s *Service) ImportSamples(ctx context.Context, tenantID uuid.UUID, text string, opts ...Option) (*Report, error) {
	o := collect(opts)
	return s.importSamples(ctx, tenantID, o, func(r *reconcile.Reconciler, refs reconcile.Refs) ([]reconcile.SampleDraft, error) {
		return r.ParseSamples(text, refs)
	})
}

// ImportSamplesXLSX is ImportSamples for a workbook.
func (s *Service) ImportSamplesXLSX(ctx context.Context, tenantID uuid.UUID, r io.Reader, opts ...Option) (*Report, error) {
	o := collect(opts)
	rows, err := reconcile.RowsFromXLSX(r, o.sheet)
	if err != nil {
		s.metrics.ImportFailed(constants.ImportSamples, "workbook")
		return &Report{Kind: constants.ImportSamples}, err
	}
	return s.importSamples(ctx, tenantID, o, func(rc *reconcile.Reconciler, refs reconcile.Refs) ([]reconcile.SampleDraft, error) {
		return rc.ParseSampleRows(rows, refs)
	})
}

// ImportPersonnel creates new personnel and refreshes certification dates of
// existing ones (matched by name).
func (s *Service) ImportPersonnel(ctx context.Context, tenantID uuid.UUID, text string, opts ...Option) (*Report, error) {
	o := collect(opts)
	return s.importPersonnel(ctx, tenantID, func(r *reconcile.Reconciler) ([]reconcile.PersonnelDraft, error) {
		return r.ParsePersonnel(text)
	}, o)
}

func (s *Service) ImportPersonnelXLSX(ctx context.Context, tenantID uuid.UUID, r io.Reader, opts ...Option) (*Report, error) {
	o := collect(opts)
	rows, err := reconcile.RowsFromXLSX(r, o.sheet)
	if err != nil {
		s.metrics.ImportFailed(constants.ImportPersonnel, "workbook")
		return &Report{Kind: constants.ImportPersonnel}, err
	}
	return s.importPersonnel(ctx, tenantID, func(rc *reconcile.Reconciler) ([]reconcile.PersonnelDraft, error) {
		return rc.ParsePersonnelRows(rows)
	}, o)
}

// ImportFile imports a .tsv/.txt/.xlsx file from disk.
func (s *Service) ImportFile(ctx context.Context, tenantID uuid.UUID, kind constants.ImportKind, path string, opts ...Option) (*Report, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: unsupported file extension %q", common.ErrInvalidInput, ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.logger.Info("import.file.start", "tenant_id", tenantID, "kind", kind, "path", path, "bytes", len(b))

	switch {
	case kind == constants.ImportSamples && constants.IsSpreadsheetExt(ext):
		return s.ImportSamplesXLSX(ctx, tenantID, bytes.NewReader(b), opts...)
	case kind == constants.ImportSamples:
		return s.ImportSamples(ctx, tenantID, string(b), opts...)
	case kind == constants.ImportPersonnel && constants.IsSpreadsheetExt(ext):
		return s.ImportPersonnelXLSX(ctx, tenantID, bytes.NewReader(b), opts...)
	case kind == constants.ImportPersonnel:
		return s.ImportPersonnel(ctx, tenantID, string(b), opts...)
	default:
		return nil, fmt.Errorf("%w: unknown import kind %q", common.ErrInvalidInput, kind)
	}
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

// snapshot loads the tenant's reference data once per import.
func (s *Service) snapshot(ctx context.Context, tenantID uuid.UUID) (reconcile.Refs, compliance.Limits, error) {
	projects, err := s.repos.Projects.List(ctx, tenantID)
	if err != nil {
		return reconcile.Refs{}, nil, err
	}
	tasks, err := s.repos.Tasks.List(ctx, tenantID)
	if err != nil {
		return reconcile.Refs{}, nil, err
	}
	people, err := s.repos.Personnel.List(ctx, tenantID)
	if err != nil {
		return reconcile.Refs{}, nil, err
	}
	lims, err := s.repos.Limits.List(ctx, tenantID)
	if err != nil {
		return reconcile.Refs{}, nil, err
	}

	pr := make([]entity.Ref, 0, len(projects))
	for _, p := range projects {
		pr = append(pr, p.Ref())
	}
	tr := make([]entity.Ref, 0, len(tasks))
	for _, t := range tasks {
		tr = append(tr, t.Ref())
	}
	er := make([]entity.Ref, 0, len(people))
	for _, p := range people {
		er = append(er, p.Ref())
	}
	return reconcile.Refs{
		Projects:  reconcile.NewNameIndex(pr...),
		Tasks:     reconcile.NewNameIndex(tr...),
		Personnel: reconcile.NewNameIndex(er...),
	}, compliance.Limits(lims), nil
}

func (s *Service) reconciler(o options, lims compliance.Limits) *reconcile.Reconciler {
	ro := []reconcile.Option{reconcile.WithDelimiter(o.delimiter), reconcile.WithClock(s.clock)}
	if o.sampleDate != "" {
		ro = append(ro, reconcile.WithSampleDate(o.sampleDate))
	}
	if s.strictAnalytes && len(lims) > 0 {
		ro = append(ro, reconcile.WithAnalytes(reconcile.NewAnalyteSet(limits.Analytes(lims)...)))
	}
	return reconcile.New(ro...)
}

func (s *Service) importSamples(ctx context.Context, tenantID uuid.UUID, o options,
	parse func(*reconcile.Reconciler, reconcile.Refs) ([]reconcile.SampleDraft, error)) (*Report, error) {
	start := time.Now()
	kind := constants.ImportSamples
	report := &Report{Kind: kind}

	if err := s.requireTenant(ctx, tenantID); err != nil {
		return report, err
	}
	refs, lims, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return report, fmt.Errorf("load references: %w", err)
	}

	drafts, err := parse(s.reconciler(o, lims), refs)
	if err != nil {
		s.metrics.ImportFailed(kind, reconcile.ErrorKind(err))
		s.logger.Warn("import.samples.rejected", "tenant_id", tenantID, "error", err)
		return report, err
	}
	report.Rows = len(drafts)

	for i, d := range drafts {
		sample := compliance.Evaluate(sampleFromDraft(tenantID, d), lims)
		if err := s.repos.Samples.Create(ctx, &sample); err != nil {
			s.metrics.ImportRows(kind, "failed", 1)
			s.logger.Error("import.samples.commit_error", "tenant_id", tenantID, "row", i+1,
				"committed", report.Committed, "error", err)
			return report, fmt.Errorf("row %d: commit sample: %w", i+1, err)
		}
		report.Committed++
		report.IDs = append(report.IDs, sample.ID)
		s.metrics.ImportRows(kind, "committed", 1)
		if sample.Result != nil {
			s.metrics.Evaluated(sample.Result.Status)
		}
	}

	s.logger.Info("import.samples.ok", "tenant_id", tenantID, "rows", report.Rows,
		"committed", report.Committed, "elapsed_ms", time.Since(start).Milliseconds())
	return report, nil
}

func sampleFromDraft(tenantID uuid.UUID, d reconcile.SampleDraft) entity.Sample {
	out := entity.Sample{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ProjectID:   d.ProjectID,
		TaskID:      d.TaskID,
		PersonnelID: d.PersonnelID,
		Description: d.Description,
		SampleType:  d.SampleType,
		StartTime:   d.StartTime,
		StopTime:    d.StopTime,
		FlowRate:    d.FlowRate,
	}
	if d.Result != nil {
		c := d.Result.Concentration
		out.Result = &entity.Result{
			ID:            uuid.New(),
			SampleID:      out.ID,
			Analyte:       d.Result.Analyte,
			Concentration: &c,
		}
	}
	return out
}

func (s *Service) importPersonnel(ctx context.Context, tenantID uuid.UUID,
	parse func(*reconcile.Reconciler) ([]reconcile.PersonnelDraft, error), o options) (*Report, error) {
	start := time.Now()
	kind := constants.ImportPersonnel
	report := &Report{Kind: kind}

	if err := s.requireTenant(ctx, tenantID); err != nil {
		return report, err
	}
	drafts, err := parse(s.reconciler(o, nil))
	if err != nil {
		s.metrics.ImportFailed(kind, reconcile.ErrorKind(err))
		s.logger.Warn("import.personnel.rejected", "tenant_id", tenantID, "error", err)
		return report, err
	}
	report.Rows = len(drafts)

	for i, d := range drafts {
		id, updated, err := s.savePersonnel(ctx, tenantID, d)
		if err != nil {
			s.metrics.ImportRows(kind, "failed", 1)
			s.logger.Error("import.personnel.commit_error", "tenant_id", tenantID, "row", i+1, "error", err)
			return report, fmt.Errorf("row %d: commit personnel: %w", i+1, err)
		}
		report.Committed++
		report.IDs = append(report.IDs, id)
		if updated {
			report.Updated++
			s.metrics.ImportRows(kind, "updated", 1)
		} else {
			s.metrics.ImportRows(kind, "committed", 1)
		}
	}

	s.logger.Info("import.personnel.ok", "tenant_id", tenantID, "rows", report.Rows,
		"committed", report.Committed, "updated", report.Updated, "elapsed_ms", time.Since(start).Milliseconds())
	return report, nil
}

func (s *Service) savePersonnel(ctx context.Context, tenantID uuid.UUID, d reconcile.PersonnelDraft) (uuid.UUID, bool, error) {
	existing, err := s.repos.Personnel.FindByName(ctx, tenantID, d.Name)
	switch {
	case err == nil:
		if err := s.repos.Personnel.UpdateCertifications(ctx, tenantID, existing.ID, d.FitTestDueDate, d.MedicalClearanceDueDate); err != nil {
			return uuid.Nil, false, err
		}
		return existing.ID, true, nil
	case errors.Is(err, common.ErrNotFound):
	default:
		return uuid.Nil, false, err
	}
	p, err := s.repos.Personnel.Create(ctx, &entity.Personnel{
		TenantID:                tenantID,
		Name:                    d.Name,
		EmployeeID:              d.EmployeeID,
		FitTestDueDate:          d.FitTestDueDate,
		MedicalClearanceDueDate: d.MedicalClearanceDueDate,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return p.ID, false, nil
}
