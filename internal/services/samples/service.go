// Package samples covers manual sample entry and result recording.
package samples

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
)

// Service handles sample business logic.
type Service struct {
	repos   *repository.Repositories
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewService creates a new sample service.
func NewService(repos *repository.Repositories, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, metrics: rec, logger: logger}
}

// CreateSampleRequest represents manual sample entry.
type CreateSampleRequest struct {
	ProjectID   string
	TaskID      string
	PersonnelID string
	Description string
	SampleType  string
	StartTime   string
	StopTime    string
	FlowRate    float64
	Result      *ResultInput
}

// ResultInput is a lab result as entered or extracted. A nil Concentration leaves
// the result Pending.
type ResultInput struct {
	Analyte        string
	Concentration  *float64
	Method         string
	Units          string
	ReportingLimit *float64
	Lab            string
}

// Limits loads the tenant's exposure limits for classification.
func (s *Service) Limits(ctx context.Context, tenantID uuid.UUID) (compliance.Limits, error) {
	l, err := s.repos.Limits.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load limits: %w", err)
	}
	return compliance.Limits(l), nil
}

// Create validates a manually entered sample, derives duration and volume and stores it.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req CreateSampleRequest) (*entity.Sample, error) {
	v := common.NewValidator()
	v.Field("project_id", req.ProjectID, common.Required, common.UUID)
	v.Field("task_id", req.TaskID, common.Required, common.UUID)
	v.Field("personnel_id", req.PersonnelID, common.Required, common.UUID)
	v.Field("sample_type", req.SampleType, common.Required, common.OneOf(constants.SampleTypesAsStrings()...))
	v.Field("start_time", req.StartTime, common.Required, common.DateLayout(constants.TimestampLayout))
	v.Field("stop_time", req.StopTime, common.Required, common.DateLayout(constants.TimestampLayout))
	v.Field("description", req.Description, common.MaxLength(500))
	v.Field("flow_rate", req.FlowRate, common.NonNegative)
	if req.Result != nil {
		v.Field("analyte", req.Result.Analyte, common.Required)
		v.Field("concentration", req.Result.Concentration, common.NonNegative)
		v.Field("reporting_limit", req.Result.ReportingLimit, common.NonNegative)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	projectID := uuid.MustParse(strings.TrimSpace(req.ProjectID))
	taskID := uuid.MustParse(strings.TrimSpace(req.TaskID))
	personnelID := uuid.MustParse(strings.TrimSpace(req.PersonnelID))
	if _, err := s.repos.Projects.GetByID(ctx, tenantID, projectID); err != nil {
		return nil, err
	}
	if _, err := s.repos.Tasks.GetByID(ctx, tenantID, taskID); err != nil {
		return nil, err
	}
	if _, err := s.repos.Personnel.GetByID(ctx, tenantID, personnelID); err != nil {
		return nil, err
	}
	st, _ := constants.ParseSampleType(req.SampleType)

	lims, err := s.Limits(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sample := entity.Sample{
		TenantID:    tenantID,
		ProjectID:   projectID,
		TaskID:      taskID,
		PersonnelID: personnelID,
		Description: strings.TrimSpace(req.Description),
		SampleType:  st,
		StartTime:   strings.TrimSpace(req.StartTime),
		StopTime:    strings.TrimSpace(req.StopTime),
		FlowRate:    req.FlowRate,
	}
	if req.Result != nil {
		sample.Result = resultFromInput(*req.Result)
		defaultUnits(sample.Result, lims)
	}
	sample = compliance.Evaluate(sample, lims)

	if err := s.repos.Samples.Create(ctx, &sample); err != nil {
		return nil, fmt.Errorf("create sample: %w", err)
	}
	if sample.Result != nil {
		s.metrics.Evaluated(sample.Result.Status)
	}
	s.logger.Info("sample created", "tenant_id", tenantID, "sample_id", sample.ID,
		"duration", sample.Duration, "volume", sample.Volume)
	return &sample, nil
}

func resultFromInput(in ResultInput) *entity.Result {
	r := &entity.Result{
		Analyte:        strings.TrimSpace(in.Analyte),
		Method:         strings.TrimSpace(in.Method),
		Units:          strings.TrimSpace(in.Units),
		Lab:            strings.TrimSpace(in.Lab),
		ReportingLimit: in.ReportingLimit,
	}
	if in.Concentration != nil {
		c := *in.Concentration
		r.Concentration = &c
	}
	return r
}

// defaultUnits fills missing units from the analyte's limit.
func defaultUnits(r *entity.Result, lims compliance.Limits) {
	if r.Units != "" {
		return
	}
	if l, ok := lims.FindLimit(r.Analyte); ok {
		r.Units = l.Units
	}
}

// RecordResult attaches or replaces the sample's result and re-classifies it from scratch.
func (s *Service) RecordResult(ctx context.Context, tenantID, sampleID uuid.UUID, in ResultInput) (*entity.Sample, error) {
	v := common.NewValidator()
	v.Field("analyte", in.Analyte, common.Required)
	v.Field("concentration", in.Concentration, common.NonNegative)
	v.Field("reporting_limit", in.ReportingLimit, common.NonNegative)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	sample, err := s.repos.Samples.GetByID(ctx, tenantID, sampleID)
	if err != nil {
		return nil, err
	}
	lims, err := s.Limits(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	r := resultFromInput(in)
	if sample.Result != nil {
		r.ID = sample.Result.ID
		if r.Units == "" {
			r.Units = sample.Result.Units
		}
	}
	defaultUnits(r, lims)
	r.Status = compliance.ClassifyStatus(r.Analyte, r.Concentration, lims)
	if err := s.repos.Samples.SaveResult(ctx, tenantID, sampleID, r); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	s.metrics.Evaluated(r.Status)

	prev := constants.StatusPending
	if sample.Result != nil {
		prev = sample.Result.Status
	}
	s.logger.Info("result recorded", "tenant_id", tenantID, "sample_id", sampleID,
		"analyte", r.Analyte, "from", prev, "to", r.Status)
	sample.Result = r
	return sample, nil
}

// UpdateTimesRequest edits a sample's collection window or flow rate.
type UpdateTimesRequest struct {
	StartTime string
	StopTime  string
	FlowRate  *float64
}

// UpdateTimes recomputes duration and volume after a time or flow change.
func (s *Service) UpdateTimes(ctx context.Context, tenantID, sampleID uuid.UUID, req UpdateTimesRequest) (*entity.Sample, error) {
	v := common.NewValidator()
	v.Field("start_time", req.StartTime, common.DateLayout(constants.TimestampLayout))
	v.Field("stop_time", req.StopTime, common.DateLayout(constants.TimestampLayout))
	v.Field("flow_rate", req.FlowRate, common.NonNegative)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	sample, err := s.repos.Samples.GetByID(ctx, tenantID, sampleID)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(req.StartTime); t != "" {
		sample.StartTime = t
	}
	if t := strings.TrimSpace(req.StopTime); t != "" {
		sample.StopTime = t
	}
	if req.FlowRate != nil {
		sample.FlowRate = *req.FlowRate
	}
	sample.Duration = compliance.ComputeDuration(sample.StartTime, sample.StopTime)
	sample.Volume = compliance.ComputeVolume(sample.Duration, sample.FlowRate)

	if err := s.repos.Samples.UpdateDerived(ctx, sample); err != nil {
		return nil, fmt.Errorf("update sample: %w", err)
	}
	s.logger.Info("sample times updated", "tenant_id", tenantID, "sample_id", sampleID,
		"duration", sample.Duration, "volume", sample.Volume)
	return sample, nil
}

// Get returns one sample with its result.
func (s *Service) Get(ctx context.Context, tenantID, sampleID uuid.UUID) (*entity.Sample, error) {
	return s.repos.Samples.GetByID(ctx, tenantID, sampleID)
}

// List returns the tenant's samples matching filter.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter entity.SampleFilter) ([]*entity.Sample, error) {
	out, err := s.repos.Samples.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return out, nil
}

// Evaluate re-derives a sample against the current limits without storing anything.
func (s *Service) Evaluate(ctx context.Context, tenantID uuid.UUID, sample entity.Sample) (entity.Sample, error) {
	lims, err := s.Limits(ctx, tenantID)
	if err != nil {
		return entity.Sample{}, err
	}
	return compliance.Evaluate(sample, lims), nil
}

// Summary aggregates results per analyte for a project/task pair.
func (s *Service) Summary(ctx context.Context, tenantID, projectID, taskID uuid.UUID) ([]compliance.AnalyteSummary, error) {
	list, err := s.List(ctx, tenantID, entity.SampleFilter{ProjectID: &projectID, TaskID: &taskID})
	if err != nil {
		return nil, err
	}
	flat := make([]entity.Sample, 0, len(list))
	for _, x := range list {
		flat = append(flat, *x)
	}
	return compliance.SummarizeExposures(flat), nil
}
