// Package drafting wires the LLM drafter to stored monitoring data.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	"github.com/joseph-ayodele/exposure-tracker/internal/llm"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/samples"
)

// ErrNotEligible marks a project/task whose monitoring data cannot support an NEA.
var ErrNotEligible = fmt.Errorf("not eligible for a negative exposure assessment: %w", common.ErrPrecondition)

// NotEligibleError explains why an NEA was refused.
type NotEligibleError struct {
	PersonalSamples int
	Statuses        map[constants.ResultStatus]int
}

func (e *NotEligibleError) Error() string {
	if e.PersonalSamples == 0 {
		return "no personal samples: " + ErrNotEligible.Error()
	}
	keys := make([]string, 0, len(e.Statuses))
	for st, n := range e.Statuses {
		keys = append(keys, fmt.Sprintf("%s=%d", st, n))
	}
	sort.Strings(keys)
	return fmt.Sprintf("personal results not all OK (%s): %s", strings.Join(keys, ", "), ErrNotEligible.Error())
}

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }

// Drafter is the LLM surface the service needs.
type Drafter interface {
	Provider() string
	DraftNEA(ctx context.Context, req llm.NEARequest) (llm.NEADraft, []byte, error)
	SummarizeLabReport(ctx context.Context, req llm.LabReportRequest) (llm.LabReportSummary, []byte, error)
}

// Service handles drafting business logic. A nil drafter disables drafting.
type Service struct {
	repos   *repository.Repositories
	samples *samples.Service
	drafter Drafter
	metrics *metrics.Recorder
	logger  *slog.Logger
}

func NewService(repos *repository.Repositories, sampleSvc *samples.Service, drafter Drafter, rec *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, samples: sampleSvc, drafter: drafter, metrics: rec, logger: logger}
}

// NEAResult is a generated draft together with the evidence it was built from.
type NEAResult struct {
	Draft   llm.NEADraft   `json:"draft"`
	Request llm.NEARequest `json:"-"`
	Raw     []byte         `json:"-"`
}

func (s *Service) enabled() error {
	if s.drafter == nil {
		return fmt.Errorf("drafting is not configured: %w", common.ErrUnavailable)
	}
	return nil
}

// Eligibility checks the NEA precondition: at least one personal sample and every
// personal result classified OK.
func Eligibility(list []*entity.Sample) ([]entity.Sample, error) {
	var personal []entity.Sample
	statuses := map[constants.ResultStatus]int{}
	eligible := true
	for _, x := range list {
		if x.SampleType != constants.SampleTypePersonal {
			continue
		}
		personal = append(personal, *x)
		st := constants.StatusPending
		if x.Result != nil {
			st = x.Result.Status
		}
		statuses[st]++
		if st != constants.StatusOK {
			eligible = false
		}
	}
	if len(personal) == 0 || !eligible {
		return nil, &NotEligibleError{PersonalSamples: len(personal), Statuses: statuses}
	}
	return personal, nil
}

// DraftNEA drafts a negative exposure assessment for a project/task pair.
func (s *Service) DraftNEA(ctx context.Context, tenantID, projectID, taskID uuid.UUID) (*NEAResult, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	project, err := s.repos.Projects.GetByID(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}
	task, err := s.repos.Tasks.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	list, err := s.samples.List(ctx, tenantID, entity.SampleFilter{ProjectID: &projectID, TaskID: &taskID})
	if err != nil {
		return nil, err
	}
	personal, err := Eligibility(list)
	if err != nil {
		s.logger.Info("nea.not_eligible", "tenant_id", tenantID, "project_id", projectID, "task_id", taskID, "reason", err)
		return nil, err
	}

	req := llm.NEARequest{
		ProjectName:     project.Name,
		Client:          project.Client,
		TaskName:        task.Name,
		TaskDescription: task.Description,
		PersonalSamples: len(personal),
		Summaries:       compliance.SummarizeExposures(personal),
	}
	req.FirstSample, req.LastSample = dateRange(personal)
	req.Personnel, err = s.personnelNames(ctx, tenantID, personal)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	draft, raw, err := s.drafter.DraftNEA(ctx, req)
	if err != nil {
		s.metrics.Draft("nea", "error", time.Since(start).Seconds())
		s.logger.Error("nea.draft_error", "tenant_id", tenantID, "provider", s.drafter.Provider(), "error", err)
		return nil, draftError(err)
	}
	s.metrics.Draft("nea", "ok", time.Since(start).Seconds())
	s.logger.Info("nea.drafted", "tenant_id", tenantID, "project_id", projectID, "task_id", taskID,
		"personal_samples", len(personal), "elapsed_ms", time.Since(start).Milliseconds())
	return &NEAResult{Draft: draft, Request: req, Raw: raw}, nil
}

func dateRange(list []entity.Sample) (string, string) {
	var first, last string
	for _, s := range list {
		if len(s.StartTime) < len(constants.DateLayout) {
			continue
		}
		d := s.StartTime[:len(constants.DateLayout)]
		if first == "" || d < first {
			first = d
		}
		if d > last {
			last = d
		}
	}
	return first, last
}

func (s *Service) personnelNames(ctx context.Context, tenantID uuid.UUID, list []entity.Sample) ([]string, error) {
	seen := map[uuid.UUID]bool{}
	var names []string
	for _, x := range list {
		if seen[x.PersonnelID] {
			continue
		}
		seen[x.PersonnelID] = true
		p, err := s.repos.Personnel.GetByID(ctx, tenantID, x.PersonnelID)
		if err != nil {
			return nil, err
		}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

// draftError keeps caller-facing categories: bad model output is unavailable, not internal.
func draftError(err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return err
	case errors.Is(err, llm.ErrInvalidOutput):
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	default:
		return fmt.Errorf("draft: %w", errors.Join(common.ErrUnavailable, err))
	}
}

// LabReportRequest scopes a lab-report extraction. ProjectID narrows the samples
// the report can match.
type LabReportRequest struct {
	TenantID  uuid.UUID
	ProjectID *uuid.UUID
	Text      string
}

// LabReportOutcome lists which extracted results were recorded.
type LabReportOutcome struct {
	Lab       string          `json:"lab,omitempty"`
	Matched   []uuid.UUID     `json:"matched"`
	Unmatched []llm.LabResult `json:"unmatched,omitempty"`
}

// SummarizeLabReport extracts results from report text, matches them to samples by
// id or description and records each one.
func (s *Service) SummarizeLabReport(ctx context.Context, req LabReportRequest) (*LabReportOutcome, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: lab report text is required", common.ErrInvalidInput)
	}

	list, err := s.samples.List(ctx, req.TenantID, entity.SampleFilter{ProjectID: req.ProjectID})
	if err != nil {
		return nil, err
	}
	lims, err := s.samples.Limits(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	idx := newSampleIndex(list)

	start := time.Now()
	summary, _, err := s.drafter.SummarizeLabReport(ctx, llm.LabReportRequest{
		ReportText:     req.Text,
		KnownSampleIDs: idx.keys(),
		Analytes:       limits.Analytes(lims),
	})
	if err != nil {
		s.metrics.Draft("lab_report", "error", time.Since(start).Seconds())
		s.logger.Error("lab_report.extract_error", "tenant_id", req.TenantID, "error", err)
		return nil, draftError(err)
	}
	s.metrics.Draft("lab_report", "ok", time.Since(start).Seconds())

	out := &LabReportOutcome{Lab: summary.Lab}
	for _, r := range summary.Results {
		id, ok := idx.match(r.SampleID)
		if !ok {
			out.Unmatched = append(out.Unmatched, r)
			continue
		}
		in := samples.ResultInput{
			Analyte:        r.Analyte,
			Concentration:  r.Concentration,
			Units:          r.Units,
			ReportingLimit: r.ReportingLimit,
			Lab:            summary.Lab,
			Method:         summary.Method,
		}
		if r.NonDetect && in.Concentration == nil {
			zero := 0.0
			in.Concentration = &zero
		}
		if _, err := s.samples.RecordResult(ctx, req.TenantID, id, in); err != nil {
			s.logger.Warn("lab_report.record_error", "tenant_id", req.TenantID, "sample_id", id, "error", err)
			out.Unmatched = append(out.Unmatched, r)
			continue
		}
		out.Matched = append(out.Matched, id)
	}

	s.logger.Info("lab_report.recorded", "tenant_id", req.TenantID, "lab", out.Lab,
		"matched", len(out.Matched), "unmatched", len(out.Unmatched),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// sampleIndex resolves lab sample identifiers. A description shared by several
// samples is ambiguous and never matches.
type sampleIndex struct {
	byID   map[string]uuid.UUID
	byDesc map[string][]uuid.UUID
	order  []string
}

func newSampleIndex(list []*entity.Sample) *sampleIndex {
	idx := &sampleIndex{byID: map[string]uuid.UUID{}, byDesc: map[string][]uuid.UUID{}}
	for _, s := range list {
		idx.byID[s.ID.String()] = s.ID
		d := strings.ToLower(strings.TrimSpace(s.Description))
		if d == "" {
			idx.order = append(idx.order, s.ID.String())
			continue
		}
		if len(idx.byDesc[d]) == 0 {
			idx.order = append(idx.order, strings.TrimSpace(s.Description))
		}
		idx.byDesc[d] = append(idx.byDesc[d], s.ID)
	}
	return idx
}

func (i *sampleIndex) keys() []string { return i.order }

func (i *sampleIndex) match(key string) (uuid.UUID, bool) {
	k := strings.TrimSpace(key)
	if id, ok := i.byID[strings.ToLower(k)]; ok {
		return id, true
	}
	ids := i.byDesc[strings.ToLower(k)]
	if len(ids) == 1 {
		return ids[0], true
	}
	return uuid.Nil, false
}
