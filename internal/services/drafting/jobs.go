package drafting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/internal/async"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

// JobLabReport is the async job kind for lab-report summarization.
const JobLabReport = "lab_report"

// LabReportPayload is the JSON payload of a JobLabReport job.
type LabReportPayload struct {
	ProjectID string `json:"project_id,omitempty"`
	Text      string `json:"text"`
}

// NewLabReportJob builds a queue job for a lab report.
func NewLabReportJob(tenantID uuid.UUID, projectID *uuid.UUID, text, requestID string) (async.Job, error) {
	p := LabReportPayload{Text: text}
	if projectID != nil {
		p.ProjectID = projectID.String()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return async.Job{}, err
	}
	return async.Job{Kind: JobLabReport, TenantID: tenantID, Payload: string(b), RequestID: requestID}, nil
}

// HandleJob is the async.Handler for drafting jobs.
func (s *Service) HandleJob(ctx context.Context, job async.Job) (any, error) {
	switch job.Kind {
	case JobLabReport:
		var p LabReportPayload
		if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
			return nil, fmt.Errorf("%w: decode lab report job: %v", common.ErrInvalidInput, err)
		}
		req := LabReportRequest{TenantID: job.TenantID, Text: p.Text}
		if p.ProjectID != "" {
			id, err := uuid.Parse(p.ProjectID)
			if err != nil {
				return nil, fmt.Errorf("%w: project_id: %v", common.ErrInvalidInput, err)
			}
			req.ProjectID = &id
		}
		return s.SummarizeLabReport(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", common.ErrInvalidInput, job.Kind)
	}
}
