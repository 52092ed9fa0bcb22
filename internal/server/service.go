package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/async"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/drafting"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/samples"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "exposuretracker.v1.ComplianceService"

// RPC method names.
const (
	MethodImportSamples   = "ImportSamples"
	MethodImportPersonnel = "ImportPersonnel"
	MethodEvaluateSample  = "EvaluateSample"
	MethodListSamples     = "ListSamples"
	MethodDraftNEA        = "DraftNEA"
	MethodSubmitLabReport = "SubmitLabReport"
	MethodGetJob          = "GetJob"
)

// ComplianceServiceServer is the server API for the compliance service. Every
// message is a google.protobuf.Struct carrying the JSON form of the request.
type ComplianceServiceServer interface {
	ImportSamples(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportPersonnel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateSample(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSamples(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DraftNEA(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitLabReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ComplianceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				out, err := call(srv.(ComplianceServiceServer), ctx, req.(*structpb.Struct))
				if err != nil {
					return nil, common.ToStatus(err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes ComplianceService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ComplianceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodImportSamples, ComplianceServiceServer.ImportSamples),
		unary(MethodImportPersonnel, ComplianceServiceServer.ImportPersonnel),
		unary(MethodEvaluateSample, ComplianceServiceServer.EvaluateSample),
		unary(MethodListSamples, ComplianceServiceServer.ListSamples),
		unary(MethodDraftNEA, ComplianceServiceServer.DraftNEA),
		unary(MethodSubmitLabReport, ComplianceServiceServer.SubmitLabReport),
		unary(MethodGetJob, ComplianceServiceServer.GetJob),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "exposuretracker/v1/compliance.proto",
}

// JobQueue is the async surface used for lab-report jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, job async.Job) (uuid.UUID, error)
	Status(id uuid.UUID) (async.Status, bool)
}

// ComplianceServer implements ComplianceServiceServer over the domain services.
// Drafting and Jobs may be nil, in which case the dependent RPCs return Unavailable.
type ComplianceServer struct {
	imports  *imports.Service
	samples  *samples.Service
	drafting *drafting.Service
	jobs     JobQueue
	logger   *slog.Logger
}

func NewComplianceServer(imp *imports.Service, smp *samples.Service, dr *drafting.Service, jobs JobQueue, logger *slog.Logger) *ComplianceServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ComplianceServer{imports: imp, samples: smp, drafting: dr, jobs: jobs, logger: logger}
}

type importRequest struct {
	Text       string `json:"text"`
	XLSX       []byte `json:"xlsx"`
	Sheet      string `json:"sheet"`
	SampleDate string `json:"sample_date"`
}

func (r importRequest) options() []imports.Option {
	var opts []imports.Option
	if r.SampleDate != "" {
		opts = append(opts, imports.WithSampleDate(r.SampleDate))
	}
	if r.Sheet != "" {
		opts = append(opts, imports.WithSheet(r.Sheet))
	}
	return opts
}

func (r importRequest) validate() error {
	switch {
	case len(r.XLSX) > 0 && r.Text != "":
		return fmt.Errorf("%w: provide either text or xlsx, not both", common.ErrInvalidInput)
	case len(r.XLSX) == 0 && strings.TrimSpace(r.Text) == "":
		return fmt.Errorf("%w: text or xlsx is required", common.ErrInvalidInput)
	}
	return nil
}

// ImportSamples imports a pasted sample log (TSV text or base64 XLSX).
func (s *ComplianceServer) ImportSamples(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	var req importRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	var rep *imports.Report
	if len(req.XLSX) > 0 {
		rep, err = s.imports.ImportSamplesXLSX(ctx, tenantID, bytes.NewReader(req.XLSX), req.options()...)
	} else {
		rep, err = s.imports.ImportSamples(ctx, tenantID, req.Text, req.options()...)
	}
	if err != nil {
		return nil, err
	}
	return encode(rep)
}

// ImportPersonnel imports a personnel roster (TSV text or base64 XLSX).
func (s *ComplianceServer) ImportPersonnel(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	var req importRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	var rep *imports.Report
	if len(req.XLSX) > 0 {
		rep, err = s.imports.ImportPersonnelXLSX(ctx, tenantID, bytes.NewReader(req.XLSX), req.options()...)
	} else {
		rep, err = s.imports.ImportPersonnel(ctx, tenantID, req.Text, req.options()...)
	}
	if err != nil {
		return nil, err
	}
	return encode(rep)
}

type evaluateRequest struct {
	SampleID string         `json:"sample_id"`
	Sample   *entity.Sample `json:"sample"`
}

// EvaluateSample re-derives a stored sample (sample_id) or an ad-hoc one (sample)
// against the tenant's current limits. Nothing is written.
func (s *ComplianceServer) EvaluateSample(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	var req evaluateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	var sample entity.Sample
	switch {
	case req.SampleID != "":
		id, err := parseID("sample_id", req.SampleID)
		if err != nil {
			return nil, err
		}
		stored, err := s.samples.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		sample = *stored
	case req.Sample != nil:
		sample = *req.Sample
		sample.TenantID = tenantID
	default:
		return nil, fmt.Errorf("%w: sample_id or sample is required", common.ErrInvalidInput)
	}
	out, err := s.samples.Evaluate(ctx, tenantID, sample)
	if err != nil {
		return nil, err
	}
	return encode(map[string]any{"sample": out})
}

type listRequest struct {
	ProjectID   string `json:"project_id"`
	TaskID      string `json:"task_id"`
	PersonnelID string `json:"personnel_id"`
	SampleType  string `json:"sample_type"`
}

// ListSamples lists stored samples, optionally narrowed by project, task, worker or type.
func (s *ComplianceServer) ListSamples(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	var req listRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	var filter entity.SampleFilter
	if filter.ProjectID, err = parseOptionalID("project_id", req.ProjectID); err != nil {
		return nil, err
	}
	if filter.TaskID, err = parseOptionalID("task_id", req.TaskID); err != nil {
		return nil, err
	}
	if filter.PersonnelID, err = parseOptionalID("personnel_id", req.PersonnelID); err != nil {
		return nil, err
	}
	if req.SampleType != "" {
		st, ok := constants.ParseSampleType(req.SampleType)
		if !ok {
			return nil, fmt.Errorf("%w: sample_type %q", common.ErrInvalidInput, req.SampleType)
		}
		filter.SampleType = st
	}
	list, err := s.samples.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*entity.Sample{}
	}
	return encode(map[string]any{"samples": list})
}

type draftRequest struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
}

// DraftNEA drafts a negative exposure assessment for a project/task pair.
func (s *ComplianceServer) DraftNEA(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if s.drafting == nil {
		return nil, fmt.Errorf("drafting is not configured: %w", common.ErrUnavailable)
	}
	var req draftRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	projectID, err := parseID("project_id", req.ProjectID)
	if err != nil {
		return nil, err
	}
	taskID, err := parseID("task_id", req.TaskID)
	if err != nil {
		return nil, err
	}
	res, err := s.drafting.DraftNEA(ctx, tenantID, projectID, taskID)
	if err != nil {
		return nil, err
	}
	return encode(res)
}

type labReportRequest struct {
	ProjectID string `json:"project_id"`
	Text      string `json:"text"`
}

// SubmitLabReport queues a lab report for summarization and returns the job id.
func (s *ComplianceServer) SubmitLabReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if s.jobs == nil {
		return nil, fmt.Errorf("job queue is not configured: %w", common.ErrUnavailable)
	}
	var req labReportRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", common.ErrInvalidInput)
	}
	projectID, err := parseOptionalID("project_id", req.ProjectID)
	if err != nil {
		return nil, err
	}
	job, err := drafting.NewLabReportJob(tenantID, projectID, req.Text, common.RequestIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	id, err := s.jobs.Enqueue(ctx, job)
	if err != nil {
		return nil, err
	}
	s.logger.Info("grpc.lab_report.queued", "job_id", id, "tenant_id", tenantID)
	return encode(map[string]any{"job_id": id.String()})
}

type jobRequest struct {
	JobID string `json:"job_id"`
}

// GetJob reports the state of a queued job.
func (s *ComplianceServer) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tenantID, err := requireTenant(ctx)
	if err != nil {
		return nil, err
	}
	if s.jobs == nil {
		return nil, fmt.Errorf("job queue is not configured: %w", common.ErrUnavailable)
	}
	var req jobRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID("job_id", req.JobID)
	if err != nil {
		return nil, err
	}
	st, ok := s.jobs.Status(id)
	if !ok || st.TenantID != tenantID {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return encode(st)
}

func requireTenant(ctx context.Context) (uuid.UUID, error) {
	id, ok := common.TenantIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s metadata is required", common.ErrInvalidInput, MetadataTenantID)
	}
	return id, nil
}
