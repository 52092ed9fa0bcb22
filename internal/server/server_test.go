package server

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/exposure-tracker/internal/async"
	"github.com/joseph-ayodele/exposure-tracker/internal/llm"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository/repotest"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/drafting"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/samples"
)

type stubCompleter struct {
	mu    sync.Mutex
	reply string
}

func (c *stubCompleter) Name() string { return "stub" }

func (c *stubCompleter) Complete(context.Context, llm.Prompt) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reply, nil
}

type harness struct {
	conn   *grpc.ClientConn
	client *Client
	fx     repotest.Fixture
	llm    *stubCompleter
	rec    *metrics.Recorder
}

func newHarness(t *testing.T) harness {
	t.Helper()
	logger := repotest.Logger()
	_, repos := repotest.Open(t)
	fx := repotest.Seed(t, repos)
	rec := metrics.New()

	sampleSvc := samples.NewService(repos, rec, logger)
	importSvc := imports.NewService(repos, rec, logger)
	c := &stubCompleter{}
	draftSvc := drafting.NewService(repos, sampleSvc, llm.NewDrafter(c, logger), rec, logger)
	queue := async.NewWorkerQueue(draftSvc.HandleJob, logger, async.WithWorkers(1), async.WithMetrics(rec))

	gs, _ := NewGRPCServer(NewComplianceServer(importSvc, sampleSvc, draftSvc, queue, logger), logger, rec)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		gs.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		queue.Shutdown(ctx)
	})
	return harness{conn: conn, client: NewClient(conn, fx.Tenant.ID), fx: fx, llm: c, rec: rec}
}

const samplesTSV = "Project\tTask\tPersonnel\tDescription\tSample Type\tStart Time\tStop Time\tFlow Rate\tAnalyte\tConcentration\n" +
	"Plant 7\tGrinding\tJohn Doe\tS-1\tPersonal\t2024-05-01 07:00\t2024-05-01 15:00\t2\tLead\t\n" +
	"Plant 7\tGrinding\tJohn Doe\tA-1\tArea\t2024-05-01 07:00\t2024-05-01 11:00\t4\t\t\n"

func TestImportAndListSamples(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rep, err := h.client.Call(ctx, MethodImportSamples, map[string]any{"text": samplesTSV})
	require.NoError(t, err)
	assert.Equal(t, "samples", rep["kind"])
	assert.EqualValues(t, 2, rep["committed"])

	out, err := h.client.Call(ctx, MethodListSamples, map[string]any{"sample_type": "area"})
	require.NoError(t, err)
	list, ok := out["samples"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, "A-1", first["description"])
	assert.EqualValues(t, 240, first["duration"])
	assert.EqualValues(t, 960, first["volume"])

	out, err = h.client.Call(ctx, MethodListSamples, map[string]any{"project_id": h.fx.Project.ID.String()})
	require.NoError(t, err)
	assert.Len(t, out["samples"], 2)
}

func TestImportSamples_Rejected(t *testing.T) {
	h := newHarness(t)
	text := "Nowhere\tGrinding\tJohn Doe\tS-1\tPersonal\t2024-05-01 07:00\t2024-05-01 15:00\t2\n"

	_, err := h.client.Call(context.Background(), MethodImportSamples, map[string]any{"text": text})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "Nowhere")
}

func TestImportPersonnel(t *testing.T) {
	h := newHarness(t)
	text := "Name\tEmployee ID\tFit Test Due\tMedical Clearance Due\n" +
		"Mary Major\tE-2\t2025-03-09\t2025-03-10\n"

	rep, err := h.client.Call(context.Background(), MethodImportPersonnel, map[string]any{"text": text})
	require.NoError(t, err)
	assert.Equal(t, "personnel", rep["kind"])
	assert.EqualValues(t, 1, rep["committed"])
}

func TestEvaluateSample_AdHoc(t *testing.T) {
	h := newHarness(t)
	out, err := h.client.Call(context.Background(), MethodEvaluateSample, map[string]any{
		"sample": map[string]any{
			"sample_type": "Personal",
			"start_time":  "2024-05-01 07:00",
			"stop_time":   "2024-05-01 15:00",
			"flow_rate":   2,
			"result":      map[string]any{"analyte": "lead", "concentration": 60},
		},
	})
	require.NoError(t, err)
	s := out["sample"].(map[string]any)
	assert.EqualValues(t, 480, s["duration"])
	assert.Equal(t, ">PEL", s["result"].(map[string]any)["status"])
}

func TestEvaluateSample_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.Call(ctx, MethodEvaluateSample, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, MethodEvaluateSample, map[string]any{"sample_id": h.fx.Project.ID.String()})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.client.Call(ctx, MethodEvaluateSample, map[string]any{"bogus": true})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTenantMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := NewClient(h.conn, uuid.Nil).Call(ctx, MethodListSamples, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), MetadataTenantID)

	bad := metadata.AppendToOutgoingContext(ctx, MetadataTenantID, "not-a-uuid")
	_, err = NewClient(h.conn, uuid.Nil).Call(bad, MethodListSamples, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t)
	var header metadata.MD

	ctx := metadata.AppendToOutgoingContext(context.Background(), MetadataRequestID, "req-42")
	_, err := h.client.Call(ctx, MethodListSamples, nil, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(MetadataRequestID))

	header = nil
	_, err = h.client.Call(context.Background(), MethodListSamples, nil, grpc.Header(&header))
	require.NoError(t, err)
	require.Len(t, header.Get(MetadataRequestID), 1)
	assert.NotEmpty(t, header.Get(MetadataRequestID)[0])
}

func TestDraftNEA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := map[string]any{"project_id": h.fx.Project.ID.String(), "task_id": h.fx.Task.ID.String()}

	_, err := h.client.Call(ctx, MethodDraftNEA, req)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	text := "Project\tTask\tPersonnel\tDescription\tSample Type\tStart Time\tStop Time\tFlow Rate\tAnalyte\tConcentration\n" +
		"Plant 7\tGrinding\tJohn Doe\tS-1\tPersonal\t2024-05-01 07:00\t2024-05-01 15:00\t2\tLead\t4\n"
	_, err = h.client.Call(ctx, MethodImportSamples, map[string]any{"text": text})
	require.NoError(t, err)

	h.llm.reply = `{"title":"NEA - Grinding","summary":"Below AL.","basis":["1 personal sample"],"conclusion":"Below the action level."}`
	out, err := h.client.Call(ctx, MethodDraftNEA, req)
	require.NoError(t, err)
	draft := out["draft"].(map[string]any)
	assert.Equal(t, "NEA - Grinding", draft["title"])

	_, err = h.client.Call(ctx, MethodDraftNEA, map[string]any{"project_id": "x", "task_id": h.fx.Task.ID.String()})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSubmitLabReportAndGetJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.client.Call(ctx, MethodImportSamples, map[string]any{"text": samplesTSV})
	require.NoError(t, err)

	h.llm.reply = `{"lab":"Galson","results":[{"sample_id":"S-1","analyte":"Lead","concentration":12}]}`
	out, err := h.client.Call(ctx, MethodSubmitLabReport, map[string]any{"text": "Galson report"})
	require.NoError(t, err)
	jobID, ok := out["job_id"].(string)
	require.True(t, ok)

	var job map[string]any
	require.Eventually(t, func() bool {
		job, err = h.client.Call(ctx, MethodGetJob, map[string]any{"job_id": jobID})
		return err == nil && job["state"] == string(async.StateDone)
	}, 5*time.Second, 10*time.Millisecond)
	result := job["result"].(map[string]any)
	assert.Equal(t, "Galson", result["lab"])
	assert.Len(t, result["matched"], 1)

	_, err = NewClient(h.conn, h.fx.Project.ID).Call(ctx, MethodGetJob, map[string]any{"job_id": jobID})
	assert.Equal(t, codes.NotFound, status.Code(err), "jobs are tenant scoped")

	_, err = h.client.Call(ctx, MethodSubmitLabReport, map[string]any{"text": "  "})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRPCMetrics(t *testing.T) {
	h := newHarness(t)
	_, _ = h.client.Call(context.Background(), MethodListSamples, nil)
	_, _ = h.client.Call(context.Background(), MethodListSamples, map[string]any{"task_id": "nope"})

	mfs, err := h.rec.Registry().Gather()
	require.NoError(t, err)
	var found []string
	for _, mf := range mfs {
		if !strings.HasSuffix(mf.GetName(), "rpc_requests_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetValue())
			}
			found = append(found, strings.Join(labels, "/"))
		}
	}
	assert.Contains(t, found, "OK/ListSamples")
	assert.Contains(t, found, "InvalidArgument/ListSamples")
}
