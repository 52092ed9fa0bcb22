package samples

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository/repotest"
)

func ptr(f float64) *float64 { return &f }

func setup(t *testing.T) (*Service, repotest.Fixture) {
	t.Helper()
	_, repos := repotest.Open(t)
	fx := repotest.Seed(t, repos)
	return NewService(repos, nil, repotest.Logger()), fx
}

func request(fx repotest.Fixture) CreateSampleRequest {
	return CreateSampleRequest{
		ProjectID:   fx.Project.ID.String(),
		TaskID:      fx.Task.ID.String(),
		PersonnelID: fx.Personnel.ID.String(),
		Description: "BZ right lapel",
		SampleType:  "personal",
		StartTime:   "2024-05-01 07:00",
		StopTime:    "2024-05-01 15:00",
		FlowRate:    2.0,
	}
}

func TestCreate_DerivesAndClassifies(t *testing.T) {
	svc, fx := setup(t)
	req := request(fx)
	req.Result = &ResultInput{Analyte: "lead", Concentration: ptr(60), Units: "µg/m³"}

	s, err := svc.Create(context.Background(), fx.Tenant.ID, req)
	require.NoError(t, err)
	assert.Equal(t, constants.SampleTypePersonal, s.SampleType)
	assert.Equal(t, 480, s.Duration)
	assert.InDelta(t, 960.0, s.Volume, 1e-9)
	require.NotNil(t, s.Result)
	assert.Equal(t, constants.StatusAbovePEL, s.Result.Status)

	got, err := svc.Get(context.Background(), fx.Tenant.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusAbovePEL, got.Result.Status)
}

func TestCreate_Validation(t *testing.T) {
	svc, fx := setup(t)
	req := request(fx)
	req.SampleType = "Wipe"
	req.StartTime = "07:00"
	req.FlowRate = -1

	_, err := svc.Create(context.Background(), fx.Tenant.ID, req)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "sample_type")
	assert.Contains(t, err.Error(), "start_time")
	assert.Contains(t, err.Error(), "flow_rate")
}

func TestCreate_ForeignTenantReference(t *testing.T) {
	svc, fx := setup(t)
	req := request(fx)
	req.ProjectID = uuid.NewString()
	_, err := svc.Create(context.Background(), fx.Tenant.ID, req)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordResult_ReclassifiesFromScratch(t *testing.T) {
	svc, fx := setup(t)
	ctx := context.Background()
	req := request(fx)
	req.Result = &ResultInput{Analyte: "Lead"}

	s, err := svc.Create(ctx, fx.Tenant.ID, req)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPending, s.Result.Status)
	resultID := s.Result.ID

	steps := []struct {
		conc float64
		want constants.ResultStatus
	}{
		{55, constants.StatusAbovePEL},
		{30, constants.StatusAtOrAboveAL},
		{5, constants.StatusOK},
	}
	for _, step := range steps {
		s, err = svc.RecordResult(ctx, fx.Tenant.ID, s.ID, ResultInput{Analyte: "Lead", Concentration: ptr(step.conc)})
		require.NoError(t, err)
		assert.Equal(t, step.want, s.Result.Status)
		assert.Equal(t, resultID, s.Result.ID)
	}

	got, err := svc.Get(ctx, fx.Tenant.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusOK, got.Result.Status)
	assert.Equal(t, "µg/m³", got.Result.Units)
}

func TestRecordResult_UnknownSample(t *testing.T) {
	svc, fx := setup(t)
	_, err := svc.RecordResult(context.Background(), fx.Tenant.ID, uuid.New(), ResultInput{Analyte: "Lead", Concentration: ptr(1)})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTimes(t *testing.T) {
	svc, fx := setup(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, fx.Tenant.ID, request(fx))
	require.NoError(t, err)

	s, err = svc.UpdateTimes(ctx, fx.Tenant.ID, s.ID, UpdateTimesRequest{StopTime: "2024-05-01 08:30", FlowRate: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, 90, s.Duration)
	assert.InDelta(t, 270.0, s.Volume, 1e-9)

	// stop before start collapses to zero
	s, err = svc.UpdateTimes(ctx, fx.Tenant.ID, s.ID, UpdateTimesRequest{StopTime: "2024-05-01 06:00"})
	require.NoError(t, err)
	assert.Zero(t, s.Duration)
	assert.Zero(t, s.Volume)

	got, err := svc.Get(ctx, fx.Tenant.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 06:00", got.StopTime)
	assert.Zero(t, got.Duration)
}

func TestSummaryAndList(t *testing.T) {
	svc, fx := setup(t)
	ctx := context.Background()
	for _, c := range []float64{10, 35} {
		req := request(fx)
		req.Result = &ResultInput{Analyte: "Lead", Concentration: ptr(c), Units: "µg/m³"}
		_, err := svc.Create(ctx, fx.Tenant.ID, req)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, fx.Tenant.ID, entity.SampleFilter{SampleType: constants.SampleTypePersonal})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	sum, err := svc.Summary(ctx, fx.Tenant.ID, fx.Project.ID, fx.Task.ID)
	require.NoError(t, err)
	require.Len(t, sum, 1)
	assert.Equal(t, 2, sum[0].Samples)
	assert.InDelta(t, 35.0, sum[0].MaxConcentration, 1e-9)
	assert.Equal(t, constants.StatusAtOrAboveAL, sum[0].WorstStatus)
}

func TestEvaluate_DoesNotPersist(t *testing.T) {
	svc, fx := setup(t)
	out, err := svc.Evaluate(context.Background(), fx.Tenant.ID, entity.Sample{
		StartTime: "2024-05-01 07:00", StopTime: "2024-05-01 07:30", FlowRate: 4,
		Result: &entity.Result{Analyte: "LEAD", Concentration: ptr(50)},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, out.Duration)
	assert.Equal(t, constants.StatusAtOrAboveAL, out.Result.Status)
}
