package imports

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/metrics"
	"github.com/joseph-ayodele/exposure-tracker/internal/reconcile"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository/repotest"
)

func fixedClock() time.Time { return time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC) }

func setup(t *testing.T, opts ...ServiceOption) (*Service, *repository.Repositories, repotest.Fixture, *metrics.Recorder) {
	t.Helper()
	_, repos := repotest.Open(t)
	fx := repotest.Seed(t, repos)
	rec := metrics.New()
	opts = append([]ServiceOption{WithClock(fixedClock)}, opts...)
	return NewService(repos, rec, repotest.Logger(), opts...), repos, fx, rec
}

const samplesTSV = "Project\tTask\tPersonnel\tDescription\tSample Type\tStart Time\tStop Time\tFlow Rate\tAnalyte\tConcentration\n" +
	"plant 7\tGrinding\tJohn Doe\tBZ left\tPersonal\t07:00\t15:00\t2.0\tLead\t35\n" +
	"Plant 7\tgrinding\tjohn doe\tArea north\tarea\t2024-05-01 07:30\t2024-05-01 11:30\t4\t\t\n"

func TestImportSamples(t *testing.T) {
	svc, repos, fx, rec := setup(t)
	ctx := context.Background()

	rep, err := svc.ImportSamples(ctx, fx.Tenant.ID, samplesTSV)
	require.NoError(t, err)
	assert.Equal(t, constants.ImportSamples, rep.Kind)
	assert.Equal(t, 2, rep.Rows)
	assert.Equal(t, 2, rep.Committed)
	require.Len(t, rep.IDs, 2)

	first, err := repos.Samples.GetByID(ctx, fx.Tenant.ID, rep.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02 07:00", first.StartTime)
	assert.Equal(t, 480, first.Duration)
	assert.InDelta(t, 960.0, first.Volume, 1e-9)
	require.NotNil(t, first.Result)
	assert.Equal(t, constants.StatusAtOrAboveAL, first.Result.Status)

	second, err := repos.Samples.GetByID(ctx, fx.Tenant.ID, rep.IDs[1])
	require.NoError(t, err)
	assert.Equal(t, constants.SampleTypeArea, second.SampleType)
	assert.Equal(t, 240, second.Duration)
	assert.Nil(t, second.Result)

	expected := `
# HELP exposure_tracker_import_rows_total Imported rows by kind and outcome.
# TYPE exposure_tracker_import_rows_total counter
exposure_tracker_import_rows_total{kind="samples",outcome="committed"} 2
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "exposure_tracker_import_rows_total"))
}

func TestImportSamples_RejectsWholeBatch(t *testing.T) {
	svc, repos, fx, _ := setup(t)
	ctx := context.Background()

	text := "Plant 7\tGrinding\tJohn Doe\tok\tPersonal\t07:00\t08:00\t2\n" +
		"UnknownProject\tGrinding\tJohn Doe\tbad\tPersonal\t07:00\t08:00\t2\n"
	rep, err := svc.ImportSamples(ctx, fx.Tenant.ID, text)
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrValidation)

	var refErr *reconcile.ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, 2, refErr.Row)
	assert.Equal(t, 0, rep.Committed)

	list, err := repos.Samples.List(ctx, fx.Tenant.ID, entity.SampleFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportSamples_SampleDateOption(t *testing.T) {
	svc, repos, fx, _ := setup(t)
	ctx := context.Background()

	rep, err := svc.ImportSamples(ctx, fx.Tenant.ID, "Plant 7,Grinding,John Doe,,Blank,06:00,06:00,0\n",
		WithDelimiter(','), WithSampleDate("2024-04-30"))
	require.NoError(t, err)
	s, err := repos.Samples.GetByID(ctx, fx.Tenant.ID, rep.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30 06:00", s.StartTime)
	assert.Zero(t, s.Duration)
}

func TestImportSamples_StrictAnalytes(t *testing.T) {
	svc, _, fx, _ := setup(t, WithStrictAnalytes())
	text := "Plant 7\tGrinding\tJohn Doe\t\tPersonal\t07:00\t08:00\t2\tBenzene\t1\n"
	_, err := svc.ImportSamples(context.Background(), fx.Tenant.ID, text)

	var enumErr *reconcile.InvalidEnumValueError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "Analyte", enumErr.Field)
}

func TestImportSamples_UnknownTenant(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.ImportSamples(context.Background(), uuid.New(), samplesTSV)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestImportSamplesXLSX(t *testing.T) {
	svc, _, fx, _ := setup(t)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	rows := [][]any{
		{"Project", "Task", "Personnel", "Description", "Sample Type", "Start Time", "Stop Time", "Flow Rate", "Analyte", "Concentration"},
		{"Plant 7", "Grinding", "John Doe", "BZ", "Personal", "2024-05-01 07:00", "2024-05-01 09:00", 2.5, "Lead", 12},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rep, err := svc.ImportSamplesXLSX(context.Background(), fx.Tenant.ID, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Committed)
}

func TestImportPersonnel_CreatesAndUpdates(t *testing.T) {
	svc, repos, fx, _ := setup(t)
	ctx := context.Background()

	text := "Name\tEmployee ID\tFit Test Due\tMedical Clearance Due\n" +
		"john doe\tE-1\t2025/01/15\t2025-02-01\n" +
		"Mary Major\tE-2\t3/9/2025\t03/10/2025\n"
	rep, err := svc.ImportPersonnel(ctx, fx.Tenant.ID, text)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Committed)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, fx.Personnel.ID, rep.IDs[0])

	john, err := repos.Personnel.GetByID(ctx, fx.Tenant.ID, fx.Personnel.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", john.FitTestDueDate)

	mary, err := repos.Personnel.FindByName(ctx, fx.Tenant.ID, "Mary Major")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09", mary.FitTestDueDate)
	assert.Equal(t, "2025-03-10", mary.MedicalClearanceDueDate)
}

func TestImportPersonnel_BadDate(t *testing.T) {
	svc, _, fx, rec := setup(t)
	_, err := svc.ImportPersonnel(context.Background(), fx.Tenant.ID, "Jane\tE-3\tsoon\t2025-01-01\n")

	var dateErr *reconcile.InvalidDateError
	require.ErrorAs(t, err, &dateErr)
	expected := `
# HELP exposure_tracker_import_failures_total Rejected imports by kind and error kind.
# TYPE exposure_tracker_import_failures_total counter
exposure_tracker_import_failures_total{error="invalid_date",kind="personnel"} 1
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "exposure_tracker_import_failures_total"))
}

func TestImportPersonnel_BlankNameRejected(t *testing.T) {
	svc, repos, fx, _ := setup(t)
	ctx := context.Background()
	before, err := repos.Personnel.List(ctx, fx.Tenant.ID)
	require.NoError(t, err)

	_, err = svc.ImportPersonnel(ctx, fx.Tenant.ID, "Jane\tE-3\t2025-01-01\t2025-01-01\n\tE9\t2025-01-01\t2025-01-01\n")
	var missing *reconcile.MissingValueError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 2, missing.Row)
	require.ErrorIs(t, err, common.ErrValidation)

	after, err := repos.Personnel.List(ctx, fx.Tenant.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestImportFile(t *testing.T) {
	svc, _, fx, _ := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "batch.tsv")
	require.NoError(t, os.WriteFile(path, []byte(samplesTSV), 0o600))
	rep, err := svc.ImportFile(ctx, fx.Tenant.ID, constants.ImportSamples, path)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Committed)

	_, err = svc.ImportFile(ctx, fx.Tenant.ID, constants.ImportSamples, filepath.Join(dir, "notes.pdf"))
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.ImportFile(ctx, fx.Tenant.ID, constants.ImportSamples, filepath.Join(dir, "missing.tsv"))
	require.ErrorIs(t, err, common.ErrNotFound)
}
