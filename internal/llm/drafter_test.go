package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt Prompt
	calls  int
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, p Prompt) (string, error) {
	f.calls++
	f.prompt = p
	return f.reply, f.err
}

func neaRequest() NEARequest {
	return NEARequest{
		ProjectName:     "Plant 4 Renovation",
		Client:          "Acme",
		TaskName:        "Abrasive blasting",
		PersonalSamples: 3,
		Personnel:       []string{"Jane Roe"},
		FirstSample:     "2024-05-01",
		LastSample:      "2024-05-03",
		Summaries: []compliance.AnalyteSummary{
			{Analyte: "Lead", Units: "µg/m³", Samples: 3, MaxConcentration: 4.2, WorstStatus: constants.StatusOK, TWA: 3.1},
		},
	}
}

func TestDraftNEA_OK(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n" + `{"title":"NEA: Abrasive blasting","summary":"s","basis":["3 personal samples"],"conclusion":"below AL"}` + "\n```"}
	d := NewDrafter(fc, nil)

	got, raw, err := d.DraftNEA(context.Background(), neaRequest())
	require.NoError(t, err)
	assert.Equal(t, "NEA: Abrasive blasting", got.Title)
	assert.Equal(t, []string{"3 personal samples"}, got.Basis)
	assert.NotEmpty(t, raw)
	assert.Contains(t, fc.prompt.User, "Lead: 3 samples")
	assert.Contains(t, fc.prompt.User, "Client: Acme")
	assert.NotNil(t, fc.prompt.Schema)
}

func TestDraftNEA_NoSummaries(t *testing.T) {
	fc := &fakeCompleter{}
	_, _, err := NewDrafter(fc, nil).DraftNEA(context.Background(), NEARequest{TaskName: "x"})
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Zero(t, fc.calls)
}

func TestDraftNEA_MissingRequired(t *testing.T) {
	fc := &fakeCompleter{reply: `{"title":"t","summary":"s"}`}
	_, _, err := NewDrafter(fc, nil).DraftNEA(context.Background(), neaRequest())
	require.ErrorIs(t, err, ErrInvalidOutput)
}

func TestDraftNEA_CompletionError(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeCompleter{err: boom}
	_, _, err := NewDrafter(fc, nil).DraftNEA(context.Background(), neaRequest())
	require.ErrorIs(t, err, boom)
}

func TestDraftNEA_LenientDropsUnknownKeys(t *testing.T) {
	reply := `{"title":"t","summary":"s","basis":["b"],"conclusion":"c","confidence":0.9,"recommendations":null}`

	got, _, err := NewDrafter(&fakeCompleter{reply: reply}, nil).DraftNEA(context.Background(), neaRequest())
	require.NoError(t, err)
	assert.Equal(t, "c", got.Conclusion)

	_, _, err = NewDrafter(&fakeCompleter{reply: reply}, nil, WithStrictOutput()).DraftNEA(context.Background(), neaRequest())
	require.ErrorIs(t, err, ErrInvalidOutput)
}

func TestSummarizeLabReport(t *testing.T) {
	reply := `{"lab":"Galson","results":[
		{"sample_id":"S-1","analyte":"Lead","concentration":"12.5","units":"µg/m³"},
		{"sample_id":"S-2","analyte":"Lead","concentration":"<0.5"},
		{"sample_id":"S-3","analyte":"Lead","concentration":"ND","reporting_limit":"0.2"}
	]}`
	fc := &fakeCompleter{reply: reply}
	d := NewDrafter(fc, nil)

	got, _, err := d.SummarizeLabReport(context.Background(), LabReportRequest{
		ReportText:     "S-1 Lead 12.5 ...",
		KnownSampleIDs: []string{"S-1", "S-2", "S-3"},
		Analytes:       []string{"Lead"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Galson", got.Lab)
	require.Len(t, got.Results, 3)

	require.NotNil(t, got.Results[0].Concentration)
	assert.InDelta(t, 12.5, *got.Results[0].Concentration, 1e-9)
	assert.False(t, got.Results[0].NonDetect)

	assert.Nil(t, got.Results[1].Concentration)
	assert.True(t, got.Results[1].NonDetect)
	require.NotNil(t, got.Results[1].ReportingLimit)
	assert.InDelta(t, 0.5, *got.Results[1].ReportingLimit, 1e-9)

	assert.True(t, got.Results[2].NonDetect)
	require.NotNil(t, got.Results[2].ReportingLimit)
	assert.InDelta(t, 0.2, *got.Results[2].ReportingLimit, 1e-9)

	assert.Contains(t, fc.prompt.User, "Known sample ids: S-1, S-2, S-3")
}

func TestSummarizeLabReport_UnknownSampleRejected(t *testing.T) {
	reply := `{"results":[{"sample_id":"S-9","analyte":"Lead","concentration":1}]}`
	_, _, err := NewDrafter(&fakeCompleter{reply: reply}, nil).SummarizeLabReport(context.Background(), LabReportRequest{
		ReportText:     "report",
		KnownSampleIDs: []string{"S-1"},
	})
	require.ErrorIs(t, err, ErrInvalidOutput)
}

func TestSummarizeLabReport_Empty(t *testing.T) {
	_, _, err := NewDrafter(&fakeCompleter{}, nil).SummarizeLabReport(context.Background(), LabReportRequest{})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1} "))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	require.NoError(t, ValidateJSONAgainstSchema(NEASchema(), []byte(`{"title":"t","summary":"s","basis":["b"],"conclusion":"c"}`)))
	require.Error(t, ValidateJSONAgainstSchema(NEASchema(), []byte(`{"title":""}`)))
	require.Error(t, ValidateJSONAgainstSchema(NEASchema(), []byte(`not json`)))
}
