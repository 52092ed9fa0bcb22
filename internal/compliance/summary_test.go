package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

func TestSummarizeExposures(t *testing.T) {
	samples := []entity.Sample{
		{Duration: 240, Result: &entity.Result{Analyte: "Silica", Concentration: ptr(0.02), Status: constants.StatusOK}},
		{Duration: 240, Result: &entity.Result{Analyte: "silica", Concentration: ptr(0.06), Status: constants.StatusAbovePEL}},
		{Duration: 100, Result: &entity.Result{Analyte: "Lead", Status: constants.StatusPending}},
		{Duration: 100},
	}
	got := SummarizeExposures(samples)
	require.Len(t, got, 2)

	lead, si := got[0], got[1]
	assert.Equal(t, "Lead", lead.Analyte)
	assert.Equal(t, 1, lead.Pending)
	assert.Equal(t, constants.StatusPending, lead.WorstStatus)

	assert.Equal(t, "Silica", si.Analyte)
	assert.Equal(t, 2, si.Samples)
	assert.Equal(t, 0.06, si.MaxConcentration)
	assert.Equal(t, constants.StatusAbovePEL, si.WorstStatus)
	assert.InDelta(t, 0.04, si.TWA, 1e-12)
}
