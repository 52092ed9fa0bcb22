package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSampleType(t *testing.T) {
	st, ok := ParseSampleType("  personal ")
	assert.True(t, ok)
	assert.Equal(t, SampleTypePersonal, st)

	_, ok = ParseSampleType("Bulk")
	assert.False(t, ok)

	_, ok = ParseSampleType("")
	assert.False(t, ok)
}

func TestSampleTypesIsACopy(t *testing.T) {
	types := SampleTypes()
	types[0] = "Mutated"
	assert.Equal(t, SampleTypeArea, SampleTypes()[0])
}

func TestParseResultStatus(t *testing.T) {
	cases := map[string]ResultStatus{
		"ok":      StatusOK,
		">=AL":    StatusAtOrAboveAL,
		"≥al":     StatusAtOrAboveAL,
		">pel":    StatusAbovePEL,
		"pending": StatusPending,
	}
	for in, want := range cases {
		got, ok := ParseResultStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseResultStatus("high")
	assert.False(t, ok)
}

func TestSeverityOrdering(t *testing.T) {
	assert.Less(t, StatusPending.Severity(), StatusOK.Severity())
	assert.Less(t, StatusOK.Severity(), StatusAtOrAboveAL.Severity())
	assert.Less(t, StatusAtOrAboveAL.Severity(), StatusAbovePEL.Severity())
	assert.True(t, StatusAbovePEL.Exceeds())
	assert.False(t, StatusOK.Exceeds())
}
