package constants

import (
	"strings"
)

type SampleType string

const (
	SampleTypeArea      SampleType = "Area"
	SampleTypePersonal  SampleType = "Personal"
	SampleTypeBlank     SampleType = "Blank"
	SampleTypeExcursion SampleType = "Excursion"
	SampleTypeClearance SampleType = "Clearance"
)

var allSampleTypes = []SampleType{
	SampleTypeArea,
	SampleTypePersonal,
	SampleTypeBlank,
	SampleTypeExcursion,
	SampleTypeClearance,
}

// SampleTypes returns the fixed set of sample types in display order.
func SampleTypes() []SampleType {
	out := make([]SampleType, len(allSampleTypes))
	copy(out, allSampleTypes)
	return out
}

func SampleTypesAsStrings() []string {
	result := make([]string, len(allSampleTypes))
	for i, st := range allSampleTypes {
		result[i] = string(st)
	}
	return result
}

// ParseSampleType matches input case-insensitively against the fixed set.
func ParseSampleType(input string) (SampleType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, st := range allSampleTypes {
		if normalized == strings.ToLower(string(st)) {
			return st, true
		}
	}
	return "", false
}
