package compliance

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

// AnalyteSummary aggregates the results for one analyte across samples.
type AnalyteSummary struct {
	Analyte          string                 `json:"analyte"`
	Units            string                 `json:"units,omitempty"`
	Samples          int                    `json:"samples"`
	Pending          int                    `json:"pending"`
	MaxConcentration float64                `json:"max_concentration"`
	WorstStatus      constants.ResultStatus `json:"worst_status"`
	TWA              float64                `json:"twa"`
}

// SummarizeExposures groups sample results by analyte (case-insensitive, first
// spelling wins). Samples without a result are skipped; pending results count toward
// Pending but not toward the maximum or TWA.
func SummarizeExposures(samples []entity.Sample) []AnalyteSummary {
	byKey := map[string]*AnalyteSummary{}
	segments := map[string][]Segment{}
	var order []string

	for _, s := range samples {
		if s.Result == nil || strings.TrimSpace(s.Result.Analyte) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(s.Result.Analyte))
		sum, ok := byKey[key]
		if !ok {
			sum = &AnalyteSummary{
				Analyte:     strings.TrimSpace(s.Result.Analyte),
				Units:       s.Result.Units,
				WorstStatus: constants.StatusPending,
			}
			byKey[key] = sum
			order = append(order, key)
		}
		sum.Samples++
		if s.Result.Concentration == nil {
			sum.Pending++
			continue
		}
		c := *s.Result.Concentration
		if c > sum.MaxConcentration {
			sum.MaxConcentration = c
		}
		if s.Result.Status.Severity() > sum.WorstStatus.Severity() {
			sum.WorstStatus = s.Result.Status
		}
		segments[key] = append(segments[key], Segment{Concentration: c, Minutes: float64(s.Duration)})
	}

	sort.Strings(order)
	out := make([]AnalyteSummary, 0, len(order))
	for _, k := range order {
		sum := byKey[k]
		sum.TWA = TimeWeightedAverage(segments[k], FullShiftMinutes)
		out = append(out, *sum)
	}
	return out
}
