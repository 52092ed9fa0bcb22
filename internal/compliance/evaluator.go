// Package compliance derives sample duration and volume and classifies lab results
// against exposure limits. Every function here is pure and total: bad input produces a
// safe default (zero duration, Pending or OK status) instead of an error.
package compliance

import (
	"math"
	"strings"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

// LimitLookup is the read-only exposure-limit provider the evaluator depends on.
type LimitLookup interface {
	FindLimit(analyte string) (entity.ExposureLimit, bool)
}

// Limits is a snapshot of exposure limits with case-insensitive analyte lookup.
type Limits []entity.ExposureLimit

// FindLimit returns the first limit whose analyte matches case-insensitively.
func (l Limits) FindLimit(analyte string) (entity.ExposureLimit, bool) {
	key := strings.TrimSpace(analyte)
	for _, lim := range l {
		if strings.EqualFold(strings.TrimSpace(lim.Analyte), key) {
			return lim, true
		}
	}
	return entity.ExposureLimit{}, false
}

// ComputeDuration returns whole minutes between start and stop ("2006-01-02 15:04").
// It returns 0 when either value fails to parse or stop is not after start.
func ComputeDuration(start, stop string) int {
	t0, err := time.Parse(constants.TimestampLayout, strings.TrimSpace(start))
	if err != nil {
		return 0
	}
	t1, err := time.Parse(constants.TimestampLayout, strings.TrimSpace(stop))
	if err != nil {
		return 0
	}
	if !t1.After(t0) {
		return 0
	}
	return int(t1.Sub(t0) / time.Minute)
}

// ComputeVolume returns liters sampled. Negative or zero flow rates are reported as-is.
func ComputeVolume(duration int, flowRate float64) float64 {
	return float64(duration) * flowRate
}

// ClassifyStatus classifies a concentration against the analyte's limits.
// PEL is checked first with a strict comparison; AL is inclusive. Unknown analytes
// are never flagged. A nil concentration means the result is still Pending.
func ClassifyStatus(analyte string, concentration *float64, limits LimitLookup) constants.ResultStatus {
	if concentration == nil {
		return constants.StatusPending
	}
	if limits == nil {
		return constants.StatusOK
	}
	lim, ok := limits.FindLimit(analyte)
	if !ok {
		return constants.StatusOK
	}
	c := *concentration
	switch {
	case c > lim.PEL:
		return constants.StatusAbovePEL
	case c >= lim.AL:
		return constants.StatusAtOrAboveAL
	default:
		return constants.StatusOK
	}
}

// Evaluate returns a copy of the sample with Duration, Volume and Result.Status
// recomputed. The input sample and its result are not modified.
func Evaluate(s entity.Sample, limits LimitLookup) entity.Sample {
	out := s
	out.Duration = ComputeDuration(s.StartTime, s.StopTime)
	out.Volume = ComputeVolume(out.Duration, s.FlowRate)
	if s.Result != nil {
		r := *s.Result
		if s.Result.Concentration != nil {
			c := *s.Result.Concentration
			r.Concentration = &c
		}
		r.Status = ClassifyStatus(r.Analyte, r.Concentration, limits)
		out.Result = &r
	}
	return out
}

// Segment is one sampled interval feeding a time-weighted average.
type Segment struct {
	Concentration float64
	Minutes       float64
}

// FullShiftMinutes is the 8-hour reference period.
const FullShiftMinutes = 480

// TimeWeightedAverage returns Σ(c·t)/period. A non-positive period averages over the
// sampled time instead. Segments with non-positive minutes are ignored.
func TimeWeightedAverage(segments []Segment, periodMinutes float64) float64 {
	var weighted, total float64
	for _, s := range segments {
		if s.Minutes <= 0 || math.IsNaN(s.Concentration) {
			continue
		}
		weighted += s.Concentration * s.Minutes
		total += s.Minutes
	}
	if periodMinutes <= 0 {
		periodMinutes = total
	}
	if periodMinutes <= 0 {
		return 0
	}
	return weighted / periodMinutes
}

// PercentByWeight converts a bulk-material result in mg/kg to percent by weight.
func PercentByWeight(mgPerKg float64) float64 {
	return mgPerKg / 10000
}
