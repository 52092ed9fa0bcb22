// Package reconcile turns pasted or uploaded tabular data into typed sample and
// personnel drafts, resolving Project/Task/Personnel references by name.
// It has no side effects: callers persist the drafts.
package reconcile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

// Minimum column counts per import kind.
const (
	MinSampleColumns    = 8
	MinPersonnelColumns = 4
)

const DefaultDelimiter = '\t'

// RowResult is the per-row outcome: exactly one of Record and Err is meaningful.
type RowResult[T any] struct {
	Row    int
	Record T
	Err    error
}

func (r RowResult[T]) OK() bool { return r.Err == nil }

// Reconciler parses tabular text against injected reference snapshots.
type Reconciler struct {
	delimiter  rune
	sampleDate string
	clock      func() time.Time
	analytes   AnalyteSet
}

type Option func(*Reconciler)

// WithDelimiter overrides the tab delimiter.
func WithDelimiter(d rune) Option {
	return func(r *Reconciler) { r.delimiter = d }
}

// WithSampleDate sets the date (YYYY-MM-DD) HH:mm cells are combined with.
func WithSampleDate(date string) Option {
	return func(r *Reconciler) { r.sampleDate = strings.TrimSpace(date) }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithAnalytes restricts the analyte column to a catalog.
func WithAnalytes(set AnalyteSet) Option {
	return func(r *Reconciler) { r.analytes = set }
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		delimiter: DefaultDelimiter,
		clock:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// date returns the date prefix for HH:mm cells.
func (r *Reconciler) date() string {
	if r.sampleDate != "" {
		return r.sampleDate
	}
	return r.clock().Format(constants.DateLayout)
}

// SampleDate reports the date HH:mm cells will be combined with.
func (r *Reconciler) SampleDate() string { return r.date() }

func firstError[T any](results []RowResult[T]) ([]T, error) {
	out := make([]T, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			return nil, res.Err
		}
		out = append(out, res.Record)
	}
	return out, nil
}

func parseNumber(row int, field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidNumberError{Row: row, Field: field, Value: value}
	}
	return f, nil
}

func parseNonNegative(row int, field, value string) (float64, error) {
	f, err := parseNumber(row, field, value)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, &InvalidNumberError{Row: row, Field: field, Value: value, Negative: true}
	}
	return f, nil
}

var dateLayouts = []string{
	constants.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// NormalizeDate parses a calendar date in any accepted layout and returns YYYY-MM-DD.
func NormalizeDate(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(constants.DateLayout), true
		}
	}
	if t, ok := excelSerialDate(v); ok {
		return t.Format(constants.DateLayout), true
	}
	return "", false
}

// normalizeTime combines an HH:mm cell with date. Full timestamps and unparseable
// values are passed through; the evaluator turns the latter into a zero duration.
func normalizeTime(value, date string) string {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(constants.ClockLayout, v); err == nil {
		return date + " " + t.Format(constants.ClockLayout)
	}
	if t, err := time.Parse("15:04:05", v); err == nil {
		return date + " " + t.Format(constants.ClockLayout)
	}
	return v
}
