package reconcile

import (
	"fmt"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

// RowError is implemented by every reconciliation error. Row is the 1-based data row.
type RowError interface {
	error
	RowNumber() int
}

// RowTooShortError reports a row with fewer cells than the schema minimum.
type RowTooShortError struct {
	Row  int
	Got  int
	Want int
}

func (e *RowTooShortError) Error() string {
	return fmt.Sprintf("row %d: expected at least %d columns, got %d", e.Row, e.Want, e.Got)
}
func (e *RowTooShortError) RowNumber() int { return e.Row }
func (e *RowTooShortError) Unwrap() error  { return common.ErrValidation }

// ReferenceNotFoundError reports a named Project/Task/Personnel with no match.
type ReferenceNotFoundError struct {
	Row   int
	Field string
	Value string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("row %d: %s %q not found", e.Row, e.Field, e.Value)
}
func (e *ReferenceNotFoundError) RowNumber() int { return e.Row }
func (e *ReferenceNotFoundError) Unwrap() error  { return common.ErrValidation }

// InvalidEnumValueError reports a value outside a fixed set.
type InvalidEnumValueError struct {
	Row     int
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q", e.Row, e.Field, e.Value)
}
func (e *InvalidEnumValueError) RowNumber() int { return e.Row }
func (e *InvalidEnumValueError) Unwrap() error  { return common.ErrValidation }

// InvalidNumberError reports a numeric cell that does not parse to a finite value,
// or a negative value where only non-negative ones are allowed.
type InvalidNumberError struct {
	Row      int
	Field    string
	Value    string
	Negative bool
}

func (e *InvalidNumberError) Error() string {
	if e.Negative {
		return fmt.Sprintf("row %d: %s %q must not be negative", e.Row, e.Field, e.Value)
	}
	return fmt.Sprintf("row %d: %s %q is not a number", e.Row, e.Field, e.Value)
}
func (e *InvalidNumberError) RowNumber() int { return e.Row }
func (e *InvalidNumberError) Unwrap() error  { return common.ErrValidation }

// InvalidDateError reports a date cell that is not a calendar date.
type InvalidDateError struct {
	Row   int
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("row %d: %s %q is not a valid date", e.Row, e.Field, e.Value)
}
func (e *InvalidDateError) RowNumber() int { return e.Row }
func (e *InvalidDateError) Unwrap() error  { return common.ErrValidation }

// MissingValueError reports a required cell left blank.
type MissingValueError struct {
	Row   int
	Field string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("row %d: %s is required", e.Row, e.Field)
}
func (e *MissingValueError) RowNumber() int { return e.Row }
func (e *MissingValueError) Unwrap() error  { return common.ErrValidation }

// ErrorKind names the error type for metrics labels.
func ErrorKind(err error) string {
	switch err.(type) {
	case *RowTooShortError:
		return "row_too_short"
	case *ReferenceNotFoundError:
		return "reference_not_found"
	case *InvalidEnumValueError:
		return "invalid_enum"
	case *InvalidNumberError:
		return "invalid_number"
	case *InvalidDateError:
		return "invalid_date"
	case *MissingValueError:
		return "missing_value"
	default:
		return "other"
	}
}
