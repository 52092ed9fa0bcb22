package reconcile

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

// Sample column positions.
const (
	colProject = iota
	colTask
	colPersonnel
	colDescription
	colSampleType
	colStart
	colStop
	colFlowRate
	colAnalyte
	colConcentration
)

// SampleDraft is a validated sample row with resolved references and no id.
type SampleDraft struct {
	ProjectID   uuid.UUID
	TaskID      uuid.UUID
	PersonnelID uuid.UUID
	Description string
	SampleType  constants.SampleType
	StartTime   string
	StopTime    string
	FlowRate    float64
	Result      *ResultDraft
}

// ResultDraft is the optional analyte/concentration pair carried by a sample row.
type ResultDraft struct {
	Analyte       string
	Concentration float64
}

// ParseSamples parses delimited text and stops at the first row error.
func (r *Reconciler) ParseSamples(text string, refs Refs) ([]SampleDraft, error) {
	return firstError(r.SampleResults(SplitTable(text, r.delimiter, SampleHeaderKeywords), refs))
}

// ParseSampleRows is ParseSamples for pre-split cells.
func (r *Reconciler) ParseSampleRows(rows [][]string, refs Refs) ([]SampleDraft, error) {
	return firstError(r.SampleResults(TableFromRows(rows, SampleHeaderKeywords), refs))
}

// SampleResults reconciles every row independently.
func (r *Reconciler) SampleResults(t Table, refs Refs) []RowResult[SampleDraft] {
	date := r.date()
	out := make([]RowResult[SampleDraft], 0, len(t.Rows))
	for _, row := range t.Rows {
		d, err := r.sampleRow(row, refs, date)
		out = append(out, RowResult[SampleDraft]{Row: row.Number, Record: d, Err: err})
	}
	return out
}

func (r *Reconciler) sampleRow(row Row, refs Refs, date string) (SampleDraft, error) {
	if len(row.Cells) < MinSampleColumns {
		return SampleDraft{}, &RowTooShortError{Row: row.Number, Got: len(row.Cells), Want: MinSampleColumns}
	}

	project, err := resolve(row, colProject, "Project", refs.Projects)
	if err != nil {
		return SampleDraft{}, err
	}
	task, err := resolve(row, colTask, "Task", refs.Tasks)
	if err != nil {
		return SampleDraft{}, err
	}
	person, err := resolve(row, colPersonnel, "Personnel", refs.Personnel)
	if err != nil {
		return SampleDraft{}, err
	}

	st, ok := constants.ParseSampleType(row.cell(colSampleType))
	if !ok {
		return SampleDraft{}, &InvalidEnumValueError{
			Row: row.Number, Field: "Sample Type", Value: row.cell(colSampleType),
			Allowed: constants.SampleTypesAsStrings(),
		}
	}

	flow, err := parseNumber(row.Number, "Flow Rate", row.cell(colFlowRate))
	if err != nil {
		return SampleDraft{}, err
	}

	d := SampleDraft{
		ProjectID:   project,
		TaskID:      task,
		PersonnelID: person,
		Description: row.cell(colDescription),
		SampleType:  st,
		StartTime:   normalizeTime(row.cell(colStart), date),
		StopTime:    normalizeTime(row.cell(colStop), date),
		FlowRate:    flow,
	}

	analyte := row.cell(colAnalyte)
	if analyte == "" {
		return d, nil
	}
	if r.analytes != nil && !r.analytes.HasAnalyte(analyte) {
		return SampleDraft{}, &InvalidEnumValueError{
			Row: row.Number, Field: "Analyte", Value: analyte, Allowed: r.analytes.Names(),
		}
	}
	res := &ResultDraft{Analyte: analyte}
	if raw := row.cell(colConcentration); raw != "" {
		c, err := parseNonNegative(row.Number, "Concentration", raw)
		if err != nil {
			return SampleDraft{}, err
		}
		res.Concentration = c
	}
	d.Result = res
	return d, nil
}

func resolve(row Row, col int, field string, provider ReferenceProvider) (uuid.UUID, error) {
	name := row.cell(col)
	if provider != nil {
		if ref, ok := provider.FindByName(name); ok {
			return ref.ID, nil
		}
	}
	return uuid.Nil, &ReferenceNotFoundError{Row: row.Number, Field: field, Value: name}
}
