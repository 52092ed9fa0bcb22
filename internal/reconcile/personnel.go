package reconcile

// PersonnelDraft is a validated personnel row with normalized due dates.
type PersonnelDraft struct {
	Name                    string
	EmployeeID              string
	FitTestDueDate          string
	MedicalClearanceDueDate string
}

func (r *Reconciler) ParsePersonnel(text string) ([]PersonnelDraft, error) {
	return firstError(r.PersonnelResults(SplitTable(text, r.delimiter, PersonnelHeaderKeywords)))
}

func (r *Reconciler) ParsePersonnelRows(rows [][]string) ([]PersonnelDraft, error) {
	return firstError(r.PersonnelResults(TableFromRows(rows, PersonnelHeaderKeywords)))
}

// PersonnelResults reconciles every personnel row independently.
func (r *Reconciler) PersonnelResults(t Table) []RowResult[PersonnelDraft] {
	out := make([]RowResult[PersonnelDraft], 0, len(t.Rows))
	for _, row := range t.Rows {
		d, err := personnelRow(row)
		out = append(out, RowResult[PersonnelDraft]{Row: row.Number, Record: d, Err: err})
	}
	return out
}

func personnelRow(row Row) (PersonnelDraft, error) {
	if len(row.Cells) < MinPersonnelColumns {
		return PersonnelDraft{}, &RowTooShortError{Row: row.Number, Got: len(row.Cells), Want: MinPersonnelColumns}
	}
	if row.cell(0) == "" {
		return PersonnelDraft{}, &MissingValueError{Row: row.Number, Field: "Name"}
	}
	fit, ok := NormalizeDate(row.cell(2))
	if !ok {
		return PersonnelDraft{}, &InvalidDateError{Row: row.Number, Field: "Fit Test Due Date", Value: row.cell(2)}
	}
	med, ok := NormalizeDate(row.cell(3))
	if !ok {
		return PersonnelDraft{}, &InvalidDateError{Row: row.Number, Field: "Medical Clearance Due Date", Value: row.cell(3)}
	}
	return PersonnelDraft{
		Name:                    row.cell(0),
		EmployeeID:              row.cell(1),
		FitTestDueDate:          fit,
		MedicalClearanceDueDate: med,
	}, nil
}
