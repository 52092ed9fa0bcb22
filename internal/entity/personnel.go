package entity

import (
	"time"

	"github.com/google/uuid"
)

// Personnel represents a sampled worker. Due dates are YYYY-MM-DD strings.
type Personnel struct {
	ID                      uuid.UUID `json:"id"`
	TenantID                uuid.UUID `json:"tenant_id"`
	Name                    string    `json:"name"`
	EmployeeID              string    `json:"employee_id"`
	FitTestDueDate          string    `json:"fit_test_due_date"`
	MedicalClearanceDueDate string    `json:"medical_clearance_due_date"`
	CreatedAt               time.Time `json:"created_at"`
}

func (p *Personnel) Ref() Ref { return Ref{ID: p.ID, Name: p.Name} }
