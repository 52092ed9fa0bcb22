package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

// Sample represents one air sample. Duration (minutes) and Volume (liters) are derived
// from StartTime, StopTime and FlowRate and are never taken from input.
type Sample struct {
	ID          uuid.UUID            `json:"id"`
	TenantID    uuid.UUID            `json:"tenant_id"`
	ProjectID   uuid.UUID            `json:"project_id"`
	TaskID      uuid.UUID            `json:"task_id"`
	PersonnelID uuid.UUID            `json:"personnel_id"`
	Description string               `json:"description"`
	SampleType  constants.SampleType `json:"sample_type"`
	StartTime   string               `json:"start_time"`
	StopTime    string               `json:"stop_time"`
	FlowRate    float64              `json:"flow_rate"`
	Duration    int                  `json:"duration"`
	Volume      float64              `json:"volume"`
	Result      *Result              `json:"result,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Result is the single optional lab result attached to a sample.
type Result struct {
	ID             uuid.UUID              `json:"id"`
	SampleID       uuid.UUID              `json:"sample_id"`
	Analyte        string                 `json:"analyte"`
	Concentration  *float64               `json:"concentration,omitempty"`
	Status         constants.ResultStatus `json:"status"`
	Method         string                 `json:"method,omitempty"`
	Units          string                 `json:"units,omitempty"`
	ReportingLimit *float64               `json:"reporting_limit,omitempty"`
	Lab            string                 `json:"lab,omitempty"`
}

// SampleFilter narrows sample listings; zero values match everything.
type SampleFilter struct {
	ProjectID   *uuid.UUID
	TaskID      *uuid.UUID
	PersonnelID *uuid.UUID
	SampleType  constants.SampleType
}
