package llm

import (
	"context"

	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
)

// Prompt is one structured-output request. Schema, when set, is sent to the model
// and used to validate the reply.
type Prompt struct {
	System      string
	User        string
	Schema      map[string]any
	Temperature *float32
}

// Completer is the provider seam: it returns the model's raw text reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// NEARequest carries the exposure evidence for a negative exposure assessment.
type NEARequest struct {
	ProjectName     string
	Client          string
	TaskName        string
	TaskDescription string
	PersonalSamples int
	Personnel       []string
	FirstSample     string // YYYY-MM-DD
	LastSample      string
	Summaries       []compliance.AnalyteSummary
}

// NEADraft is the structured draft returned by the model.
type NEADraft struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Basis           []string `json:"basis"`
	Conclusion      string   `json:"conclusion"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type LabReportRequest struct {
	ReportText     string
	KnownSampleIDs []string
	Analytes       []string
}

// LabResult is one row of a lab report. NonDetect rows carry the reporting limit
// and no concentration.
type LabResult struct {
	SampleID       string   `json:"sample_id"`
	Analyte        string   `json:"analyte"`
	Concentration  *float64 `json:"concentration,omitempty"`
	Units          string   `json:"units,omitempty"`
	ReportingLimit *float64 `json:"reporting_limit,omitempty"`
	NonDetect      bool     `json:"non_detect,omitempty"`
}

type LabReportSummary struct {
	Lab     string      `json:"lab,omitempty"`
	Method  string      `json:"method,omitempty"`
	Results []LabResult `json:"results"`
	Notes   string      `json:"notes,omitempty"`
}
