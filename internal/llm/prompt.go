package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const neaSystem = `You are an industrial hygienist drafting a Negative Exposure Assessment (NEA).
Use only the monitoring data provided. Do not invent samples, analytes or results.
Reply with a single JSON object matching the provided schema and nothing else.
State that personal exposures were below the action level for every analyte listed.`

const labReportSystem = `You extract analytical results from laboratory reports for air samples.
Return one entry per sample and analyte. Use the sample identifiers exactly as they appear.
When a result is reported as below the reporting limit (for example "<0.01" or "ND"),
set non_detect to true, put the limit in reporting_limit and omit concentration.
Reply with a single JSON object matching the provided schema and nothing else.`

// BuildNEAPrompt renders the monitoring evidence into a prompt.
func BuildNEAPrompt(req NEARequest) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", req.ProjectName)
	if req.Client != "" {
		fmt.Fprintf(&b, "Client: %s\n", req.Client)
	}
	fmt.Fprintf(&b, "Task: %s\n", req.TaskName)
	if req.TaskDescription != "" {
		fmt.Fprintf(&b, "Task description: %s\n", req.TaskDescription)
	}
	fmt.Fprintf(&b, "Personal samples: %d\n", req.PersonalSamples)
	if req.FirstSample != "" {
		fmt.Fprintf(&b, "Sampling period: %s to %s\n", req.FirstSample, req.LastSample)
	}
	if len(req.Personnel) > 0 {
		fmt.Fprintf(&b, "Workers monitored: %s\n", strings.Join(req.Personnel, ", "))
	}
	b.WriteString("\nResults by analyte:\n")
	for _, s := range req.Summaries {
		fmt.Fprintf(&b, "- %s: %d samples, max %.4g %s, 8-hr TWA %.4g, status %s\n",
			s.Analyte, s.Samples, s.MaxConcentration, s.Units, s.TWA, s.WorstStatus)
	}
	return Prompt{
		System: neaSystem,
		User:   b.String(),
		Schema: NEASchema(),
	}
}

// BuildLabReportPrompt asks for a structured extraction of the report text.
func BuildLabReportPrompt(req LabReportRequest) Prompt {
	schema := LabReportSchema(req.KnownSampleIDs, req.Analytes)
	var b strings.Builder
	if len(req.KnownSampleIDs) > 0 {
		fmt.Fprintf(&b, "Known sample ids: %s\n", strings.Join(req.KnownSampleIDs, ", "))
	}
	if len(req.Analytes) > 0 {
		fmt.Fprintf(&b, "Analytes of interest: %s\n", strings.Join(req.Analytes, ", "))
	}
	b.WriteString("\nReport:\n")
	b.WriteString(req.ReportText)
	return Prompt{
		System: labReportSystem,
		User:   b.String(),
		Schema: schema,
	}
}

// SchemaText renders a prompt schema for providers that take it as plain text.
func SchemaText(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return string(b)
}
