package llm

// NEASchema constrains the negative exposure assessment draft.
func NEASchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":           map[string]any{"type": "string", "minLength": 1},
			"summary":         map[string]any{"type": "string", "minLength": 1},
			"basis":           map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
			"conclusion":      map[string]any{"type": "string", "minLength": 1},
			"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"title", "summary", "basis", "conclusion"},
	}
}

// LabReportSchema constrains lab-report extraction. Analytes and sample ids are
// enumerated when known so the model cannot invent them.
func LabReportSchema(sampleIDs, analytes []string) map[string]any {
	sampleID := map[string]any{"type": "string", "minLength": 1}
	if len(sampleIDs) > 0 {
		sampleID["enum"] = sampleIDs
	}
	analyte := map[string]any{"type": "string", "minLength": 1}
	if len(analytes) > 0 {
		analyte["enum"] = analytes
	}
	result := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"sample_id":       sampleID,
			"analyte":         analyte,
			"concentration":   map[string]any{"type": "number", "minimum": 0},
			"units":           map[string]any{"type": "string"},
			"reporting_limit": map[string]any{"type": "number", "minimum": 0},
			"non_detect":      map[string]any{"type": "boolean"},
		},
		"required": []string{"sample_id", "analyte"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"lab":     map[string]any{"type": "string"},
			"method":  map[string]any{"type": "string"},
			"notes":   map[string]any{"type": "string"},
			"results": map[string]any{"type": "array", "items": result},
		},
		"required": []string{"results"},
	}
}
