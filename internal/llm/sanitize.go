package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SanitizeOptionalFields cleans a model reply so it passes the schema when only
// optional fields are malformed. Required fields are never fabricated.
//   - keys not declared in the schema are dropped
//   - null and empty-string optional values are removed
//   - numeric strings become numbers; "<0.01" style values become non-detects
func SanitizeOptionalFields(raw []byte, schema map[string]any) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	out := sanitizeValue(v, schema)
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return b, nil
}

func sanitizeValue(v any, schema map[string]any) any {
	switch schema["type"] {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		return sanitizeObject(obj, schema)
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return v
		}
		items, _ := schema["items"].(map[string]any)
		out := make([]any, 0, len(arr))
		for _, it := range arr {
			if items != nil {
				it = sanitizeValue(it, items)
			}
			out = append(out, it)
		}
		return out
	case "number":
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	}
	return v
}

func sanitizeObject(obj map[string]any, schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	for _, r := range requiredKeys(schema) {
		required[r] = true
	}

	// "<0.01" in concentration means not detected at that reporting limit.
	if _, hasND := props["non_detect"]; hasND {
		if s, ok := obj["concentration"].(string); ok {
			t := strings.TrimSpace(s)
			switch {
			case strings.HasPrefix(t, "<"):
				if f, err := strconv.ParseFloat(strings.TrimSpace(t[1:]), 64); err == nil {
					if _, set := obj["reporting_limit"]; !set {
						obj["reporting_limit"] = f
					}
				}
				obj["non_detect"] = true
				delete(obj, "concentration")
			case strings.EqualFold(t, "nd"):
				obj["non_detect"] = true
				delete(obj, "concentration")
			}
		}
	}

	out := make(map[string]any, len(obj))
	for k, val := range obj {
		ps, declared := props[k].(map[string]any)
		if !declared {
			continue
		}
		if !required[k] {
			if val == nil {
				continue
			}
			if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
		}
		val = sanitizeValue(val, ps)
		if !required[k] && ps["type"] == "number" {
			if _, ok := val.(float64); !ok {
				continue
			}
		}
		out[k] = val
	}
	return out
}

func requiredKeys(schema map[string]any) []string {
	switch r := schema["required"].(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
