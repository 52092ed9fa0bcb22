package entity

import "github.com/google/uuid"

// ExposureLimit holds the thresholds for one analyte. Analyte is matched case-insensitively.
type ExposureLimit struct {
	TenantID uuid.UUID `json:"tenant_id" yaml:"-"`
	Analyte  string    `json:"analyte" yaml:"analyte"`
	Units    string    `json:"units" yaml:"units"`
	AL       float64   `json:"al" yaml:"al"`
	PEL      float64   `json:"pel" yaml:"pel"`
	STEL     *float64  `json:"stel,omitempty" yaml:"stel,omitempty"`
	EL       *float64  `json:"el,omitempty" yaml:"el,omitempty"`
}
