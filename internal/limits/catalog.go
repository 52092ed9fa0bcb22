// Package limits loads exposure-limit catalogs from YAML (JSON is accepted as well,
// being a subset of YAML 1.2).
package limits

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

// Catalog is the on-disk document shape.
//
//	limits:
//	  - analyte: Respirable Crystalline Silica
//	    units: µg/m³
//	    al: 25
//	    pel: 50
type Catalog struct {
	Limits []entity.ExposureLimit `yaml:"limits"`
}

// LoadYAML reads and validates a catalog file.
func LoadYAML(path string, logger *slog.Logger) (compliance.Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("limits catalog %s: %w", path, common.ErrNotFound)
		}
		return nil, fmt.Errorf("read limits catalog: %w", err)
	}
	return Parse(data, logger)
}

// Parse decodes and validates a catalog. Analytes must be unique (case-insensitive)
// and AL/PEL non-negative. AL above PEL is logged but accepted.
func Parse(data []byte, logger *slog.Logger) (compliance.Limits, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode limits catalog: %w", errors.Join(common.ErrValidation, err))
	}

	seen := make(map[string]struct{}, len(cat.Limits))
	out := make(compliance.Limits, 0, len(cat.Limits))
	for i, l := range cat.Limits {
		l.Analyte = strings.TrimSpace(l.Analyte)
		l.Units = strings.TrimSpace(l.Units)
		if l.Analyte == "" {
			return nil, fmt.Errorf("limits[%d]: analyte is required: %w", i, common.ErrValidation)
		}
		if l.AL < 0 || l.PEL < 0 {
			return nil, fmt.Errorf("limits[%d] %s: al and pel must be non-negative: %w", i, l.Analyte, common.ErrValidation)
		}
		key := strings.ToLower(l.Analyte)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("limits[%d]: duplicate analyte %q: %w", i, l.Analyte, common.ErrValidation)
		}
		seen[key] = struct{}{}
		if l.AL > l.PEL {
			logger.Warn("limits.catalog.al_above_pel", "analyte", l.Analyte, "al", l.AL, "pel", l.PEL)
		}
		out = append(out, l)
	}
	return out, nil
}

// ForTenant copies the catalog with every entry scoped to tenantID.
func ForTenant(l compliance.Limits, tenantID uuid.UUID) []entity.ExposureLimit {
	out := make([]entity.ExposureLimit, len(l))
	for i, lim := range l {
		lim.TenantID = tenantID
		out[i] = lim
	}
	return out
}

// Analytes lists catalog analyte names in order.
func Analytes(l compliance.Limits) []string {
	out := make([]string, len(l))
	for i, lim := range l {
		out[i] = lim.Analyte
	}
	return out
}
