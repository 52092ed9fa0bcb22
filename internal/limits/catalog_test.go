package limits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
)

const catalogYAML = `
limits:
  - analyte: Silica
    units: µg/m³
    al: 25
    pel: 50
  - analyte: Lead
    units: µg/m³
    al: 30
    pel: 50
    el: 250
`

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	lim, err := LoadYAML(path, nil)
	require.NoError(t, err)
	require.Len(t, lim, 2)
	assert.Equal(t, []string{"Silica", "Lead"}, Analytes(lim))
	require.NotNil(t, lim[1].EL)
	assert.Equal(t, 250.0, *lim[1].EL)
	assert.Nil(t, lim[0].STEL)

	conc := 30.0
	assert.Equal(t, constants.StatusAtOrAboveAL, compliance.ClassifyStatus("silica", &conc, lim))
}

func TestLoadYAML_Missing(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"no analyte": "limits:\n  - units: ppm\n    al: 1\n    pel: 2\n",
		"negative":   "limits:\n  - analyte: CO\n    al: -1\n    pel: 2\n",
		"duplicate":  "limits:\n  - analyte: CO\n    al: 1\n    pel: 2\n  - analyte: co\n    al: 1\n    pel: 2\n",
		"not yaml":   "limits: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), nil)
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestParse_ALAbovePELIsAccepted(t *testing.T) {
	lim, err := Parse([]byte("limits:\n  - analyte: Odd\n    al: 10\n    pel: 5\n"), nil)
	require.NoError(t, err)
	require.Len(t, lim, 1)
}

func TestForTenant(t *testing.T) {
	lim, err := Parse([]byte(catalogYAML), nil)
	require.NoError(t, err)
	id := uuid.New()
	scoped := ForTenant(lim, id)

	el := 250.0
	want := []entity.ExposureLimit{
		{TenantID: id, Analyte: "Silica", Units: "µg/m³", AL: 25, PEL: 50},
		{TenantID: id, Analyte: "Lead", Units: "µg/m³", AL: 30, PEL: 50, EL: &el},
	}
	if diff := cmp.Diff(want, scoped); diff != "" {
		t.Errorf("ForTenant mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uuid.Nil, lim[0].TenantID)
}
