package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(s), v), s)
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EXPOSURE_CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", filepath.Join(dir, "ih.db"))
	t.Setenv("LIMITS_CATALOG", "")
	t.Setenv("IHCTL_TENANT", "")
	return dir
}

func TestCLI_EndToEnd(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "tenant", "create", "Acme IH")
	require.NoError(t, err)
	var tenant struct {
		ID string `json:"id"`
	}
	decodeJSON(t, out, &tenant)
	require.NotEmpty(t, tenant.ID)
	tf := []string{"--tenant", tenant.ID}

	_, err = execute(t, append(tf, "project", "add", "Plant 7", "--client", "Acme")...)
	require.NoError(t, err)
	_, err = execute(t, append(tf, "task", "add", "Grinding", "--description", "Hand grinding")...)
	require.NoError(t, err)
	_, err = execute(t, append(tf, "personnel", "add", "John Doe", "--employee-id", "E-1", "--fit-test-due", "2000-01-01")...)
	require.NoError(t, err)

	catalog := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte("limits:\n  - analyte: Lead\n    units: µg/m³\n    al: 30\n    pel: 50\n"), 0o600))
	out, err = execute(t, append(tf, "limits", "load", catalog)...)
	require.NoError(t, err)
	assert.JSONEq(t, `{"loaded":1}`, out)

	log := filepath.Join(dir, "log.tsv")
	require.NoError(t, os.WriteFile(log, []byte(
		"Project\tTask\tPersonnel\tDescription\tSample Type\tStart Time\tStop Time\tFlow Rate\tAnalyte\tConcentration\n"+
			"Plant 7\tGrinding\tJohn Doe\tS-1\tPersonal\t07:00\t15:00\t2\tLead\t55\n"), 0o600))
	out, err = execute(t, append(tf, "import", "samples", log, "--sample-date", "2024-05-01")...)
	require.NoError(t, err)
	var rep struct {
		Committed int      `json:"committed"`
		IDs       []string `json:"ids"`
	}
	decodeJSON(t, out, &rep)
	assert.Equal(t, 1, rep.Committed)
	require.Len(t, rep.IDs, 1)

	out, err = execute(t, append(tf, "evaluate", rep.IDs[0])...)
	require.NoError(t, err)
	var sample struct {
		StartTime string `json:"start_time"`
		Duration  int    `json:"duration"`
		Result    struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	decodeJSON(t, out, &sample)
	assert.Equal(t, "2024-05-01 07:00", sample.StartTime)
	assert.Equal(t, 480, sample.Duration)
	assert.Equal(t, ">PEL", sample.Result.Status)

	xlsx := filepath.Join(dir, "samples.xlsx")
	_, err = execute(t, append(tf, "export", "samples", "-o", xlsx)...)
	require.NoError(t, err)
	assert.FileExists(t, xlsx)

	out, err = execute(t, append(tf, "personnel", "certs")...)
	require.NoError(t, err)
	var certs []struct {
		FitTest string `json:"fit_test"`
	}
	decodeJSON(t, out, &certs)
	require.Len(t, certs, 1)
	assert.Equal(t, "Overdue", certs[0].FitTest)
}

func TestCLI_RequiresTenant(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "project", "add", "Plant 7")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCLI_PublishWithoutBlobStore(t *testing.T) {
	setupEnv(t)
	t.Setenv("BLOB_DRIVER", "")
	out, err := execute(t, "tenant", "create", "Acme IH")
	require.NoError(t, err)
	var tenant struct {
		ID string `json:"id"`
	}
	decodeJSON(t, out, &tenant)

	_, err = execute(t, "--tenant", tenant.ID, "export", "samples", "--publish")
	assert.ErrorIs(t, err, common.ErrUnavailable)
}
