// Package repotest opens migrated in-memory databases for package tests.
package repotest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
)

func Logger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// Open returns a migrated in-memory SQLite database closed at test cleanup.
func Open(t testing.TB) (*repository.DB, *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", Logger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, Logger()))
	t.Cleanup(func() { db.Close(Logger()) })
	return db, repository.NewRepositories(db, Logger())
}

// Fixture is one tenant with a project, a task, a worker and a lead limit.
type Fixture struct {
	Tenant    *entity.Tenant
	Project   *entity.Project
	Task      *entity.Task
	Personnel *entity.Personnel
}

// Seed creates the standard fixture: project "Plant 7", task "Grinding", worker
// "John Doe" and a Lead limit of AL 30 / PEL 50 µg/m³.
func Seed(t testing.TB, repos *repository.Repositories) Fixture {
	t.Helper()
	ctx := context.Background()
	tenant, err := repos.Tenants.Create(ctx, "Acme IH")
	require.NoError(t, err)
	p, err := repos.Projects.Create(ctx, &entity.Project{TenantID: tenant.ID, Name: "Plant 7", Client: "Acme"})
	require.NoError(t, err)
	tk, err := repos.Tasks.Create(ctx, &entity.Task{TenantID: tenant.ID, Name: "Grinding", Description: "Hand grinding of welds"})
	require.NoError(t, err)
	pe, err := repos.Personnel.Create(ctx, &entity.Personnel{
		TenantID: tenant.ID, Name: "John Doe", EmployeeID: "E-1",
		FitTestDueDate: "2024-07-01", MedicalClearanceDueDate: "2024-08-01",
	})
	require.NoError(t, err)
	require.NoError(t, repos.Limits.Upsert(ctx, entity.ExposureLimit{
		TenantID: tenant.ID, Analyte: "Lead", Units: "µg/m³", AL: 30, PEL: 50,
	}))
	return Fixture{Tenant: tenant, Project: p, Task: tk, Personnel: pe}
}
