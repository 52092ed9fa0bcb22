package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
)

type call struct {
	tenant uuid.UUID
	kind   constants.ImportKind
	path   string
}

type fakeImporter struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeImporter) ImportFile(_ context.Context, tenantID uuid.UUID, kind constants.ImportKind, path string, _ ...imports.Option) (*imports.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{tenant: tenantID, kind: kind, path: path})
	if f.err != nil {
		return nil, f.err
	}
	return &imports.Report{Kind: kind, Rows: 1, Committed: 1}, nil
}

func (f *fakeImporter) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		want constants.ImportKind
	}{
		{"/inbox/log.tsv", constants.ImportSamples},
		{"/inbox/personnel/roster.tsv", constants.ImportPersonnel},
		{"/inbox/Personnel/2024/roster.xlsx", constants.ImportPersonnel},
		{"/inbox/personnel.tsv", constants.ImportSamples},
		{"/inbox/site-a/log.txt", constants.ImportSamples},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, KindForPath(tt.path))
		})
	}
}

func TestImportable(t *testing.T) {
	assert.True(t, importable("/in/a.tsv"))
	assert.True(t, importable("/in/a.XLSX"))
	assert.False(t, importable("/in/a.tsv.done"))
	assert.False(t, importable("/in/.a.tsv"))
	assert.False(t, importable("/in/a.csv"))
}

func TestProcess_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personnel", "roster.tsv")
	writeFile(t, path, "Name\tEmployee ID\n")

	imp := &fakeImporter{}
	tenant := uuid.New()
	d := NewDropFolder(imp, tenant, dir, 0, nil)

	require.NoError(t, d.Process(context.Background(), path))

	calls := imp.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, tenant, calls[0].tenant)
	assert.Equal(t, constants.ImportPersonnel, calls[0].kind)
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+DoneSuffix)
}

func TestProcess_FailureRenamesFailed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.tsv")
	writeFile(t, path, "junk")

	imp := &fakeImporter{err: common.ErrValidation}
	d := NewDropFolder(imp, uuid.New(), dir, 0, nil)

	err := d.Process(context.Background(), path)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.FileExists(t, path+FailedSuffix)
	assert.NoFileExists(t, path+DoneSuffix)
}

func TestProcess_MissingFileIgnored(t *testing.T) {
	imp := &fakeImporter{}
	d := NewDropFolder(imp, uuid.New(), t.TempDir(), 0, nil)

	require.NoError(t, d.Process(context.Background(), filepath.Join(t.TempDir(), "gone.tsv")))
	assert.Empty(t, imp.snapshot())
}

func TestDropFolder_Run(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.tsv")
	writeFile(t, existing, "a")
	ignored := filepath.Join(dir, "notes.md")
	writeFile(t, ignored, "b")

	imp := &fakeImporter{}
	d := NewDropFolder(imp, uuid.New(), dir, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("drop folder did not stop")
		}
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(existing + DoneSuffix)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	dropped := filepath.Join(dir, "dropped.txt")
	writeFile(t, dropped, "c")
	require.Eventually(t, func() bool {
		_, err := os.Stat(dropped + DoneSuffix)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.FileExists(t, ignored)
	for _, c := range imp.snapshot() {
		assert.NotEqual(t, ignored, c.path)
		assert.Equal(t, constants.ImportSamples, c.kind)
	}
}
