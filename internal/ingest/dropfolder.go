package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
)

// Suffixes appended to processed drop-folder files.
const (
	DoneSuffix   = ".done"
	FailedSuffix = ".failed"
)

// Importer is the part of the import service the drop folder needs.
type Importer interface {
	ImportFile(ctx context.Context, tenantID uuid.UUID, kind constants.ImportKind, path string, opts ...imports.Option) (*imports.Report, error)
}

// DropFolder imports files landing in an inbox directory for one tenant.
type DropFolder struct {
	importer Importer
	tenantID uuid.UUID
	root     string
	debounce time.Duration
	logger   *slog.Logger
}

func NewDropFolder(importer Importer, tenantID uuid.UUID, root string, debounce time.Duration, logger *slog.Logger) *DropFolder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DropFolder{
		importer: importer,
		tenantID: tenantID,
		root:     root,
		debounce: debounce,
		logger:   logger,
	}
}

// Run watches the inbox until ctx ends. Files already present are imported first.
func (d *DropFolder) Run(ctx context.Context) error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("create inbox %s: %w", d.root, err)
	}
	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{d.root},
		InitialScan: true,
		Debounce:    d.debounce,
		Logger:      d.logger,
	})
	if err != nil {
		return err
	}
	d.logger.Info("ingest.watch.start", "root", d.root, "tenant_id", d.tenantID)
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			_ = d.Process(ctx, path)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Warn("ingest.watch.error", "error", err)
		}
	}
}

// Process imports one file and renames it with DoneSuffix or FailedSuffix.
// A file that has vanished is ignored.
func (d *DropFolder) Process(ctx context.Context, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		d.logger.Debug("ingest.file.gone", "path", path)
		return nil
	}
	kind := KindForPath(path)
	start := time.Now()
	rep, err := d.importer.ImportFile(ctx, d.tenantID, kind, path)
	if err != nil {
		d.logger.Warn("ingest.file.failed",
			"path", path, "kind", kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		if rerr := os.Rename(path, path+FailedSuffix); rerr != nil {
			d.logger.Error("ingest.file.rename_error", "path", path, "error", rerr)
		}
		return err
	}
	d.logger.Info("ingest.file.ok",
		"path", path, "kind", kind, "rows", rep.Rows, "committed", rep.Committed,
		"elapsed_ms", time.Since(start).Milliseconds())
	if err := os.Rename(path, path+DoneSuffix); err != nil {
		d.logger.Error("ingest.file.rename_error", "path", path, "error", err)
		return err
	}
	return nil
}
