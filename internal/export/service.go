package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/exposure-tracker/internal/blob"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/repository"
)

// SamplesSheet is the worksheet holding the sample log.
const SamplesSheet = "Samples"

// ContentTypeXLSX is the media type of exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var sampleHeaders = []string{
	"Project",
	"Task",
	"Personnel",
	"Description",
	"Sample Type",
	"Start",
	"Stop",
	"Flow Rate (L/min)",
	"Duration (min)",
	"Volume (L)",
	"Analyte",
	"Concentration",
	"Units",
	"Status",
}

// Service produces XLSX sample logs from the repositories.
type Service struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

func NewService(repos *repository.Repositories, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, logger: logger}
}

// SamplesXLSX returns a workbook (as bytes) with one row per sample matching filter.
// Names are resolved per tenant; a dangling reference is written as its id.
func (s *Service) SamplesXLSX(ctx context.Context, tenantID uuid.UUID, filter entity.SampleFilter) ([]byte, error) {
	start := time.Now()

	list, err := s.repos.Samples.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	names, err := s.names(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), SamplesSheet); err != nil {
		return nil, err
	}

	for i, h := range sampleHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SamplesSheet, cell, h)
	}

	row := 2
	for _, smp := range list {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SamplesSheet, cell, v)
		}
		write(1, names.lookup(smp.ProjectID))
		write(2, names.lookup(smp.TaskID))
		write(3, names.lookup(smp.PersonnelID))
		write(4, smp.Description)
		write(5, string(smp.SampleType))
		write(6, smp.StartTime)
		write(7, smp.StopTime)
		write(8, smp.FlowRate)
		write(9, smp.Duration)
		write(10, smp.Volume)
		if r := smp.Result; r != nil {
			write(11, r.Analyte)
			if r.Concentration != nil {
				write(12, *r.Concentration)
			}
			write(13, r.Units)
			write(14, string(r.Status))
		}
		row++
	}

	_ = f.SetColWidth(SamplesSheet, "A", "C", 20)
	_ = f.SetColWidth(SamplesSheet, "D", "D", 32)
	_ = f.SetColWidth(SamplesSheet, "E", "E", 12)
	_ = f.SetColWidth(SamplesSheet, "F", "G", 18)
	_ = f.SetColWidth(SamplesSheet, "H", "J", 14)
	_ = f.SetColWidth(SamplesSheet, "K", "N", 14)
	_ = f.SetPanes(SamplesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tenant_id", tenantID.String(),
		"rows", len(list),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Publish stores an exported workbook under key.
func Publish(ctx context.Context, store blob.Store, key string, data []byte) (blob.Info, error) {
	if store == nil {
		return blob.Info{}, fmt.Errorf("blob storage is not configured: %w", common.ErrUnavailable)
	}
	return store.Put(ctx, key, bytes.NewReader(data), ContentTypeXLSX)
}

// SamplesKey is the default blob key for a tenant's sample log exported at t.
func SamplesKey(tenantID uuid.UUID, t time.Time) string {
	return fmt.Sprintf("exports/%s/samples-%s.xlsx", tenantID, t.UTC().Format("20060102T150405Z"))
}

type nameIndex map[uuid.UUID]string

func (n nameIndex) lookup(id uuid.UUID) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id.String()
}

func (s *Service) names(ctx context.Context, tenantID uuid.UUID) (nameIndex, error) {
	idx := nameIndex{}
	projects, err := s.repos.Projects.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		idx[p.ID] = p.Name
	}
	tasks, err := s.repos.Tasks.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		idx[t.ID] = t.Name
	}
	people, err := s.repos.Personnel.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list personnel: %w", err)
	}
	for _, p := range people {
		idx[p.ID] = p.Name
	}
	return idx, nil
}
