package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// Lister is the read side of the status registry.
type Lister interface {
	List(ctx context.Context) ([]entity.Record, error)
}

// Filter narrows an export. Zero values match everything; From and To are
// inclusive dates compared against CreatedAt.
type Filter struct {
	From  *time.Time
	To    *time.Time
	Type  constants.JobType
	State constants.JobState
}

// Service produces XLSX snapshots of job status records.
type Service struct {
	records Lister
	logger  *slog.Logger
}

func NewService(records Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

const (
	sheetName     = "Jobs"
	maxResultCell = 500
)

var headers = []string{
	"Job ID",
	"Type",
	"State",
	"Stage",
	"Error Kind",
	"Error Message",
	"Result",
	"Created At",
	"Updated At",
}

// StatusXLSX returns a workbook with one row per matching record, oldest first.
func (s *Service) StatusXLSX(ctx context.Context, filter Filter) ([]byte, error) {
	start := time.Now()

	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	recs = filter.apply(recs)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, style)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, r.ID)
		write(2, r.Type.String())
		write(3, r.State.String())
		write(4, r.StageMessage)
		if r.Error != nil {
			write(5, string(r.Error.Kind))
			write(6, r.Error.Message)
		}
		write(7, common.TruncateRunes(string(r.Result), maxResultCell))
		write(8, r.CreatedAt.UTC().Format(time.RFC3339))
		write(9, r.UpdatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "C", 20)
	_ = f.SetColWidth(sheetName, "D", "E", 24)
	_ = f.SetColWidth(sheetName, "F", "G", 60)
	_ = f.SetColWidth(sheetName, "H", "I", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (f Filter) apply(recs []entity.Record) []entity.Record {
	var from, to time.Time
	if f.From != nil {
		from = dateOnly(*f.From)
	}
	if f.To != nil {
		to = dateOnly(*f.To).AddDate(0, 0, 1)
	}
	out := recs[:0:0]
	for _, r := range recs {
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.State != "" && r.State != f.State {
			continue
		}
		if !from.IsZero() && r.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !r.CreatedAt.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
