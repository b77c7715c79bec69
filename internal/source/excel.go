package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"tempoimport/internal/models"
)

// ExcelSource reads the active sheet of a workbook. Marker updates go through
// excelize cell writes followed by a save of the workbook file.
type ExcelSource struct {
	path      string
	file      *excelize.File
	sheetName string
	logger    *zerolog.Logger
}

// NewExcelSource opens the workbook at path and targets its active sheet.
func NewExcelSource(path string, logger *zerolog.Logger) (*ExcelSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName == "" {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no active sheet", path)
	}

	logger.Debug().Str("path", path).Str("sheet", sheetName).Msg("workbook opened")

	return &ExcelSource{
		path:      path,
		file:      f,
		sheetName: sheetName,
		logger:    logger,
	}, nil
}

func (s *ExcelSource) Name() string {
	return fmt.Sprintf("%s (%s)", filepath.Base(s.path), s.sheetName)
}

func (s *ExcelSource) ReadAllRows(_ context.Context) ([]models.RawRow, error) {
	records, err := s.file.GetRows(s.sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", s.sheetName, err)
	}

	rows := make([]models.RawRow, 0, len(records))
	for i, record := range records {
		cells := make([]string, len(record))
		copy(cells, record)
		rows = append(rows, models.RawRow{Number: i + 1, Cells: padRow(cells)})
	}
	return rows, nil
}

func (s *ExcelSource) WriteImportedMarker(_ context.Context, rowNumber int, value string) error {
	cell, err := excelize.CoordinatesToCellName(models.ColImported+1, rowNumber)
	if err != nil {
		return fmt.Errorf("marker cell for row %d: %w", rowNumber, err)
	}
	if err := s.file.SetCellValue(s.sheetName, cell, value); err != nil {
		return fmt.Errorf("set marker cell %s: %w", cell, err)
	}
	if err := s.file.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Close releases the workbook handle.
func (s *ExcelSource) Close() error {
	return s.file.Close()
}
