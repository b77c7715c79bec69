// Package source provides the tabular data-source backends the import
// pipeline reads rows from: a Google Sheets spreadsheet, a delimited text
// file, or an Excel workbook. The pipeline only sees the importer.DataSource
// contract and never branches on the backend.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"tempoimport/internal/config"
	"tempoimport/internal/importer"
	"tempoimport/internal/models"
)

// Open selects and constructs the backend named by the configuration.
func Open(ctx context.Context, cfg config.SourceConfig, logger *zerolog.Logger) (importer.DataSource, error) {
	switch cfg.Type {
	case config.SourceGoogleSheets:
		return NewSheetsSource(ctx, cfg.Sheets, logger)
	case config.SourceLocalFile:
		return OpenFile(cfg.File.Path, logger)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// OpenFile picks a local backend by file extension.
func OpenFile(path string, logger *zerolog.Logger) (importer.DataSource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return NewCSVSource(path, logger)
	case ".xlsx", ".xls", ".xlsm":
		return NewExcelSource(path, logger)
	default:
		return nil, fmt.Errorf("unsupported file format %q, use .csv, .xlsx or .xls", ext)
	}
}

// padRow widens a short row to the full column count.
func padRow(cells []string) []string {
	for len(cells) < models.ColumnCount {
		cells = append(cells, "")
	}
	return cells
}
