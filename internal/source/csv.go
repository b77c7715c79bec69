package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"tempoimport/internal/models"
)

// CSVSource reads a delimited text file into memory and rewrites the whole
// file on marker updates. The delimiter is sniffed once at load time and
// preserved on write, so a semicolon sheet stays a semicolon sheet.
type CSVSource struct {
	path      string
	delimiter rune
	records   [][]string
	logger    *zerolog.Logger
}

// NewCSVSource loads the file at path.
func NewCSVSource(path string, logger *zerolog.Logger) (*CSVSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	delimiter := sniffDelimiter(data)

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	logger.Debug().Str("path", path).Str("delimiter", string(delimiter)).Int("rows", len(records)).Msg("csv loaded")

	return &CSVSource{
		path:      path,
		delimiter: delimiter,
		records:   records,
		logger:    logger,
	}, nil
}

func (s *CSVSource) Name() string {
	return filepath.Base(s.path)
}

func (s *CSVSource) ReadAllRows(_ context.Context) ([]models.RawRow, error) {
	rows := make([]models.RawRow, 0, len(s.records))
	for i, record := range s.records {
		cells := make([]string, len(record))
		copy(cells, record)
		rows = append(rows, models.RawRow{Number: i + 1, Cells: padRow(cells)})
	}
	return rows, nil
}

func (s *CSVSource) WriteImportedMarker(_ context.Context, rowNumber int, value string) error {
	idx := rowNumber - 1
	if idx < 0 || idx >= len(s.records) {
		return fmt.Errorf("row %d out of range (%d rows)", rowNumber, len(s.records))
	}

	for len(s.records[idx]) <= models.ColImported {
		s.records[idx] = append(s.records[idx], "")
	}
	s.records[idx][models.ColImported] = value

	return s.save()
}

func (s *CSVSource) save() error {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	writer.Comma = s.delimiter
	if err := writer.WriteAll(s.records); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return os.WriteFile(s.path, []byte(buf.String()), 0o644)
}

// sniffDelimiter checks a sample for the common European delimiters.
// Semicolon and tab sheets do not normally contain commas, so a comma
// anywhere in the sample wins.
func sniffDelimiter(data []byte) rune {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	text := string(sample)

	switch {
	case strings.Contains(text, ";") && !strings.Contains(text, ","):
		return ';'
	case strings.Contains(text, "\t") && !strings.Contains(text, ","):
		return '\t'
	default:
		return ','
	}
}
