package source

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tempoimport/internal/config"
	"tempoimport/internal/models"
)

// SheetsSource reads a Google Sheets spreadsheet through a service account.
// The pipeline pulls the whole sheet once and writes markers back cell by
// cell.
type SheetsSource struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger
}

// NewSheetsSource authenticates with the service-account credentials file and
// targets the configured sheet, falling back to the spreadsheet's first sheet.
func NewSheetsSource(ctx context.Context, cfg config.SheetsSourceConfig, logger *zerolog.Logger) (*SheetsSource, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	s := &SheetsSource{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}

	if s.sheetName == "" {
		s.sheetName, err = s.firstSheetName(ctx)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug().Str("spreadsheet", cfg.SpreadsheetID).Str("sheet", s.sheetName).Msg("sheets source ready")
	return s, nil
}

func (s *SheetsSource) Name() string {
	return fmt.Sprintf("spreadsheet %s (%s)", s.spreadsheetID, s.sheetName)
}

func (s *SheetsSource) ReadAllRows(ctx context.Context) ([]models.RawRow, error) {
	readRange := fmt.Sprintf("%s!A:%s", s.sheetName, markerColumn())
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}

	rows := make([]models.RawRow, 0, len(resp.Values))
	for i, record := range resp.Values {
		cells := make([]string, 0, len(record))
		for _, v := range record {
			cells = append(cells, cellString(v))
		}
		rows = append(rows, models.RawRow{Number: i + 1, Cells: padRow(cells)})
	}
	return rows, nil
}

func (s *SheetsSource) WriteImportedMarker(ctx context.Context, rowNumber int, value string) error {
	writeRange := fmt.Sprintf("%s!%s%d", s.sheetName, markerColumn(), rowNumber)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update marker %s: %w", writeRange, err)
	}
	return nil
}

// TestConnection reads the first cell to verify credentials and sharing.
func (s *SheetsSource) TestConnection(ctx context.Context) error {
	probe := fmt.Sprintf("%s!A1", s.sheetName)
	if _, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, probe).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

func (s *SheetsSource) firstSheetName(ctx context.Context) (string, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet: %w", err)
	}
	if len(spreadsheet.Sheets) == 0 {
		return "", fmt.Errorf("spreadsheet %s has no sheets", s.spreadsheetID)
	}
	return spreadsheet.Sheets[0].Properties.Title, nil
}

// markerColumn is the A1-notation column letter of the imported marker.
func markerColumn() string {
	return string(rune('A' + models.ColImported))
}

// cellString renders a Sheets value as text; numeric cells come back as
// float64 from the API.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
