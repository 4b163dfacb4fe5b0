package services

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/okosplazma-sms/models"
	"github.com/xuri/excelize/v2"
)

// ErrInvalidSpreadsheet is returned when the uploaded workbook cannot be read
var ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")

// ErrTooManyRows is returned when a workbook holds more rows than allowed
var ErrTooManyRows = errors.New("spreadsheet has too many rows")

// SpreadsheetReader turns an xlsx workbook into raw appointment rows
type SpreadsheetReader interface {
	ReadRows(r io.Reader) ([]models.RawRow, error)
}

// ExcelSpreadsheetReader reads the first sheet positionally: name, phone, date-time.
// There is no header row and extra columns are ignored.
type ExcelSpreadsheetReader struct {
	maxRows int
}

// NewSpreadsheetReader creates a reader; maxRows <= 0 disables the limit
func NewSpreadsheetReader(maxRows int) SpreadsheetReader {
	return &ExcelSpreadsheetReader{maxRows: maxRows}
}

func (s *ExcelSpreadsheetReader) ReadRows(r io.Reader) ([]models.RawRow, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer func() { _ = xl.Close() }()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}

	// Raw values keep dates as serial numbers and phone numbers as plain digits
	rows, err := xl.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}

	out := make([]models.RawRow, 0, len(rows))
	for i, cells := range rows {
		row := models.RawRow{
			Row:      i + 1,
			Name:     cellAt(cells, 0),
			Phone:    cellAt(cells, 1),
			DateTime: cellAt(cells, 2),
		}
		if row.IsBlank() {
			continue
		}
		out = append(out, row)
		if s.maxRows > 0 && len(out) > s.maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, s.maxRows)
		}
	}
	return out, nil
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// ReportWriter renders a batch result as a downloadable workbook
type ReportWriter interface {
	WriteBatchReport(result *models.BatchResult) (filename string, data []byte, err error)
}

// ExcelReportWriter writes one row per dispatch plus a summary sheet
type ExcelReportWriter struct{}

func NewReportWriter() ReportWriter {
	return &ExcelReportWriter{}
}

func (w *ExcelReportWriter) WriteBatchReport(result *models.BatchResult) (string, []byte, error) {
	if result == nil {
		return "", nil, errors.New("batch result is nil")
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const resultsSheet = "Results"
	const summarySheet = "Summary"
	xl.SetSheetName(xl.GetSheetName(0), resultsSheet)

	header := []string{"row", "first_name", "phone", "appointment_time", "status", "status_code", "message", "diagnostic", "response", "request"}
	if err := xl.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return "", nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for i, r := range result.Results {
		record := []string{
			strconv.Itoa(r.Recipient.Row),
			r.Recipient.FirstName,
			r.Recipient.Phone,
			r.Recipient.AppointmentTime,
			r.Status.String(),
			strconv.Itoa(r.StatusCode),
			r.Message,
			r.Diagnostic,
			r.Body,
			r.Request,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(resultsSheet, cellRef, &record); err != nil {
			return "", nil, fmt.Errorf("failed to write report row %d: %w", i+1, err)
		}
	}

	if _, err := xl.NewSheet(summarySheet); err != nil {
		return "", nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]any{
		{"batch_id", result.ID},
		{"template", result.Template.String()},
		{"rows_read", result.RowsRead},
		{"rows_rejected", result.RowsRejected},
		{"sent", result.SentCount},
		{"failed", result.FailedCount},
		{"all_succeeded", result.AllSucceeded},
		{"canceled", result.Canceled},
		{"started_at", result.StartedAt.UTC().Format(time.RFC3339)},
		{"finished_at", result.FinishedAt.UTC().Format(time.RFC3339)},
	}
	for i, line := range summary {
		cellRef, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(summarySheet, cellRef, &line); err != nil {
			return "", nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("failed to write report: %w", err)
	}
	filename := fmt.Sprintf("sms_report_%s.xlsx", result.StartedAt.UTC().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}
