package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const (
	defaultSheet   = "Sheet1"
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timestampStyle = "2006-01-02 15:04 MST"
)

var breakdownHeader = []interface{}{"Name", "Total", "Approved", "Rejected", "Pending", "Approval Rate (%)"}

// XLSXWriter writes the system overview as an Excel workbook with one
// summary sheet followed by Departments, Schools, Months and Reasons.
type XLSXWriter struct {
	summarySheet string
	logger       *zap.Logger
}

// NewXLSXWriter creates a writer whose first sheet is named summarySheet
func NewXLSXWriter(summarySheet string, logger *zap.Logger) *XLSXWriter {
	if summarySheet == "" {
		summarySheet = "Summary"
	}
	return &XLSXWriter{summarySheet: summarySheet, logger: logger}
}

// ContentType is the MIME type of the produced document
func (x *XLSXWriter) ContentType() string {
	return xlsxMIME
}

// WriteOverview renders overview into w
func (x *XLSXWriter) WriteOverview(w io.Writer, overview *entity.Overview) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, x.summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := x.writeSummary(f, overview, bold); err != nil {
		return err
	}

	breakdowns := []struct {
		sheet string
		rows  []entity.Breakdown
	}{
		{"Departments", overview.Departments},
		{"Schools", overview.Schools},
		{"Months", overview.Months},
	}
	for _, b := range breakdowns {
		if err := writeBreakdown(f, b.sheet, b.rows, bold); err != nil {
			return err
		}
	}

	if err := writeReasons(f, overview.TopReasons, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Overview exported",
		zap.Int("total_requests", overview.Totals.Total),
		zap.Int("departments", len(overview.Departments)))
	return nil
}

func (x *XLSXWriter) writeSummary(f *excelize.File, o *entity.Overview, header int) error {
	rows := [][]interface{}{
		{"Travel Approval Overview", o.GeneratedAt.UTC().Format(timestampStyle)},
		{"Total Requests", o.Totals.Total},
		{"Approved", o.Totals.Approved},
		{"Rejected", o.Totals.Rejected},
		{"Pending", o.Totals.Pending},
		{"Approval Rate (%)", round1(o.Totals.ApprovalRate())},
		{"Avg Processing (days)", round1(o.AvgProcessingDays)},
	}
	if err := setRows(f, x.summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(x.summarySheet, "A1", "A7", header); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	return f.SetColWidth(x.summarySheet, "A", "B", 26)
}

func writeBreakdown(f *excelize.File, sheet string, data []entity.Breakdown, header int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}

	rows := make([][]interface{}, 0, len(data)+1)
	rows = append(rows, breakdownHeader)
	for _, b := range data {
		rows = append(rows, []interface{}{b.Name, b.Total, b.Approved, b.Rejected, b.Pending, round1(b.ApprovalRate())})
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", header); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "A", 28)
}

func writeReasons(f *excelize.File, reasons []entity.ReasonCount, header int) error {
	const sheet = "Reasons"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{{"Reason", "Count", "Percentage (%)"}}
	for _, r := range reasons {
		rows = append(rows, []interface{}{r.Reason, r.Count, round1(r.Percentage)})
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", header); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "A", 32)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

var _ port.ReportWriter = (*XLSXWriter)(nil)
