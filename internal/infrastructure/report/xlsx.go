package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
)

const (
	sheetName    = "Perjalanan Dinas"
	headerRow    = 1
	dataRowStart = 2
	rupiahFormat = `"Rp" #,##0`
)

var headers = []string{
	"No", "ID", "Pemohon", "Maksud", "Asal", "Tujuan", "Berangkat", "Pulang",
	"Durasi (hari)", "Jarak (km)", "Aturan", "Uang Saku / Hari", "Total Uang Saku", "Status",
}

var columnWidths = map[string]float64{
	"A": 6, "B": 8, "C": 24, "D": 40, "E": 16, "F": 16, "G": 12, "H": 12,
	"I": 12, "J": 11, "K": 15, "L": 18, "M": 18, "N": 11,
}

// XLSXWriter renders trip listings as an Excel workbook
type XLSXWriter struct {
	logger *zap.Logger
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *zap.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger}
}

// ContentType returns the MIME type of xlsx documents
func (x *XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileExtension returns xlsx
func (x *XLSXWriter) FileExtension() string {
	return "xlsx"
}

// WriteTrips writes one row per trip followed by a total row
func (x *XLSXWriter) WriteTrips(w io.Writer, trips []*entity.TripRequestView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(rupiahFormat)})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(sheetName, cell("A", headerRow), &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(sheetName, headerRow, headerRow, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, t := range trips {
		row := dataRowStart + i
		values := []interface{}{
			i + 1,
			t.ID,
			t.RequesterName,
			t.Purpose,
			t.OriginCityName,
			t.DestinationCityName,
			t.DepartureDate.Format(entity.DateLayout),
			t.ReturnDate.Format(entity.DateLayout),
			t.DurationDays,
			roundKm(t.DistanceKm),
			t.AllowanceRule,
			t.PerDayAllowance.InexactFloat64(),
			t.TotalAllowance.InexactFloat64(),
			t.Status,
		}
		if err := f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
			return fmt.Errorf("failed to write trip %d at row %d: %w", t.ID, row, err)
		}
	}

	lastRow := dataRowStart + len(trips) - 1
	totalRow := dataRowStart + len(trips)
	if len(trips) > 0 {
		x.setCell(f, cell("L", totalRow), "Total")
		if err := f.SetCellFormula(sheetName, cell("M", totalRow),
			fmt.Sprintf("SUM(M%d:M%d)", dataRowStart, lastRow)); err != nil {
			return fmt.Errorf("failed to write total: %w", err)
		}
	}
	if err := f.SetCellStyle(sheetName, cell("L", dataRowStart), cell("M", totalRow), moneyStyle); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", col, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		x.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Trip report written", zap.Int("rows", len(trips)))
	return nil
}

func (x *XLSXWriter) setCell(f *excelize.File, ref string, value interface{}) {
	if err := f.SetCellValue(sheetName, ref, value); err != nil {
		x.logger.Warn("Failed to set cell value",
			zap.String("cell", ref),
			zap.Error(err))
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func roundKm(km float64) float64 {
	return float64(int64(km*100+0.5)) / 100
}

func strPtr(s string) *string {
	return &s
}

var _ port.TripReportWriter = (*XLSXWriter)(nil)
