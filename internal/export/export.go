// Package export renders booking history into an Excel workbook for
// receipts and expense claims.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gridee/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type Exporter struct {
	dir    string
	logger *zerolog.Logger
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

var historyColumns = []string{
	"Booking ID", "Parking Lot", "Spot", "Vehicle",
	"Check-in", "Check-out", "Status", "Amount",
}

// BookingHistory writes the bookings to an xlsx file and returns its
// path. File name carries the user and the export date.
func (e *Exporter) BookingHistory(userID string, bookings []models.Booking) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Parking history — exported %s",
		time.Now().Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	e.writeColumnHeaders(f, sheetName)

	var total float64
	for i, b := range bookings {
		row := i + 3
		values := []any{
			b.ID, b.LotID, b.SpotID, b.VehicleNumber,
			b.CheckInTime, b.CheckOutTime, b.Status, b.Amount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		if b.IsCompleted() {
			total += b.Amount
		}
	}

	totalRow := len(bookings) + 4
	labelCell, _ := excelize.CoordinatesToCellName(7, totalRow)
	valueCell, _ := excelize.CoordinatesToCellName(8, totalRow)
	_ = f.SetCellValue(sheetName, labelCell, "Total spent")
	_ = f.SetCellValue(sheetName, valueCell, total)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "H", 18)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_%s.xlsx", userID, time.Now().Format("2006-01-02"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(bookings)).Msg("history exported")
	return filePath, nil
}

func (e *Exporter) writeColumnHeaders(f *excelize.File, sheetName string) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for col, title := range historyColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		_ = f.SetCellValue(sheetName, cell, title)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
}
