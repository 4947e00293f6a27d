package report

import (
	"fmt"
	"io"
	"time"

	"beverage-backend/internal/models"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "Orders Report"

	PDFContentType   = "application/pdf"
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var excelHeader = []any{"Order ID", "Employee", "Department", "Beverage", "Category", "Cup Size", "Sugar", "Status", "Date"}

func ExportFilename(date time.Time, ext string) string {
	return fmt.Sprintf("report-%s.%s", date.Format(dateLayout), ext)
}

type statusCounts struct {
	pending, fulfilled, cancelled int
}

func countStatuses(orders []models.Order) statusCounts {
	var c statusCounts
	for i := range orders {
		switch orders[i].Status {
		case models.OrderPending:
			c.pending++
		case models.OrderFulfilled:
			c.fulfilled++
		case models.OrderCancelled:
			c.cancelled++
		}
	}
	return c
}

func employeeName(o *models.Order) string {
	if o.Employee == nil {
		return "Unknown"
	}
	return o.Employee.FullName
}

func department(o *models.Order) string {
	if o.Employee == nil || o.Employee.Department == nil || *o.Employee.Department == "" {
		return "N/A"
	}
	return *o.Employee.Department
}

func beverageName(o *models.Order) string {
	if o.Beverage == nil {
		return "Unknown"
	}
	return o.Beverage.Name
}

func category(o *models.Order) string {
	if o.Beverage == nil {
		return ""
	}
	return string(o.Beverage.Category)
}

// WritePDF renders the day's summary and order list.
func WritePDF(w io.Writer, date time.Time, orders []models.Order) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Beverage System Report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Beverage System Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	counts := countStatuses(orders)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Date: " + date.Format(dateLayout),
		fmt.Sprintf("Total Orders: %d", len(orders)),
		fmt.Sprintf("Pending: %d", counts.pending),
		fmt.Sprintf("Fulfilled: %d", counts.fulfilled),
		fmt.Sprintf("Cancelled: %d", counts.cancelled),
	} {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, "Orders", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if len(orders) == 0 {
		pdf.CellFormat(0, 6, "No orders for this date.", "", 1, "L", false, 0, "")
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i := range orders {
		o := &orders[i]
		line := fmt.Sprintf("%d. %s (%s) - %s [%s, %s sugar] - %s",
			i+1, employeeName(o), department(o), beverageName(o), o.CupSize, o.SugarQuantity, o.Status)
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}
	return pdf.Output(w)
}

// WriteExcel writes one row per order under a styled header.
func WriteExcel(w io.Writer, loc *time.Location, orders []models.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &excelHeader); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "I1", style); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "I", 18); err != nil {
		return err
	}

	for i := range orders {
		o := &orders[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			o.ID,
			employeeName(o),
			department(o),
			beverageName(o),
			category(o),
			string(o.CupSize),
			string(o.SugarQuantity),
			string(o.Status),
			o.OrderDate.In(loc).Format(dateLayout),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
