package payroll

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderPayslip lays out a single-page A4 payslip.
func RenderPayslip(rec Record, emp EmployeeInfo) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", emp.Code, rec.Period), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "WorkZen Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := [][2]string{
		{"Employee", emp.Name},
		{"Employee code", emp.Code},
		{"Department", emp.Department},
		{"Position", emp.JobPosition},
		{"Period", rec.Period},
		{"Status", rec.Status},
	}
	for _, row := range header {
		pdf.CellFormat(45, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Calendar days %d, working days %d, present %d, half days %d, leave %d",
		rec.Facts.CalendarDays, rec.Facts.WorkingDays, rec.Facts.PresentDays, rec.Facts.HalfDays, rec.Facts.LeaveDays))
	pdf.Ln(10)

	section := func(title string, lines [][2]string, total string, totalAmount Money) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, line := range lines {
			pdf.CellFormat(120, 7, line[0], "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, line[1]+" "+rec.Currency, "", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(120, 7, total, "T", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, totalAmount.String()+" "+rec.Currency, "T", 1, "R", false, 0, "")
		pdf.Ln(4)
	}

	section("Earnings", [][2]string{
		{"Basic", rec.Basic.String()},
		{"House rent allowance", rec.HRA.String()},
		{"Conveyance", rec.Conveyance.String()},
		{"Other allowances", rec.OtherAllowances.String()},
	}, "Gross salary", rec.Gross)

	deductions := [][2]string{
		{"Provident fund", rec.PF.String()},
		{"Professional tax", rec.ProfessionalTax.String()},
	}
	for _, d := range rec.Deductions {
		deductions = append(deductions, [2]string{d.Name, d.Amount.String()})
	}
	section("Deductions", deductions, "Total deductions", rec.TotalDeductions)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(120, 10, "Net salary", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 10, rec.Net.String()+" "+rec.Currency, "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
