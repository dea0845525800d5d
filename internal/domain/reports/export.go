package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"workzen/internal/domain/payroll"
)

var registerHeader = []string{
	"employee_code", "employee_name", "period", "basic", "hra", "conveyance", "other_allowances",
	"gross", "pf", "professional_tax", "other_deductions", "total_deductions", "net", "currency",
	"present_days", "half_days", "leave_days", "working_days", "status", "warnings",
}

// CSVCell neutralizes text that a spreadsheet would evaluate as a formula by
// prefixing it with a single quote.
func CSVCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + value
	}
	return value
}

// WriteRegisterCSV writes one row per payroll record, amounts as decimal
// strings. Text cells go through CSVCell; amounts are written as is so a
// negative net stays numeric.
func WriteRegisterCSV(w io.Writer, records []payroll.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(registerHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			CSVCell(rec.EmployeeCode),
			CSVCell(rec.EmployeeName),
			rec.Period,
			rec.Basic.String(),
			rec.HRA.String(),
			rec.Conveyance.String(),
			rec.OtherAllowances.String(),
			rec.Gross.String(),
			rec.PF.String(),
			rec.ProfessionalTax.String(),
			rec.OtherDeductions.String(),
			rec.TotalDeductions.String(),
			rec.Net.String(),
			CSVCell(rec.Currency),
			strconv.Itoa(rec.Facts.PresentDays),
			strconv.Itoa(rec.Facts.HalfDays),
			strconv.Itoa(rec.Facts.LeaveDays),
			strconv.Itoa(rec.Facts.WorkingDays),
			CSVCell(rec.Status),
			CSVCell(strings.Join(rec.Warnings, ";")),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
