package payroll

import "fmt"

// Compute builds the payroll record for one employee and period. It is pure:
// the same inputs always give the same record. A negative net still yields a
// record, together with a *Warning wrapping ErrNegativeNetSalary.
func Compute(structure SalaryStructure, period Period, facts Facts, settings Settings) (Record, error) {
	if structure.Basic <= 0 {
		return Record{}, ErrIncompleteSalaryStructure
	}

	rec := Record{
		EmployeeID:      structure.EmployeeID,
		Period:          period.String(),
		StructureID:     structure.ID,
		Basic:           structure.Basic,
		HRA:             structure.HRA,
		Conveyance:      structure.Conveyance,
		OtherAllowances: structure.OtherAllowances,
		Currency:        settings.Currency,
		Current:         true,
		Status:          StatusUnpaid,
		Warnings:        []string{},
	}

	var err error
	rec.Gross, err = SumMoney(structure.Basic, structure.HRA, structure.Conveyance, structure.OtherAllowances)
	if err != nil {
		return Record{}, fmt.Errorf("gross: %w", err)
	}
	rec.PF = structure.Basic.MulRound(settings.PFRate)
	rec.ProfessionalTax = settings.ProfessionalTax

	rec.Deductions = make([]Deduction, 0, len(structure.CustomDeductions))
	amounts := make([]Money, 0, len(structure.CustomDeductions))
	for _, d := range structure.CustomDeductions {
		amounts = append(amounts, d.Amount)
		rec.Deductions = append(rec.Deductions, d)
	}
	if rec.OtherDeductions, err = SumMoney(amounts...); err != nil {
		return Record{}, fmt.Errorf("deductions: %w", err)
	}
	if rec.TotalDeductions, err = SumMoney(rec.PF, rec.ProfessionalTax, rec.OtherDeductions); err != nil {
		return Record{}, fmt.Errorf("deductions: %w", err)
	}
	rec.Net = rec.Gross - rec.TotalDeductions

	rec.Facts = facts
	rec.Facts.CalendarDays = period.Days()
	rec.Facts.WorkingDays = rec.Facts.CalendarDays - facts.LeaveDays

	if !facts.BankAccountOnFile {
		rec.Warnings = append(rec.Warnings, WarningMissingBank)
	}
	if rec.Net < 0 {
		rec.Warnings = append(rec.Warnings, WarningNegativeNet)
		return rec, &Warning{Err: ErrNegativeNetSalary}
	}
	return rec, nil
}
