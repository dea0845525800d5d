package payroll

import (
	"errors"
	"reflect"
	"testing"
)

func sampleStructure() SalaryStructure {
	return SalaryStructure{
		ID:              "s1",
		EmployeeID:      "e1",
		Basic:           2000000,
		HRA:             800000,
		Conveyance:      160000,
		OtherAllowances: 0,
	}
}

var may2024 = Period{Year: 2024, Month: 5}

func TestComputeReferenceExample(t *testing.T) {
	rec, err := Compute(sampleStructure(), may2024, Facts{BankAccountOnFile: true}, DefaultSettings())
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	checks := []struct {
		name      string
		got, want Money
	}{
		{"gross", rec.Gross, 2960000},
		{"pf", rec.PF, 240000},
		{"professional tax", rec.ProfessionalTax, 20000},
		{"total deductions", rec.TotalDeductions, 260000},
		{"net", rec.Net, 2700000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if rec.Period != "2024-05" || rec.Status != StatusUnpaid || !rec.Current {
		t.Fatalf("unexpected record header %+v", rec)
	}
	if len(rec.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", rec.Warnings)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	structure := sampleStructure()
	structure.CustomDeductions = []Deduction{{Name: "Canteen", Amount: 150050}, {Name: "Loan", Amount: 500000}}
	facts := Facts{PresentDays: 20, HalfDays: 2, LeaveDays: 3, BankAccountOnFile: true}

	first, err := Compute(structure, may2024, facts, DefaultSettings())
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Compute(structure, may2024, facts, DefaultSettings())
		if err != nil {
			t.Fatalf("compute error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("compute not deterministic:\n%+v\n%+v", first, again)
		}
	}
	if first.OtherDeductions != 650050 || first.TotalDeductions != 910050 {
		t.Fatalf("unexpected custom deductions total %s / %s", first.OtherDeductions, first.TotalDeductions)
	}
	if first.Facts.CalendarDays != 31 || first.Facts.WorkingDays != 28 {
		t.Fatalf("unexpected facts %+v", first.Facts)
	}
}

func TestComputeIncompleteStructure(t *testing.T) {
	for _, basic := range []Money{0, -100} {
		structure := sampleStructure()
		structure.Basic = basic
		if _, err := Compute(structure, may2024, Facts{}, DefaultSettings()); !errors.Is(err, ErrIncompleteSalaryStructure) {
			t.Fatalf("basic %s: expected incomplete structure, got %v", basic, err)
		}
	}
}

func TestComputeNegativeNetIsWarning(t *testing.T) {
	structure := SalaryStructure{EmployeeID: "e1", Basic: 100000, CustomDeductions: []Deduction{{Name: "Advance", Amount: 200000}}}

	rec, err := Compute(structure, may2024, Facts{}, DefaultSettings())
	if !errors.Is(err, ErrNegativeNetSalary) || !IsWarning(err) {
		t.Fatalf("expected negative net warning, got %v", err)
	}
	if rec.Net != -132000 {
		t.Fatalf("expected net -1320.00, got %s", rec.Net)
	}
	want := []string{WarningMissingBank, WarningNegativeNet}
	if !reflect.DeepEqual(rec.Warnings, want) {
		t.Fatalf("expected warnings %v, got %v", want, rec.Warnings)
	}
	if IsWarning(ErrIncompleteSalaryStructure) {
		t.Fatal("hard errors must not be warnings")
	}
}

func TestComputeUsesConfiguredProfessionalTax(t *testing.T) {
	settings := DefaultSettings()
	settings.ProfessionalTax = 25000
	settings.Currency = "USD"

	rec, err := Compute(sampleStructure(), may2024, Facts{BankAccountOnFile: true}, settings)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	if rec.ProfessionalTax != 25000 || rec.Net != 2695000 || rec.Currency != "USD" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if p.Days() != 29 || p.String() != "2024-02" {
		t.Fatalf("unexpected period %+v (%d days)", p, p.Days())
	}
	for _, bad := range []string{"2024-13", "2024-2", "24-02", "2024/02", ""} {
		if _, err := ParsePeriod(bad); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("expected invalid period for %q, got %v", bad, err)
		}
	}
}

func TestComputeRejectsOutOfRangeSums(t *testing.T) {
	half := maxMoney/2 + 1
	cases := []struct {
		name      string
		structure SalaryStructure
	}{
		{"gross", SalaryStructure{Basic: half, HRA: half}},
		{"custom deductions", SalaryStructure{Basic: 100000, CustomDeductions: []Deduction{{Name: "Loan", Amount: half}, {Name: "Advance", Amount: half}}}},
		{"total deductions", SalaryStructure{Basic: 100000, CustomDeductions: []Deduction{{Name: "Loan", Amount: maxMoney}}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Compute(tc.structure, may2024, Facts{}, DefaultSettings())
			if !errors.Is(err, ErrInvalidAmount) || IsWarning(err) {
				t.Fatalf("expected invalid amount, got %v (gross %s net %s)", err, rec.Gross, rec.Net)
			}
		})
	}
}
