package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
)

type AttendanceSummary struct {
	Days           int             `json:"days"`
	Present        int             `json:"present"`
	HalfDay        int             `json:"halfDay"`
	Absent         int             `json:"absent"`
	WorkingMinutes int             `json:"workingMinutes"`
	ExtraMinutes   int             `json:"extraMinutes"`
	WorkingHours   decimal.Decimal `json:"workingHours"`
	ExtraHours     decimal.Decimal `json:"extraHours"`
}

type LeaveSummary struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	ApprovedDays int            `json:"approvedDays"`
}

type PayrollSummary struct {
	Records         int           `json:"records"`
	Paid            int           `json:"paid"`
	Unpaid          int           `json:"unpaid"`
	WithWarnings    int           `json:"withWarnings"`
	Gross           payroll.Money `json:"gross"`
	TotalDeductions payroll.Money `json:"totalDeductions"`
	Net             payroll.Money `json:"net"`
}

func SummarizeAttendance(records []attendance.Record) AttendanceSummary {
	var s AttendanceSummary
	for _, rec := range records {
		s.Days++
		switch rec.Status {
		case attendance.StatusPresent:
			s.Present++
		case attendance.StatusHalfDay:
			s.HalfDay++
		case attendance.StatusAbsent:
			s.Absent++
		}
		s.WorkingMinutes += rec.WorkingMinutes
		s.ExtraMinutes += rec.ExtraMinutes
	}
	s.WorkingHours = minutesToHours(s.WorkingMinutes)
	s.ExtraHours = minutesToHours(s.ExtraMinutes)
	return s
}

// SummarizeLeave counts requests by status. Approved days are clipped to
// [from, to] when both bounds are set.
func SummarizeLeave(requests []leave.Request, from, to time.Time) LeaveSummary {
	s := LeaveSummary{ByStatus: map[string]int{}}
	for _, st := range []string{leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled} {
		s.ByStatus[st] = 0
	}
	for _, req := range requests {
		s.Total++
		s.ByStatus[req.Status]++
		if req.Status != leave.StatusApproved {
			continue
		}
		if from.IsZero() || to.IsZero() {
			s.ApprovedDays += req.Days
			continue
		}
		s.ApprovedDays += leave.DaysWithin(req.StartDate, req.EndDate, from, to)
	}
	return s
}

func SummarizePayroll(records []payroll.Record) PayrollSummary {
	var s PayrollSummary
	for _, rec := range records {
		s.Records++
		if rec.Status == payroll.StatusPaid {
			s.Paid++
		} else {
			s.Unpaid++
		}
		if len(rec.Warnings) > 0 {
			s.WithWarnings++
		}
		s.Gross += rec.Gross
		s.TotalDeductions += rec.TotalDeductions
		s.Net += rec.Net
	}
	return s
}

func minutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}
