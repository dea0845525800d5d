package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/core"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
	"workzen/internal/platform/requestctx"
	"workzen/internal/transport/http/api"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// errorTable is checked in order with errors.Is; the first match wins.
var errorTable = []errorMapping{
	{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrSessionInvalid, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrMFARequired, http.StatusUnauthorized, "mfa_required"},
	{auth.ErrMFAInvalid, http.StatusUnauthorized, "mfa_invalid"},
	{auth.ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{auth.ErrMFAUnavailable, http.StatusConflict, "mfa_unavailable"},
	{auth.ErrMFANotConfigured, http.StatusConflict, "mfa_not_configured"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{auth.ErrUnknownRole, http.StatusBadRequest, "unknown_role"},
	{auth.ErrAccountNotFound, http.StatusNotFound, "not_found"},
	{auth.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{auth.ErrSelfRoleChange, http.StatusConflict, "self_role_change"},
	{auth.ErrSelfDisable, http.StatusConflict, "self_disable"},

	{core.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{core.ErrDuplicateEmail, http.StatusConflict, "employee_exists"},
	{core.ErrInvalidEmployee, http.StatusBadRequest, "invalid_employee"},
	{core.ErrInvalidManager, http.StatusBadRequest, "invalid_manager"},

	{attendance.ErrRecordNotFound, http.StatusNotFound, "not_found"},
	{attendance.ErrAlreadyCheckedIn, http.StatusConflict, "already_checked_in"},
	{attendance.ErrNoOpenCheckIn, http.StatusConflict, "no_open_check_in"},
	{attendance.ErrInvalidTimeOrder, http.StatusUnprocessableEntity, "invalid_time_order"},
	{attendance.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},

	{leave.ErrRequestNotFound, http.StatusNotFound, "not_found"},
	{leave.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{leave.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{leave.ErrOverlappingLeave, http.StatusConflict, "overlapping_leave"},
	{leave.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{leave.ErrStartInPast, http.StatusBadRequest, "start_in_past"},
	{leave.ErrInvalidLeaveType, http.StatusBadRequest, "invalid_leave_type"},
	{leave.ErrInvalidDecision, http.StatusBadRequest, "invalid_decision"},

	{payroll.ErrIncompleteSalaryStructure, http.StatusUnprocessableEntity, "incomplete_salary_structure"},
	{payroll.ErrDuplicatePayrollPeriod, http.StatusConflict, "duplicate_payroll_period"},
	{payroll.ErrRecordNotFound, http.StatusNotFound, "not_found"},
	{payroll.ErrStructureNotFound, http.StatusNotFound, "not_found"},
	{payroll.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{payroll.ErrInvalidPeriod, http.StatusBadRequest, "invalid_period"},
	{payroll.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{payroll.ErrInvalidRecordState, http.StatusConflict, "invalid_record_state"},
}

// StatusFor maps a domain error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// WriteError renders err through the envelope. Unmapped errors are logged
// and reported without detail.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, status, code, "internal server error", requestID)
		return
	}
	api.Fail(w, status, code, err.Error(), requestID)
}
