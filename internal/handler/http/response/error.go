package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Statutory rules (caps, regime gates, VRS eligibility)
	if errors.Is(err, tax.ErrBusinessRuleViolation) {
		BusinessRuleViolation(w, err.Error())
		return
	}

	switch {
	// Tax domain errors
	case errors.Is(err, tax.ErrInvalidRegime),
		errors.Is(err, tax.ErrInvalidTaxYear),
		errors.Is(err, tax.ErrNegativeAmount),
		errors.Is(err, tax.ErrInvalidCityType):
		BadRequest(w, err.Error(), nil)

	// Taxation domain errors
	case errors.Is(err, taxation.ErrReasonRequired):
		ValidationError(w, map[string]string{"reason": "is required"})
	case errors.Is(err, taxation.ErrTaxationNotFound):
		NotFound(w, "Taxation record not found")
	case errors.Is(err, taxation.ErrDeductionNotFound):
		NotFound(w, "Deduction not declared for this section")
	case errors.Is(err, taxation.ErrEmployeeNotFound), errors.Is(err, salary.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, taxation.ErrNoSalaryOnRecord), errors.Is(err, salary.ErrNoSalaryOnRecord):
		NotFound(w, "No salary on record for this tax year")
	case errors.Is(err, taxation.ErrVersionConflict):
		Conflict(w, "Taxation record was modified concurrently, please retry")
	case errors.Is(err, taxation.ErrRecalcInProgress):
		Conflict(w, "A recalculation for this employee is already running")
	case errors.Is(err, taxation.ErrTaxationExists):
		Conflict(w, "Taxation record already exists")
	case errors.Is(err, taxation.ErrNotCalculated):
		Conflict(w, "Tax has not been calculated since the last change")

	// Salary domain errors
	case errors.Is(err, salary.ErrSalaryStructureNotFound):
		NotFound(w, "Salary structure not found")
	case errors.Is(err, salary.ErrSalaryChangeNotFound):
		NotFound(w, "Salary change not found")

	// Payout domain errors
	case errors.Is(err, payout.ErrPayoutNotFound):
		NotFound(w, "Payout not found")
	case errors.Is(err, payout.ErrPayoutAlreadyExists):
		Conflict(w, "Payout already exists for this period")
	case errors.Is(err, payout.ErrPayoutAlreadyPaid):
		Conflict(w, "Payout is already paid")
	case errors.Is(err, payout.ErrInvalidStatusTransition):
		Conflict(w, err.Error())
	case errors.Is(err, payout.ErrInvalidPeriod), errors.Is(err, payout.ErrInvalidStatus):
		BadRequest(w, err.Error(), nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance not recorded for this period")
	case errors.Is(err, attendance.ErrInvalidPeriod):
		BadRequest(w, "Invalid attendance period", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
