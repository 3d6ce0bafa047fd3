package attendance

import (
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ATTENDANCE SUMMARY DTOs
// ========================================

type RecordSummaryRequest struct {
	EmployeeID    string          `json:"-"`
	Month         int             `json:"-"`
	Year          int             `json:"-"`
	WorkingDays   int             `json:"working_days"`
	LWPDays       decimal.Decimal `json:"lwp_days"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

func (r *RecordSummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is invalid",
		})
	}

	if !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}

	if r.Year < 2000 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be between 2000 and 2100",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	days := daysInMonth(r.Month, r.Year)
	if r.WorkingDays < 0 || r.WorkingDays > days {
		errs = append(errs, validator.ValidationError{
			Field:   "working_days",
			Message: "working_days must be between 0 and " + validator.Itoa(days),
		})
	}

	if r.LWPDays.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "lwp_days",
			Message: "lwp_days must not be negative",
		})
	} else if r.LWPDays.GreaterThan(decimal.NewFromInt(int64(r.WorkingDays))) {
		errs = append(errs, validator.ValidationError{
			Field:   "lwp_days",
			Message: "lwp_days cannot exceed working_days",
		})
	}

	if r.OvertimeHours.IsNegative() {
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_hours",
			Message: "overtime_hours must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToSummary builds the stored record from a validated request.
func (r *RecordSummaryRequest) ToSummary() Summary {
	return Summary{
		EmployeeID:    r.EmployeeID,
		Month:         r.Month,
		Year:          r.Year,
		TotalDays:     daysInMonth(r.Month, r.Year),
		WorkingDays:   r.WorkingDays,
		LWPDays:       r.LWPDays,
		OvertimeHours: r.OvertimeHours,
	}
}

type SummaryResponse struct {
	EmployeeID            string          `json:"employee_id"`
	Month                 int             `json:"month"`
	Year                  int             `json:"year"`
	TotalDays             int             `json:"total_days"`
	WorkingDays           int             `json:"working_days"`
	LWPDays               decimal.Decimal `json:"lwp_days"`
	OvertimeHours         decimal.Decimal `json:"overtime_hours"`
	EffectiveWorkingRatio decimal.Decimal `json:"effective_working_ratio"`
}

func ToSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		EmployeeID:            s.EmployeeID,
		Month:                 s.Month,
		Year:                  s.Year,
		TotalDays:             s.TotalDays,
		WorkingDays:           s.WorkingDays,
		LWPDays:               s.LWPDays,
		OvertimeHours:         s.OvertimeHours,
		EffectiveWorkingRatio: s.EffectiveWorkingRatio(),
	}
}
