package payout

import (
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== CALCULATION DTOs ==========

type CalculatePayoutRequest struct {
	EmployeeID       string                  `json:"employee_id"`
	Month            int                     `json:"month"`
	Year             int                     `json:"year"`
	OverrideSalary   *salary.SalaryStructure `json:"override_salary,omitempty"`
	ForceRecalculate bool                    `json:"force_recalculate"`
}

func (r *CalculatePayoutRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is invalid"})
	}
	if !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2020 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 2020 and 2100"})
	}
	if r.OverrideSalary != nil {
		if err := r.OverrideSalary.Validate(); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, e := range verrs {
					errs = append(errs, validator.ValidationError{Field: "override_salary." + e.Field, Message: e.Message})
				}
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// PayoutResult is returned by CalculatePayout. Degraded is true when attendance
// or tax data could not be read and defaults were used instead.
type PayoutResult struct {
	Payout          PayoutResponse `json:"payout"`
	Degraded        bool           `json:"degraded"`
	DegradedReasons []string       `json:"degraded_reasons,omitempty"`
	// Existing is true when a stored payout was returned without recalculating.
	Existing bool `json:"existing"`
}

// ========== STATUS DTOs ==========

type UpdateStatusRequest struct {
	ID     string  `json:"-"`
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

func (r *UpdateStatusRequest) Validate() (Status, error) {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "is required"})
	}
	status, err := ParseStatus(r.Status)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be one of PROCESSED, APPROVED, PAID, CANCELLED"})
	} else if status == StatusPending {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "cannot move a payout back to PENDING"})
	}

	if len(errs) > 0 {
		return "", errs
	}
	return status, nil
}

// ========== RESPONSE DTOs ==========

type PayoutResponse struct {
	ID               string                 `json:"id"`
	EmployeeID       string                 `json:"employee_id"`
	Month            int                    `json:"month"`
	Year             int                    `json:"year"`
	TaxYear          string                 `json:"tax_year"`
	BaseGross        money.Money            `json:"base_gross"`
	EarningsDetail   map[string]money.Money `json:"earnings_detail"`
	DeductionsDetail map[string]money.Money `json:"deductions_detail"`
	GrossSalary      money.Money            `json:"gross_salary"`
	TotalDeductions  money.Money            `json:"total_deductions"`
	NetSalary        money.Money            `json:"net_salary"`
	TotalDays        int                    `json:"total_days"`
	WorkingDays      int                    `json:"working_days"`
	LWPDays          decimal.Decimal        `json:"lwp_days"`
	OvertimeHours    decimal.Decimal        `json:"overtime_hours"`
	EffectiveRatio   decimal.Decimal        `json:"effective_working_ratio"`
	Status           string                 `json:"status"`
	Notes            *string                `json:"notes,omitempty"`
	ProcessedAt      *string                `json:"processed_at,omitempty"`
	ApprovedAt       *string                `json:"approved_at,omitempty"`
	PaidAt           *string                `json:"paid_at,omitempty"`
	CancelledAt      *string                `json:"cancelled_at,omitempty"`
}

func ToResponse(p Payout) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID,
		EmployeeID:       p.EmployeeID,
		Month:            p.Month,
		Year:             p.Year,
		TaxYear:          p.TaxYear.String(),
		BaseGross:        p.BaseGross,
		EarningsDetail:   p.EarningsDetail,
		DeductionsDetail: p.DeductionsDetail,
		GrossSalary:      p.GrossSalary,
		TotalDeductions:  p.TotalDeductions,
		NetSalary:        p.NetSalary,
		TotalDays:        p.TotalDays,
		WorkingDays:      p.WorkingDays,
		LWPDays:          p.LWPDays,
		OvertimeHours:    p.OvertimeHours,
		EffectiveRatio:   p.EffectiveRatio,
		Status:           string(p.Status),
		Notes:            p.Notes,
		ProcessedAt:      formatTime(p.ProcessedAt),
		ApprovedAt:       formatTime(p.ApprovedAt),
		PaidAt:           formatTime(p.PaidAt),
		CancelledAt:      formatTime(p.CancelledAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type PayoutFilter struct {
	Month      *int    `json:"month,omitempty"`
	Year       *int    `json:"year,omitempty"`
	Status     *string `json:"status,omitempty"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
}

// Normalize applies paging defaults.
func (f *PayoutFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

type ListPayoutResponse struct {
	Data       []PayoutResponse `json:"data"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}
