package taxation

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

// Key identifies a Taxation record.
type Key struct {
	EmployeeID string
	TaxYear    tax.TaxYear
}

func (k Key) String() string {
	return k.EmployeeID + ":" + k.TaxYear.String()
}

// ParseKey validates the path parameters shared by every taxation endpoint.
func ParseKey(employeeID, taxYear string) (Key, error) {
	var errs validator.ValidationErrors
	if !validator.IsValidEmployeeID(employeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is invalid"})
	}
	year, err := tax.ParseTaxYear(taxYear)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "tax_year", Message: "must be in YYYY-YY format with consecutive years"})
	}
	if len(errs) > 0 {
		return Key{}, errs
	}
	return Key{EmployeeID: employeeID, TaxYear: year}, nil
}

// ========== COMMAND DTOs ==========

type CalculateTaxRequest struct {
	EmployeeID string  `json:"-"`
	TaxYear    string  `json:"-"`
	Regime     *string `json:"regime,omitempty"`
}

func (r *CalculateTaxRequest) Validate() (Key, *tax.RegimeType, error) {
	key, err := ParseKey(r.EmployeeID, r.TaxYear)
	if err != nil {
		return Key{}, nil, err
	}
	if r.Regime == nil || strings.TrimSpace(*r.Regime) == "" {
		return key, nil, nil
	}
	regimeType, err := tax.ParseRegimeType(*r.Regime)
	if err != nil {
		return Key{}, nil, err
	}
	return key, &regimeType, nil
}

type AddDeductionRequest struct {
	EmployeeID string      `json:"-"`
	TaxYear    string      `json:"-"`
	Section    string      `json:"section"`
	Amount     money.Money `json:"amount"`
}

func (r *AddDeductionRequest) Validate() (Key, tax.Section, error) {
	var errs validator.ValidationErrors
	key, err := ParseKey(r.EmployeeID, r.TaxYear)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		errs = append(errs, verrs...)
	}
	section, err := tax.ParseSection(r.Section)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "section", Message: "unknown deduction section"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than zero"})
	}
	if len(errs) > 0 {
		return Key{}, "", errs
	}
	return key, section, nil
}

type RemoveDeductionRequest struct {
	EmployeeID string `json:"-"`
	TaxYear    string `json:"-"`
	Section    string `json:"-"`
	Reason     string `json:"reason,omitempty"`
}

func (r *RemoveDeductionRequest) Validate() (Key, tax.Section, error) {
	key, err := ParseKey(r.EmployeeID, r.TaxYear)
	if err != nil {
		return Key{}, "", err
	}
	section, err := tax.ParseSection(r.Section)
	if err != nil {
		return Key{}, "", err
	}
	return key, section, nil
}

type ChangeRegimeRequest struct {
	EmployeeID string `json:"-"`
	TaxYear    string `json:"-"`
	Regime     string `json:"regime"`
	Reason     string `json:"reason"`
}

func (r *ChangeRegimeRequest) Validate() (Key, tax.RegimeType, error) {
	var errs validator.ValidationErrors
	key, err := ParseKey(r.EmployeeID, r.TaxYear)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		errs = append(errs, verrs...)
	}
	regimeType, err := tax.ParseRegimeType(r.Regime)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "regime", Message: "must be 'old' or 'new'"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	if len(errs) > 0 {
		return Key{}, "", errs
	}
	return key, regimeType, nil
}

// RecordRetirementBenefitsRequest sets other income to the taxable part of
// the benefits received on exit.
type RecordRetirementBenefitsRequest struct {
	EmployeeID string                 `json:"-"`
	TaxYear    string                 `json:"-"`
	Benefits   tax.RetirementBenefits `json:"benefits"`
}

func (r *RecordRetirementBenefitsRequest) Validate() (Key, error) {
	key, err := ParseKey(r.EmployeeID, r.TaxYear)
	if err != nil {
		return Key{}, err
	}
	if err := r.Benefits.Validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

// ========== RESPONSE DTOs ==========

type TaxationResponse struct {
	EmployeeID        string                      `json:"employee_id"`
	TaxYear           string                      `json:"tax_year"`
	Regime            tax.RegimeType              `json:"regime"`
	AgeTier           tax.AgeTier                 `json:"age_tier"`
	GrossAnnualSalary money.Money                 `json:"gross_annual_salary"`
	OtherIncome       money.Money                 `json:"other_income"`
	Deductions        map[tax.Section]money.Money `json:"deductions"`
	Calculated        bool                        `json:"calculated"`
	Breakdown         *tax.Breakdown              `json:"breakdown,omitempty"`
	MonthlyTDS        *money.Money                `json:"monthly_tds,omitempty"`
	CalculatedAt      *time.Time                  `json:"calculated_at,omitempty"`
	Version           int                         `json:"version"`
}

func ToResponse(t *Taxation) TaxationResponse {
	resp := TaxationResponse{
		EmployeeID:        t.EmployeeID,
		TaxYear:           t.TaxYear.String(),
		Regime:            t.Regime.Type(),
		AgeTier:           t.Regime.AgeTier(),
		GrossAnnualSalary: t.GrossAnnualSalary,
		OtherIncome:       t.OtherIncome,
		Deductions:        make(map[tax.Section]money.Money, len(t.Deductions)),
		CalculatedAt:      t.CalculatedAt,
		Version:           t.Version,
	}
	for k, v := range t.Deductions {
		resp.Deductions[k] = v
	}
	if b, err := t.Breakdown(); err == nil {
		tds := b.MonthlyTDS()
		resp.Calculated = true
		resp.Breakdown = &b
		resp.MonthlyTDS = &tds
	}
	return resp
}

// RegimeComparison puts both regimes side by side for the same inputs.
type RegimeComparison struct {
	EmployeeID        string         `json:"employee_id"`
	TaxYear           string         `json:"tax_year"`
	OldRegime         tax.Breakdown  `json:"old_regime"`
	NewRegime         tax.Breakdown  `json:"new_regime"`
	RecommendedRegime tax.RegimeType `json:"recommended_regime"`
	SavingsAmount     money.Money    `json:"savings_amount"`
}

// Compare recommends the regime with the lower liability; a tie goes to the new regime.
func Compare(employeeID string, year tax.TaxYear, oldBreakdown, newBreakdown tax.Breakdown) RegimeComparison {
	c := RegimeComparison{
		EmployeeID: employeeID,
		TaxYear:    year.String(),
		OldRegime:  oldBreakdown,
		NewRegime:  newBreakdown,
	}
	if oldBreakdown.TotalTaxLiability.IsLessThan(newBreakdown.TotalTaxLiability) {
		c.RecommendedRegime = tax.RegimeOld
		c.SavingsAmount = newBreakdown.TotalTaxLiability.Subtract(oldBreakdown.TotalTaxLiability)
	} else {
		c.RecommendedRegime = tax.RegimeNew
		c.SavingsAmount = oldBreakdown.TotalTaxLiability.Subtract(newBreakdown.TotalTaxLiability)
	}
	return c
}

type RetirementBenefitsResponse struct {
	Summary  tax.RetirementSummary `json:"summary"`
	Taxation TaxationResponse      `json:"taxation"`
}
