package salary

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Earning component names, also used as keys in payout earning details.
const (
	ComponentBasic             = "basic"
	ComponentDearnessAllowance = "dearness_allowance"
	ComponentHRA               = "hra"
	ComponentSpecialAllowance  = "special_allowance"
	ComponentConveyance        = "conveyance_allowance"
	ComponentMedical           = "medical_allowance"
	ComponentLTA               = "lta"
	ComponentOtherAllowances   = "other_allowances"
)

// SalaryStructure - monthly salary components of an employee
type SalaryStructure struct {
	ID                  string       `json:"id,omitempty"`
	EmployeeID          string       `json:"employee_id,omitempty"`
	Basic               money.Money  `json:"basic"`
	DearnessAllowance   money.Money  `json:"dearness_allowance"`
	HRA                 money.Money  `json:"hra"`
	SpecialAllowance    money.Money  `json:"special_allowance"`
	ConveyanceAllowance money.Money  `json:"conveyance_allowance"`
	MedicalAllowance    money.Money  `json:"medical_allowance"`
	LTA                 money.Money  `json:"lta"`
	OtherAllowances     money.Money  `json:"other_allowances"`
	CityType            tax.CityType `json:"city_type"`
	MonthlyRent         money.Money  `json:"monthly_rent"`
	EffectiveFrom       time.Time    `json:"effective_from"`
	CreatedAt           time.Time    `json:"-"`
	UpdatedAt           time.Time    `json:"-"`
}

// Components returns the earning components keyed by name.
func (s SalaryStructure) Components() map[string]money.Money {
	return map[string]money.Money{
		ComponentBasic:             s.Basic,
		ComponentDearnessAllowance: s.DearnessAllowance,
		ComponentHRA:               s.HRA,
		ComponentSpecialAllowance:  s.SpecialAllowance,
		ComponentConveyance:        s.ConveyanceAllowance,
		ComponentMedical:           s.MedicalAllowance,
		ComponentLTA:               s.LTA,
		ComponentOtherAllowances:   s.OtherAllowances,
	}
}

func (s SalaryStructure) MonthlyGross() money.Money {
	return money.Sum(
		s.Basic, s.DearnessAllowance, s.HRA, s.SpecialAllowance,
		s.ConveyanceAllowance, s.MedicalAllowance, s.LTA, s.OtherAllowances,
	)
}

func (s SalaryStructure) BasicPlusDA() money.Money {
	return s.Basic.Add(s.DearnessAllowance)
}

func (s SalaryStructure) AnnualGross() money.Money {
	return s.MonthlyGross().MultiplyInt(12)
}

// Scale multiplies every amount by factor; used to annualise and to weight periods.
func (s SalaryStructure) Scale(factor decimal.Decimal) SalaryStructure {
	out := s
	out.Basic = s.Basic.Multiply(factor)
	out.DearnessAllowance = s.DearnessAllowance.Multiply(factor)
	out.HRA = s.HRA.Multiply(factor)
	out.SpecialAllowance = s.SpecialAllowance.Multiply(factor)
	out.ConveyanceAllowance = s.ConveyanceAllowance.Multiply(factor)
	out.MedicalAllowance = s.MedicalAllowance.Multiply(factor)
	out.LTA = s.LTA.Multiply(factor)
	out.OtherAllowances = s.OtherAllowances.Multiply(factor)
	out.MonthlyRent = s.MonthlyRent.Multiply(factor)
	return out
}

func (s SalaryStructure) add(o SalaryStructure) SalaryStructure {
	out := s
	out.Basic = s.Basic.Add(o.Basic)
	out.DearnessAllowance = s.DearnessAllowance.Add(o.DearnessAllowance)
	out.HRA = s.HRA.Add(o.HRA)
	out.SpecialAllowance = s.SpecialAllowance.Add(o.SpecialAllowance)
	out.ConveyanceAllowance = s.ConveyanceAllowance.Add(o.ConveyanceAllowance)
	out.MedicalAllowance = s.MedicalAllowance.Add(o.MedicalAllowance)
	out.LTA = s.LTA.Add(o.LTA)
	out.OtherAllowances = s.OtherAllowances.Add(o.OtherAllowances)
	out.MonthlyRent = s.MonthlyRent.Add(o.MonthlyRent)
	return out
}

func (s SalaryStructure) round(places int32) SalaryStructure {
	out := s
	out.Basic = s.Basic.Round(places)
	out.DearnessAllowance = s.DearnessAllowance.Round(places)
	out.HRA = s.HRA.Round(places)
	out.SpecialAllowance = s.SpecialAllowance.Round(places)
	out.ConveyanceAllowance = s.ConveyanceAllowance.Round(places)
	out.MedicalAllowance = s.MedicalAllowance.Round(places)
	out.LTA = s.LTA.Round(places)
	out.OtherAllowances = s.OtherAllowances.Round(places)
	out.MonthlyRent = s.MonthlyRent.Round(places)
	return out
}

// ToSalaryIncome maps annual amounts onto the tax model. s must already be annualised.
func (s SalaryStructure) ToSalaryIncome(isGovernment bool) tax.SalaryIncome {
	city := s.CityType
	if city == "" {
		city = tax.CityNonMetro
	}
	return tax.SalaryIncome{
		Basic:                s.Basic,
		DearnessAllowance:    s.DearnessAllowance,
		HRA:                  s.HRA,
		SpecialAllowance:     s.SpecialAllowance,
		LTA:                  s.LTA,
		MedicalAllowance:     s.MedicalAllowance,
		ConveyanceAllowance:  s.ConveyanceAllowance,
		OtherAllowances:      s.OtherAllowances,
		CityType:             city,
		RentPaid:             s.MonthlyRent,
		IsGovernmentEmployee: isGovernment,
	}
}

// SalaryChange - immutable audit record of a compensation change
type SalaryChange struct {
	ID            string
	EmployeeID    string
	EffectiveDate time.Time
	Previous      *SalaryStructure
	New           SalaryStructure
	Reason        string
	ApprovedBy    *string
	ApprovedAt    *time.Time
	CreatedAt     time.Time
}

// EmployeeProfile - the employee attributes the tax engine needs
type EmployeeProfile struct {
	EmployeeID      string
	FullName        string
	DateOfBirth     *time.Time
	IsGovernment    bool
	PreferredRegime tax.RegimeType
}

// AgeAt returns completed years of age on the given date; zero when unknown.
func (p EmployeeProfile) AgeAt(on time.Time) int {
	if p.DateOfBirth == nil {
		return 0
	}
	dob := *p.DateOfBirth
	age := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		age--
	}
	return max(age, 0)
}

// AgeTier is taken at the end of the tax year, so turning 60 during the year counts.
func (p EmployeeProfile) AgeTier(year tax.TaxYear) tax.AgeTier {
	return tax.AgeTierFor(p.AgeAt(year.End()))
}

// Declaration - an investment or deduction amount declared by the employee
type Declaration struct {
	EmployeeID string
	TaxYear    tax.TaxYear
	Section    tax.Section
	Amount     money.Money
}

func (s SalaryStructure) Validate() error {
	var errs validator.ValidationErrors
	for name, amount := range s.Components() {
		if amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: name, Message: "must not be negative"})
		}
	}
	if s.MonthlyRent.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "monthly_rent", Message: "must not be negative"})
	}
	if !s.Basic.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: ComponentBasic, Message: "must be greater than zero"})
	}
	if s.CityType != "" && !s.CityType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "city_type", Message: "must be 'metro' or 'non_metro'"})
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return errs
	}
	return nil
}
