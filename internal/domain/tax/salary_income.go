package tax

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// CityType decides the HRA percentage of basic+DA.
type CityType string

const (
	CityMetro    CityType = "metro"
	CityNonMetro CityType = "non_metro"
)

func (c CityType) IsValid() bool {
	return c == CityMetro || c == CityNonMetro
}

// AllowanceKind identifies a Rule 2BB specific allowance.
type AllowanceKind string

const (
	AllowanceChildrenEducation AllowanceKind = "children_education"
	AllowanceHostel            AllowanceKind = "hostel"
	AllowanceDisabledTransport AllowanceKind = "disabled_transport"
	AllowanceTransportEmployee AllowanceKind = "transport_employee"
	AllowanceUndergroundMines  AllowanceKind = "underground_mines"
	AllowanceHillArea          AllowanceKind = "hill_area"
	AllowanceBorderArea        AllowanceKind = "border_area"
	AllowanceTribalArea        AllowanceKind = "tribal_area"
	AllowanceFieldArea         AllowanceKind = "field_area"
	AllowanceCounterInsurgency AllowanceKind = "counter_insurgency"
	AllowanceIslandDuty        AllowanceKind = "island_duty"
	AllowanceUniform           AllowanceKind = "uniform"
	AllowanceHelper            AllowanceKind = "helper"
	AllowanceResearch          AllowanceKind = "research"
)

// Monthly ceilings; amounts are rupees per month unless noted.
var (
	childrenEducationPerChild = money.FromInt(100)
	hostelPerChild            = money.FromInt(300)
	maxChildren               = 2

	flatMonthlyCeilings = map[AllowanceKind]money.Money{
		AllowanceDisabledTransport: money.FromInt(3_200),
		AllowanceUndergroundMines:  money.FromInt(800),
		AllowanceTribalArea:        money.FromInt(200),
		AllowanceFieldArea:         money.FromInt(2_600),
		AllowanceCounterInsurgency: money.FromInt(3_900),
		AllowanceIslandDuty:        money.FromInt(3_250),
	}

	transportEmployeeMonthlyCap = money.FromInt(10_000)
	transportEmployeePercent    = decimal.NewFromInt(70)

	hillAreaCeilings = map[string]money.Money{
		"specified":          money.FromInt(800),
		"high_altitude":      money.FromInt(1_060),
		"very_high_altitude": money.FromInt(1_600),
		"siachen":            money.FromInt(7_000),
	}

	borderAreaCeilings = map[string]money.Money{
		"a": money.FromInt(1_300),
		"b": money.FromInt(1_100),
		"c": money.FromInt(1_050),
		"d": money.FromInt(750),
		"e": money.FromInt(300),
		"f": money.FromInt(200),
	}

	medicalAllowanceCap    = money.FromInt(15_000)
	conveyanceAllowanceCap = money.FromInt(19_200)
	professionalTaxCap     = money.FromInt(2_500)
	entertainmentCap       = money.FromInt(5_000)
	entertainmentPercent   = decimal.NewFromInt(20)
	hraMetroPercent        = decimal.NewFromInt(50)
	hraNonMetroPercent     = decimal.NewFromInt(40)
	rentExcessPercent      = decimal.NewFromInt(10)
)

// SpecificAllowance is one allowance line with the inputs its ceiling needs.
type SpecificAllowance struct {
	Kind     AllowanceKind `json:"kind"`
	Amount   money.Money   `json:"amount"`
	Children int           `json:"children,omitempty"`
	// Tier is the hill tier or border category, depending on Kind.
	Tier  string      `json:"tier,omitempty"`
	Spent money.Money `json:"spent,omitempty"`
}

// SalaryIncome holds one employee's annual salary components for a tax year.
type SalaryIncome struct {
	Basic                  money.Money         `json:"basic"`
	DearnessAllowance      money.Money         `json:"dearness_allowance"`
	HRA                    money.Money         `json:"hra"`
	SpecialAllowance       money.Money         `json:"special_allowance"`
	Bonus                  money.Money         `json:"bonus"`
	Commission             money.Money         `json:"commission"`
	LTA                    money.Money         `json:"lta"`
	MedicalAllowance       money.Money         `json:"medical_allowance"`
	ConveyanceAllowance    money.Money         `json:"conveyance_allowance"`
	EntertainmentAllowance money.Money         `json:"entertainment_allowance"`
	OtherAllowances        money.Money         `json:"other_allowances"`
	SpecificAllowances     []SpecificAllowance `json:"specific_allowances,omitempty"`

	CityType             CityType    `json:"city_type"`
	RentPaid             money.Money `json:"rent_paid"`
	ProfessionalTaxPaid  money.Money `json:"professional_tax_paid"`
	IsGovernmentEmployee bool        `json:"is_government_employee"`
	// MonthsInService scales monthly ceilings; zero means a full year.
	MonthsInService int `json:"months_in_service,omitempty"`
}

// ExemptionBreakdown lists every exemption and salary deduction applied.
type ExemptionBreakdown struct {
	HRA                    money.Money                   `json:"hra"`
	LTA                    money.Money                   `json:"lta"`
	Medical                money.Money                   `json:"medical"`
	Conveyance             money.Money                   `json:"conveyance"`
	SpecificAllowances     map[AllowanceKind]money.Money `json:"specific_allowances"`
	TotalExemptions        money.Money                   `json:"total_exemptions"`
	StandardDeduction      money.Money                   `json:"standard_deduction"`
	ProfessionalTax        money.Money                   `json:"professional_tax"`
	EntertainmentDeduction money.Money                   `json:"entertainment_deduction"`
}

func (s SalaryIncome) Validate() error {
	var errs validator.ValidationErrors
	amounts := map[string]money.Money{
		"basic":                   s.Basic,
		"dearness_allowance":      s.DearnessAllowance,
		"hra":                     s.HRA,
		"special_allowance":       s.SpecialAllowance,
		"bonus":                   s.Bonus,
		"commission":              s.Commission,
		"lta":                     s.LTA,
		"medical_allowance":       s.MedicalAllowance,
		"conveyance_allowance":    s.ConveyanceAllowance,
		"entertainment_allowance": s.EntertainmentAllowance,
		"other_allowances":        s.OtherAllowances,
		"rent_paid":               s.RentPaid,
		"professional_tax_paid":   s.ProfessionalTaxPaid,
	}
	for field, amount := range amounts {
		if amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "must not be negative"})
		}
	}
	if s.CityType != "" && !s.CityType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "city_type", Message: "must be 'metro' or 'non_metro'"})
	}
	if s.MonthsInService < 0 || s.MonthsInService > 12 {
		errs = append(errs, validator.ValidationError{Field: "months_in_service", Message: "must be between 1 and 12"})
	}
	for i, a := range s.SpecificAllowances {
		field := fmt.Sprintf("specific_allowances[%d]", i)
		if a.Amount.IsNegative() || a.Spent.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "amounts must not be negative"})
		}
		if a.Children < 0 {
			errs = append(errs, validator.ValidationError{Field: field, Message: "children must not be negative"})
		}
		if err := a.validateKind(); err != nil {
			errs = append(errs, validator.ValidationError{Field: field, Message: err.Error()})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (a SpecificAllowance) validateKind() error {
	switch a.Kind {
	case AllowanceHillArea:
		if _, ok := hillAreaCeilings[a.Tier]; !ok {
			return fmt.Errorf("unknown hill area tier %q", a.Tier)
		}
	case AllowanceBorderArea:
		if _, ok := borderAreaCeilings[a.Tier]; !ok {
			return fmt.Errorf("unknown border area category %q", a.Tier)
		}
	case AllowanceChildrenEducation, AllowanceHostel, AllowanceDisabledTransport,
		AllowanceTransportEmployee, AllowanceUndergroundMines, AllowanceTribalArea,
		AllowanceFieldArea, AllowanceCounterInsurgency, AllowanceIslandDuty,
		AllowanceUniform, AllowanceHelper, AllowanceResearch:
	default:
		return fmt.Errorf("unknown allowance kind %q", a.Kind)
	}
	return nil
}

func (s SalaryIncome) months() int64 {
	if s.MonthsInService <= 0 || s.MonthsInService > 12 {
		return 12
	}
	return int64(s.MonthsInService)
}

func (s SalaryIncome) BasicPlusDA() money.Money {
	return s.Basic.Add(s.DearnessAllowance)
}

func (s SalaryIncome) GrossSalary() money.Money {
	gross := money.Sum(
		s.Basic, s.DearnessAllowance, s.HRA, s.SpecialAllowance, s.Bonus, s.Commission,
		s.LTA, s.MedicalAllowance, s.ConveyanceAllowance, s.EntertainmentAllowance, s.OtherAllowances,
	)
	for _, a := range s.SpecificAllowances {
		gross = gross.Add(a.Amount)
	}
	return gross
}

// HRAExemption is the least of HRA received, 50% (metro) or 40% of basic+DA,
// and rent paid in excess of 10% of basic+DA.
func (s SalaryIncome) HRAExemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() || !s.HRA.IsPositive() {
		return money.Zero()
	}
	salary := s.BasicPlusDA()
	pct := hraNonMetroPercent
	if s.CityType == CityMetro {
		pct = hraMetroPercent
	}
	rentExcess := s.RentPaid.Subtract(salary.Percentage(rentExcessPercent)).ClampZero()
	return money.MinOf(s.HRA, salary.Percentage(pct), rentExcess)
}

func (s SalaryIncome) LTAExemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	return s.LTA.ClampZero()
}

func (s SalaryIncome) MedicalExemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	return money.MinOf(s.MedicalAllowance, medicalAllowanceCap).ClampZero()
}

func (s SalaryIncome) ConveyanceExemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	return money.MinOf(s.ConveyanceAllowance, conveyanceAllowanceCap).ClampZero()
}

// SpecificAllowanceExemption applies the Rule 2BB ceiling for one allowance line.
func (s SalaryIncome) SpecificAllowanceExemption(a SpecificAllowance, regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() || !a.Amount.IsPositive() {
		return money.Zero()
	}
	months := s.months()

	switch a.Kind {
	case AllowanceChildrenEducation, AllowanceHostel:
		perChild := childrenEducationPerChild
		if a.Kind == AllowanceHostel {
			perChild = hostelPerChild
		}
		children := int64(min(max(a.Children, 0), maxChildren))
		return money.MinOf(a.Amount, perChild.MultiplyInt(children*months))
	case AllowanceTransportEmployee:
		return money.MinOf(a.Amount, a.Amount.Percentage(transportEmployeePercent), transportEmployeeMonthlyCap.MultiplyInt(months))
	case AllowanceHillArea:
		ceiling, ok := hillAreaCeilings[a.Tier]
		if !ok {
			return money.Zero()
		}
		return money.MinOf(a.Amount, ceiling.MultiplyInt(months))
	case AllowanceBorderArea:
		ceiling, ok := borderAreaCeilings[a.Tier]
		if !ok {
			return money.Zero()
		}
		return money.MinOf(a.Amount, ceiling.MultiplyInt(months))
	case AllowanceUniform, AllowanceHelper, AllowanceResearch:
		return money.MinOf(a.Amount, a.Spent).ClampZero()
	}

	if ceiling, ok := flatMonthlyCeilings[a.Kind]; ok {
		return money.MinOf(a.Amount, ceiling.MultiplyInt(months))
	}
	return money.Zero()
}

// ProfessionalTaxDeduction is the section 16(iii) deduction.
func (s SalaryIncome) ProfessionalTaxDeduction(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	return money.MinOf(s.ProfessionalTaxPaid, professionalTaxCap).ClampZero()
}

// EntertainmentDeduction is the section 16(ii) deduction, available to government employees only.
func (s SalaryIncome) EntertainmentDeduction(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() || !s.IsGovernmentEmployee {
		return money.Zero()
	}
	return money.MinOf(s.EntertainmentAllowance, s.Basic.Percentage(entertainmentPercent), entertainmentCap).ClampZero()
}

func (s SalaryIncome) Exemptions(regime TaxRegime) ExemptionBreakdown {
	b := ExemptionBreakdown{
		HRA:                    s.HRAExemption(regime),
		LTA:                    s.LTAExemption(regime),
		Medical:                s.MedicalExemption(regime),
		Conveyance:             s.ConveyanceExemption(regime),
		SpecificAllowances:     make(map[AllowanceKind]money.Money),
		StandardDeduction:      regime.StandardDeduction(),
		ProfessionalTax:        s.ProfessionalTaxDeduction(regime),
		EntertainmentDeduction: s.EntertainmentDeduction(regime),
	}
	total := money.Sum(b.HRA, b.LTA, b.Medical, b.Conveyance)
	for _, a := range s.SpecificAllowances {
		exempt := s.SpecificAllowanceExemption(a, regime)
		b.SpecificAllowances[a.Kind] = b.SpecificAllowances[a.Kind].Add(exempt)
		total = total.Add(exempt)
	}
	b.TotalExemptions = total
	return b
}

func (s SalaryIncome) TotalExemptions(regime TaxRegime) money.Money {
	return s.Exemptions(regime).TotalExemptions
}

// TaxableSalary is gross less exemptions, the standard deduction and the
// section 16 deductions, floored at zero.
func (s SalaryIncome) TaxableSalary(regime TaxRegime) money.Money {
	b := s.Exemptions(regime)
	return s.GrossSalary().
		Subtract(b.TotalExemptions).
		Subtract(b.StandardDeduction).
		Subtract(b.ProfessionalTax).
		Subtract(b.EntertainmentDeduction).
		ClampZero()
}
