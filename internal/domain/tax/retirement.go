package tax

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var (
	leaveEncashmentCap    = money.FromInt(2_500_000)
	leaveEncashmentMonths = int64(10)
	maxLeaveCreditPerYear = int64(30)
	gratuityCap           = money.FromInt(2_000_000)
	vrsCap                = money.FromInt(500_000)
	retrenchmentCap       = money.FromInt(500_000)
	vrsMinAge             = 40
	vrsMinServiceYears    = decimal.NewFromInt(10)
	daysPerServiceYear    = decimal.RequireFromString("365.25")
	roundUpThresholdDays  = decimal.RequireFromString("182.625")

	commutedShareWithGratuity    = decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	commutedShareWithoutGratuity = decimal.NewFromInt(1).Div(decimal.NewFromInt(2))
)

// BenefitKind names a retirement benefit.
type BenefitKind string

const (
	BenefitLeaveEncashment BenefitKind = "leave_encashment"
	BenefitGratuity        BenefitKind = "gratuity"
	BenefitVRS             BenefitKind = "vrs"
	BenefitPension         BenefitKind = "pension"
	BenefitRetrenchment    BenefitKind = "retrenchment"
)

// Benefit is any retirement benefit with a statutory exemption.
type Benefit interface {
	Kind() BenefitKind
	Received() money.Money
	Exemption(regime TaxRegime) money.Money
}

// TaxableAmount is received less exemption, never negative.
func TaxableAmount(b Benefit, regime TaxRegime) money.Money {
	return b.Received().Subtract(b.Exemption(regime)).ClampZero()
}

// CompletedServiceYears truncates service to whole years, adding one more when
// the leftover exceeds six months (182.625 days of a 365.25-day year).
func CompletedServiceYears(serviceYears decimal.Decimal) int64 {
	if !serviceYears.IsPositive() {
		return 0
	}
	whole := serviceYears.Floor()
	remainderDays := serviceYears.Sub(whole).Mul(daysPerServiceYear)
	years := whole.IntPart()
	if remainderDays.GreaterThan(roundUpThresholdDays) {
		years++
	}
	return years
}

// EncashmentContext is when leave encashment was paid.
type EncashmentContext string

const (
	EncashmentDuringEmployment EncashmentContext = "during_employment"
	EncashmentOnRetirement     EncashmentContext = "on_retirement"
	EncashmentGovernment       EncashmentContext = "government"
	EncashmentDeceased         EncashmentContext = "deceased"
)

type LeaveEncashment struct {
	Amount             money.Money       `json:"amount"`
	Context            EncashmentContext `json:"context"`
	AvgMonthlySalary   money.Money       `json:"avg_monthly_salary"`
	ServiceYears       decimal.Decimal   `json:"service_years"`
	UnexpiredLeaveDays int64             `json:"unexpired_leave_days"`
}

func (l LeaveEncashment) Kind() BenefitKind     { return BenefitLeaveEncashment }
func (l LeaveEncashment) Received() money.Money { return l.Amount }

// CreditedLeaveDays caps unexpired leave at 30 days per completed year of service.
func (l LeaveEncashment) CreditedLeaveDays() int64 {
	limit := l.ServiceYears.Floor().IntPart() * maxLeaveCreditPerYear
	return max(min(l.UnexpiredLeaveDays, limit), 0)
}

func (l LeaveEncashment) Exemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	switch l.Context {
	case EncashmentGovernment, EncashmentDeceased:
		return l.Amount.ClampZero()
	case EncashmentOnRetirement:
		perDay, _ := l.AvgMonthlySalary.DivideInt(30)
		leaveValue := perDay.MultiplyInt(l.CreditedLeaveDays())
		return money.MinOf(
			l.Amount,
			l.AvgMonthlySalary.MultiplyInt(leaveEncashmentMonths),
			leaveEncashmentCap,
			leaveValue,
		).ClampZero()
	default:
		return money.Zero()
	}
}

type Gratuity struct {
	Amount            money.Money     `json:"amount"`
	LastMonthlySalary money.Money     `json:"last_monthly_salary"`
	ServiceYears      decimal.Decimal `json:"service_years"`
	IsGovernment      bool            `json:"is_government"`
	// CoveredByAct is true for employers under the Payment of Gratuity Act.
	CoveredByAct bool `json:"covered_by_act"`
}

func (g Gratuity) Kind() BenefitKind     { return BenefitGratuity }
func (g Gratuity) Received() money.Money { return g.Amount }

// Exemption applies ServiceYears as given when the employer is covered by the
// Act and whole completed years otherwise.
func (g Gratuity) Exemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	if g.IsGovernment {
		return g.Amount.ClampZero()
	}

	var formula money.Money
	if g.CoveredByAct {
		perDay, _ := g.LastMonthlySalary.DivideInt(26)
		formula = perDay.MultiplyInt(15).Multiply(g.ServiceYears)
	} else {
		half, _ := g.LastMonthlySalary.DivideInt(2)
		formula = half.MultiplyInt(g.ServiceYears.Floor().IntPart())
	}
	return money.MinOf(g.Amount, formula, gratuityCap).ClampZero()
}

// VRS is voluntary retirement compensation. Build it with NewVRS so the
// eligibility rule is enforced.
type VRS struct {
	Amount       money.Money     `json:"amount"`
	Age          int             `json:"age"`
	ServiceYears decimal.Decimal `json:"service_years"`
}

func NewVRS(amount money.Money, age int, serviceYears decimal.Decimal) (VRS, error) {
	v := VRS{Amount: amount, Age: age, ServiceYears: serviceYears}
	if err := v.CheckEligibility(); err != nil {
		return VRS{}, err
	}
	return v, nil
}

func (v VRS) CheckEligibility() error {
	if v.Age < vrsMinAge || v.ServiceYears.LessThan(vrsMinServiceYears) {
		return fmt.Errorf("%w: age %d, service %s years", ErrVRSNotEligible, v.Age, v.ServiceYears.String())
	}
	return nil
}

func (v VRS) Kind() BenefitKind     { return BenefitVRS }
func (v VRS) Received() money.Money { return v.Amount }

func (v VRS) Exemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() || v.CheckEligibility() != nil {
		return money.Zero()
	}
	return money.MinOf(v.Amount, vrsCap).ClampZero()
}

type Pension struct {
	// RegularPension is the uncommuted pension received in the year; always taxable.
	RegularPension money.Money `json:"regular_pension"`
	CommutedAmount money.Money `json:"commuted_amount"`
	// CommutedFraction is the share of the pension that was commuted, e.g. 0.4.
	CommutedFraction decimal.Decimal `json:"commuted_fraction"`
	ReceivedGratuity bool            `json:"received_gratuity"`
	IsGovernment     bool            `json:"is_government"`
}

func (p Pension) Kind() BenefitKind { return BenefitPension }

func (p Pension) Received() money.Money {
	return p.RegularPension.Add(p.CommutedAmount)
}

// Exemption covers only the commuted part: 1/3 (with gratuity) or 1/2 of the
// grossed-up full commuted value, capped at the amount commuted.
func (p Pension) Exemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() || !p.CommutedAmount.IsPositive() {
		return money.Zero()
	}
	if p.IsGovernment {
		return p.CommutedAmount.ClampZero()
	}
	if !p.CommutedFraction.IsPositive() {
		return money.Zero()
	}
	fullValue, _ := p.CommutedAmount.Divide(p.CommutedFraction)
	share := commutedShareWithoutGratuity
	if p.ReceivedGratuity {
		share = commutedShareWithGratuity
	}
	return money.MinOf(p.CommutedAmount, fullValue.Multiply(share).Round(2))
}

type RetrenchmentCompensation struct {
	Amount           money.Money     `json:"amount"`
	AvgMonthlySalary money.Money     `json:"avg_monthly_salary"`
	ServiceYears     decimal.Decimal `json:"service_years"`
}

func (r RetrenchmentCompensation) Kind() BenefitKind     { return BenefitRetrenchment }
func (r RetrenchmentCompensation) Received() money.Money { return r.Amount }

func (r RetrenchmentCompensation) CompletedYears() int64 {
	return CompletedServiceYears(r.ServiceYears)
}

func (r RetrenchmentCompensation) Exemption(regime TaxRegime) money.Money {
	if !regime.AllowsExemptions() {
		return money.Zero()
	}
	perDay, _ := r.AvgMonthlySalary.DivideInt(30)
	formula := perDay.MultiplyInt(15 * r.CompletedYears())
	return money.MinOf(r.Amount, formula, retrenchmentCap).ClampZero()
}

// RetirementBenefits groups whichever benefits an employee received on exit.
type RetirementBenefits struct {
	LeaveEncashment *LeaveEncashment          `json:"leave_encashment,omitempty"`
	Gratuity        *Gratuity                 `json:"gratuity,omitempty"`
	VRS             *VRS                      `json:"vrs,omitempty"`
	Pension         *Pension                  `json:"pension,omitempty"`
	Retrenchment    *RetrenchmentCompensation `json:"retrenchment,omitempty"`
}

type BenefitResult struct {
	Kind     BenefitKind `json:"kind"`
	Received money.Money `json:"received"`
	Exempt   money.Money `json:"exempt"`
	Taxable  money.Money `json:"taxable"`
}

type RetirementSummary struct {
	Benefits      []BenefitResult `json:"benefits"`
	TotalReceived money.Money     `json:"total_received"`
	TotalExempt   money.Money     `json:"total_exempt"`
	TotalTaxable  money.Money     `json:"total_taxable"`
}

func (r RetirementBenefits) list() []Benefit {
	var out []Benefit
	if r.LeaveEncashment != nil {
		out = append(out, *r.LeaveEncashment)
	}
	if r.Gratuity != nil {
		out = append(out, *r.Gratuity)
	}
	if r.VRS != nil {
		out = append(out, *r.VRS)
	}
	if r.Pension != nil {
		out = append(out, *r.Pension)
	}
	if r.Retrenchment != nil {
		out = append(out, *r.Retrenchment)
	}
	return out
}

func (r RetirementBenefits) Validate() error {
	var errs validator.ValidationErrors
	for _, b := range r.list() {
		if b.Received().IsNegative() {
			errs = append(errs, validator.ValidationError{Field: string(b.Kind()), Message: "amount must not be negative"})
		}
	}
	if r.Pension != nil && (r.Pension.CommutedFraction.IsNegative() || r.Pension.CommutedFraction.GreaterThan(decimal.NewFromInt(1))) {
		errs = append(errs, validator.ValidationError{Field: "pension.commuted_fraction", Message: "must be between 0 and 1"})
	}
	if len(errs) > 0 {
		return errs
	}
	if r.VRS != nil {
		return r.VRS.CheckEligibility()
	}
	return nil
}

func (r RetirementBenefits) Summarize(regime TaxRegime) RetirementSummary {
	summary := RetirementSummary{Benefits: []BenefitResult{}}
	for _, b := range r.list() {
		exempt := b.Exemption(regime)
		res := BenefitResult{
			Kind:     b.Kind(),
			Received: b.Received(),
			Exempt:   exempt,
			Taxable:  b.Received().Subtract(exempt).ClampZero(),
		}
		summary.Benefits = append(summary.Benefits, res)
		summary.TotalReceived = summary.TotalReceived.Add(res.Received)
		summary.TotalExempt = summary.TotalExempt.Add(res.Exempt)
		summary.TotalTaxable = summary.TotalTaxable.Add(res.Taxable)
	}
	return summary
}
