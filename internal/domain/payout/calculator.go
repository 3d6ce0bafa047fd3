package payout

import (
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// OvertimePolicy controls the optional overtime earning.
type OvertimePolicy struct {
	Enabled     bool
	Multiplier  decimal.Decimal
	HoursPerDay decimal.Decimal
}

// Input is everything a monthly payout depends on. AnnualTax may be nil,
// in which case no TDS is withheld.
type Input struct {
	EmployeeID string
	Month      int
	Year       int
	Salary     salary.SalaryStructure
	Attendance attendance.Summary
	AnnualTax  *tax.Breakdown
	Overtime   OvertimePolicy
}

// Calculate builds a PENDING payout. Earnings are prorated by the effective
// working ratio when it is below one; statutory deductions are taken on the
// prorated figures.
func Calculate(in Input) Payout {
	ratio := in.Attendance.EffectiveWorkingRatio()
	one := decimal.NewFromInt(1)

	earnings := make(map[string]money.Money)
	for name, amount := range in.Salary.Components() {
		if ratio.LessThan(one) {
			amount = amount.Multiply(ratio).Round(2)
		}
		if amount.IsPositive() {
			earnings[name] = amount
		}
	}
	if ot := overtimePay(in); ot.IsPositive() {
		earnings[EarningOvertime] = ot
	}

	gross := money.Sum(lo.Values(earnings)...)
	basicPlusDA := earnings[salary.ComponentBasic].Add(earnings[salary.ComponentDearnessAllowance])

	deductions := map[string]money.Money{
		DeductionEPF:             EmployeeEPF(basicPlusDA),
		DeductionESI:             EmployeeESI(gross),
		DeductionProfessionalTax: ProfessionalTax(gross),
		DeductionTDS:             money.Zero(),
	}
	if in.AnnualTax != nil {
		deductions[DeductionTDS] = in.AnnualTax.MonthlyTDS()
	}

	p := Payout{
		EmployeeID:       in.EmployeeID,
		Month:            in.Month,
		Year:             in.Year,
		TaxYear:          tax.TaxYearFor(time.Month(in.Month), in.Year),
		BaseGross:        in.Salary.MonthlyGross(),
		EarningsDetail:   earnings,
		DeductionsDetail: deductions,
		TotalDays:        in.Attendance.TotalDays,
		WorkingDays:      in.Attendance.WorkingDays,
		LWPDays:          in.Attendance.LWPDays,
		OvertimeHours:    in.Attendance.OvertimeHours,
		EffectiveRatio:   ratio,
		Status:           StatusPending,
	}
	p.Totals()
	return p
}

// overtimePay is the hourly rate of unprorated basic plus DA, times the
// multiplier, times overtime hours. It is never prorated.
func overtimePay(in Input) money.Money {
	policy := in.Overtime
	hours := in.Attendance.OvertimeHours
	if !policy.Enabled || !hours.IsPositive() || in.Attendance.WorkingDays <= 0 || !policy.HoursPerDay.IsPositive() {
		return money.Zero()
	}
	monthHours := decimal.NewFromInt(int64(in.Attendance.WorkingDays)).Mul(policy.HoursPerDay)
	hourly, err := in.Salary.BasicPlusDA().Divide(monthHours)
	if err != nil {
		return money.Zero()
	}
	return hourly.Multiply(policy.Multiplier).Multiply(hours).Round(2)
}
