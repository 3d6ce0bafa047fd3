package payout

import (
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/shopspring/decimal"
)

var (
	epfRate          = decimal.NewFromInt(12)
	epfMonthlyCap    = money.FromInt(1_800)
	esiRate          = decimal.RequireFromString("0.75")
	esiWageCeiling   = money.FromInt(21_000)
	ptExemptUpTo     = money.FromInt(7_500)
	ptLowerBandUpTo  = money.FromInt(10_000)
	ptLowerBandMonth = money.FromInt(150)
	ptUpperBandMonth = money.FromInt(200)
)

// EmployeeEPF is 12% of basic plus DA, capped at ₹1,800 a month.
func EmployeeEPF(basicPlusDA money.Money) money.Money {
	return basicPlusDA.ClampZero().Percentage(epfRate).Min(epfMonthlyCap).Round(2)
}

// EmployeeESI is 0.75% of gross while gross stays within ₹21,000.
func EmployeeESI(gross money.Money) money.Money {
	if gross.IsGreaterThan(esiWageCeiling) || !gross.IsPositive() {
		return money.Zero()
	}
	return gross.Percentage(esiRate).Round(2)
}

// ProfessionalTax is the monthly state levy by gross band.
func ProfessionalTax(gross money.Money) money.Money {
	switch {
	case !gross.IsGreaterThan(ptExemptUpTo):
		return money.Zero()
	case !gross.IsGreaterThan(ptLowerBandUpTo):
		return ptLowerBandMonth
	default:
		return ptUpperBandMonth
	}
}
