package tax

import (
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
)

// Breakdown is the full liability for one taxable income under one regime.
type Breakdown struct {
	RegimeType        RegimeType  `json:"regime"`
	TaxableIncome     money.Money `json:"taxable_income"`
	IncomeTax         money.Money `json:"income_tax"`
	Surcharge         money.Money `json:"surcharge"`
	Cess              money.Money `json:"cess"`
	Rebate87A         money.Money `json:"rebate_87a"`
	TotalTaxLiability money.Money `json:"total_tax_liability"`
}

// MonthlyTDS apportions the annual liability over twelve months.
func (b Breakdown) MonthlyTDS() money.Money {
	monthly, _ := b.TotalTaxLiability.DivideInt(12)
	return monthly.Round(2)
}

// CalculateIncomeTax walks the slabs and sums the tax on each band of income.
func CalculateIncomeTax(taxableIncome money.Money, regime TaxRegime) money.Money {
	if !taxableIncome.IsPositive() {
		return money.Zero()
	}
	if !taxableIncome.IsGreaterThan(regime.ExemptionLimit()) {
		return money.Zero()
	}

	tax := money.Zero()
	for _, slab := range regime.slabs {
		upper := taxableIncome
		if slab.Max != nil {
			upper = upper.Min(*slab.Max)
		}
		inSlab := upper.Subtract(slab.Min)
		if !inSlab.IsPositive() {
			continue
		}
		tax = tax.Add(inSlab.Percentage(slab.Rate))
	}
	return tax
}

// CalculateSurcharge applies the single surcharge band containing the income.
func CalculateSurcharge(incomeTax, taxableIncome money.Money, regime TaxRegime) money.Money {
	for _, slab := range regime.surchargeSlabs {
		if slab.Contains(taxableIncome) {
			return incomeTax.Percentage(slab.Rate)
		}
	}
	return money.Zero()
}

func CalculateCess(taxPlusSurcharge money.Money, regime TaxRegime) money.Money {
	return taxPlusSurcharge.Percentage(regime.cessRate)
}

// CalculateRebate87A is min(tax, max rebate) while the income stays within the limit.
func CalculateRebate87A(incomeTax, taxableIncome money.Money, regime TaxRegime) money.Money {
	if !regime.AllowsRebate() || taxableIncome.IsGreaterThan(regime.rebateLimit) {
		return money.Zero()
	}
	return incomeTax.Min(regime.rebateMax).ClampZero()
}

// CalculateTotalTaxLiability is the only path that produces a total liability:
// income tax, then surcharge, then cess on tax plus surcharge, then the rebate.
// Components are rounded to paise and the total never goes below zero.
func CalculateTotalTaxLiability(taxableIncome money.Money, regime TaxRegime) Breakdown {
	taxable := taxableIncome.ClampZero()

	incomeTax := CalculateIncomeTax(taxable, regime).Round(2)
	surcharge := CalculateSurcharge(incomeTax, taxable, regime).Round(2)
	cess := CalculateCess(incomeTax.Add(surcharge), regime).Round(2)
	rebate := CalculateRebate87A(incomeTax, taxable, regime).Round(2)

	total := money.Sum(incomeTax, surcharge, cess).Subtract(rebate).ClampZero()

	return Breakdown{
		RegimeType:        regime.Type(),
		TaxableIncome:     taxable,
		IncomeTax:         incomeTax,
		Surcharge:         surcharge,
		Cess:              cess,
		Rebate87A:         rebate,
		TotalTaxLiability: total,
	}
}
