package tax

import (
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/shopspring/decimal"
)

type rateTable struct {
	slabs             map[AgeTier][]Slab
	surcharge         []Slab
	cess              decimal.Decimal
	standardDeduction money.Money
	rebateLimit       money.Money
	rebateMax         money.Money
}

// buildSlabs turns lower bounds and percent rates into contiguous slabs; the last one is open-ended.
func buildSlabs(bounds []int64, rates []int64) []Slab {
	slabs := make([]Slab, len(bounds))
	for i := range bounds {
		slabs[i] = Slab{Min: money.FromInt(bounds[i]), Rate: decimal.NewFromInt(rates[i])}
		if i+1 < len(bounds) {
			upper := money.FromInt(bounds[i+1])
			slabs[i].Max = &upper
		}
	}
	return slabs
}

func sameForAllTiers(slabs []Slab) map[AgeTier][]Slab {
	return map[AgeTier][]Slab{
		AgeTierNormal:      slabs,
		AgeTierSenior:      slabs,
		AgeTierSuperSenior: slabs,
	}
}

var (
	cessRate = decimal.NewFromInt(4)

	oldRegimeTable = rateTable{
		slabs: map[AgeTier][]Slab{
			AgeTierNormal:      buildSlabs([]int64{0, 250_000, 500_000, 1_000_000}, []int64{0, 5, 20, 30}),
			AgeTierSenior:      buildSlabs([]int64{0, 300_000, 500_000, 1_000_000}, []int64{0, 5, 20, 30}),
			AgeTierSuperSenior: buildSlabs([]int64{0, 500_000, 1_000_000}, []int64{0, 20, 30}),
		},
		surcharge:         buildSlabs([]int64{5_000_000, 10_000_000, 20_000_000, 50_000_000}, []int64{10, 15, 25, 37}),
		cess:              cessRate,
		standardDeduction: money.FromInt(50_000),
		rebateLimit:       money.FromInt(500_000),
		rebateMax:         money.FromInt(12_500),
	}

	newRegimeSurcharge = buildSlabs([]int64{5_000_000, 10_000_000, 20_000_000}, []int64{10, 15, 25})

	// rateTables is keyed by the start year of the financial year.
	rateTables = map[int]map[RegimeType]rateTable{
		2024: {
			RegimeOld: oldRegimeTable,
			RegimeNew: {
				slabs:             sameForAllTiers(buildSlabs([]int64{0, 300_000, 700_000, 1_000_000, 1_200_000, 1_500_000}, []int64{0, 5, 10, 15, 20, 30})),
				surcharge:         newRegimeSurcharge,
				cess:              cessRate,
				standardDeduction: money.FromInt(75_000),
				rebateLimit:       money.FromInt(700_000),
				rebateMax:         money.FromInt(25_000),
			},
		},
		2025: {
			RegimeOld: oldRegimeTable,
			RegimeNew: {
				slabs:             sameForAllTiers(buildSlabs([]int64{0, 400_000, 800_000, 1_200_000, 1_600_000, 2_000_000, 2_400_000}, []int64{0, 5, 10, 15, 20, 25, 30})),
				surcharge:         newRegimeSurcharge,
				cess:              cessRate,
				standardDeduction: money.FromInt(75_000),
				rebateLimit:       money.FromInt(1_200_000),
				rebateMax:         money.FromInt(60_000),
			},
		},
	}
)

// SupportedTaxYears lists the years with their own rate table.
func SupportedTaxYears() []TaxYear {
	return []TaxYear{{StartYear: 2024}, {StartYear: 2025}}
}

// rateTableFor picks the newest table that does not post-date the year, or the
// earliest table for years before any table exists.
func rateTableFor(year TaxYear, regimeType RegimeType) rateTable {
	best, earliest := 0, 0
	for start := range rateTables {
		if earliest == 0 || start < earliest {
			earliest = start
		}
		if start <= year.StartYear && start > best {
			best = start
		}
	}
	if best == 0 {
		best = earliest
	}
	return rateTables[best][regimeType]
}
