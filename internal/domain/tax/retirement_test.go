package tax

import (
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func years(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ===== RETRENCHMENT TESTS =====

func TestCompletedServiceYears(t *testing.T) {
	cases := []struct {
		service string
		want    int64
	}{
		{"7.6", 8},  // 0.6 * 365.25 = 219.15 days
		{"7.5", 7},  // exactly 182.625 days is not more than six months
		{"7.51", 8}, // 186.3 days
		{"7", 7},
		{"0.4", 0},
		{"0.6", 1},
		{"0", 0},
		{"-2", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CompletedServiceYears(years(tc.service)), tc.service)
	}
}

func TestRetrenchmentCompensation_Exemption(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)

	r := RetrenchmentCompensation{
		Amount:           money.FromInt(300_000),
		AvgMonthlySalary: money.FromInt(60_000),
		ServiceYears:     years("7.6"),
	}

	assert.Equal(t, int64(8), r.CompletedYears())
	// 60,000 / 30 * 15 * 8
	assertMoney(t, "240000", r.Exemption(old))
	assertMoney(t, "60000", TaxableAmount(r, old))

	r.Amount = money.FromInt(2_000_000)
	r.AvgMonthlySalary = money.FromInt(300_000)
	assertMoney(t, "500000", r.Exemption(old))
}

// ===== GRATUITY TESTS =====

func TestGratuity_Exemption(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)

	cases := []struct {
		name   string
		g      Gratuity
		expect string
	}{
		{"covered formula", Gratuity{
			Amount: money.FromInt(500_000), LastMonthlySalary: money.FromInt(52_000),
			ServiceYears: years("10"), CoveredByAct: true,
		}, "300000"},
		{"covered uses service years as given", Gratuity{
			Amount: money.FromInt(500_000), LastMonthlySalary: money.FromInt(52_000),
			ServiceYears: years("10.5"), CoveredByAct: true,
		}, "315000"},
		{"statutory cap", Gratuity{
			Amount: money.FromInt(3_000_000), LastMonthlySalary: money.FromInt(520_000),
			ServiceYears: years("30"), CoveredByAct: true,
		}, "2000000"},
		{"received is lowest", Gratuity{
			Amount: money.FromInt(100_000), LastMonthlySalary: money.FromInt(52_000),
			ServiceYears: years("10"), CoveredByAct: true,
		}, "100000"},
		{"not covered half month per completed year", Gratuity{
			Amount: money.FromInt(500_000), LastMonthlySalary: money.FromInt(40_000),
			ServiceYears: years("10.8"),
		}, "200000"},
		{"government fully exempt", Gratuity{
			Amount: money.FromInt(4_000_000), IsGovernment: true,
		}, "4000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertMoney(t, tc.expect, tc.g.Exemption(old))
		})
	}
}

// ===== VRS TESTS =====

func TestNewVRS_Eligibility(t *testing.T) {
	_, err := NewVRS(money.FromInt(800_000), 38, years("12"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVRSNotEligible))
	assert.True(t, errors.Is(err, ErrBusinessRuleViolation))

	_, err = NewVRS(money.FromInt(800_000), 45, years("9.9"))
	assert.ErrorIs(t, err, ErrVRSNotEligible)

	v, err := NewVRS(money.FromInt(800_000), 40, years("10"))
	require.NoError(t, err)

	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	assertMoney(t, "500000", v.Exemption(old))
	assertMoney(t, "300000", TaxableAmount(v, old))
}

func TestVRS_IneligibleHasNoExemption(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	v := VRS{Amount: money.FromInt(400_000), Age: 35, ServiceYears: years("15")}

	assert.True(t, v.Exemption(old).IsZero())
}

// ===== LEAVE ENCASHMENT TESTS =====

func TestLeaveEncashment_Exemption(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	base := LeaveEncashment{
		Amount:             money.FromInt(400_000),
		AvgMonthlySalary:   money.FromInt(30_000),
		ServiceYears:       years("20"),
		UnexpiredLeaveDays: 300,
	}

	onRetirement := base
	onRetirement.Context = EncashmentOnRetirement
	// 400,000 / 300,000 / 2,500,000 / 1,000 * 300
	assertMoney(t, "300000", onRetirement.Exemption(old))

	shortService := onRetirement
	shortService.ServiceYears = years("5.9")
	assert.Equal(t, int64(150), shortService.CreditedLeaveDays())
	assertMoney(t, "150000", shortService.Exemption(old))

	during := base
	during.Context = EncashmentDuringEmployment
	assert.True(t, during.Exemption(old).IsZero())
	assertMoney(t, "400000", TaxableAmount(during, old))

	gov := base
	gov.Context = EncashmentGovernment
	assertMoney(t, "400000", gov.Exemption(old))

	deceased := base
	deceased.Context = EncashmentDeceased
	assertMoney(t, "400000", deceased.Exemption(old))
}

// ===== PENSION TESTS =====

func TestPension_CommutedExemption(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	p := Pension{
		RegularPension:   money.FromInt(120_000),
		CommutedAmount:   money.FromInt(400_000),
		CommutedFraction: years("0.4"),
		ReceivedGratuity: true,
	}

	// full value 1,000,000; one third exempt
	assertMoney(t, "333333.33", p.Exemption(old))
	assertMoney(t, "186666.67", TaxableAmount(p, old))

	p.ReceivedGratuity = false
	// half of the full value is 500,000, capped at the 400,000 commuted
	assertMoney(t, "400000", p.Exemption(old))
	assertMoney(t, "120000", TaxableAmount(p, old))

	p.CommutedFraction = years("0.25")
	p.CommutedAmount = money.FromInt(200_000)
	assertMoney(t, "200000", p.Exemption(old))

	p.CommutedFraction = years("0.8")
	p.CommutedAmount = money.FromInt(800_000)
	assertMoney(t, "500000", p.Exemption(old))
}

func TestPension_RegularOnlyIsFullyTaxable(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	p := Pension{RegularPension: money.FromInt(240_000)}

	assert.True(t, p.Exemption(old).IsZero())
	assertMoney(t, "240000", TaxableAmount(p, old))
}

func TestPension_GovernmentCommutedFullyExempt(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	p := Pension{CommutedAmount: money.FromInt(900_000), IsGovernment: true}

	assertMoney(t, "900000", p.Exemption(old))
}

// ===== REGIME GATE / SUMMARY TESTS =====

func sampleBenefits() RetirementBenefits {
	return RetirementBenefits{
		LeaveEncashment: &LeaveEncashment{
			Amount: money.FromInt(400_000), Context: EncashmentOnRetirement,
			AvgMonthlySalary: money.FromInt(30_000), ServiceYears: years("20"), UnexpiredLeaveDays: 300,
		},
		Gratuity: &Gratuity{
			Amount: money.FromInt(500_000), LastMonthlySalary: money.FromInt(52_000),
			ServiceYears: years("10"), CoveredByAct: true,
		},
		VRS: &VRS{Amount: money.FromInt(800_000), Age: 50, ServiceYears: years("20")},
		Pension: &Pension{
			RegularPension: money.FromInt(120_000), CommutedAmount: money.FromInt(400_000),
			CommutedFraction: years("0.4"), ReceivedGratuity: true,
		},
		Retrenchment: &RetrenchmentCompensation{
			Amount: money.FromInt(300_000), AvgMonthlySalary: money.FromInt(60_000), ServiceYears: years("7.6"),
		},
	}
}

func TestRetirementBenefits_Summarize(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)

	summary := sampleBenefits().Summarize(old)

	require.Len(t, summary.Benefits, 5)
	// 400,000 + 500,000 + 800,000 + 520,000 + 300,000
	assertMoney(t, "2520000", summary.TotalReceived)
	// 300,000 + 300,000 + 500,000 + 333,333.33 + 240,000
	assertMoney(t, "1673333.33", summary.TotalExempt)
	assertMoney(t, "846666.67", summary.TotalTaxable)
}

func TestRetirementBenefits_NewRegimeGate(t *testing.T) {
	newRegime := mustRegime(t, RegimeNew, AgeTierNormal, fy2024)

	summary := sampleBenefits().Summarize(newRegime)

	for _, b := range summary.Benefits {
		assert.True(t, b.Exempt.IsZero(), b.Kind)
		assert.True(t, b.Taxable.Equal(b.Received), b.Kind)
	}
	assert.True(t, summary.TotalExempt.IsZero())
}

func TestRetirementBenefits_ExemptionNeverExceedsReceived(t *testing.T) {
	old := mustRegime(t, RegimeOld, AgeTierNormal, fy2024)
	for _, amount := range []int64{0, 1, 75_000, 10_000_000} {
		b := sampleBenefits()
		b.LeaveEncashment.Amount = money.FromInt(amount)
		b.Gratuity.Amount = money.FromInt(amount)
		b.VRS.Amount = money.FromInt(amount)
		b.Pension.CommutedAmount = money.FromInt(amount)
		b.Retrenchment.Amount = money.FromInt(amount)

		for _, res := range b.Summarize(old).Benefits {
			assert.False(t, res.Exempt.IsGreaterThan(res.Received), "%s at %d", res.Kind, amount)
			assert.False(t, res.Taxable.IsNegative(), "%s at %d", res.Kind, amount)
		}
	}
}

func TestRetirementBenefits_Validate(t *testing.T) {
	require.NoError(t, sampleBenefits().Validate())

	b := sampleBenefits()
	b.VRS.Age = 30
	assert.ErrorIs(t, b.Validate(), ErrVRSNotEligible)

	b = sampleBenefits()
	b.Gratuity.Amount = money.FromInt(-1)
	b.Pension.CommutedFraction = years("1.5")
	err := b.Validate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBusinessRuleViolation))
}

// ===== EVALUATION TESTS =====

func TestEvaluateRetirement_OldRegimeSenior(t *testing.T) {
	req := EvaluateRetirementRequest{
		TaxYear: "2024-25",
		Regime:  "old",
		Age:     62,
		Benefits: RetirementBenefits{
			Retrenchment: &RetrenchmentCompensation{
				Amount:           money.FromInt(400000),
				AvgMonthlySalary: money.FromInt(60000),
				ServiceYears:     years("7.6"),
			},
		},
	}

	eval, err := EvaluateRetirement(req)

	require.NoError(t, err)
	assert.Equal(t, AgeTierSenior, eval.AgeTier)
	require.Len(t, eval.Summary.Benefits, 1)
	// 60000 / 30 x 15 x 8 completed years
	assertMoney(t, "240000", eval.Summary.TotalExempt)
	assertMoney(t, "160000", eval.Summary.TotalTaxable)
}

func TestEvaluateRetirement_InvalidRequest(t *testing.T) {
	_, err := EvaluateRetirement(EvaluateRetirementRequest{TaxYear: "2024", Regime: "flat", Age: -1})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 3)
}

func TestEvaluateRetirement_VRSIneligible(t *testing.T) {
	req := EvaluateRetirementRequest{
		TaxYear:  "2024-25",
		Regime:   "old",
		Age:      35,
		Benefits: RetirementBenefits{VRS: &VRS{Amount: money.FromInt(300000), Age: 35, ServiceYears: years("12")}},
	}

	_, err := EvaluateRetirement(req)

	assert.ErrorIs(t, err, ErrVRSNotEligible)
}
