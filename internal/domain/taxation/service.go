package taxation

import (
	"context"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
)

type TaxationService interface {
	CalculateTax(ctx context.Context, req CalculateTaxRequest) (TaxationResponse, error)
	CompareRegimes(ctx context.Context, employeeID, taxYear string) (RegimeComparison, error)
	AddDeduction(ctx context.Context, req AddDeductionRequest) (TaxationResponse, error)
	RemoveDeduction(ctx context.Context, req RemoveDeductionRequest) (TaxationResponse, error)
	ChangeRegime(ctx context.Context, req ChangeRegimeRequest) (TaxationResponse, error)
	GetTaxation(ctx context.Context, employeeID, taxYear string) (TaxationResponse, error)
	RecordRetirementBenefits(ctx context.Context, req RecordRetirementBenefitsRequest) (RetirementBenefitsResponse, error)

	// Reproject refreshes income from the salary projection and recalculates.
	Reproject(ctx context.Context, employeeID string, year tax.TaxYear) (TaxationResponse, error)
	// AnnualLiability returns the current breakdown, recalculating first when stale.
	AnnualLiability(ctx context.Context, employeeID string, year tax.TaxYear) (tax.Breakdown, error)
}
