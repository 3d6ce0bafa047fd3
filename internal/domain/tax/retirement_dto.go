package tax

import (
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

// EvaluateRetirementRequest asks for the exemption on each benefit under a
// regime without touching any stored record.
type EvaluateRetirementRequest struct {
	TaxYear  string             `json:"tax_year"`
	Regime   string             `json:"regime"`
	Age      int                `json:"age"`
	Benefits RetirementBenefits `json:"benefits"`
}

func (r *EvaluateRetirementRequest) Validate() (TaxRegime, error) {
	var errs validator.ValidationErrors

	year, err := ParseTaxYear(r.TaxYear)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "tax_year", Message: "must be in YYYY-YY format with consecutive years"})
	}
	regimeType, err := ParseRegimeType(r.Regime)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "regime", Message: "must be 'old' or 'new'"})
	}
	if r.Age < 0 || r.Age > 120 {
		errs = append(errs, validator.ValidationError{Field: "age", Message: "must be between 0 and 120"})
	}
	if len(errs) > 0 {
		return TaxRegime{}, errs
	}

	if err := r.Benefits.Validate(); err != nil {
		return TaxRegime{}, err
	}
	return NewTaxRegimeForAge(regimeType, r.Age, year)
}

type RetirementEvaluation struct {
	TaxYear string            `json:"tax_year"`
	Regime  RegimeType        `json:"regime"`
	AgeTier AgeTier           `json:"age_tier"`
	Summary RetirementSummary `json:"summary"`
}

// EvaluateRetirement validates the request and summarises every benefit.
func EvaluateRetirement(req EvaluateRetirementRequest) (RetirementEvaluation, error) {
	regime, err := req.Validate()
	if err != nil {
		return RetirementEvaluation{}, err
	}
	return RetirementEvaluation{
		TaxYear: regime.TaxYear().String(),
		Regime:  regime.Type(),
		AgeTier: regime.AgeTier(),
		Summary: req.Benefits.Summarize(regime),
	}, nil
}
