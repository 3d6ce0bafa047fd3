package tax

import (
	"errors"
	"fmt"
)

// ErrBusinessRuleViolation is wrapped by every statutory rule failure so callers
// can tell rule violations apart from malformed input.
var ErrBusinessRuleViolation = errors.New("business rule violation")

var (
	ErrInvalidRegime        = errors.New("invalid tax regime")
	ErrInvalidTaxYear       = errors.New("invalid tax year")
	ErrInvalidSlabTable     = errors.New("invalid slab table")
	ErrSectionNotAllowed    = fmt.Errorf("%w: deduction section not permitted under regime", ErrBusinessRuleViolation)
	ErrDeductionCapExceeded = fmt.Errorf("%w: deduction exceeds section limit", ErrBusinessRuleViolation)
	ErrVRSNotEligible       = fmt.Errorf("%w: voluntary retirement requires age >= 40 and 10 years of service", ErrBusinessRuleViolation)
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrInvalidCityType      = errors.New("hra city type must be metro or non_metro")
)
