package tax

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// RegimeType enum
type RegimeType string

const (
	RegimeOld RegimeType = "old"
	RegimeNew RegimeType = "new"
)

func ParseRegimeType(s string) (RegimeType, error) {
	switch RegimeType(strings.ToLower(strings.TrimSpace(s))) {
	case RegimeOld:
		return RegimeOld, nil
	case RegimeNew:
		return RegimeNew, nil
	}
	return "", validator.Single("regime", "must be 'old' or 'new'")
}

// AgeTier enum
type AgeTier string

const (
	AgeTierNormal      AgeTier = "normal"
	AgeTierSenior      AgeTier = "senior"
	AgeTierSuperSenior AgeTier = "super_senior"
)

// AgeTierFor maps an age in completed years to its tier (senior from 60, super senior from 80).
func AgeTierFor(age int) AgeTier {
	switch {
	case age >= 80:
		return AgeTierSuperSenior
	case age >= 60:
		return AgeTierSenior
	default:
		return AgeTierNormal
	}
}

// Slab is a contiguous income band. Bounds are exclusive-lower, inclusive-upper:
// an amount x belongs to the slab when Min < x <= Max. A nil Max is open-ended.
type Slab struct {
	Min  money.Money
	Max  *money.Money
	Rate decimal.Decimal // percent
}

func (s Slab) Contains(amount money.Money) bool {
	if !amount.IsGreaterThan(s.Min) {
		return false
	}
	return s.Max == nil || !amount.IsGreaterThan(*s.Max)
}

// CombinedCap is a ceiling shared by several sections, e.g. 80CCE over 80C, 80CCC and 80CCD(1).
type CombinedCap struct {
	Name     string
	Sections []Section
	Limit    money.Money
}

// TaxRegime is the immutable rate configuration for one regime, age tier and tax year.
type TaxRegime struct {
	regimeType        RegimeType
	ageTier           AgeTier
	taxYear           TaxYear
	slabs             []Slab
	surchargeSlabs    []Slab
	cessRate          decimal.Decimal
	standardDeduction money.Money
	rebateLimit       money.Money
	rebateMax         money.Money
	allowedSections   map[Section]struct{}
	sectionCaps       map[Section]money.Money
	combinedCaps      []CombinedCap
}

// NewTaxRegime builds the regime for the given type, age tier and year from the
// built-in rate tables.
func NewTaxRegime(regimeType RegimeType, tier AgeTier, year TaxYear) (TaxRegime, error) {
	if regimeType != RegimeOld && regimeType != RegimeNew {
		return TaxRegime{}, fmt.Errorf("%w: %q", ErrInvalidRegime, regimeType)
	}
	switch tier {
	case AgeTierNormal, AgeTierSenior, AgeTierSuperSenior:
	default:
		return TaxRegime{}, fmt.Errorf("%w: unknown age tier %q", ErrInvalidRegime, tier)
	}

	table := rateTableFor(year, regimeType)
	slabs := table.slabs[tier]
	if err := validateSlabs(slabs, true); err != nil {
		return TaxRegime{}, err
	}
	if err := validateSlabs(table.surcharge, false); err != nil {
		return TaxRegime{}, err
	}

	allowed := make(map[Section]struct{})
	for _, s := range allowedSections(regimeType) {
		allowed[s] = struct{}{}
	}

	return TaxRegime{
		regimeType:        regimeType,
		ageTier:           tier,
		taxYear:           year,
		slabs:             slabs,
		surchargeSlabs:    table.surcharge,
		cessRate:          table.cess,
		standardDeduction: table.standardDeduction,
		rebateLimit:       table.rebateLimit,
		rebateMax:         table.rebateMax,
		allowedSections:   allowed,
		sectionCaps:       sectionCaps(regimeType, tier),
		combinedCaps:      combinedCaps(regimeType),
	}, nil
}

// NewTaxRegimeForAge is NewTaxRegime with the tier derived from age.
func NewTaxRegimeForAge(regimeType RegimeType, age int, year TaxYear) (TaxRegime, error) {
	return NewTaxRegime(regimeType, AgeTierFor(age), year)
}

func (r TaxRegime) Type() RegimeType { return r.regimeType }
func (r TaxRegime) AgeTier() AgeTier { return r.ageTier }
func (r TaxRegime) TaxYear() TaxYear { return r.taxYear }
func (r TaxRegime) CessRate() decimal.Decimal { return r.cessRate }
func (r TaxRegime) StandardDeduction() money.Money { return r.standardDeduction }
func (r TaxRegime) RebateLimit() money.Money { return r.rebateLimit }
func (r TaxRegime) RebateMax() money.Money { return r.rebateMax }
func (r TaxRegime) IsZero() bool { return r.regimeType == "" }

// AllowsExemptions reports whether salary and retirement exemptions apply.
// The new regime disallows them.
func (r TaxRegime) AllowsExemptions() bool {
	return r.regimeType == RegimeOld
}

func (r TaxRegime) AllowsRebate() bool {
	return r.rebateMax.IsPositive()
}

// Slabs returns a copy of the ordered tax slabs.
func (r TaxRegime) Slabs() []Slab {
	return append([]Slab(nil), r.slabs...)
}

func (r TaxRegime) SurchargeSlabs() []Slab {
	return append([]Slab(nil), r.surchargeSlabs...)
}

// ExemptionLimit is the upper bound of the leading zero-rate slab.
func (r TaxRegime) ExemptionLimit() money.Money {
	if len(r.slabs) > 0 && r.slabs[0].Rate.IsZero() && r.slabs[0].Max != nil {
		return *r.slabs[0].Max
	}
	return money.Zero()
}

func (r TaxRegime) IsSectionAllowed(s Section) bool {
	_, ok := r.allowedSections[s]
	return ok
}

// AllowedSections returns the permitted section codes in sorted order.
func (r TaxRegime) AllowedSections() []Section {
	out := make([]Section, 0, len(r.allowedSections))
	for s := range r.allowedSections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SectionCap returns the per-section ceiling; ok is false when the section is uncapped.
func (r TaxRegime) SectionCap(s Section) (money.Money, bool) {
	limit, ok := r.sectionCaps[s]
	return limit, ok
}

func (r TaxRegime) CombinedCaps() []CombinedCap {
	return append([]CombinedCap(nil), r.combinedCaps...)
}

// WithType returns the regime of another type for the same age tier and year.
func (r TaxRegime) WithType(regimeType RegimeType) (TaxRegime, error) {
	return NewTaxRegime(regimeType, r.ageTier, r.taxYear)
}

func validateSlabs(slabs []Slab, fromZero bool) error {
	if len(slabs) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSlabTable)
	}
	if fromZero && !slabs[0].Min.IsZero() {
		return fmt.Errorf("%w: first slab must start at zero", ErrInvalidSlabTable)
	}
	for i, s := range slabs {
		last := i == len(slabs)-1
		if last && s.Max != nil {
			return fmt.Errorf("%w: last slab must be open-ended", ErrInvalidSlabTable)
		}
		if last {
			break
		}
		if s.Max == nil {
			return fmt.Errorf("%w: only the last slab may be open-ended", ErrInvalidSlabTable)
		}
		if !s.Max.IsGreaterThan(s.Min) {
			return fmt.Errorf("%w: slab %d is empty", ErrInvalidSlabTable, i)
		}
		if !slabs[i+1].Min.Equal(*s.Max) {
			return fmt.Errorf("%w: gap or overlap after slab %d", ErrInvalidSlabTable, i)
		}
	}
	return nil
}
