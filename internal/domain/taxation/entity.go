package taxation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/samber/lo"
)

// Taxation is one employee's income, deductions and regime for one tax year.
//
// The cached result fields are nil whenever the inputs changed after the last
// CalculateTax; they must not be trusted until it runs again.
type Taxation struct {
	EmployeeID        string
	TaxYear           tax.TaxYear
	Regime            tax.TaxRegime
	GrossAnnualSalary money.Money
	OtherIncome       money.Money
	// Salary, when present, replaces GrossAnnualSalary as the source of taxable salary.
	Salary     *tax.SalaryIncome
	Deductions map[tax.Section]money.Money

	TaxableIncome     *money.Money
	CalculatedTax     *money.Money
	SurchargeAmount   *money.Money
	CessAmount        *money.Money
	Rebate87A         *money.Money
	TotalTaxLiability *money.Money
	CalculatedAt      *time.Time

	// Version is bumped by the repository on every save.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTaxation opens the record for an employee's tax year.
func NewTaxation(employeeID string, regime tax.TaxRegime, grossAnnualSalary money.Money, now time.Time) (*Taxation, error) {
	var errs validator.ValidationErrors
	if !validator.IsValidEmployeeID(employeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is invalid"})
	}
	if regime.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "regime", Message: "is required"})
	}
	if grossAnnualSalary.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "gross_annual_salary", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &Taxation{
		EmployeeID:        employeeID,
		TaxYear:           regime.TaxYear(),
		Regime:            regime,
		GrossAnnualSalary: grossAnnualSalary,
		OtherIncome:       money.Zero(),
		Deductions:        make(map[tax.Section]money.Money),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsCalculated reports whether the cached breakdown matches the current inputs.
func (t *Taxation) IsCalculated() bool {
	return t.TotalTaxLiability != nil && t.CalculatedAt != nil
}

// Breakdown returns the cached result, or ErrNotCalculated.
func (t *Taxation) Breakdown() (tax.Breakdown, error) {
	if !t.IsCalculated() || t.TaxableIncome == nil || t.CalculatedTax == nil ||
		t.SurchargeAmount == nil || t.CessAmount == nil || t.Rebate87A == nil {
		return tax.Breakdown{}, ErrNotCalculated
	}
	return tax.Breakdown{
		RegimeType:        t.Regime.Type(),
		TaxableIncome:     *t.TaxableIncome,
		IncomeTax:         *t.CalculatedTax,
		Surcharge:         *t.SurchargeAmount,
		Cess:              *t.CessAmount,
		Rebate87A:         *t.Rebate87A,
		TotalTaxLiability: *t.TotalTaxLiability,
	}, nil
}

func (t *Taxation) invalidate(now time.Time) {
	t.TaxableIncome = nil
	t.CalculatedTax = nil
	t.SurchargeAmount = nil
	t.CessAmount = nil
	t.Rebate87A = nil
	t.TotalTaxLiability = nil
	t.CalculatedAt = nil
	t.UpdatedAt = now
}

// AddDeduction declares the amount claimed under a section, replacing any
// earlier declaration for it. Nothing changes when a rule is violated.
func (t *Taxation) AddDeduction(section tax.Section, amount money.Money, now time.Time) ([]Event, error) {
	if !amount.IsPositive() {
		return nil, validator.Single("amount", "must be greater than zero")
	}
	if !t.Regime.IsSectionAllowed(section) {
		return nil, fmt.Errorf("%w: %s under %s regime", tax.ErrSectionNotAllowed, section, t.Regime.Type())
	}
	if limit, ok := t.Regime.SectionCap(section); ok && amount.IsGreaterThan(limit) {
		return nil, fmt.Errorf("%w: %s is limited to %s", tax.ErrDeductionCapExceeded, section, limit)
	}
	for _, combined := range t.Regime.CombinedCaps() {
		if !lo.Contains(combined.Sections, section) {
			continue
		}
		total := amount
		for _, other := range combined.Sections {
			if other != section {
				total = total.Add(t.Deductions[other])
			}
		}
		if total.IsGreaterThan(combined.Limit) {
			return nil, fmt.Errorf("%w: %s combined limit is %s", tax.ErrDeductionCapExceeded, combined.Name, combined.Limit)
		}
	}

	event := DeductionAdded{
		EventMeta: newMeta(EventTypeDeductionAdded, t, now),
		Section:   section,
		Amount:    amount,
	}
	if prev, ok := t.Deductions[section]; ok {
		event.Previous = &prev
	}

	if t.Deductions == nil {
		t.Deductions = make(map[tax.Section]money.Money)
	}
	t.Deductions[section] = amount
	t.invalidate(now)
	return []Event{event}, nil
}

func (t *Taxation) RemoveDeduction(section tax.Section, reason string, now time.Time) ([]Event, error) {
	amount, ok := t.Deductions[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeductionNotFound, section)
	}
	delete(t.Deductions, section)
	t.invalidate(now)
	return []Event{DeductionRemoved{
		EventMeta: newMeta(EventTypeDeductionRemoved, t, now),
		Section:   section,
		Amount:    amount,
		Reason:    reason,
	}}, nil
}

// ChangeRegime switches regime type and drops every deduction the new regime
// does not permit. Switching to the current regime is a no-op.
func (t *Taxation) ChangeRegime(regimeType tax.RegimeType, reason string, now time.Time) ([]Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if regimeType == t.Regime.Type() {
		return nil, nil
	}
	next, err := t.Regime.WithType(regimeType)
	if err != nil {
		return nil, err
	}

	from := t.Regime.Type()
	t.Regime = next
	events := []Event{TaxRegimeChanged{
		EventMeta: newMeta(EventTypeRegimeChanged, t, now),
		From:      from,
		To:        regimeType,
		Reason:    reason,
	}}

	for _, section := range t.DeclaredSections() {
		if next.IsSectionAllowed(section) {
			continue
		}
		amount := t.Deductions[section]
		delete(t.Deductions, section)
		events = append(events, DeductionRemoved{
			EventMeta: newMeta(EventTypeDeductionRemoved, t, now),
			Section:   section,
			Amount:    amount,
			Reason:    fmt.Sprintf("not permitted under %s regime", regimeType),
		})
	}

	t.invalidate(now)
	return events, nil
}

// AddDeclared declares every section in declared that the record does not hold
// yet, in section order. A section the regime rejects is reported in rejected
// and does not stop the others.
func (t *Taxation) AddDeclared(declared map[tax.Section]money.Money, now time.Time) (events []Event, rejected map[tax.Section]error) {
	sections := lo.Keys(declared)
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })
	for _, section := range sections {
		if _, held := t.Deductions[section]; held {
			continue
		}
		added, err := t.AddDeduction(section, declared[section], now)
		if err != nil {
			if rejected == nil {
				rejected = make(map[tax.Section]error)
			}
			rejected[section] = err
			continue
		}
		events = append(events, added...)
	}
	return events, rejected
}

// SwitchRegime is ChangeRegime followed by declaring the sections in declared
// that the previous regime did not permit. Sections the previous regime
// allowed are left alone, so a deduction removed on purpose stays removed.
func (t *Taxation) SwitchRegime(regimeType tax.RegimeType, reason string, declared map[tax.Section]money.Money, now time.Time) (events []Event, rejected map[tax.Section]error, err error) {
	previous := t.Regime
	events, err = t.ChangeRegime(regimeType, reason, now)
	if err != nil || len(events) == 0 {
		return events, nil, err
	}
	restorable := lo.PickBy(declared, func(section tax.Section, _ money.Money) bool {
		return !previous.IsSectionAllowed(section)
	})
	restored, rejected := t.AddDeclared(restorable, now)
	return append(events, restored...), rejected, nil
}

// UpdateIncome replaces the income inputs. salary may be nil.
func (t *Taxation) UpdateIncome(grossAnnualSalary, otherIncome money.Money, salary *tax.SalaryIncome, now time.Time) ([]Event, error) {
	var errs validator.ValidationErrors
	if grossAnnualSalary.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "gross_annual_salary", Message: "must not be negative"})
	}
	if otherIncome.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "other_income", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if salary != nil {
		if err := salary.Validate(); err != nil {
			return nil, err
		}
	}

	t.GrossAnnualSalary = grossAnnualSalary
	t.OtherIncome = otherIncome
	t.Salary = salary
	t.invalidate(now)
	return []Event{IncomeUpdated{
		EventMeta:         newMeta(EventTypeIncomeUpdated, t, now),
		GrossAnnualSalary: grossAnnualSalary,
		OtherIncome:       otherIncome,
	}}, nil
}

// DeclaredSections lists declared sections in a stable order.
func (t *Taxation) DeclaredSections() []tax.Section {
	sections := lo.Keys(t.Deductions)
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })
	return sections
}

// AllowedDeductions is the total of declared deductions the regime accepts,
// with section and combined limits applied.
func (t *Taxation) AllowedDeductions() money.Money {
	allowed := make(map[tax.Section]money.Money)
	for _, section := range t.DeclaredSections() {
		if !t.Regime.IsSectionAllowed(section) {
			continue
		}
		amount := t.Deductions[section].ClampZero()
		if limit, ok := t.Regime.SectionCap(section); ok {
			amount = amount.Min(limit)
		}
		allowed[section] = amount
	}

	total := money.Sum(lo.Values(allowed)...)
	for _, combined := range t.Regime.CombinedCaps() {
		grouped := money.Zero()
		for _, section := range combined.Sections {
			grouped = grouped.Add(allowed[section])
		}
		if grouped.IsGreaterThan(combined.Limit) {
			total = total.Subtract(grouped.Subtract(combined.Limit))
		}
	}
	return total
}

// TaxableSalary uses the salary breakdown when present, otherwise the gross
// less the regime's standard deduction.
func (t *Taxation) TaxableSalary() money.Money {
	if t.Salary != nil {
		return t.Salary.TaxableSalary(t.Regime)
	}
	return t.GrossAnnualSalary.Subtract(t.Regime.StandardDeduction()).ClampZero()
}

func (t *Taxation) ComputeTaxableIncome() money.Money {
	return t.TaxableSalary().
		Add(t.OtherIncome).
		Subtract(t.AllowedDeductions()).
		ClampZero()
}

// CalculateTax derives the breakdown from the current inputs and caches it.
// Running it again without a mutation in between yields the same numbers.
func (t *Taxation) CalculateTax(now time.Time) (tax.Breakdown, []Event) {
	b := tax.CalculateTotalTaxLiability(t.ComputeTaxableIncome(), t.Regime)

	t.TaxableIncome = &b.TaxableIncome
	t.CalculatedTax = &b.IncomeTax
	t.SurchargeAmount = &b.Surcharge
	t.CessAmount = &b.Cess
	t.Rebate87A = &b.Rebate87A
	t.TotalTaxLiability = &b.TotalTaxLiability
	calculatedAt := now
	t.CalculatedAt = &calculatedAt
	t.UpdatedAt = now

	return b, []Event{TaxCalculated{
		EventMeta:         newMeta(EventTypeTaxCalculated, t, now),
		Regime:            b.RegimeType,
		TaxableIncome:     b.TaxableIncome,
		TotalTaxLiability: b.TotalTaxLiability,
	}}
}

// Clone copies the record so a failed attempt can be discarded.
func (t *Taxation) Clone() *Taxation {
	c := *t
	c.Deductions = make(map[tax.Section]money.Money, len(t.Deductions))
	for k, v := range t.Deductions {
		c.Deductions[k] = v
	}
	if t.Salary != nil {
		s := *t.Salary
		s.SpecificAllowances = append([]tax.SpecificAllowance(nil), t.Salary.SpecificAllowances...)
		c.Salary = &s
	}
	return &c
}

// CompareRegimes computes the liability under both regimes from the current
// inputs without touching t. Deductions the other regime forbids are dropped
// for its side of the comparison, and declared sections the record's regime
// forbids are brought in where the other regime allows them. declared may be nil.
func (t *Taxation) CompareRegimes(declared map[tax.Section]money.Money, now time.Time) (RegimeComparison, error) {
	results := make(map[tax.RegimeType]tax.Breakdown, 2)
	for _, regimeType := range []tax.RegimeType{tax.RegimeOld, tax.RegimeNew} {
		candidate := t.Clone()
		if _, _, err := candidate.SwitchRegime(regimeType, "regime comparison", declared, now); err != nil {
			return RegimeComparison{}, err
		}
		b, _ := candidate.CalculateTax(now)
		results[regimeType] = b
	}
	return Compare(t.EmployeeID, t.TaxYear, results[tax.RegimeOld], results[tax.RegimeNew]), nil
}
