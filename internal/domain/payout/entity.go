package payout

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Status enum
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
	StatusApproved  Status = "APPROVED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

var statusRank = map[Status]int{
	StatusPending:   0,
	StatusProcessed: 1,
	StatusApproved:  2,
	StatusPaid:      3,
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := statusRank[status]; ok || status == StatusCancelled {
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CanTransitionTo allows forward moves only. PAID must be reached from
// PROCESSED or APPROVED, and CANCELLED from any state except PAID.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusPaid || s == StatusCancelled {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok || to <= from {
		return false
	}
	if next == StatusPaid && s == StatusPending {
		return false
	}
	return true
}

// Earning and deduction keys besides the salary component names.
const (
	EarningOvertime = "overtime"

	DeductionEPF             = "epf"
	DeductionESI             = "esi"
	DeductionProfessionalTax = "professional_tax"
	DeductionTDS             = "tds"
)

// Payout - one employee's computed pay for one month
type Payout struct {
	ID         string
	EmployeeID string
	Month      int
	Year       int
	TaxYear    tax.TaxYear

	// BaseGross is the monthly gross before proration.
	BaseGross        money.Money
	EarningsDetail   map[string]money.Money
	DeductionsDetail map[string]money.Money
	GrossSalary      money.Money
	TotalDeductions  money.Money
	NetSalary        money.Money

	TotalDays      int
	WorkingDays    int
	LWPDays        decimal.Decimal
	OvertimeHours  decimal.Decimal
	EffectiveRatio decimal.Decimal

	Degraded        bool
	DegradedReasons []string

	Status      Status
	Notes       *string
	ProcessedAt *time.Time
	ApprovedAt  *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Totals recomputes gross, total deductions and net from the detail maps.
func (p *Payout) Totals() {
	p.GrossSalary = money.Sum(lo.Values(p.EarningsDetail)...)
	p.TotalDeductions = money.Sum(lo.Values(p.DeductionsDetail)...)
	p.NetSalary = p.GrossSalary.Subtract(p.TotalDeductions).ClampZero()
}

func (p *Payout) TDS() money.Money {
	return p.DeductionsDetail[DeductionTDS]
}

// Transition moves the payout to next and stamps the matching timestamp.
func (p *Payout) Transition(next Status, now time.Time) error {
	if p.Status == StatusPaid {
		return ErrPayoutAlreadyPaid
	}
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, p.Status, next)
	}

	stamp := now
	switch next {
	case StatusProcessed:
		p.ProcessedAt = &stamp
	case StatusApproved:
		p.ApprovedAt = &stamp
	case StatusPaid:
		p.PaidAt = &stamp
	case StatusCancelled:
		p.CancelledAt = &stamp
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

// Recalculable reports whether a forced recalculation may overwrite p.
func (p *Payout) Recalculable() error {
	switch p.Status {
	case StatusPaid:
		return ErrPayoutAlreadyPaid
	case StatusPending:
		return nil
	default:
		return fmt.Errorf("%w: cannot recalculate a %s payout", ErrInvalidStatusTransition, p.Status)
	}
}
