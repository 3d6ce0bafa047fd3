package taxation

import (
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/google/uuid"
)

const (
	AggregateType = "taxation"
	EventsTopic   = "payroll.taxation.events.v1"
)

const (
	EventTypeDeductionAdded   = "taxation.deduction_added"
	EventTypeDeductionRemoved = "taxation.deduction_removed"
	EventTypeRegimeChanged    = "taxation.regime_changed"
	EventTypeTaxCalculated    = "taxation.tax_calculated"
	EventTypeIncomeUpdated    = "taxation.income_updated"
)

// Event is returned by every mutating operation on a Taxation; callers hand it
// to the outbox instead of the aggregate keeping a list of its own.
type Event interface {
	EventType() string
	Meta() EventMeta
}

type EventMeta struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"event_type"`
	EmployeeID string    `json:"employee_id"`
	TaxYear    string    `json:"tax_year"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (m EventMeta) EventType() string { return m.Type }
func (m EventMeta) Meta() EventMeta   { return m }

// AggregateKey is the partition key used when events leave the service.
func (m EventMeta) AggregateKey() string {
	return m.EmployeeID + ":" + m.TaxYear
}

func newMeta(eventType string, t *Taxation, now time.Time) EventMeta {
	return EventMeta{
		EventID:    uuid.NewString(),
		Type:       eventType,
		EmployeeID: t.EmployeeID,
		TaxYear:    t.TaxYear.String(),
		OccurredAt: now.UTC(),
	}
}

type DeductionAdded struct {
	EventMeta
	Section  tax.Section  `json:"section"`
	Amount   money.Money  `json:"amount"`
	Previous *money.Money `json:"previous,omitempty"`
}

type DeductionRemoved struct {
	EventMeta
	Section tax.Section `json:"section"`
	Amount  money.Money `json:"amount"`
	Reason  string      `json:"reason"`
}

type TaxRegimeChanged struct {
	EventMeta
	From   tax.RegimeType `json:"from"`
	To     tax.RegimeType `json:"to"`
	Reason string         `json:"reason"`
}

type TaxCalculated struct {
	EventMeta
	Regime            tax.RegimeType `json:"regime"`
	TaxableIncome     money.Money    `json:"taxable_income"`
	TotalTaxLiability money.Money    `json:"total_tax_liability"`
}

type IncomeUpdated struct {
	EventMeta
	GrossAnnualSalary money.Money `json:"gross_annual_salary"`
	OtherIncome       money.Money `json:"other_income"`
}
