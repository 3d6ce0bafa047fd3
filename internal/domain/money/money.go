package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used whenever a Money is built without an explicit currency.
const DefaultCurrency = "INR"

var (
	ErrDivisionByZero   = errors.New("division by zero")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidAmount    = errors.New("invalid money amount")
)

var hundred = decimal.NewFromInt(100)

// Money is an immutable decimal amount tagged with a currency.
// The zero value is a valid zero amount in DefaultCurrency.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func New(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: DefaultCurrency}
}

func NewWithCurrency(amount decimal.Decimal, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: amount, currency: currency}
}

func FromInt(amount int64) Money {
	return New(decimal.NewFromInt(amount))
}

// FromString parses a decimal string such as "150000" or "1234.50".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d), nil
}

// MustParse is FromString for package-level tables and tests.
func MustParse(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero() Money {
	return Money{amount: decimal.Zero, currency: DefaultCurrency}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() string {
	if m.currency == "" {
		return DefaultCurrency
	}
	return m.currency
}

func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	return Money{amount: m.amount.Add(other.amount), currency: m.Currency()}
}

// Subtract may return a negative amount; callers clamp with Max(Zero()) where a
// negative result is not meaningful.
func (m Money) Subtract(other Money) Money {
	m.mustMatch(other)
	return Money{amount: m.amount.Sub(other.amount), currency: m.Currency()}
}

func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.Currency()}
}

func (m Money) MultiplyInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return Money{amount: m.amount.Div(divisor), currency: m.Currency()}, nil
}

func (m Money) DivideInt(divisor int64) (Money, error) {
	return m.Divide(decimal.NewFromInt(divisor))
}

// Percentage returns pct percent of m, e.g. Percentage(12) is 12% of m.
func (m Money) Percentage(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred), currency: m.Currency()}
}

func (m Money) Min(other Money) Money {
	m.mustMatch(other)
	if other.amount.LessThan(m.amount) {
		return Money{amount: other.amount, currency: m.Currency()}
	}
	return Money{amount: m.amount, currency: m.Currency()}
}

func (m Money) Max(other Money) Money {
	m.mustMatch(other)
	if other.amount.GreaterThan(m.amount) {
		return Money{amount: other.amount, currency: m.Currency()}
	}
	return Money{amount: m.amount, currency: m.Currency()}
}

// ClampZero is shorthand for Max(Zero()).
func (m Money) ClampZero() Money {
	return m.Max(NewWithCurrency(decimal.Zero, m.Currency()))
}

// Round rounds half away from zero to the given number of decimal places.
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.Currency()}
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsGreaterThan(other Money) bool {
	m.mustMatch(other)
	return m.amount.GreaterThan(other.amount)
}

func (m Money) IsLessThan(other Money) bool {
	m.mustMatch(other)
	return m.amount.LessThan(other.amount)
}

func (m Money) Equal(other Money) bool {
	return m.Currency() == other.Currency() && m.amount.Equal(other.amount)
}

func (m Money) Cmp(other Money) int {
	m.mustMatch(other)
	return m.amount.Cmp(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.Currency()
}

// MarshalJSON encodes only the amount; the currency is implied by the service.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.amount.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
	}
	m.amount = d
	m.currency = DefaultCurrency
	return nil
}

// Scan lets pgx read NUMERIC columns straight into Money.
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.amount = d
	m.currency = DefaultCurrency
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.amount.Value()
}

func (m Money) mustMatch(other Money) {
	if m.Currency() != other.Currency() {
		panic(fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency(), other.Currency()))
	}
}

// MinOf returns the smallest of the candidates.
func MinOf(first Money, rest ...Money) Money {
	least := first
	for _, c := range rest {
		least = least.Min(c)
	}
	return least
}

func MaxOf(first Money, rest ...Money) Money {
	most := first
	for _, c := range rest {
		most = most.Max(c)
	}
	return most
}

func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
