package tax

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

// TaxYear is an Indian financial year running April 1 to March 31, labelled "YYYY-YY".
type TaxYear struct {
	StartYear int
}

// ParseTaxYear validates the "YYYY-YY" label.
func ParseTaxYear(s string) (TaxYear, error) {
	start, ok := validator.IsValidTaxYear(s)
	if !ok {
		return TaxYear{}, validator.Single("tax_year", "must be in YYYY-YY format with consecutive years")
	}
	return TaxYear{StartYear: start}, nil
}

// TaxYearFor returns the financial year that contains the given calendar month.
func TaxYearFor(month time.Month, year int) TaxYear {
	if month >= time.April {
		return TaxYear{StartYear: year}
	}
	return TaxYear{StartYear: year - 1}
}

func (y TaxYear) String() string {
	return fmt.Sprintf("%04d-%02d", y.StartYear, (y.StartYear+1)%100)
}

func (y TaxYear) IsZero() bool {
	return y.StartYear == 0
}

// Start is April 1 of the start year, UTC midnight.
func (y TaxYear) Start() time.Time {
	return time.Date(y.StartYear, time.April, 1, 0, 0, 0, 0, time.UTC)
}

// End is March 31 of the following year, UTC midnight.
func (y TaxYear) End() time.Time {
	return time.Date(y.StartYear+1, time.March, 31, 0, 0, 0, 0, time.UTC)
}

// Days is 366 when the February inside the year is a leap February.
func (y TaxYear) Days() int {
	return DaysBetweenInclusive(y.Start(), y.End())
}

// Contains reports whether the date (compared by calendar day) lies inside the year.
func (y TaxYear) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(y.Start()) && !d.After(y.End())
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetweenInclusive counts calendar days from start to end, both included.
func DaysBetweenInclusive(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
