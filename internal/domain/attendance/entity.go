package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary - one employee's attendance for one calendar month, as payroll sees it
type Summary struct {
	EmployeeID string
	Month      int
	Year       int
	// TotalDays is the number of calendar days in the month.
	TotalDays int
	// WorkingDays counts the payable days the employee was on the rolls,
	// weekly offs and holidays included. A full month equals TotalDays.
	WorkingDays   int
	LWPDays       decimal.Decimal
	OvertimeHours decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullMonth is the attendance assumed when no record can be read: every day
// payable and no leave without pay.
func FullMonth(employeeID string, month, year int) Summary {
	days := daysInMonth(month, year)
	return Summary{
		EmployeeID:    employeeID,
		Month:         month,
		Year:          year,
		TotalDays:     days,
		WorkingDays:   days,
		LWPDays:       decimal.Zero,
		OvertimeHours: decimal.Zero,
	}
}

// EffectiveWorkingRatio is (working days - LWP days) / calendar days, kept
// within [0, 1]. It never exceeds one, so proration cannot inflate pay.
func (s Summary) EffectiveWorkingRatio() decimal.Decimal {
	if s.TotalDays <= 0 {
		return decimal.NewFromInt(1)
	}
	paid := decimal.NewFromInt(int64(s.WorkingDays)).Sub(s.LWPDays)
	ratio := paid.Div(decimal.NewFromInt(int64(s.TotalDays)))
	if ratio.IsNegative() {
		return decimal.Zero
	}
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return ratio
}

// PayableDays is WorkingDays less LWP, floored at zero.
func (s Summary) PayableDays() decimal.Decimal {
	return decimal.Max(decimal.NewFromInt(int64(s.WorkingDays)).Sub(s.LWPDays), decimal.Zero)
}

func daysInMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
