package salary

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ProjectionPeriod is a run of days during which one salary structure applied.
type ProjectionPeriod struct {
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Days        int             `json:"days"`
	Ratio       decimal.Decimal `json:"ratio"`
	Structure   SalaryStructure `json:"structure"`
	AnnualGross money.Money     `json:"annual_gross"`
}

// SalaryProjection is the time-weighted annual salary for a tax year.
type SalaryProjection struct {
	EmployeeID           string             `json:"employee_id"`
	TaxYear              string             `json:"tax_year"`
	TotalDays            int                `json:"total_days"`
	Periods              []ProjectionPeriod `json:"periods"`
	ProjectedAnnualGross money.Money        `json:"projected_annual_gross"`
	// Annual is the weighted annual amount of each component.
	Annual      SalaryStructure `json:"annual"`
	FromChanges bool            `json:"from_changes"`
}

// Project weights each salary structure by the share of the tax year it was in
// force. Changes dated outside the year are ignored. Without any change in the
// year the current structure is annualised as monthly x 12.
//
// Days before the first change in the year use that change's previous snapshot,
// falling back to current and then to the change itself.
func Project(employeeID string, year tax.TaxYear, current *SalaryStructure, changes []SalaryChange) (SalaryProjection, error) {
	totalDays := year.Days()
	projection := SalaryProjection{
		EmployeeID: employeeID,
		TaxYear:    year.String(),
		TotalDays:  totalDays,
	}

	inYear := lo.Filter(changes, func(c SalaryChange, _ int) bool {
		return year.Contains(c.EffectiveDate)
	})
	sort.SliceStable(inYear, func(i, j int) bool {
		di, dj := tax.DateOnly(inYear[i].EffectiveDate), tax.DateOnly(inYear[j].EffectiveDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return inYear[i].CreatedAt.Before(inYear[j].CreatedAt)
	})

	if len(inYear) == 0 {
		if current == nil {
			return SalaryProjection{}, ErrNoSalaryOnRecord
		}
		annual := current.Scale(decimal.NewFromInt(12))
		projection.Periods = []ProjectionPeriod{{
			Start:       year.Start(),
			End:         year.End(),
			Days:        totalDays,
			Ratio:       decimal.NewFromInt(1),
			Structure:   *current,
			AnnualGross: current.AnnualGross(),
		}}
		projection.Annual = annual
		projection.ProjectedAnnualGross = annual.MonthlyGross()
		return projection, nil
	}

	type segment struct {
		start     time.Time
		structure SalaryStructure
	}
	var segments []segment

	first := inYear[0]
	if tax.DateOnly(first.EffectiveDate).After(year.Start()) {
		lead := first.New
		switch {
		case first.Previous != nil:
			lead = *first.Previous
		case current != nil:
			lead = *current
		}
		segments = append(segments, segment{start: year.Start(), structure: lead})
	}
	for _, c := range inYear {
		segments = append(segments, segment{start: tax.DateOnly(c.EffectiveDate), structure: c.New})
	}

	total := decimal.NewFromInt(int64(totalDays))
	weighted := SalaryStructure{}
	for i, seg := range segments {
		end := year.End()
		if i+1 < len(segments) {
			end = segments[i+1].start.AddDate(0, 0, -1)
		}
		days := tax.DaysBetweenInclusive(seg.start, end)
		if days == 0 {
			// superseded by a later change on the same day
			continue
		}
		annual := seg.structure.Scale(decimal.NewFromInt(12))
		weighted = weighted.add(annual.Scale(decimal.NewFromInt(int64(days))))

		projection.Periods = append(projection.Periods, ProjectionPeriod{
			Start:       seg.start,
			End:         end,
			Days:        days,
			Ratio:       decimal.NewFromInt(int64(days)).Div(total),
			Structure:   seg.structure,
			AnnualGross: seg.structure.AnnualGross(),
		})
	}

	lastStructure := segments[len(segments)-1].structure
	projection.Annual = weighted.Scale(decimal.NewFromInt(1).Div(total)).round(2)
	projection.Annual.CityType = lastStructure.CityType
	projection.Annual.EmployeeID = employeeID
	gross, err := weighted.MonthlyGross().Divide(total)
	if err != nil {
		return SalaryProjection{}, err
	}
	projection.ProjectedAnnualGross = gross.Round(2)
	projection.FromChanges = true
	return projection, nil
}

// PeriodDays sums the days covered by all periods.
func (p SalaryProjection) PeriodDays() int {
	return lo.SumBy(p.Periods, func(period ProjectionPeriod) int { return period.Days })
}
