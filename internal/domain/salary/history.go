package salary

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
)

// HistoryEnd is the open upper bound used when the whole change history is read.
var HistoryEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// StructureInForce resolves the salary that applied on the given day from the
// change history. The latest change effective on or before that day wins, with
// the later-recorded change winning a same-day tie. When every change is dated
// after the day, the earliest one's previous snapshot is used. current is the
// last resort.
func StructureInForce(current *SalaryStructure, changes []SalaryChange, on time.Time) (SalaryStructure, error) {
	day := tax.DateOnly(on)
	sorted := append([]SalaryChange(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := tax.DateOnly(sorted[i].EffectiveDate), tax.DateOnly(sorted[j].EffectiveDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var inForce *SalaryChange
	for i := range sorted {
		if tax.DateOnly(sorted[i].EffectiveDate).After(day) {
			break
		}
		inForce = &sorted[i]
	}
	if inForce != nil {
		return inForce.New, nil
	}

	if len(sorted) > 0 && sorted[0].Previous != nil {
		return *sorted[0].Previous, nil
	}
	if current != nil {
		return *current, nil
	}
	return SalaryStructure{}, ErrSalaryStructureNotFound
}
