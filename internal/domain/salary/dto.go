package salary

import (
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

type RecordSalaryChangeRequest struct {
	EmployeeID    string          `json:"employee_id"`
	EffectiveDate string          `json:"effective_date"`
	Salary        SalaryStructure `json:"salary"`
	Reason        string          `json:"reason"`
	ApprovedBy    *string         `json:"approved_by,omitempty"`
}

func (r *RecordSalaryChangeRequest) Validate() (time.Time, error) {
	var errs validator.ValidationErrors

	if !validator.IsValidEmployeeID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is invalid"})
	}
	effective, ok := validator.IsValidDate(r.EffectiveDate)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "effective_date", Message: "must be in YYYY-MM-DD format"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "is required"})
	}
	if err := r.Salary.Validate(); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range verrs {
				errs = append(errs, validator.ValidationError{Field: "salary." + e.Field, Message: e.Message})
			}
		}
	}

	if len(errs) > 0 {
		return time.Time{}, errs
	}
	return effective, nil
}

type SalaryChangeResponse struct {
	ID            string           `json:"id"`
	EmployeeID    string           `json:"employee_id"`
	EffectiveDate string           `json:"effective_date"`
	Previous      *SalaryStructure `json:"previous,omitempty"`
	New           SalaryStructure  `json:"new"`
	Reason        string           `json:"reason"`
	ApprovedBy    *string          `json:"approved_by,omitempty"`
	// Reprojected is false when the tax recalculation after the change failed;
	// the change itself is stored either way.
	Reprojected bool `json:"reprojected"`
}

func ToChangeResponse(c SalaryChange) SalaryChangeResponse {
	return SalaryChangeResponse{
		ID:            c.ID,
		EmployeeID:    c.EmployeeID,
		EffectiveDate: c.EffectiveDate.Format("2006-01-02"),
		Previous:      c.Previous,
		New:           c.New,
		Reason:        c.Reason,
		ApprovedBy:    c.ApprovedBy,
	}
}
