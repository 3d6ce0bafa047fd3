package taxation

import "errors"

var (
	ErrTaxationNotFound  = errors.New("taxation record not found")
	ErrTaxationExists    = errors.New("taxation record already exists for this tax year")
	ErrDeductionNotFound = errors.New("deduction not declared for this section")
	ErrVersionConflict   = errors.New("taxation record was modified concurrently")
	ErrReasonRequired    = errors.New("a reason is required to change the tax regime")
	ErrNotCalculated     = errors.New("tax has not been calculated since the last change")
	ErrRecalcInProgress  = errors.New("a recalculation for this employee and tax year is already running")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrNoSalaryOnRecord  = errors.New("employee has no salary on record")
)
