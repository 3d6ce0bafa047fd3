package salary

import "errors"

var (
	ErrSalaryStructureNotFound = errors.New("salary structure not found")
	ErrEmployeeNotFound        = errors.New("employee not found")
	ErrNoSalaryOnRecord        = errors.New("no salary structure or salary change on record for this tax year")
	ErrSalaryChangeNotFound    = errors.New("salary change not found")
)
