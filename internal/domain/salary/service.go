package salary

import "context"

type SalaryService interface {
	RecordSalaryChange(ctx context.Context, req RecordSalaryChangeRequest) (SalaryChangeResponse, error)
	GetProjection(ctx context.Context, employeeID, taxYear string) (SalaryProjection, error)
}
