package salary

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
)

type SalaryRepository interface {
	// Current structure
	GetCurrentStructure(ctx context.Context, employeeID string) (SalaryStructure, error)
	UpsertStructure(ctx context.Context, structure SalaryStructure) (SalaryStructure, error)

	// Change history, oldest first
	CreateChange(ctx context.Context, change SalaryChange) (SalaryChange, error)
	ListChanges(ctx context.Context, employeeID string, from, to time.Time) ([]SalaryChange, error)

	// Employee attributes and declared investments
	GetEmployeeProfile(ctx context.Context, employeeID string) (EmployeeProfile, error)
	ListDeclarations(ctx context.Context, employeeID string, year tax.TaxYear) ([]Declaration, error)
}
