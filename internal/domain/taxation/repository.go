package taxation

import (
	"context"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
)

// TaxationRepository loads and saves Taxation aggregates by (employee_id, tax_year).
type TaxationRepository interface {
	GetByKey(ctx context.Context, employeeID string, year tax.TaxYear) (*Taxation, error)
	// Create stores a new record with version 1. Returns ErrTaxationExists on a duplicate key.
	Create(ctx context.Context, t *Taxation) error
	// Update saves t only if the stored version still equals t.Version, then
	// increments it. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, t *Taxation) error
	Delete(ctx context.Context, employeeID string, year tax.TaxYear) error
}
