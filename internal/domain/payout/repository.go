package payout

import "context"

// PayoutRepository stores one payout per (employee_id, month, year).
type PayoutRepository interface {
	// Create returns ErrPayoutAlreadyExists when the period already has a payout.
	Create(ctx context.Context, p Payout) (Payout, error)
	GetByID(ctx context.Context, id string) (Payout, error)
	GetByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (Payout, error)
	List(ctx context.Context, filter PayoutFilter) ([]Payout, int64, error)

	// Replace overwrites the computed figures of an existing PENDING payout.
	Replace(ctx context.Context, p Payout) (Payout, error)
	// UpdateStatus persists the status, notes and lifecycle timestamps.
	UpdateStatus(ctx context.Context, p Payout) error
}
