package payout

import "context"

type PayoutService interface {
	// CalculatePayout returns the stored payout for the period unless
	// ForceRecalculate is set; otherwise it computes and stores a new one.
	CalculatePayout(ctx context.Context, req CalculatePayoutRequest) (PayoutResult, error)
	GetPayout(ctx context.Context, employeeID string, month, year int) (PayoutResponse, error)
	ListPayouts(ctx context.Context, filter PayoutFilter) (ListPayoutResponse, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (PayoutResponse, error)
}
