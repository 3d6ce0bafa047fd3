package payout

import "errors"

var (
	ErrPayoutNotFound          = errors.New("payout not found")
	ErrPayoutAlreadyExists     = errors.New("payout already exists for this period")
	ErrPayoutAlreadyPaid       = errors.New("payout already paid, cannot modify")
	ErrInvalidStatusTransition = errors.New("invalid payout status transition")
	ErrInvalidPeriod           = errors.New("invalid payout period")
	ErrInvalidStatus           = errors.New("invalid payout status")
)
