package attendance

import "context"

// AttendanceRepository stores monthly attendance summaries per employee.
type AttendanceRepository interface {
	// GetSummary returns ErrAttendanceNotFound when the month has no record.
	GetSummary(ctx context.Context, employeeID string, month, year int) (Summary, error)

	// UpsertSummary replaces the month's figures, creating the row if needed.
	UpsertSummary(ctx context.Context, summary Summary) (Summary, error)
}
