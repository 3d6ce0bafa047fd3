package attendance

import "context"

// AttendanceService exposes monthly attendance to payroll and to the HR team
// that records it.
type AttendanceService interface {
	// GetAttendance returns total, working and LWP days plus overtime hours.
	GetAttendance(ctx context.Context, employeeID string, month, year int) (Summary, error)

	// RecordSummary validates and stores a month's attendance.
	RecordSummary(ctx context.Context, req RecordSummaryRequest) (SummaryResponse, error)
}
