package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttendanceNotFound = errors.New("attendance summary not found for this period")
	ErrInvalidPeriod      = errors.New("invalid attendance period")
)
