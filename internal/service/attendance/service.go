package attendance

import (
	"context"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
)

type AttendanceServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
}

func NewAttendanceService(attendanceRepo attendance.AttendanceRepository) attendance.AttendanceService {
	return &AttendanceServiceImpl{attendanceRepo: attendanceRepo}
}

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, employeeID string, month, year int) (attendance.Summary, error) {
	if !validator.IsValidEmployeeID(employeeID) {
		return attendance.Summary{}, validator.Single("employee_id", "employee_id is invalid")
	}
	if !validator.IsValidMonth(month) || year < 2000 || year > 2100 {
		return attendance.Summary{}, attendance.ErrInvalidPeriod
	}
	return a.attendanceRepo.GetSummary(ctx, employeeID, month, year)
}

// RecordSummary implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecordSummary(ctx context.Context, req attendance.RecordSummaryRequest) (attendance.SummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SummaryResponse{}, err
	}

	saved, err := a.attendanceRepo.UpsertSummary(ctx, req.ToSummary())
	if err != nil {
		return attendance.SummaryResponse{}, err
	}
	return attendance.ToSummaryResponse(saved), nil
}
