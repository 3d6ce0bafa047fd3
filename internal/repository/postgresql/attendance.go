package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) GetSummary(ctx context.Context, employeeID string, month, year int) (attendance.Summary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, period_month, period_year, total_days, working_days,
			   lwp_days, overtime_hours, created_at, updated_at
		FROM attendance_summaries
		WHERE employee_id = $1 AND period_month = $2 AND period_year = $3
	`

	var s attendance.Summary
	err := q.QueryRow(ctx, query, employeeID, month, year).Scan(
		&s.EmployeeID, &s.Month, &s.Year, &s.TotalDays, &s.WorkingDays,
		&s.LWPDays, &s.OvertimeHours, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Summary{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Summary{}, fmt.Errorf("failed to get attendance summary: %w", err)
	}
	return s, nil
}

func (r *attendanceRepository) UpsertSummary(ctx context.Context, summary attendance.Summary) (attendance.Summary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_summaries (
			employee_id, period_month, period_year, total_days, working_days, lwp_days, overtime_hours
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, period_month, period_year) DO UPDATE SET
			total_days = EXCLUDED.total_days,
			working_days = EXCLUDED.working_days,
			lwp_days = EXCLUDED.lwp_days,
			overtime_hours = EXCLUDED.overtime_hours,
			updated_at = NOW()
		RETURNING employee_id, period_month, period_year, total_days, working_days,
			lwp_days, overtime_hours, created_at, updated_at
	`

	var s attendance.Summary
	err := q.QueryRow(ctx, query,
		summary.EmployeeID, summary.Month, summary.Year, summary.TotalDays, summary.WorkingDays,
		summary.LWPDays, summary.OvertimeHours,
	).Scan(
		&s.EmployeeID, &s.Month, &s.Year, &s.TotalDays, &s.WorkingDays,
		&s.LWPDays, &s.OvertimeHours, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to upsert attendance summary: %w", err)
	}
	return s, nil
}
