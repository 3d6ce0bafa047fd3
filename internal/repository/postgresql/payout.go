package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payoutRepository struct {
	db *database.DB
}

func NewPayoutRepository(db *database.DB) payout.PayoutRepository {
	return &payoutRepository{db: db}
}

const payoutColumns = `
	id, employee_id, period_month, period_year, tax_year, base_gross,
	earnings_detail, deductions_detail, gross_salary, total_deductions, net_salary,
	total_days, working_days, lwp_days, overtime_hours, effective_ratio,
	degraded, degraded_reasons, status, notes,
	processed_at, approved_at, paid_at, cancelled_at, created_at, updated_at
`

func scanPayout(row pgx.Row) (payout.Payout, error) {
	var p payout.Payout
	var taxYear string
	var earningsBytes, deductionsBytes []byte
	err := row.Scan(
		&p.ID, &p.EmployeeID, &p.Month, &p.Year, &taxYear, &p.BaseGross,
		&earningsBytes, &deductionsBytes, &p.GrossSalary, &p.TotalDeductions, &p.NetSalary,
		&p.TotalDays, &p.WorkingDays, &p.LWPDays, &p.OvertimeHours, &p.EffectiveRatio,
		&p.Degraded, &p.DegradedReasons, &p.Status, &p.Notes,
		&p.ProcessedAt, &p.ApprovedAt, &p.PaidAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payout.Payout{}, err
	}

	year, err := tax.ParseTaxYear(taxYear)
	if err != nil {
		return payout.Payout{}, fmt.Errorf("stored tax year %q: %w", taxYear, err)
	}
	p.TaxYear = year
	if err := json.Unmarshal(earningsBytes, &p.EarningsDetail); err != nil {
		return payout.Payout{}, fmt.Errorf("decode earnings detail: %w", err)
	}
	if err := json.Unmarshal(deductionsBytes, &p.DeductionsDetail); err != nil {
		return payout.Payout{}, fmt.Errorf("decode deductions detail: %w", err)
	}
	return p, nil
}

func (r *payoutRepository) Create(ctx context.Context, p payout.Payout) (payout.Payout, error) {
	q := GetQuerier(ctx, r.db)

	earningsJSON, err := json.Marshal(p.EarningsDetail)
	if err != nil {
		return payout.Payout{}, fmt.Errorf("encode earnings detail: %w", err)
	}
	deductionsJSON, err := json.Marshal(p.DeductionsDetail)
	if err != nil {
		return payout.Payout{}, fmt.Errorf("encode deductions detail: %w", err)
	}

	query := `
		INSERT INTO payouts (
			id, employee_id, period_month, period_year, tax_year, base_gross,
			earnings_detail, deductions_detail, gross_salary, total_deductions, net_salary,
			total_days, working_days, lwp_days, overtime_hours, effective_ratio,
			degraded, degraded_reasons, status, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING ` + payoutColumns

	created, err := scanPayout(q.QueryRow(ctx, query,
		p.ID, p.EmployeeID, p.Month, p.Year, p.TaxYear.String(), p.BaseGross,
		earningsJSON, deductionsJSON, p.GrossSalary, p.TotalDeductions, p.NetSalary,
		p.TotalDays, p.WorkingDays, p.LWPDays, p.OvertimeHours, p.EffectiveRatio,
		p.Degraded, p.DegradedReasons, p.Status, p.Notes,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payouts_employee_period") {
			return payout.Payout{}, payout.ErrPayoutAlreadyExists
		}
		return payout.Payout{}, fmt.Errorf("failed to create payout: %w", err)
	}

	return created, nil
}

func (r *payoutRepository) GetByID(ctx context.Context, id string) (payout.Payout, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`

	p, err := scanPayout(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payout.Payout{}, payout.ErrPayoutNotFound
		}
		return payout.Payout{}, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

func (r *payoutRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (payout.Payout, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE employee_id = $1 AND period_month = $2 AND period_year = $3
	`

	p, err := scanPayout(q.QueryRow(ctx, query, employeeID, month, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payout.Payout{}, payout.ErrPayoutNotFound
		}
		return payout.Payout{}, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}

func (r *payoutRepository) List(ctx context.Context, filter payout.PayoutFilter) ([]payout.Payout, int64, error) {
	q := GetQuerier(ctx, r.db)
	filter.Normalize()

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.Month != nil {
		conditions = append(conditions, fmt.Sprintf("period_month = $%d", argIdx))
		args = append(args, *filter.Month)
		argIdx++
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("period_year = $%d", argIdx))
		args = append(args, *filter.Year)
		argIdx++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	where := strings.Join(conditions, " AND ")

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payouts WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM payouts
		WHERE %s
		ORDER BY period_year DESC, period_month DESC, employee_id ASC
		LIMIT $%d OFFSET $%d
	`, payoutColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []payout.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payouts: %w", err)
	}

	return payouts, totalCount, nil
}

func (r *payoutRepository) Replace(ctx context.Context, p payout.Payout) (payout.Payout, error) {
	q := GetQuerier(ctx, r.db)

	earningsJSON, err := json.Marshal(p.EarningsDetail)
	if err != nil {
		return payout.Payout{}, fmt.Errorf("encode earnings detail: %w", err)
	}
	deductionsJSON, err := json.Marshal(p.DeductionsDetail)
	if err != nil {
		return payout.Payout{}, fmt.Errorf("encode deductions detail: %w", err)
	}

	query := `
		UPDATE payouts SET
			base_gross = $2, earnings_detail = $3, deductions_detail = $4,
			gross_salary = $5, total_deductions = $6, net_salary = $7,
			total_days = $8, working_days = $9, lwp_days = $10, overtime_hours = $11,
			effective_ratio = $12, degraded = $13, degraded_reasons = $14,
			updated_at = NOW()
		WHERE id = $1 AND status = $15
		RETURNING ` + payoutColumns

	updated, err := scanPayout(q.QueryRow(ctx, query,
		p.ID, p.BaseGross, earningsJSON, deductionsJSON,
		p.GrossSalary, p.TotalDeductions, p.NetSalary,
		p.TotalDays, p.WorkingDays, p.LWPDays, p.OvertimeHours,
		p.EffectiveRatio, p.Degraded, p.DegradedReasons,
		payout.StatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payout.Payout{}, fmt.Errorf("%w: payout %s is no longer pending", payout.ErrInvalidStatusTransition, p.ID)
		}
		return payout.Payout{}, fmt.Errorf("failed to replace payout: %w", err)
	}
	return updated, nil
}

func (r *payoutRepository) UpdateStatus(ctx context.Context, p payout.Payout) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payouts SET
			status = $2, notes = $3,
			processed_at = $4, approved_at = $5, paid_at = $6, cancelled_at = $7,
			updated_at = NOW()
		WHERE id = $1 AND status <> $8
	`

	tag, err := q.Exec(ctx, query,
		p.ID, p.Status, p.Notes,
		p.ProcessedAt, p.ApprovedAt, p.PaidAt, p.CancelledAt,
		payout.StatusPaid,
	)
	if err != nil {
		return fmt.Errorf("failed to update payout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payout.ErrPayoutAlreadyPaid
	}
	return nil
}
