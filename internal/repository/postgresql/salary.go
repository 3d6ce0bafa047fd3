package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type salaryRepository struct {
	db *database.DB
}

func NewSalaryRepository(db *database.DB) salary.SalaryRepository {
	return &salaryRepository{db: db}
}

const structureColumns = `
	id, employee_id, basic, dearness_allowance, hra, special_allowance,
	conveyance_allowance, medical_allowance, lta, other_allowances,
	city_type, monthly_rent, effective_from, created_at, updated_at
`

func scanStructure(row pgx.Row) (salary.SalaryStructure, error) {
	var s salary.SalaryStructure
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.Basic, &s.DearnessAllowance, &s.HRA, &s.SpecialAllowance,
		&s.ConveyanceAllowance, &s.MedicalAllowance, &s.LTA, &s.OtherAllowances,
		&s.CityType, &s.MonthlyRent, &s.EffectiveFrom, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// ========== STRUCTURES ==========

func (r *salaryRepository) GetCurrentStructure(ctx context.Context, employeeID string) (salary.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + structureColumns + ` FROM salary_structures WHERE employee_id = $1`

	s, err := scanStructure(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.SalaryStructure{}, salary.ErrSalaryStructureNotFound
		}
		return salary.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}
	return s, nil
}

func (r *salaryRepository) UpsertStructure(ctx context.Context, structure salary.SalaryStructure) (salary.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO salary_structures (
			employee_id, basic, dearness_allowance, hra, special_allowance,
			conveyance_allowance, medical_allowance, lta, other_allowances,
			city_type, monthly_rent, effective_from
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (employee_id) DO UPDATE SET
			basic = EXCLUDED.basic,
			dearness_allowance = EXCLUDED.dearness_allowance,
			hra = EXCLUDED.hra,
			special_allowance = EXCLUDED.special_allowance,
			conveyance_allowance = EXCLUDED.conveyance_allowance,
			medical_allowance = EXCLUDED.medical_allowance,
			lta = EXCLUDED.lta,
			other_allowances = EXCLUDED.other_allowances,
			city_type = EXCLUDED.city_type,
			monthly_rent = EXCLUDED.monthly_rent,
			effective_from = EXCLUDED.effective_from,
			updated_at = NOW()
		RETURNING ` + structureColumns

	s, err := scanStructure(q.QueryRow(ctx, query,
		structure.EmployeeID, structure.Basic, structure.DearnessAllowance, structure.HRA, structure.SpecialAllowance,
		structure.ConveyanceAllowance, structure.MedicalAllowance, structure.LTA, structure.OtherAllowances,
		structure.CityType, structure.MonthlyRent, structure.EffectiveFrom,
	))
	if err != nil {
		return salary.SalaryStructure{}, fmt.Errorf("failed to upsert salary structure: %w", err)
	}
	return s, nil
}

// ========== CHANGES ==========

func (r *salaryRepository) CreateChange(ctx context.Context, change salary.SalaryChange) (salary.SalaryChange, error) {
	q := GetQuerier(ctx, r.db)

	var previousJSON []byte
	if change.Previous != nil {
		b, err := json.Marshal(change.Previous)
		if err != nil {
			return salary.SalaryChange{}, fmt.Errorf("encode previous salary: %w", err)
		}
		previousJSON = b
	}
	newJSON, err := json.Marshal(change.New)
	if err != nil {
		return salary.SalaryChange{}, fmt.Errorf("encode new salary: %w", err)
	}

	query := `
		INSERT INTO salary_changes (
			id, employee_id, effective_date, previous_salary, new_salary, reason, approved_by, approved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err = q.QueryRow(ctx, query,
		change.ID, change.EmployeeID, change.EffectiveDate, previousJSON, newJSON,
		change.Reason, change.ApprovedBy, change.ApprovedAt,
	).Scan(&change.CreatedAt)
	if err != nil {
		return salary.SalaryChange{}, fmt.Errorf("failed to create salary change: %w", err)
	}
	return change, nil
}

func (r *salaryRepository) ListChanges(ctx context.Context, employeeID string, from, to time.Time) ([]salary.SalaryChange, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, effective_date, previous_salary, new_salary,
			   reason, approved_by, approved_at, created_at
		FROM salary_changes
		WHERE employee_id = $1 AND effective_date BETWEEN $2 AND $3
		ORDER BY effective_date ASC, created_at ASC
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary changes: %w", err)
	}
	defer rows.Close()

	var changes []salary.SalaryChange
	for rows.Next() {
		var c salary.SalaryChange
		var previousBytes, newBytes []byte
		if err := rows.Scan(
			&c.ID, &c.EmployeeID, &c.EffectiveDate, &previousBytes, &newBytes,
			&c.Reason, &c.ApprovedBy, &c.ApprovedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan salary change: %w", err)
		}
		if len(previousBytes) > 0 {
			var prev salary.SalaryStructure
			if err := json.Unmarshal(previousBytes, &prev); err != nil {
				return nil, fmt.Errorf("decode previous salary: %w", err)
			}
			c.Previous = &prev
		}
		if err := json.Unmarshal(newBytes, &c.New); err != nil {
			return nil, fmt.Errorf("decode new salary: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary changes: %w", err)
	}

	return changes, nil
}

// ========== EMPLOYEES & DECLARATIONS ==========

func (r *salaryRepository) GetEmployeeProfile(ctx context.Context, employeeID string) (salary.EmployeeProfile, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, full_name, date_of_birth, is_government, preferred_regime
		FROM employee_profiles
		WHERE employee_id = $1
	`

	var p salary.EmployeeProfile
	var preferred *string
	err := q.QueryRow(ctx, query, employeeID).Scan(
		&p.EmployeeID, &p.FullName, &p.DateOfBirth, &p.IsGovernment, &preferred,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.EmployeeProfile{}, salary.ErrEmployeeNotFound
		}
		return salary.EmployeeProfile{}, fmt.Errorf("failed to get employee profile: %w", err)
	}
	if preferred != nil {
		p.PreferredRegime = tax.RegimeType(*preferred)
	}
	return p, nil
}

func (r *salaryRepository) ListDeclarations(ctx context.Context, employeeID string, year tax.TaxYear) ([]salary.Declaration, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT section, amount
		FROM tax_declarations
		WHERE employee_id = $1 AND tax_year = $2
		ORDER BY section ASC
	`

	rows, err := q.Query(ctx, query, employeeID, year.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list declarations: %w", err)
	}
	defer rows.Close()

	var declarations []salary.Declaration
	for rows.Next() {
		d := salary.Declaration{EmployeeID: employeeID, TaxYear: year}
		if err := rows.Scan(&d.Section, &d.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan declaration: %w", err)
		}
		declarations = append(declarations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate declarations: %w", err)
	}

	return declarations, nil
}
