package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type taxationRepository struct {
	db *database.DB
}

func NewTaxationRepository(db *database.DB) taxation.TaxationRepository {
	return &taxationRepository{db: db}
}

// taxationRow carries the serialised form of the aggregate.
type taxationRow struct {
	salaryJSON     []byte
	deductionsJSON []byte
}

func encodeTaxation(t *taxation.Taxation) (taxationRow, error) {
	var row taxationRow
	var err error
	if t.Salary != nil {
		if row.salaryJSON, err = json.Marshal(t.Salary); err != nil {
			return row, fmt.Errorf("encode salary income: %w", err)
		}
	}
	deductions := t.Deductions
	if deductions == nil {
		deductions = map[tax.Section]money.Money{}
	}
	if row.deductionsJSON, err = json.Marshal(deductions); err != nil {
		return row, fmt.Errorf("encode deductions: %w", err)
	}
	return row, nil
}

func (r *taxationRepository) GetByKey(ctx context.Context, employeeID string, year tax.TaxYear) (*taxation.Taxation, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, regime, age_tier, gross_annual_salary, other_income,
			   salary_income, deductions,
			   taxable_income, calculated_tax, surcharge_amount, cess_amount, rebate_87a, total_tax_liability,
			   calculated_at, version, created_at, updated_at
		FROM taxations
		WHERE employee_id = $1 AND tax_year = $2
	`

	var t taxation.Taxation
	var regimeType tax.RegimeType
	var ageTier tax.AgeTier
	var salaryBytes, deductionsBytes []byte
	err := q.QueryRow(ctx, query, employeeID, year.String()).Scan(
		&t.EmployeeID, &regimeType, &ageTier, &t.GrossAnnualSalary, &t.OtherIncome,
		&salaryBytes, &deductionsBytes,
		&t.TaxableIncome, &t.CalculatedTax, &t.SurchargeAmount, &t.CessAmount, &t.Rebate87A, &t.TotalTaxLiability,
		&t.CalculatedAt, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxation.ErrTaxationNotFound
		}
		return nil, fmt.Errorf("failed to get taxation: %w", err)
	}

	regime, err := tax.NewTaxRegime(regimeType, ageTier, year)
	if err != nil {
		return nil, fmt.Errorf("stored regime for %s/%s: %w", employeeID, year, err)
	}
	t.TaxYear = year
	t.Regime = regime

	if len(salaryBytes) > 0 {
		var salary tax.SalaryIncome
		if err := json.Unmarshal(salaryBytes, &salary); err != nil {
			return nil, fmt.Errorf("decode salary income: %w", err)
		}
		t.Salary = &salary
	}
	t.Deductions = make(map[tax.Section]money.Money)
	if err := json.Unmarshal(deductionsBytes, &t.Deductions); err != nil {
		return nil, fmt.Errorf("decode deductions: %w", err)
	}

	return &t, nil
}

func (r *taxationRepository) Create(ctx context.Context, t *taxation.Taxation) error {
	q := GetQuerier(ctx, r.db)

	row, err := encodeTaxation(t)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO taxations (
			employee_id, tax_year, regime, age_tier, gross_annual_salary, other_income,
			salary_income, deductions,
			taxable_income, calculated_tax, surcharge_amount, cess_amount, rebate_87a, total_tax_liability,
			calculated_at, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, $16, $17)
	`

	_, err = q.Exec(ctx, query,
		t.EmployeeID, t.TaxYear.String(), t.Regime.Type(), t.Regime.AgeTier(), t.GrossAnnualSalary, t.OtherIncome,
		row.salaryJSON, row.deductionsJSON,
		t.TaxableIncome, t.CalculatedTax, t.SurchargeAmount, t.CessAmount, t.Rebate87A, t.TotalTaxLiability,
		t.CalculatedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return taxation.ErrTaxationExists
		}
		return fmt.Errorf("failed to create taxation: %w", err)
	}

	t.Version = 1
	return nil
}

func (r *taxationRepository) Update(ctx context.Context, t *taxation.Taxation) error {
	q := GetQuerier(ctx, r.db)

	row, err := encodeTaxation(t)
	if err != nil {
		return err
	}

	query := `
		UPDATE taxations SET
			regime = $3, age_tier = $4, gross_annual_salary = $5, other_income = $6,
			salary_income = $7, deductions = $8,
			taxable_income = $9, calculated_tax = $10, surcharge_amount = $11,
			cess_amount = $12, rebate_87a = $13, total_tax_liability = $14,
			calculated_at = $15, updated_at = $16,
			version = version + 1
		WHERE employee_id = $1 AND tax_year = $2 AND version = $17
	`

	tag, err := q.Exec(ctx, query,
		t.EmployeeID, t.TaxYear.String(),
		t.Regime.Type(), t.Regime.AgeTier(), t.GrossAnnualSalary, t.OtherIncome,
		row.salaryJSON, row.deductionsJSON,
		t.TaxableIncome, t.CalculatedTax, t.SurchargeAmount,
		t.CessAmount, t.Rebate87A, t.TotalTaxLiability,
		t.CalculatedAt, t.UpdatedAt,
		t.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update taxation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return taxation.ErrVersionConflict
	}

	t.Version++
	return nil
}

func (r *taxationRepository) Delete(ctx context.Context, employeeID string, year tax.TaxYear) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM taxations WHERE employee_id = $1 AND tax_year = $2`, employeeID, year.String())
	if err != nil {
		return fmt.Errorf("failed to delete taxation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return taxation.ErrTaxationNotFound
	}
	return nil
}
