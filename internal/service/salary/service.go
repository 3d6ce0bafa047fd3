package salary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

// Reprojector refreshes the tax record of the year a salary change falls in.
type Reprojector interface {
	Reproject(ctx context.Context, employeeID string, year tax.TaxYear) (taxation.TaxationResponse, error)
}

type SalaryServiceImpl struct {
	transactor  database.Transactor
	salaryRepo  salary.SalaryRepository
	reprojector Reprojector
	now         func() time.Time
	logger      *slog.Logger
}

func NewSalaryService(
	transactor database.Transactor,
	salaryRepo salary.SalaryRepository,
	reprojector Reprojector,
	logger *slog.Logger,
) salary.SalaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalaryServiceImpl{
		transactor:  transactor,
		salaryRepo:  salaryRepo,
		reprojector: reprojector,
		now:         time.Now,
		logger:      logger,
	}
}

// RecordSalaryChange stores the change and, when it is in force and not older
// than the current structure, makes it the current structure. The tax record
// of the affected year is reprojected after commit; a failed reprojection does
// not undo the change.
func (s *SalaryServiceImpl) RecordSalaryChange(ctx context.Context, req salary.RecordSalaryChangeRequest) (salary.SalaryChangeResponse, error) {
	effective, err := req.Validate()
	if err != nil {
		return salary.SalaryChangeResponse{}, err
	}

	if _, err := s.salaryRepo.GetEmployeeProfile(ctx, req.EmployeeID); err != nil {
		return salary.SalaryChangeResponse{}, err
	}

	now := s.now()
	var created salary.SalaryChange
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var current *salary.SalaryStructure
		structure, err := s.salaryRepo.GetCurrentStructure(ctx, req.EmployeeID)
		switch {
		case err == nil:
			current = &structure
		case errors.Is(err, salary.ErrSalaryStructureNotFound):
		default:
			return err
		}

		history, err := s.salaryRepo.ListChanges(ctx, req.EmployeeID, time.Time{}, salary.HistoryEnd)
		if err != nil {
			return err
		}
		var previous *salary.SalaryStructure
		if before, err := salary.StructureInForce(current, history, effective.AddDate(0, 0, -1)); err == nil {
			previous = &before
		}

		next := req.Salary
		next.ID = ""
		next.EmployeeID = req.EmployeeID
		next.EffectiveFrom = effective

		change := salary.SalaryChange{
			ID:            uuid.NewString(),
			EmployeeID:    req.EmployeeID,
			EffectiveDate: effective,
			Previous:      previous,
			New:           next,
			Reason:        req.Reason,
			ApprovedBy:    req.ApprovedBy,
		}
		if req.ApprovedBy != nil {
			change.ApprovedAt = &now
		}

		created, err = s.salaryRepo.CreateChange(ctx, change)
		if err != nil {
			return fmt.Errorf("failed to record salary change: %w", err)
		}

		// payouts resolve future-dated changes from the history; a backdated
		// change never replaces a structure that took effect after it
		inForce := !effective.After(tax.DateOnly(now))
		supersedes := current == nil || !effective.Before(tax.DateOnly(current.EffectiveFrom))
		if inForce && supersedes {
			if _, err := s.salaryRepo.UpsertStructure(ctx, next); err != nil {
				return fmt.Errorf("failed to update current salary: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return salary.SalaryChangeResponse{}, err
	}

	resp := salary.ToChangeResponse(created)
	if s.reprojector == nil {
		return resp, nil
	}

	year := tax.TaxYearFor(effective.Month(), effective.Year())
	if _, err := s.reprojector.Reproject(ctx, req.EmployeeID, year); err != nil {
		s.logger.Warn("salary change stored but tax reprojection failed",
			slog.String("employee_id", req.EmployeeID),
			slog.String("tax_year", year.String()),
			slog.String("change_id", created.ID),
			slog.Any("error", err),
		)
		return resp, nil
	}
	resp.Reprojected = true
	return resp, nil
}

func (s *SalaryServiceImpl) GetProjection(ctx context.Context, employeeID, taxYear string) (salary.SalaryProjection, error) {
	var errs validator.ValidationErrors
	if !validator.IsValidEmployeeID(employeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is invalid"})
	}
	year, err := tax.ParseTaxYear(taxYear)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "tax_year", Message: "must be in YYYY-YY format with consecutive years"})
	}
	if len(errs) > 0 {
		return salary.SalaryProjection{}, errs
	}

	var current *salary.SalaryStructure
	structure, err := s.salaryRepo.GetCurrentStructure(ctx, employeeID)
	switch {
	case err == nil:
		current = &structure
	case errors.Is(err, salary.ErrSalaryStructureNotFound):
	default:
		return salary.SalaryProjection{}, err
	}

	changes, err := s.salaryRepo.ListChanges(ctx, employeeID, year.Start(), year.End())
	if err != nil {
		return salary.SalaryProjection{}, err
	}

	return salary.Project(employeeID, year, current, changes)
}
