package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

// AttendanceProvider is satisfied by attendance.AttendanceService.
type AttendanceProvider interface {
	GetAttendance(ctx context.Context, employeeID string, month, year int) (attendance.Summary, error)
}

// TaxLiabilityProvider is satisfied by taxation.TaxationService.
type TaxLiabilityProvider interface {
	AnnualLiability(ctx context.Context, employeeID string, year tax.TaxYear) (tax.Breakdown, error)
}

type PayoutServiceImpl struct {
	transactor database.Transactor
	payoutRepo payout.PayoutRepository
	salaryRepo salary.SalaryRepository
	attendance AttendanceProvider
	taxes      TaxLiabilityProvider
	overtime   payout.OvertimePolicy
	now        func() time.Time
	logger     *slog.Logger
}

func NewPayoutService(
	transactor database.Transactor,
	payoutRepo payout.PayoutRepository,
	salaryRepo salary.SalaryRepository,
	attendance AttendanceProvider,
	taxes TaxLiabilityProvider,
	overtime payout.OvertimePolicy,
	logger *slog.Logger,
) payout.PayoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayoutServiceImpl{
		transactor: transactor,
		payoutRepo: payoutRepo,
		salaryRepo: salaryRepo,
		attendance: attendance,
		taxes:      taxes,
		overtime:   overtime,
		now:        time.Now,
		logger:     logger,
	}
}

// ========== CALCULATION ==========

// CalculatePayout returns the stored payout for the period unless a forced
// recalculation is asked for. Missing attendance or tax data does not stop the
// run: a full month and zero TDS are assumed and the result is marked degraded.
func (s *PayoutServiceImpl) CalculatePayout(ctx context.Context, req payout.CalculatePayoutRequest) (payout.PayoutResult, error) {
	if err := req.Validate(); err != nil {
		return payout.PayoutResult{}, err
	}

	existing, err := s.payoutRepo.GetByEmployeePeriod(ctx, req.EmployeeID, req.Month, req.Year)
	found := err == nil
	if err != nil && !errors.Is(err, payout.ErrPayoutNotFound) {
		return payout.PayoutResult{}, err
	}
	if found {
		if !req.ForceRecalculate {
			return payout.PayoutResult{
				Payout:          payout.ToResponse(existing),
				Degraded:        existing.Degraded,
				DegradedReasons: existing.DegradedReasons,
				Existing:        true,
			}, nil
		}
		if err := existing.Recalculable(); err != nil {
			return payout.PayoutResult{}, err
		}
	}

	structure, err := s.salaryFor(ctx, req)
	if err != nil {
		return payout.PayoutResult{}, err
	}

	var reasons []string
	summary, err := s.attendance.GetAttendance(ctx, req.EmployeeID, req.Month, req.Year)
	if err != nil {
		s.logger.Warn("attendance unavailable, assuming full month",
			slog.String("employee_id", req.EmployeeID),
			slog.Int("month", req.Month),
			slog.Int("year", req.Year),
			slog.Any("error", err),
		)
		reasons = append(reasons, fmt.Sprintf("attendance unavailable: %v", err))
		summary = attendance.FullMonth(req.EmployeeID, req.Month, req.Year)
	}

	taxYear := tax.TaxYearFor(time.Month(req.Month), req.Year)
	var annualTax *tax.Breakdown
	breakdown, err := s.taxes.AnnualLiability(ctx, req.EmployeeID, taxYear)
	if err != nil {
		s.logger.Warn("tax liability unavailable, withholding no TDS",
			slog.String("employee_id", req.EmployeeID),
			slog.String("tax_year", taxYear.String()),
			slog.Any("error", err),
		)
		reasons = append(reasons, fmt.Sprintf("tax liability unavailable: %v", err))
	} else {
		annualTax = &breakdown
	}

	p := payout.Calculate(payout.Input{
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Salary:     structure,
		Attendance: summary,
		AnnualTax:  annualTax,
		Overtime:   s.overtime,
	})
	p.Degraded = len(reasons) > 0
	p.DegradedReasons = reasons
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	var saved payout.Payout
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if found {
			p.ID = existing.ID
			p.Notes = existing.Notes
			p.CreatedAt = existing.CreatedAt
			saved, err = s.payoutRepo.Replace(ctx, p)
			return err
		}
		p.ID = uuid.NewString()
		saved, err = s.payoutRepo.Create(ctx, p)
		return err
	})
	if err != nil {
		s.logger.Error("failed to save payout",
			slog.String("employee_id", req.EmployeeID),
			slog.Int("month", req.Month),
			slog.Int("year", req.Year),
			slog.Any("error", err),
		)
		return payout.PayoutResult{}, err
	}

	return payout.PayoutResult{
		Payout:          payout.ToResponse(saved),
		Degraded:        saved.Degraded,
		DegradedReasons: saved.DegradedReasons,
	}, nil
}

func (s *PayoutServiceImpl) salaryFor(ctx context.Context, req payout.CalculatePayoutRequest) (salary.SalaryStructure, error) {
	if req.OverrideSalary != nil {
		structure := *req.OverrideSalary
		structure.EmployeeID = req.EmployeeID
		return structure, nil
	}

	var current *salary.SalaryStructure
	structure, err := s.salaryRepo.GetCurrentStructure(ctx, req.EmployeeID)
	switch {
	case err == nil:
		current = &structure
	case errors.Is(err, salary.ErrSalaryStructureNotFound):
	default:
		return salary.SalaryStructure{}, err
	}

	changes, err := s.salaryRepo.ListChanges(ctx, req.EmployeeID, time.Time{}, salary.HistoryEnd)
	if err != nil {
		return salary.SalaryStructure{}, err
	}

	// the structure in force on the last day of the month
	monthEnd := time.Date(req.Year, time.Month(req.Month)+1, 0, 0, 0, 0, 0, time.UTC)
	inForce, err := salary.StructureInForce(current, changes, monthEnd)
	if err != nil {
		return salary.SalaryStructure{}, err
	}
	inForce.EmployeeID = req.EmployeeID
	return inForce, nil
}

// ========== QUERIES ==========

func (s *PayoutServiceImpl) GetPayout(ctx context.Context, employeeID string, month, year int) (payout.PayoutResponse, error) {
	if !validator.IsValidEmployeeID(employeeID) {
		return payout.PayoutResponse{}, validator.Single("employee_id", "is invalid")
	}
	if !validator.IsValidMonth(month) || year < 2020 || year > 2100 {
		return payout.PayoutResponse{}, payout.ErrInvalidPeriod
	}

	p, err := s.payoutRepo.GetByEmployeePeriod(ctx, employeeID, month, year)
	if err != nil {
		return payout.PayoutResponse{}, err
	}
	return payout.ToResponse(p), nil
}

func (s *PayoutServiceImpl) ListPayouts(ctx context.Context, filter payout.PayoutFilter) (payout.ListPayoutResponse, error) {
	filter.Normalize()
	if filter.Status != nil {
		if _, err := payout.ParseStatus(*filter.Status); err != nil {
			return payout.ListPayoutResponse{}, err
		}
	}
	if filter.Month != nil && !validator.IsValidMonth(*filter.Month) {
		return payout.ListPayoutResponse{}, payout.ErrInvalidPeriod
	}

	payouts, total, err := s.payoutRepo.List(ctx, filter)
	if err != nil {
		return payout.ListPayoutResponse{}, err
	}

	data := make([]payout.PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		data = append(data, payout.ToResponse(p))
	}
	return payout.ListPayoutResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// ========== STATUS ==========

func (s *PayoutServiceImpl) UpdateStatus(ctx context.Context, req payout.UpdateStatusRequest) (payout.PayoutResponse, error) {
	next, err := req.Validate()
	if err != nil {
		return payout.PayoutResponse{}, err
	}

	var updated payout.Payout
	err = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payoutRepo.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if err := p.Transition(next, s.now()); err != nil {
			return err
		}
		if req.Notes != nil {
			p.Notes = req.Notes
		}
		if err := s.payoutRepo.UpdateStatus(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return payout.PayoutResponse{}, err
	}

	s.logger.Info("payout status updated",
		slog.String("payout_id", updated.ID),
		slog.String("status", string(updated.Status)),
	)
	return payout.ToResponse(updated), nil
}
