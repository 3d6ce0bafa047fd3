package taxation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/messaging"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRetries = 3
	defaultLockTTL = 15 * time.Second
)

type Options struct {
	// Retries is how many times a save is retried after a version conflict.
	Retries int
	LockTTL time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

type TaxationServiceImpl struct {
	transactor   database.Transactor
	taxationRepo taxation.TaxationRepository
	salaryRepo   salary.SalaryRepository
	outboxRepo   messaging.OutboxRepository
	locker       lock.Locker

	group   singleflight.Group
	retries int
	lockTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewTaxationService(
	transactor database.Transactor,
	taxationRepo taxation.TaxationRepository,
	salaryRepo salary.SalaryRepository,
	outboxRepo messaging.OutboxRepository,
	locker lock.Locker,
	opts Options,
) taxation.TaxationService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TaxationServiceImpl{
		transactor:   transactor,
		taxationRepo: taxationRepo,
		salaryRepo:   salaryRepo,
		outboxRepo:   outboxRepo,
		locker:       locker,
		retries:      opts.Retries,
		lockTTL:      opts.LockTTL,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

// ========== QUERIES ==========

func (s *TaxationServiceImpl) GetTaxation(ctx context.Context, employeeID, taxYear string) (taxation.TaxationResponse, error) {
	key, err := taxation.ParseKey(employeeID, taxYear)
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	t, err := s.taxationRepo.GetByKey(ctx, key.EmployeeID, key.TaxYear)
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(t), nil
}

// CompareRegimes never persists anything; a missing record is built in memory.
func (s *TaxationServiceImpl) CompareRegimes(ctx context.Context, employeeID, taxYear string) (taxation.RegimeComparison, error) {
	key, err := taxation.ParseKey(employeeID, taxYear)
	if err != nil {
		return taxation.RegimeComparison{}, err
	}

	t, _, _, err := s.loadOrBuild(ctx, key)
	if err != nil {
		return taxation.RegimeComparison{}, err
	}
	declared, err := s.declared(ctx, key)
	if err != nil {
		return taxation.RegimeComparison{}, err
	}
	return t.CompareRegimes(declared, s.now())
}

// AnnualLiability returns the cached breakdown when it is still valid and
// recalculates (and saves) otherwise.
func (s *TaxationServiceImpl) AnnualLiability(ctx context.Context, employeeID string, year tax.TaxYear) (tax.Breakdown, error) {
	key := taxation.Key{EmployeeID: employeeID, TaxYear: year}

	t, err := s.taxationRepo.GetByKey(ctx, employeeID, year)
	if err == nil {
		if b, err := t.Breakdown(); err == nil {
			return b, nil
		}
	} else if !errors.Is(err, taxation.ErrTaxationNotFound) {
		return tax.Breakdown{}, err
	}

	saved, err := s.shared(ctx, "calculate:"+key.String(), func(ctx context.Context) (*taxation.Taxation, error) {
		return s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
			_, events := t.CalculateTax(s.now())
			return events, nil
		})
	})
	if err != nil {
		return tax.Breakdown{}, err
	}
	return saved.Breakdown()
}

// ========== COMMANDS ==========

func (s *TaxationServiceImpl) CalculateTax(ctx context.Context, req taxation.CalculateTaxRequest) (taxation.TaxationResponse, error) {
	key, regimeType, err := req.Validate()
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	flightKey := "calculate:" + key.String()
	if regimeType != nil {
		flightKey += ":" + string(*regimeType)
	}

	saved, err := s.shared(ctx, flightKey, func(ctx context.Context) (*taxation.Taxation, error) {
		var declared map[tax.Section]money.Money
		if regimeType != nil {
			var err error
			if declared, err = s.declared(ctx, key); err != nil {
				return nil, err
			}
		}
		return s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
			now := s.now()
			var events []taxation.Event
			if regimeType != nil {
				changed, rejected, err := t.SwitchRegime(*regimeType, "requested at calculation", declared, now)
				if err != nil {
					return nil, err
				}
				s.logRejected(key, rejected)
				events = append(events, changed...)
			}
			_, calculated := t.CalculateTax(now)
			return append(events, calculated...), nil
		})
	})
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(saved), nil
}

func (s *TaxationServiceImpl) AddDeduction(ctx context.Context, req taxation.AddDeductionRequest) (taxation.TaxationResponse, error) {
	key, section, err := req.Validate()
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	t, err := s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
		return t.AddDeduction(section, req.Amount, s.now())
	})
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(t), nil
}

func (s *TaxationServiceImpl) RemoveDeduction(ctx context.Context, req taxation.RemoveDeductionRequest) (taxation.TaxationResponse, error) {
	key, section, err := req.Validate()
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	t, err := s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
		return t.RemoveDeduction(section, req.Reason, s.now())
	})
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(t), nil
}

func (s *TaxationServiceImpl) ChangeRegime(ctx context.Context, req taxation.ChangeRegimeRequest) (taxation.TaxationResponse, error) {
	key, regimeType, err := req.Validate()
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	declared, err := s.declared(ctx, key)
	if err != nil {
		return taxation.TaxationResponse{}, err
	}

	t, err := s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
		events, rejected, err := t.SwitchRegime(regimeType, req.Reason, declared, s.now())
		if err != nil {
			return nil, err
		}
		s.logRejected(key, rejected)
		return events, nil
	})
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(t), nil
}

// RecordRetirementBenefits summarises the benefits under the record's regime,
// books the taxable part as other income and recalculates.
func (s *TaxationServiceImpl) RecordRetirementBenefits(ctx context.Context, req taxation.RecordRetirementBenefitsRequest) (taxation.RetirementBenefitsResponse, error) {
	key, err := req.Validate()
	if err != nil {
		return taxation.RetirementBenefitsResponse{}, err
	}

	var summary tax.RetirementSummary
	t, err := s.mutate(ctx, key, func(t *taxation.Taxation, _ bool) ([]taxation.Event, error) {
		now := s.now()
		summary = req.Benefits.Summarize(t.Regime)
		events, err := t.UpdateIncome(t.GrossAnnualSalary, summary.TotalTaxable, t.Salary, now)
		if err != nil {
			return nil, err
		}
		_, calculated := t.CalculateTax(now)
		return append(events, calculated...), nil
	})
	if err != nil {
		return taxation.RetirementBenefitsResponse{}, err
	}
	return taxation.RetirementBenefitsResponse{
		Summary:  summary,
		Taxation: taxation.ToResponse(t),
	}, nil
}

// Reproject refreshes the income side from the salary projection and recalculates.
func (s *TaxationServiceImpl) Reproject(ctx context.Context, employeeID string, year tax.TaxYear) (taxation.TaxationResponse, error) {
	key := taxation.Key{EmployeeID: employeeID, TaxYear: year}

	saved, err := s.shared(ctx, "reproject:"+key.String(), func(ctx context.Context) (*taxation.Taxation, error) {
		return s.mutate(ctx, key, func(t *taxation.Taxation, created bool) ([]taxation.Event, error) {
			now := s.now()
			var events []taxation.Event
			if !created {
				profile, err := s.profile(ctx, employeeID)
				if err != nil {
					return nil, err
				}
				projection, err := s.project(ctx, employeeID, year)
				if err != nil {
					return nil, err
				}
				income := projection.Annual.ToSalaryIncome(profile.IsGovernment)
				events, err = t.UpdateIncome(projection.ProjectedAnnualGross, t.OtherIncome, &income, now)
				if err != nil {
					return nil, err
				}
			}
			_, calculated := t.CalculateTax(now)
			return append(events, calculated...), nil
		})
	})
	if err != nil {
		return taxation.TaxationResponse{}, err
	}
	return taxation.ToResponse(saved), nil
}

// ========== INTERNALS ==========

// shared runs fn once per key across concurrent callers. The flight is
// detached from any one caller's cancellation; a caller whose ctx ends stops
// waiting without failing the others.
func (s *TaxationServiceImpl) shared(ctx context.Context, key string, fn func(ctx context.Context) (*taxation.Taxation, error)) (*taxation.Taxation, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return fn(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*taxation.Taxation), nil
	}
}

type mutation func(t *taxation.Taxation, created bool) ([]taxation.Event, error)

// mutate applies fn to the stored record under the per-key lock and saves it
// together with the events fn returned. A version conflict reloads and retries.
func (s *TaxationServiceImpl) mutate(ctx context.Context, key taxation.Key, fn mutation) (*taxation.Taxation, error) {
	release, err := s.locker.Acquire(ctx, "taxation:"+key.String(), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %s", taxation.ErrRecalcInProgress, key)
		}
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release taxation lock", slog.String("key", key.String()), slog.Any("error", err))
		}
	}()

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		var saved *taxation.Taxation
		lastErr = s.transactor.WithinTx(ctx, func(ctx context.Context) error {
			t, created, seeded, err := s.loadOrBuild(ctx, key)
			if err != nil {
				return err
			}

			events, err := fn(t, created)
			if err != nil {
				return err
			}
			events = append(seeded, events...)
			if !created && len(events) == 0 {
				saved = t
				return nil
			}

			if created {
				err = s.taxationRepo.Create(ctx, t)
			} else {
				err = s.taxationRepo.Update(ctx, t)
			}
			if err != nil {
				return err
			}

			if err := s.publish(ctx, events); err != nil {
				return err
			}
			saved = t
			return nil
		})
		if lastErr == nil {
			return saved, nil
		}
		if !errors.Is(lastErr, taxation.ErrVersionConflict) && !errors.Is(lastErr, taxation.ErrTaxationExists) {
			return nil, lastErr
		}
		s.logger.Info("taxation save conflicted, retrying",
			slog.String("key", key.String()),
			slog.Int("attempt", attempt+1),
		)
	}

	s.logger.Error("taxation save kept conflicting", slog.String("key", key.String()), slog.Any("error", lastErr))
	return nil, lastErr
}

// loadOrBuild returns the stored record, or a fresh one built from the
// employee profile, the salary projection and the declared deductions.
// created reports whether the record still has to be inserted; seeded holds
// the events raised while building it.
func (s *TaxationServiceImpl) loadOrBuild(ctx context.Context, key taxation.Key) (t *taxation.Taxation, created bool, seeded []taxation.Event, err error) {
	t, err = s.taxationRepo.GetByKey(ctx, key.EmployeeID, key.TaxYear)
	if err == nil {
		return t, false, nil, nil
	}
	if !errors.Is(err, taxation.ErrTaxationNotFound) {
		return nil, false, nil, err
	}

	now := s.now()
	profile, err := s.profile(ctx, key.EmployeeID)
	if err != nil {
		return nil, false, nil, err
	}
	regimeType := profile.PreferredRegime
	if regimeType == "" {
		regimeType = tax.RegimeNew
	}
	regime, err := tax.NewTaxRegime(regimeType, profile.AgeTier(key.TaxYear), key.TaxYear)
	if err != nil {
		return nil, false, nil, err
	}

	projection, err := s.project(ctx, key.EmployeeID, key.TaxYear)
	if err != nil {
		return nil, false, nil, err
	}

	t, err = taxation.NewTaxation(key.EmployeeID, regime, projection.ProjectedAnnualGross, now)
	if err != nil {
		return nil, false, nil, err
	}
	income := projection.Annual.ToSalaryIncome(profile.IsGovernment)
	seeded, err = t.UpdateIncome(projection.ProjectedAnnualGross, t.OtherIncome, &income, now)
	if err != nil {
		return nil, false, nil, err
	}

	declared, err := s.declared(ctx, key)
	if err != nil {
		return nil, false, nil, err
	}
	added, rejected := t.AddDeclared(declared, now)
	s.logRejected(key, rejected)
	seeded = append(seeded, added...)

	return t, true, seeded, nil
}

// declared reads the employee's investment declarations for the year.
func (s *TaxationServiceImpl) declared(ctx context.Context, key taxation.Key) (map[tax.Section]money.Money, error) {
	declarations, err := s.salaryRepo.ListDeclarations(ctx, key.EmployeeID, key.TaxYear)
	if err != nil {
		return nil, err
	}
	declared := make(map[tax.Section]money.Money, len(declarations))
	for _, d := range declarations {
		declared[d.Section] = d.Amount
	}
	return declared, nil
}

func (s *TaxationServiceImpl) logRejected(key taxation.Key, rejected map[tax.Section]error) {
	for section, err := range rejected {
		s.logger.Warn("skipping declared deduction",
			slog.String("key", key.String()),
			slog.String("section", string(section)),
			slog.Any("error", err),
		)
	}
}

func (s *TaxationServiceImpl) profile(ctx context.Context, employeeID string) (salary.EmployeeProfile, error) {
	profile, err := s.salaryRepo.GetEmployeeProfile(ctx, employeeID)
	if err != nil {
		if errors.Is(err, salary.ErrEmployeeNotFound) {
			return salary.EmployeeProfile{}, fmt.Errorf("%w: %s", taxation.ErrEmployeeNotFound, employeeID)
		}
		return salary.EmployeeProfile{}, err
	}
	return profile, nil
}

func (s *TaxationServiceImpl) project(ctx context.Context, employeeID string, year tax.TaxYear) (salary.SalaryProjection, error) {
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

	projection, err := salary.Project(employeeID, year, current, changes)
	if err != nil {
		if errors.Is(err, salary.ErrNoSalaryOnRecord) {
			return salary.SalaryProjection{}, fmt.Errorf("%w: %s", taxation.ErrNoSalaryOnRecord, employeeID)
		}
		return salary.SalaryProjection{}, err
	}
	return projection, nil
}

func (s *TaxationServiceImpl) publish(ctx context.Context, events []taxation.Event) error {
	for _, e := range events {
		outboxEvent, err := toOutboxEvent(e)
		if err != nil {
			return err
		}
		if err := s.outboxRepo.Create(ctx, outboxEvent); err != nil {
			return err
		}
	}
	return nil
}
