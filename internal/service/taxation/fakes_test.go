package taxation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/messaging"
)

type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeTaxationRepo struct {
	mu        sync.Mutex
	records   map[string]*taxation.Taxation
	conflicts int
	creates   int
	updates   int
}

func newFakeTaxationRepo() *fakeTaxationRepo {
	return &fakeTaxationRepo{records: make(map[string]*taxation.Taxation)}
}

func repoKey(employeeID string, year tax.TaxYear) string {
	return employeeID + ":" + year.String()
}

func (r *fakeTaxationRepo) GetByKey(_ context.Context, employeeID string, year tax.TaxYear) (*taxation.Taxation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.records[repoKey(employeeID, year)]
	if !ok {
		return nil, taxation.ErrTaxationNotFound
	}
	return t.Clone(), nil
}

func (r *fakeTaxationRepo) Create(_ context.Context, t *taxation.Taxation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repoKey(t.EmployeeID, t.TaxYear)
	if _, ok := r.records[key]; ok {
		return taxation.ErrTaxationExists
	}
	r.creates++
	t.Version = 1
	r.records[key] = t.Clone()
	return nil
}

func (r *fakeTaxationRepo) Update(_ context.Context, t *taxation.Taxation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := repoKey(t.EmployeeID, t.TaxYear)
	stored, ok := r.records[key]
	if !ok {
		return taxation.ErrTaxationNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		stored.Version++
		return taxation.ErrVersionConflict
	}
	if stored.Version != t.Version {
		return taxation.ErrVersionConflict
	}
	r.updates++
	t.Version++
	r.records[key] = t.Clone()
	return nil
}

func (r *fakeTaxationRepo) Delete(_ context.Context, employeeID string, year tax.TaxYear) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, repoKey(employeeID, year))
	return nil
}

func (r *fakeTaxationRepo) put(t *taxation.Taxation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Version == 0 {
		t.Version = 1
	}
	r.records[repoKey(t.EmployeeID, t.TaxYear)] = t.Clone()
}

type fakeSalaryRepo struct {
	structure    *salary.SalaryStructure
	changes      []salary.SalaryChange
	profile      *salary.EmployeeProfile
	declarations []salary.Declaration
}

func (r *fakeSalaryRepo) GetCurrentStructure(_ context.Context, employeeID string) (salary.SalaryStructure, error) {
	if r.structure == nil {
		return salary.SalaryStructure{}, salary.ErrSalaryStructureNotFound
	}
	return *r.structure, nil
}

func (r *fakeSalaryRepo) UpsertStructure(_ context.Context, s salary.SalaryStructure) (salary.SalaryStructure, error) {
	r.structure = &s
	return s, nil
}

func (r *fakeSalaryRepo) CreateChange(_ context.Context, c salary.SalaryChange) (salary.SalaryChange, error) {
	r.changes = append(r.changes, c)
	return c, nil
}

func (r *fakeSalaryRepo) ListChanges(_ context.Context, employeeID string, from, to time.Time) ([]salary.SalaryChange, error) {
	return r.changes, nil
}

func (r *fakeSalaryRepo) GetEmployeeProfile(_ context.Context, employeeID string) (salary.EmployeeProfile, error) {
	if r.profile == nil {
		return salary.EmployeeProfile{}, salary.ErrEmployeeNotFound
	}
	return *r.profile, nil
}

func (r *fakeSalaryRepo) ListDeclarations(_ context.Context, employeeID string, year tax.TaxYear) ([]salary.Declaration, error) {
	return r.declarations, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []messaging.OutboxEvent
}

func (o *fakeOutbox) Create(_ context.Context, e messaging.OutboxEvent) error {
	if err := messaging.ValidateOutboxEvent(e); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	return nil
}

func (o *fakeOutbox) ListPending(context.Context, int) ([]messaging.OutboxEvent, error) {
	return nil, nil
}

func (o *fakeOutbox) MarkSent(context.Context, string) error { return nil }

func (o *fakeOutbox) MarkFailed(context.Context, string, string) error { return nil }

func (o *fakeOutbox) types() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.EventType)
	}
	return out
}

type busyLocker struct{}

func (busyLocker) Acquire(_ context.Context, key string, _ time.Duration) (lock.ReleaseFunc, error) {
	return nil, fmt.Errorf("%w: %s", lock.ErrNotAcquired, key)
}

// gateLocker holds every acquisition until release is closed and hands the
// context it was given to entered.
type gateLocker struct {
	entered chan context.Context
	release chan struct{}
}

func newGateLocker() *gateLocker {
	return &gateLocker{entered: make(chan context.Context, 1), release: make(chan struct{})}
}

func (g *gateLocker) Acquire(ctx context.Context, _ string, _ time.Duration) (lock.ReleaseFunc, error) {
	g.entered <- ctx
	<-g.release
	return func(context.Context) error { return nil }, nil
}
