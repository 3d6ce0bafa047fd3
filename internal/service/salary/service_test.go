package salary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSalaryRepo struct {
	structure *salary.SalaryStructure
	changes   []salary.SalaryChange
	profile   *salary.EmployeeProfile
	upserts   int
}

func (r *fakeSalaryRepo) GetCurrentStructure(_ context.Context, employeeID string) (salary.SalaryStructure, error) {
	if r.structure == nil {
		return salary.SalaryStructure{}, salary.ErrSalaryStructureNotFound
	}
	return *r.structure, nil
}

func (r *fakeSalaryRepo) UpsertStructure(_ context.Context, s salary.SalaryStructure) (salary.SalaryStructure, error) {
	r.upserts++
	r.structure = &s
	return s, nil
}

func (r *fakeSalaryRepo) CreateChange(_ context.Context, c salary.SalaryChange) (salary.SalaryChange, error) {
	c.CreatedAt = time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
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

func (r *fakeSalaryRepo) ListDeclarations(context.Context, string, tax.TaxYear) ([]salary.Declaration, error) {
	return nil, nil
}

type fakeReprojector struct {
	calls []tax.TaxYear
	err   error
}

func (f *fakeReprojector) Reproject(_ context.Context, employeeID string, year tax.TaxYear) (taxation.TaxationResponse, error) {
	f.calls = append(f.calls, year)
	if f.err != nil {
		return taxation.TaxationResponse{}, f.err
	}
	return taxation.TaxationResponse{EmployeeID: employeeID, TaxYear: year.String()}, nil
}

func newTestService(repo *fakeSalaryRepo, reprojector Reprojector) *SalaryServiceImpl {
	svc := NewSalaryService(fakeTransactor{}, repo, reprojector, slog.New(slog.NewTextHandler(io.Discard, nil))).(*SalaryServiceImpl)
	svc.now = func() time.Time { return time.Date(2024, time.October, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func baseRepo() *fakeSalaryRepo {
	return &fakeSalaryRepo{
		structure: &salary.SalaryStructure{EmployeeID: "EMP001", Basic: money.FromInt(100000)},
		profile:   &salary.EmployeeProfile{EmployeeID: "EMP001"},
	}
}

func raiseRequest(effective string) salary.RecordSalaryChangeRequest {
	return salary.RecordSalaryChangeRequest{
		EmployeeID:    "EMP001",
		EffectiveDate: effective,
		Salary:        salary.SalaryStructure{Basic: money.FromInt(120000)},
		Reason:        "annual appraisal",
	}
}

// ===== RECORD SALARY CHANGE TESTS =====

func TestSalaryService_RecordSalaryChange_Success(t *testing.T) {
	// Arrange
	repo := baseRepo()
	reprojector := &fakeReprojector{}
	svc := newTestService(repo, reprojector)

	// Act
	resp, err := svc.RecordSalaryChange(context.Background(), raiseRequest("2024-10-01"))

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "2024-10-01", resp.EffectiveDate)
	require.NotNil(t, resp.Previous)
	assert.True(t, money.FromInt(100000).Equal(resp.Previous.Basic))
	assert.Equal(t, "EMP001", resp.New.EmployeeID)
	assert.True(t, resp.Reprojected)
	assert.Equal(t, []tax.TaxYear{{StartYear: 2024}}, reprojector.calls)
	assert.Equal(t, 1, repo.upserts)
	assert.True(t, money.FromInt(120000).Equal(repo.structure.Basic))
}

func TestSalaryService_RecordSalaryChange_FutureDatedKeepsCurrent(t *testing.T) {
	// Arrange
	repo := baseRepo()
	reprojector := &fakeReprojector{}
	svc := newTestService(repo, reprojector)

	// Act
	resp, err := svc.RecordSalaryChange(context.Background(), raiseRequest("2025-04-01"))

	// Assert
	require.NoError(t, err)
	assert.True(t, resp.Reprojected)
	assert.Equal(t, []tax.TaxYear{{StartYear: 2025}}, reprojector.calls)
	assert.Zero(t, repo.upserts)
	assert.True(t, money.FromInt(100000).Equal(repo.structure.Basic))
}

func TestSalaryService_RecordSalaryChange_BackdatedKeepsNewerCurrent(t *testing.T) {
	// Arrange
	repo := baseRepo()
	original := *repo.structure
	october := salary.SalaryStructure{
		EmployeeID:    "EMP001",
		Basic:         money.FromInt(120000),
		EffectiveFrom: time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.structure = &october
	repo.changes = []salary.SalaryChange{{
		ID:            "chg-oct",
		EmployeeID:    "EMP001",
		EffectiveDate: october.EffectiveFrom,
		Previous:      &original,
		New:           october,
	}}
	svc := newTestService(repo, &fakeReprojector{})
	req := raiseRequest("2024-08-01")
	req.Salary.Basic = money.FromInt(110000)

	// Act
	resp, err := svc.RecordSalaryChange(context.Background(), req)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, resp.Previous)
	assert.True(t, money.FromInt(100000).Equal(resp.Previous.Basic))
	assert.Zero(t, repo.upserts)
	assert.True(t, money.FromInt(120000).Equal(repo.structure.Basic))
	assert.Len(t, repo.changes, 2)
}

func TestSalaryService_RecordSalaryChange_ReprojectionFailureIsNotFatal(t *testing.T) {
	// Arrange
	repo := baseRepo()
	svc := newTestService(repo, &fakeReprojector{err: errors.New("redis down")})

	// Act
	resp, err := svc.RecordSalaryChange(context.Background(), raiseRequest("2024-10-01"))

	// Assert
	require.NoError(t, err)
	assert.False(t, resp.Reprojected)
	assert.Len(t, repo.changes, 1)
}

func TestSalaryService_RecordSalaryChange_ValidationError(t *testing.T) {
	// Arrange
	repo := baseRepo()
	svc := newTestService(repo, nil)
	req := raiseRequest("01-10-2024")
	req.Salary.Basic = money.FromInt(-1)

	// Act
	_, err := svc.RecordSalaryChange(context.Background(), req)

	// Assert
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, err.Error(), "effective_date")
	assert.Contains(t, err.Error(), "salary.basic")
	assert.Empty(t, repo.changes)
}

func TestSalaryService_RecordSalaryChange_UnknownEmployee(t *testing.T) {
	// Arrange
	repo := baseRepo()
	repo.profile = nil
	svc := newTestService(repo, nil)

	// Act
	_, err := svc.RecordSalaryChange(context.Background(), raiseRequest("2024-10-01"))

	// Assert
	assert.ErrorIs(t, err, salary.ErrEmployeeNotFound)
	assert.Empty(t, repo.changes)
}

// ===== PROJECTION TESTS =====

func TestSalaryService_GetProjection_AfterChange(t *testing.T) {
	// Arrange
	repo := baseRepo()
	svc := newTestService(repo, nil)
	_, err := svc.RecordSalaryChange(context.Background(), raiseRequest("2024-10-01"))
	require.NoError(t, err)

	// Act
	projection, err := svc.GetProjection(context.Background(), "EMP001", "2024-25")

	// Assert
	require.NoError(t, err)
	require.Len(t, projection.Periods, 2)
	assert.Equal(t, 183, projection.Periods[0].Days)
	assert.Equal(t, 182, projection.Periods[1].Days)
	assert.True(t, money.MustParse("1319671.23").Equal(projection.ProjectedAnnualGross))
}

func TestSalaryService_GetProjection_InvalidInput(t *testing.T) {
	// Arrange
	svc := newTestService(baseRepo(), nil)

	// Act
	_, err := svc.GetProjection(context.Background(), "EMP 001", "2024")

	// Assert
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestSalaryService_GetProjection_NoSalary(t *testing.T) {
	// Arrange
	repo := baseRepo()
	repo.structure = nil
	svc := newTestService(repo, nil)

	// Act
	_, err := svc.GetProjection(context.Background(), "EMP001", "2024-25")

	// Assert
	assert.ErrorIs(t, err, salary.ErrNoSalaryOnRecord)
}
