package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/money"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

// ===== FAKE SERVICES =====

type fakeTaxationService struct {
	lastCalculate taxation.CalculateTaxRequest
	lastDeduction taxation.AddDeductionRequest
	lastRemove    taxation.RemoveDeductionRequest
	err           error
}

func (f *fakeTaxationService) GetTaxation(ctx context.Context, employeeID, taxYear string) (taxation.TaxationResponse, error) {
	if f.err != nil {
		return taxation.TaxationResponse{}, f.err
	}
	return taxation.TaxationResponse{EmployeeID: employeeID, TaxYear: taxYear, Version: 3}, nil
}

func (f *fakeTaxationService) CalculateTax(ctx context.Context, req taxation.CalculateTaxRequest) (taxation.TaxationResponse, error) {
	f.lastCalculate = req
	if f.err != nil {
		return taxation.TaxationResponse{}, f.err
	}
	return taxation.TaxationResponse{EmployeeID: req.EmployeeID, TaxYear: req.TaxYear, Calculated: true}, nil
}

func (f *fakeTaxationService) CompareRegimes(ctx context.Context, employeeID, taxYear string) (taxation.RegimeComparison, error) {
	return taxation.RegimeComparison{EmployeeID: employeeID, TaxYear: taxYear, RecommendedRegime: tax.RegimeNew}, f.err
}

func (f *fakeTaxationService) AnnualLiability(ctx context.Context, employeeID string, year tax.TaxYear) (tax.Breakdown, error) {
	return tax.Breakdown{}, f.err
}

func (f *fakeTaxationService) AddDeduction(ctx context.Context, req taxation.AddDeductionRequest) (taxation.TaxationResponse, error) {
	f.lastDeduction = req
	return taxation.TaxationResponse{EmployeeID: req.EmployeeID}, f.err
}

func (f *fakeTaxationService) RemoveDeduction(ctx context.Context, req taxation.RemoveDeductionRequest) (taxation.TaxationResponse, error) {
	f.lastRemove = req
	return taxation.TaxationResponse{EmployeeID: req.EmployeeID}, f.err
}

func (f *fakeTaxationService) ChangeRegime(ctx context.Context, req taxation.ChangeRegimeRequest) (taxation.TaxationResponse, error) {
	return taxation.TaxationResponse{EmployeeID: req.EmployeeID}, f.err
}

func (f *fakeTaxationService) RecordRetirementBenefits(ctx context.Context, req taxation.RecordRetirementBenefitsRequest) (taxation.RetirementBenefitsResponse, error) {
	return taxation.RetirementBenefitsResponse{}, f.err
}

func (f *fakeTaxationService) Reproject(ctx context.Context, employeeID string, year tax.TaxYear) (taxation.TaxationResponse, error) {
	return taxation.TaxationResponse{EmployeeID: employeeID}, f.err
}

type fakeSalaryService struct {
	err error
}

func (f *fakeSalaryService) RecordSalaryChange(ctx context.Context, req salary.RecordSalaryChangeRequest) (salary.SalaryChangeResponse, error) {
	return salary.SalaryChangeResponse{}, f.err
}

func (f *fakeSalaryService) GetProjection(ctx context.Context, employeeID, taxYear string) (salary.SalaryProjection, error) {
	return salary.SalaryProjection{EmployeeID: employeeID, TaxYear: taxYear}, f.err
}

type fakePayoutService struct {
	existing   bool
	lastGet    [2]int
	lastFilter payout.PayoutFilter
	lastStatus payout.UpdateStatusRequest
	err        error
}

func (f *fakePayoutService) CalculatePayout(ctx context.Context, req payout.CalculatePayoutRequest) (payout.PayoutResult, error) {
	if f.err != nil {
		return payout.PayoutResult{}, f.err
	}
	return payout.PayoutResult{Payout: payout.PayoutResponse{EmployeeID: req.EmployeeID}, Existing: f.existing}, nil
}

func (f *fakePayoutService) GetPayout(ctx context.Context, employeeID string, month, year int) (payout.PayoutResponse, error) {
	f.lastGet = [2]int{month, year}
	return payout.PayoutResponse{EmployeeID: employeeID, Month: month, Year: year}, f.err
}

func (f *fakePayoutService) ListPayouts(ctx context.Context, filter payout.PayoutFilter) (payout.ListPayoutResponse, error) {
	f.lastFilter = filter
	return payout.ListPayoutResponse{
		Data:       []payout.PayoutResponse{{EmployeeID: "EMP001"}},
		TotalCount: 45,
		Page:       2,
		Limit:      20,
	}, f.err
}

func (f *fakePayoutService) UpdateStatus(ctx context.Context, req payout.UpdateStatusRequest) (payout.PayoutResponse, error) {
	f.lastStatus = req
	return payout.PayoutResponse{ID: req.ID, Status: req.Status}, f.err
}

type fakeAttendanceService struct {
	lastRecord attendance.RecordSummaryRequest
	err        error
}

func (f *fakeAttendanceService) GetAttendance(ctx context.Context, employeeID string, month, year int) (attendance.Summary, error) {
	if f.err != nil {
		return attendance.Summary{}, f.err
	}
	return attendance.FullMonth(employeeID, month, year), nil
}

func (f *fakeAttendanceService) RecordSummary(ctx context.Context, req attendance.RecordSummaryRequest) (attendance.SummaryResponse, error) {
	f.lastRecord = req
	return attendance.SummaryResponse{EmployeeID: req.EmployeeID, Month: req.Month, Year: req.Year}, f.err
}

// ===== HELPERS =====

type testServer struct {
	handler    http.Handler
	jwt        jwt.Service
	taxations  *fakeTaxationService
	salaries   *fakeSalaryService
	payouts    *fakePayoutService
	attendance *fakeAttendanceService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		jwt:        jwt.NewJWTService(handlerTestSecret, "1h"),
		taxations:  &fakeTaxationService{},
		salaries:   &fakeSalaryService{},
		payouts:    &fakePayoutService{},
		attendance: &fakeAttendanceService{},
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s.handler = NewRouter(
		RouterOptions{LogLevel: slog.LevelError},
		logger,
		s.jwt,
		NewAuthHandler(s.jwt),
		NewTaxationHandler(s.taxations),
		NewSalaryHandler(s.salaries),
		NewPayoutHandler(s.payouts),
		NewAttendanceHandler(s.attendance),
		NewRetirementHandler(),
	)
	return s
}

func (s *testServer) token(t *testing.T, role jwt.Role) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken("user-1", role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp))
	}
	return w, resp
}

func errorCode(resp map[string]interface{}) string {
	detail, _ := resp["error"].(map[string]interface{})
	code, _ := detail["code"].(string)
	return code
}

// ===== AUTH TESTS =====

func TestRouter_Heartbeat(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MissingToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25", nil, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RevokedToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, jwt.RoleHR)
	s.jwt.RevokeToken(token, time.Now().Add(time.Hour))

	w, resp := s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25", nil, token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp["success"].(bool))
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, jwt.RoleViewer)

	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp["success"].(bool))

	w, _ = s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, s.jwt.IsTokenRevoked(token))
}

func TestRouter_ViewerCannotWrite(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/calculate", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_ViewerCanRead(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "EMP001", data["employee_id"])
	assert.Equal(t, "2024-25", data["tax_year"])
}

// ===== TAXATION HANDLER TESTS =====

func TestTaxationHandler_Calculate_WithRegime(t *testing.T) {
	// Arrange
	s := newTestServer(t)
	body := map[string]string{"regime": "old"}

	// Act
	w, resp := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/calculate", body, s.token(t, jwt.RolePayrollAdmin))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp["success"].(bool))
	assert.Equal(t, "EMP001", s.taxations.lastCalculate.EmployeeID)
	assert.Equal(t, "2024-25", s.taxations.lastCalculate.TaxYear)
	require.NotNil(t, s.taxations.lastCalculate.Regime)
	assert.Equal(t, "old", *s.taxations.lastCalculate.Regime)
}

func TestTaxationHandler_Calculate_EmptyBody(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/calculate", nil, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.taxations.lastCalculate.Regime)
}

func TestTaxationHandler_Calculate_Locked(t *testing.T) {
	s := newTestServer(t)
	s.taxations.err = taxation.ErrRecalcInProgress

	w, resp := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/calculate", nil, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(resp))
}

func TestTaxationHandler_Get_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.taxations.err = taxation.ErrTaxationNotFound

	w, resp := s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25", nil, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp["success"].(bool))
}

func TestTaxationHandler_AddDeduction_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/deductions", "invalid json", s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaxationHandler_AddDeduction_BusinessRule(t *testing.T) {
	s := newTestServer(t)
	s.taxations.err = tax.ErrDeductionCapExceeded
	body := map[string]interface{}{"section": "80C", "amount": "200000"}

	w, resp := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/deductions", body, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "BUSINESS_RULE_VIOLATION", errorCode(resp))
	assert.Equal(t, "80C", s.taxations.lastDeduction.Section)
	assert.True(t, s.taxations.lastDeduction.Amount.Equal(money.FromInt(200000)))
}

func TestTaxationHandler_AddDeduction_ValidationError(t *testing.T) {
	s := newTestServer(t)
	s.taxations.err = validator.Single("amount", "must be greater than zero")

	w, resp := s.do(t, http.MethodPost, "/api/v1/taxations/EMP001/2024-25/deductions", map[string]interface{}{"section": "80C"}, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(resp))
}

func TestTaxationHandler_RemoveDeduction_SectionFromPath(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodDelete, "/api/v1/taxations/EMP001/2024-25/deductions/80D", nil, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "80D", s.taxations.lastRemove.Section)
	assert.Equal(t, "EMP001", s.taxations.lastRemove.EmployeeID)
}

func TestTaxationHandler_Compare(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/taxations/EMP001/2024-25/compare", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "new", data["recommended_regime"])
}

func TestTaxationHandler_UnexpectedError(t *testing.T) {
	s := newTestServer(t)
	s.taxations.err = errors.New("connection reset")

	w, resp := s.do(t, http.MethodPut, "/api/v1/taxations/EMP001/2024-25/regime", map[string]string{"regime": "old", "reason": "more deductions"}, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errorCode(resp))
}

// ===== SALARY HANDLER TESTS =====

func TestSalaryHandler_RecordChange_Created(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/salary-changes", map[string]interface{}{"employee_id": "EMP001"}, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSalaryHandler_GetProjection_NoSalary(t *testing.T) {
	s := newTestServer(t)
	s.salaries.err = salary.ErrNoSalaryOnRecord

	w, _ := s.do(t, http.MethodGet, "/api/v1/salary-changes/EMP001/2024-25/projection", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== PAYOUT HANDLER TESTS =====

func TestPayoutHandler_Calculate_NewAndExisting(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"employee_id": "EMP001", "month": 6, "year": 2024}

	w, _ := s.do(t, http.MethodPost, "/api/v1/payouts/calculate", body, s.token(t, jwt.RoleHR))
	assert.Equal(t, http.StatusCreated, w.Code)

	s.payouts.existing = true
	w, resp := s.do(t, http.MethodPost, "/api/v1/payouts/calculate", body, s.token(t, jwt.RoleHR))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp["data"].(map[string]interface{})["existing"].(bool))
}

func TestPayoutHandler_Calculate_AlreadyPaid(t *testing.T) {
	s := newTestServer(t)
	s.payouts.err = payout.ErrPayoutAlreadyPaid

	w, _ := s.do(t, http.MethodPost, "/api/v1/payouts/calculate", map[string]interface{}{"employee_id": "EMP001"}, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayoutHandler_Get(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/payouts/EMP001/2024/6", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{6, 2024}, s.payouts.lastGet)
}

func TestPayoutHandler_Get_NonNumericPeriod(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/payouts/EMP001/twenty/6", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoutHandler_List_Meta(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/payouts?status=PENDING&year=2024&page=2", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, s.payouts.lastFilter.Status)
	assert.Equal(t, "PENDING", *s.payouts.lastFilter.Status)
	require.NotNil(t, s.payouts.lastFilter.Year)
	assert.Equal(t, 2024, *s.payouts.lastFilter.Year)
	assert.Nil(t, s.payouts.lastFilter.Month)

	meta := resp["meta"].(map[string]interface{})
	assert.Equal(t, float64(45), meta["total_items"])
	assert.Equal(t, float64(3), meta["total_pages"])
}

func TestPayoutHandler_UpdateStatus(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPatch, "/api/v1/payouts/pay-1/status", map[string]string{"status": "APPROVED"}, s.token(t, jwt.RolePayrollAdmin))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay-1", s.payouts.lastStatus.ID)
	assert.Equal(t, "APPROVED", s.payouts.lastStatus.Status)
}

func TestPayoutHandler_UpdateStatus_InvalidTransition(t *testing.T) {
	s := newTestServer(t)
	s.payouts.err = payout.ErrInvalidStatusTransition

	w, _ := s.do(t, http.MethodPatch, "/api/v1/payouts/pay-1/status", map[string]string{"status": "PAID"}, s.token(t, jwt.RolePayrollAdmin))

	assert.Equal(t, http.StatusConflict, w.Code)
}

// ===== ATTENDANCE HANDLER TESTS =====

func TestAttendanceHandler_Record_PeriodFromPath(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"working_days": 28, "lwp_days": "1.5"}

	w, _ := s.do(t, http.MethodPut, "/api/v1/attendance/EMP001/2024/7", body, s.token(t, jwt.RoleHR))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMP001", s.attendance.lastRecord.EmployeeID)
	assert.Equal(t, 7, s.attendance.lastRecord.Month)
	assert.Equal(t, 2024, s.attendance.lastRecord.Year)
	assert.Equal(t, "1.5", s.attendance.lastRecord.LWPDays.String())
}

func TestAttendanceHandler_Get_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.attendance.err = attendance.ErrAttendanceNotFound

	w, _ := s.do(t, http.MethodGet, "/api/v1/attendance/EMP001/2024/7", nil, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== RETIREMENT HANDLER TESTS =====

func TestRetirementHandler_Evaluate(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{
		"tax_year": "2024-25",
		"regime":   "old",
		"age":      62,
		"benefits": map[string]interface{}{
			"retrenchment": map[string]interface{}{
				"amount":             "400000",
				"avg_monthly_salary": "60000",
				"service_years":      "7.6",
			},
		},
	}

	w, resp := s.do(t, http.MethodPost, "/api/v1/retirement-benefits/evaluate", body, s.token(t, jwt.RoleViewer))

	require.Equal(t, http.StatusOK, w.Code)
	summary := resp["data"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, "240000", summary["total_exempt"])
	assert.Equal(t, "160000", summary["total_taxable"])
}

func TestRetirementHandler_Evaluate_VRSIneligible(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{
		"tax_year": "2024-25",
		"regime":   "old",
		"age":      35,
		"benefits": map[string]interface{}{
			"vrs": map[string]interface{}{"amount": "300000", "age": 35, "service_years": "12"},
		},
	}

	w, resp := s.do(t, http.MethodPost, "/api/v1/retirement-benefits/evaluate", body, s.token(t, jwt.RoleViewer))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "BUSINESS_RULE_VIOLATION", errorCode(resp))
}
