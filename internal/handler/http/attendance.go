package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	Record(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{attendanceService: attendanceService}
}

func periodParams(r *http.Request) (month, year int, ok bool) {
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	return month, year, errYear == nil && errMonth == nil
}

func (h *attendanceHandlerImpl) Record(w http.ResponseWriter, r *http.Request) {
	month, year, ok := periodParams(r)
	if !ok {
		response.BadRequest(w, "Year and month must be numbers", nil)
		return
	}

	var req attendance.RecordSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID = chi.URLParam(r, "employeeID")
	req.Month = month
	req.Year = year

	result, err := h.attendanceService.RecordSummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance recorded", result)
}

func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	month, year, ok := periodParams(r)
	if !ok {
		response.BadRequest(w, "Year and month must be numbers", nil)
		return
	}

	summary, err := h.attendanceService.GetAttendance(r.Context(), chi.URLParam(r, "employeeID"), month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.ToSummaryResponse(summary))
}
