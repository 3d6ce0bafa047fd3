package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/salary"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SalaryHandler interface {
	RecordChange(w http.ResponseWriter, r *http.Request)
	GetProjection(w http.ResponseWriter, r *http.Request)
}

type salaryHandlerImpl struct {
	salaryService salary.SalaryService
}

func NewSalaryHandler(salaryService salary.SalaryService) SalaryHandler {
	return &salaryHandlerImpl{salaryService: salaryService}
}

func (h *salaryHandlerImpl) RecordChange(w http.ResponseWriter, r *http.Request) {
	var req salary.RecordSalaryChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.salaryService.RecordSalaryChange(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary change recorded", result)
}

func (h *salaryHandlerImpl) GetProjection(w http.ResponseWriter, r *http.Request) {
	result, err := h.salaryService.GetProjection(r.Context(), chi.URLParam(r, "employeeID"), chi.URLParam(r, "taxYear"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
