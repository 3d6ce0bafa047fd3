package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/taxation"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type TaxationHandler interface {
	Calculate(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Compare(w http.ResponseWriter, r *http.Request)
	AddDeduction(w http.ResponseWriter, r *http.Request)
	RemoveDeduction(w http.ResponseWriter, r *http.Request)
	ChangeRegime(w http.ResponseWriter, r *http.Request)
	RecordRetirementBenefits(w http.ResponseWriter, r *http.Request)
}

type taxationHandlerImpl struct {
	taxationService taxation.TaxationService
}

func NewTaxationHandler(taxationService taxation.TaxationService) TaxationHandler {
	return &taxationHandlerImpl{taxationService: taxationService}
}

func keyParams(r *http.Request) (employeeID, taxYear string) {
	return chi.URLParam(r, "employeeID"), chi.URLParam(r, "taxYear")
}

// decodeOptional tolerates an empty body.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *taxationHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	var req taxation.CalculateTaxRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID, req.TaxYear = keyParams(r)

	result, err := h.taxationService.CalculateTax(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *taxationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, taxYear := keyParams(r)

	result, err := h.taxationService.GetTaxation(r.Context(), employeeID, taxYear)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *taxationHandlerImpl) Compare(w http.ResponseWriter, r *http.Request) {
	employeeID, taxYear := keyParams(r)

	result, err := h.taxationService.CompareRegimes(r.Context(), employeeID, taxYear)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *taxationHandlerImpl) AddDeduction(w http.ResponseWriter, r *http.Request) {
	var req taxation.AddDeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID, req.TaxYear = keyParams(r)

	result, err := h.taxationService.AddDeduction(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Deduction declared", result)
}

func (h *taxationHandlerImpl) RemoveDeduction(w http.ResponseWriter, r *http.Request) {
	var req taxation.RemoveDeductionRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID, req.TaxYear = keyParams(r)
	req.Section = chi.URLParam(r, "section")

	result, err := h.taxationService.RemoveDeduction(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Deduction removed", result)
}

func (h *taxationHandlerImpl) ChangeRegime(w http.ResponseWriter, r *http.Request) {
	var req taxation.ChangeRegimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID, req.TaxYear = keyParams(r)

	result, err := h.taxationService.ChangeRegime(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tax regime updated", result)
}

func (h *taxationHandlerImpl) RecordRetirementBenefits(w http.ResponseWriter, r *http.Request) {
	var req taxation.RecordRetirementBenefitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.EmployeeID, req.TaxYear = keyParams(r)

	result, err := h.taxationService.RecordRetirementBenefits(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
