package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/payout"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayoutHandler interface {
	Calculate(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

type payoutHandlerImpl struct {
	payoutService payout.PayoutService
}

func NewPayoutHandler(payoutService payout.PayoutService) PayoutHandler {
	return &payoutHandlerImpl{payoutService: payoutService}
}

func (h *payoutHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	var req payout.CalculatePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payoutService.CalculatePayout(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result.Existing {
		response.Success(w, result)
		return
	}
	response.Created(w, "Payout calculated", result)
}

func (h *payoutHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	year, errYear := strconv.Atoi(chi.URLParam(r, "year"))
	month, errMonth := strconv.Atoi(chi.URLParam(r, "month"))
	if errYear != nil || errMonth != nil {
		response.BadRequest(w, "Year and month must be numbers", nil)
		return
	}

	result, err := h.payoutService.GetPayout(r.Context(), chi.URLParam(r, "employeeID"), month, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payoutHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	var filter payout.PayoutFilter
	q := r.URL.Query()

	if v := q.Get("month"); v != "" {
		if month, err := strconv.Atoi(v); err == nil {
			filter.Month = &month
		}
	}
	if v := q.Get("year"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			filter.Year = &year
		}
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("employee_id"); v != "" {
		filter.EmployeeID = &v
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	result, err := h.payoutService.ListPayouts(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payoutHandlerImpl) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payout ID is required", nil)
		return
	}

	var req payout.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.payoutService.UpdateStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payout status updated", result)
}
