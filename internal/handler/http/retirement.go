package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
)

type RetirementHandler interface {
	Evaluate(w http.ResponseWriter, r *http.Request)
}

type retirementHandlerImpl struct{}

func NewRetirementHandler() RetirementHandler {
	return &retirementHandlerImpl{}
}

// Evaluate is stateless: it reports exemptions without reading or writing any record.
func (h *retirementHandlerImpl) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req tax.EvaluateRetirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := tax.EvaluateRetirement(req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
