package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type AuthHandler interface {
	Logout(w http.ResponseWriter, r *http.Request)
}

type authHandlerImpl struct {
	jwtService jwt.Service
}

func NewAuthHandler(jwtService jwt.Service) AuthHandler {
	return &authHandlerImpl{jwtService: jwtService}
}

// Logout revokes the bearer token of the request until it expires.
func (h *authHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		response.Unauthorized(w, "Invalid token")
		return
	}

	h.jwtService.RevokeToken(jwtauth.TokenFromHeader(r), token.Expiration())
	response.SuccessWithMessage(w, "Logged out successfully", nil)
}
