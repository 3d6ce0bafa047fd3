package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/samber/lo"
)

// RequireRole lets the request through when the token's role is one of roles.
func RequireRole(roles ...jwt.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			roleStr, ok := claims["role"].(string)
			if !ok {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			if !lo.Contains(roles, jwt.Role(roleStr)) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: role '%s' cannot perform this action", roleStr))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWriter allows roles that may change payroll data.
func RequireWriter(next http.Handler) http.Handler {
	return RequireRole(jwt.RolePayrollAdmin, jwt.RoleHR)(next)
}
