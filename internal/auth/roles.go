package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// RequireAuthenticated ensures a caller is logged in.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireExpert ensures the caller holds an expert account.
func RequireExpert() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil || principal.User.Role != domain.UserRoleExpert {
			return fiber.NewError(http.StatusForbidden, "expert account required")
		}
		return c.Next()
	}
}
