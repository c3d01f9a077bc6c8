package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ykravets/contacts-api/internal/auth"
)

// PrincipalKey is the echo context key under which the authenticated
// Principal is stored for downstream handlers.
const PrincipalKey = "principal"

// Authenticate returns an Echo middleware that resolves the Bearer token of
// each request into a Principal and stores it in the context. Token
// failures answer 401 with a generic body; a user store failure answers 503
// since the request could not be judged either way.
func Authenticate(a *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			p, err := a.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
				}
				c.Logger().Errorf("authenticate: %v", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authentication backend unavailable"})
			}

			c.Set(PrincipalKey, p)
			c.Set("user_email", p.Email)
			return next(c)
		}
	}
}

// CurrentPrincipal extracts the Principal placed in the context by
// Authenticate. ok is false on routes the middleware does not wrap.
func CurrentPrincipal(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(auth.Principal)
	return p, ok
}
