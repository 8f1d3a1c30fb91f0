package httpserver

import (
	"crypto/subtle"
	"regexp"

	apperrors "github.com/RockGamerAK/Economy-Fun-Bot/internal/errors"
	"github.com/RockGamerAK/Economy-Fun-Bot/internal/platform/correlation"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const correlationHeader = "X-Correlation-ID"

var validCorrelationID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// correlationMiddleware tags the request context with a correlation ID,
// reusing a well-formed one sent by the caller, and echoes it back.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(correlationHeader)
		if !validCorrelationID.MatchString(id) {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlationHeader, id)
		return next(c)
	}
}

// requireAPIKey accepts requests carrying "Authorization: Bearer <key>".
func requireAPIKey(key string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(got string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1, nil
		},
		ErrorHandler: func(_ error, _ echo.Context) error {
			return apperrors.UnauthorizedError("missing or invalid API key")
		},
	})
}
