package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/service"
)

// UserResolver turns a raw access token into its user.
type UserResolver interface {
	CurrentUser(ctx context.Context, raw string) (*model.User, error)
}

// BearerToken returns the token of an "Authorization: Bearer ..." header.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, raw, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Unauthorized writes the 401 body shared by every auth failure.
func Unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detail})
}

// JWTAuth requires a valid access token and stores its user in the context
// under "user". Refresh, verification and reset tokens are rejected.
func JWTAuth(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return Unauthorized(c, "Not authenticated")
			}
			u, err := users.CurrentUser(c.Request().Context(), raw)
			if err != nil {
				if service.KindOf(err) == service.KindUnauthorized {
					return Unauthorized(c, err.Error())
				}
				return err
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}
