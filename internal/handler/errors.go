package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/contacts-api/internal/service"
)

// requestTimeout bounds the store work done for a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// message is the body of every response that only carries a notice.
type message struct {
	Message string `json:"message"`
}

var kindStatus = map[service.Kind]int{
	service.KindBadRequest:    http.StatusBadRequest,
	service.KindUnauthorized:  http.StatusUnauthorized,
	service.KindNotFound:      http.StatusNotFound,
	service.KindConflict:      http.StatusConflict,
	service.KindUnprocessable: http.StatusUnprocessableEntity,
}

// ErrorHandler renders every error as {"detail": ...}. Service errors map
// to their kind's status, validation failures to 422 and anything unknown to
// a logged 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := http.StatusInternalServerError, "internal error"
	var (
		se   *service.Error
		ve   validator.ValidationErrors
		he   *echo.HTTPError
		hdrs = c.Response().Header()
	)
	switch {
	case errors.As(err, &se):
		if code, ok := kindStatus[se.Kind]; ok {
			status = code
		}
		detail = se.Message
		if se.Kind == service.KindUnauthorized {
			hdrs.Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
	case errors.As(err, &ve):
		status, detail = http.StatusUnprocessableEntity, validationDetail(ve)
	case errors.As(err, &he):
		status = he.Code
		detail = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, echo.Map{"detail": detail})
	}
	if err != nil {
		log.Error().Err(err).Msg("write error response")
	}
}

func validationDetail(ve validator.ValidationErrors) string {
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
