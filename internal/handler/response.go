package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/model"
	"github.com/iliyamo/account-service/internal/service"
)

// msgInternal hides the cause of a 500 from clients.
const msgInternal = "Something went wrong."

type successBody struct {
	Status   int    `json:"status"`
	Message  string `json:"message,omitempty"`
	Response any    `json:"response"`
}

type failureBody struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Errors  []model.FieldError `json:"errors,omitempty"`
}

// ok writes the success envelope {status: 1, response}.
func ok(c echo.Context, response any) error {
	return c.JSON(http.StatusOK, successBody{Status: 1, Response: response})
}

// okMessage is ok with a message next to the response.
func okMessage(c echo.Context, message string, response any) error {
	return c.JSON(http.StatusOK, successBody{Status: 1, Message: message, Response: response})
}

// badRequest is a 400 raised by the HTTP layer itself.
func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// statusOf maps an error to its HTTP status, message and field errors.
func statusOf(err error) (int, string, []model.FieldError) {
	var se *service.Error
	if errors.As(err, &se) {
		switch {
		case errors.Is(se.Kind, service.ErrUnauthorized):
			return http.StatusUnauthorized, se.Message, nil
		case service.IsClientError(se):
			return http.StatusBadRequest, se.Message, se.Fields
		}
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error(), ve.Fields
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, isString := he.Message.(string)
		if !isString || he.Code >= http.StatusInternalServerError {
			msg = http.StatusText(he.Code)
		}
		return he.Code, msg, nil
	}
	return http.StatusInternalServerError, msgInternal, nil
}

// ErrorHandler renders every error returned by a handler or middleware
// into the failure envelope {status: 0, message[, errors]}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg, fields := statusOf(err)
	body := failureBody{Status: 0, Message: msg, Errors: fields}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
