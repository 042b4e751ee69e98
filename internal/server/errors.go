package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// statusError pins an error to a status its code alone does not imply.
type statusError struct {
	status int
	err    *clierr.Error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func forbidden(format string, args ...any) error {
	return &statusError{status: http.StatusForbidden, err: clierr.Newf(clierr.Unauthorized, format, args...)}
}

func unauthorized(err error) error {
	return &statusError{status: http.StatusUnauthorized, err: clierr.Wrap(clierr.Unauthorized, err, "%v", err)}
}

func badRequest(format string, args ...any) error {
	return clierr.Newf(clierr.InvalidInput, format, args...)
}

func statusForCode(code string) int {
	switch code {
	case clierr.Conflict, clierr.WIPLimitExceeded:
		return http.StatusConflict
	case clierr.NotFound, clierr.TaskNotFound, clierr.BoardNotFound, clierr.EntryNotFound:
		return http.StatusNotFound
	case clierr.InvalidInput, clierr.InvalidStatus, clierr.InvalidPriority, clierr.InvalidDate,
		clierr.InvalidTaskID, clierr.InvalidGroupBy, clierr.NoChanges:
		return http.StatusBadRequest
	case clierr.Unauthorized:
		return http.StatusUnauthorized
	case clierr.TransientNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return clierr.NotFound
	case status == http.StatusConflict:
		return clierr.Conflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return clierr.Unauthorized
	case status >= 400 && status < 500:
		return clierr.InvalidInput
	default:
		return clierr.InternalError
	}
}

// errorBody resolves err into a status and the JSON envelope.
func errorBody(err error) (int, errorResponse) {
	var se *statusError
	if errors.As(err, &se) {
		return se.status, errorResponse{Error: se.err.Message, Code: se.err.Code, Details: se.err.Details}
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return statusForCode(ce.Code), errorResponse{Error: ce.Message, Code: ce.Code, Details: ce.Details}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprint(he.Message), Code: codeForStatus(he.Code)}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: clierr.InternalError}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.WithError(err).Warn("writing error response")
	}
}
