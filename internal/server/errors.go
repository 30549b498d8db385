package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// JSONErrorHandler renders every unhandled error as an ErrorResponse.
// Echo errors keep their status; anything else is a 500 and gets logged.
// In dev mode the underlying message is returned as details.
func JSONErrorHandler(logger *logrus.Logger, devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := ErrorResponse{Error: "internal server error", Code: http.StatusInternalServerError}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			resp.Code = he.Code
			resp.Error = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok && msg != "" && he.Code < http.StatusInternalServerError {
				resp.Error = msg
			}
		} else if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Error("unhandled error")
		}

		if devMode && resp.Code >= http.StatusInternalServerError {
			resp.Details = map[string]any{"err": err.Error()}
		}
		_ = c.JSON(resp.Code, resp)
	}
}
