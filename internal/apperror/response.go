package apperror

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/wolfman30/leadradar/pkg/logging"
)

// Response is the JSON envelope for every error.
type Response struct {
	Error *Error `json:"error"`
}

// Write renders err as a JSON error envelope. Internal errors are logged with
// their cause and reported to the client with a generic message.
func Write(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	appErr := As(err)
	if logger != nil {
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"code", appErr.Code,
				"error", err,
			)
		} else {
			logger.Debug("request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"code", appErr.Code,
			)
		}
	}
	render.Status(r, appErr.Status)
	render.JSON(w, r, Response{Error: appErr})
}
