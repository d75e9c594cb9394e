package server

import (
	"encoding/json"
	"errors"
	"net/http"

	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/layout"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a message.
type ErrorDetail struct {
	Code    perrors.Code `json:"code"`
	Message string       `json:"message"`
}

// classify maps errors from the layout and session layers onto error
// codes. Errors that already carry a code pass through.
func classify(err error) error {
	if perrors.GetCode(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, layout.ErrUnknownNode):
		return perrors.Wrap(perrors.ErrCodeNotFound, err, "node not found")
	case errors.Is(err, layout.ErrAlreadyDragging), errors.Is(err, layout.ErrNotDragging):
		return perrors.Wrap(perrors.ErrCodeInvalidDrag, err, "invalid drag")
	case errors.Is(err, errClosed):
		return perrors.Wrap(perrors.ErrCodeSessionNotFound, err, "session closed")
	}
	return perrors.Wrap(perrors.ErrCodeInternal, err, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	status := perrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(err))
}

func errorBody(err error) ErrorBody {
	return ErrorBody{Error: ErrorDetail{Code: perrors.GetCode(err), Message: perrors.UserMessage(err)}}
}
