package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"stackresolve/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var se *errors.StackError
	if stderrors.As(err, &se) {
		resp.Error = se.Message
		resp.Code = string(se.Code)
		resp.Details = se.Details
		resp.SuggestedFixes = se.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteStackError writes err with the status its code maps to.
func WriteStackError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.InvalidArgument, errors.ParseError:
		return http.StatusBadRequest // 400
	case errors.RepoNotFound:
		return http.StatusNotFound // 404
	case errors.MissingRevision:
		return http.StatusUnprocessableEntity // 422
	case errors.BackendUnavailable:
		return http.StatusServiceUnavailable // 503
	case errors.Timeout:
		return http.StatusGatewayTimeout // 504
	case errors.FrameResolution, errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, &errors.StackError{
		Code:    errors.InvalidArgument,
		Message: message,
	}, http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteJSON(w, ErrorResponse{Error: message, Code: "NOT_FOUND"}, http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.New(errors.InternalError, message, err), http.StatusInternalServerError)
}
