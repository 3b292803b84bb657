package httpext

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/deepgram/relay/pkg/logger"
)

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HTTPError is an error that carries its own status code and client-facing detail
type HTTPError struct {
	StatusCode int
	Detail     string
}

func NewHTTPError(code int, detail string) *HTTPError {
	return &HTTPError{StatusCode: code, Detail: detail}
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, detail string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Detail: detail}); err != nil {
		logger.Error(logger.HANDLER, "Failed to encode error response: %v", err)
		// Fallback to writing JSON body as plain text if JSON encoding fails
		http.Error(w, "{\"detail\":\"Internal Server Error\"}", http.StatusInternalServerError)
		return
	}
}

// ErrorDetail maps err to a status and client-facing detail. An HTTPError anywhere in the
// chain keeps its own status and detail; anything else becomes a 500 carrying the error message.
func ErrorDetail(err error) (int, string) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, httpErr.Detail
	}
	return http.StatusInternalServerError, fmt.Sprintf("internal server error: %v", err)
}

// WriteError writes err as a JSON error response
func WriteError(w http.ResponseWriter, err error) {
	code, detail := ErrorDetail(err)
	JsonError(w, detail, code)
}

// JsonResponse writes body as JSON with the given status code
func JsonResponse(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(logger.HANDLER, "Failed to encode response: %v", err)
	}
}
