package errors

import (
	"encoding/json"
	"net/http"

	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError renders any error as an APIError. Errors outside the apperr
// taxonomy become a generic internal error.
func WriteError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	Write(w, StatusFor(code), APIError{Code: string(code), Message: apperr.MessageOf(err)})
}

func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.InvalidArgument:
		return http.StatusBadRequest
	case apperr.ResourceExhausted:
		return http.StatusTooManyRequests
	case apperr.FailedPrecondition:
		return http.StatusPreconditionFailed
	case apperr.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
