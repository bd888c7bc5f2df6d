package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	"github.com/JPJPKIMJP/AMLWD/internal/pkg/apperr"
	authsvc "github.com/JPJPKIMJP/AMLWD/internal/services/auth"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: string(apperr.InvalidArgument), Message: message})
}

func writeUnavailable(w http.ResponseWriter, message string) {
	httperrors.WriteError(w, apperr.New(apperr.FailedPrecondition, message))
}

func requesterFromRequest(r *http.Request) model.Requester {
	return authsvc.RequesterFromContext(r.Context(), clientIPFromRequest(r))
}

func clientIPFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if value := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); value != "" {
		parts := strings.Split(value, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if value := strings.TrimSpace(r.Header.Get("X-Real-IP")); value != "" {
		return value
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
