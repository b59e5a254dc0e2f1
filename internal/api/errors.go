package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/discovery"
)

// apiError is the JSON body served on any non-2xx/304 response.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusFor maps the discovery/cipher error taxonomy to an HTTP status code.
func statusFor(err error) (int, string) {
	var discErr *discovery.Error
	if errors.As(err, &discErr) {
		switch discErr.Kind {
		case discovery.Unauthorized:
			return http.StatusUnauthorized, "UNAUTHORIZED"
		case discovery.NotConfigured:
			return http.StatusNotFound, "NOT_CONFIGURED"
		case discovery.TemplateError:
			return http.StatusInternalServerError, "TEMPLATE_ERROR"
		case discovery.Timeout:
			return http.StatusGatewayTimeout, "TIMEOUT"
		default:
			return http.StatusInternalServerError, "INTERNAL_ERROR"
		}
	}
	var cipherErr *cipher.Error
	if errors.As(err, &cipherErr) {
		return http.StatusBadRequest, "CIPHER_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeError renders err as the configured minimal-or-debug JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	status, code := statusFor(err)
	writeErrorWith(w, r, status, code, err, debug)
}

// writeBadRequest is for malformed client input (unparseable body, failed
// validation), which the error taxonomy doesn't cover.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	writeErrorWith(w, r, http.StatusBadRequest, "BAD_REQUEST", err, debug)
}

func writeErrorWith(w http.ResponseWriter, r *http.Request, status int, code string, err error, debug bool) {
	body := apiError{
		Code:      code,
		RequestID: requestID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if debug {
		body.Message = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
