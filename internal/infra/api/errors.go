package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vpn-billing/internal/domain"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

// classify maps an error to an HTTP status and a short reason code.
// Transient fulfillment failures come first so callers retry them.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEntitlementPushFailed):
		return http.StatusServiceUnavailable, "push_failed"
	case errors.Is(err, domain.ErrAccountProvisioningFailed):
		return http.StatusServiceUnavailable, "provisioning_failed"
	case errors.Is(err, domain.ErrLockNotAcquired):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusNotFound, "unknown_provider"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, domain.ErrBadSignature):
		return http.StatusBadRequest, "bad_signature"
	case errors.Is(err, domain.ErrBadSourceIP):
		return http.StatusForbidden, "bad_source_ip"
	case errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest, "malformed"
	case errors.Is(err, domain.ErrUnverifiedStatus):
		return http.StatusBadRequest, "unverified"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := ""
	if status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeError(w, status, code, msg)
}
