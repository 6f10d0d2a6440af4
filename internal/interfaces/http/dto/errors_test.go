package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"not found", ErrCodeNotFound, http.StatusNotFound},
		{"validation", ErrCodeValidation, http.StatusBadRequest},
		{"unauthorized", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"isolation violation", ErrCodeIsolationViolation, http.StatusForbidden},
		{"subscription inactive", ErrCodeSubscriptionInactive, http.StatusForbidden},
		{"invalid signature", ErrCodeInvalidSignature, http.StatusUnauthorized},
		{"invalid state", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"conflict", ErrCodeAlreadyExists, http.StatusConflict},
		{"tenant unavailable", ErrCodeTenantUnavailable, http.StatusServiceUnavailable},
		{"unknown code falls back to 500", "ERR_NO_SUCH_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"tenant not found", "TENANT_NOT_FOUND", ErrCodeNotFound},
		{"alert not found", "ALERT_NOT_FOUND", ErrCodeNotFound},
		{"unknown provider", "UNKNOWN_PROVIDER", ErrCodeNotFound},
		{"domain exists", "DOMAIN_EXISTS", ErrCodeAlreadyExists},
		{"invalid state", "INVALID_STATE", ErrCodeInvalidState},
		{"invalid signature", "INVALID_SIGNATURE", ErrCodeInvalidSignature},
		{"internal", "INTERNAL_ERROR", ErrCodeInternal},
		{"generic invalid prefix", "INVALID_SUBDOMAIN", ErrCodeValidation},
		{"already normalized", ErrCodeForbidden, ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}
