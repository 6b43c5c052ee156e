package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"INVALID_SIGNATURE", http.StatusUnauthorized},
		{"SLUG_TAKEN", http.StatusConflict},
		{"COMPANY_INACTIVE", http.StatusForbidden},
		{"SELF_MESSAGE", http.StatusUnprocessableEntity},
		{"PDF_DISABLED", http.StatusServiceUnavailable},
		{"UNSUPPORTED_MEDIA_TYPE", http.StatusUnsupportedMediaType},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestDomainErrorStatus_DefaultsToUnprocessable(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, DomainErrorStatus("SOME_RULE"))
	assert.Equal(t, http.StatusNotFound, DomainErrorStatus(ErrCodeNotFound))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestErrorEnvelopeJSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "email", Message: "This field is required"},
	})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "VALIDATION_ERROR",
			"message": "Request validation failed",
			"request_id": "req-1",
			"details": [{"field": "email", "message": "This field is required"}]
		}
	}`, string(raw))

	raw, err = json.Marshal(NewErrorResponse(ErrCodeNotFound, "Resource not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "error": {"code": "NOT_FOUND", "message": "Resource not found"}}`, string(raw))
}
