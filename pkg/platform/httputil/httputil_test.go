package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "quotaguard/pkg/domain-errors"
)

func TestWriteErrorDomainCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "tenant not found"), http.StatusNotFound, "not_found"},
		{"auth required", dErrors.New(dErrors.CodeAuthenticationRequired, "authentication required"), http.StatusUnauthorized, "authentication_required"},
		{"auth invalid", dErrors.New(dErrors.CodeAuthenticationInvalid, "bad token"), http.StatusUnauthorized, "authentication_invalid"},
		{"quota exceeded", dErrors.New(dErrors.CodeQuotaExceeded, "limit reached"), http.StatusForbidden, "quota_exceeded"},
		{"store unavailable", dErrors.New(dErrors.CodeStoreUnavailable, "redis down"), http.StatusServiceUnavailable, "store_unavailable"},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "store timeout"), http.StatusGatewayTimeout, "timeout"},
		{"conflict", dErrors.New(dErrors.CodeConflict, "tenant exists"), http.StatusConflict, "conflict"},
		{"plain error falls back to 500", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestWriteErrorPreservesWrappedCode(t *testing.T) {
	err := dErrors.Wrap(errors.New("conn refused"), dErrors.CodeStoreUnavailable, "store unreachable")
	rec := httptest.NewRecorder()
	WriteError(rec, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type validatedRequest struct {
	Name string `json:"name"`
}

func (r *validatedRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"ok"}`))
		rec := httptest.NewRecorder()

		decoded, ok := DecodeAndValidate[validatedRequest](rec, req, logger)
		require.True(t, ok)
		assert.Equal(t, "ok", decoded.Name)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndValidate[validatedRequest](rec, req, logger)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failure keeps domain code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":""}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndValidate[validatedRequest](rec, req, logger)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation_failed", body["error"])
	})
}
