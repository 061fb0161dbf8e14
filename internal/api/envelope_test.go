package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_StatusByKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", Unauthenticated("no session"), http.StatusUnauthorized},
		{"unauthorized", Unauthorized("admin only"), http.StatusForbidden},
		{"validation", Validation("bad endpoint"), http.StatusBadRequest},
		{"tenant not configured", InvalidConfiguration(http.StatusNotFound, "subaccount not configured"), http.StatusNotFound},
		{"server not configured", InvalidConfiguration(0, "pool API credential not configured"), http.StatusInternalServerError},
		{"method", MethodNotAllowed("PATCH"), http.StatusMethodNotAllowed},
		{"upstream passthrough", Upstream(http.StatusTooManyRequests, "rate limited"), http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			status := WriteError(rec, tt.err)

			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.want, rec.Code)

			var env Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Nil(t, env.Timestamp)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: password authentication failed"))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	WriteData(rec, map[string]int{"count": 3}, now)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"count":3},"timestamp":"2024-05-01T12:00:00Z"}`, rec.Body.String())
}
