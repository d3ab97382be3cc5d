package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"conflict", New(KindConflict, "ALREADY_VOTED", "dup"), http.StatusBadRequest},
		{"not found", NotFound("nope"), http.StatusNotFound},
		{"auth failure", New(KindAuthFailure, "AUTH_FAILURE", "denied"), http.StatusForbidden},
		{"unauthorized", New(KindUnauthorized, "BAD_PASSCODE", "denied"), http.StatusForbidden},
		{"upstream", New(KindUpstream, "GEOCODE_FAILURE", "boom"), http.StatusInternalServerError},
		{"persistence", Persistence(errors.New("conn reset"), "db"), http.StatusInternalServerError},
		{"rate limited", New(KindRateLimited, "RATE_LIMITED", "slow down"), http.StatusTooManyRequests},
		{"plain error", errors.New("plain"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", NotFound("inner")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New(KindNotFound, "SESSION_NOT_FOUND", "session not found")
	err := fmt.Errorf("lookup: %w", sentinel.WithDetails("code ABC"))

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, New(KindNotFound, "OTHER", "other")))
}

func TestBody(t *testing.T) {
	body := Body(New(KindUpstream, "GEOCODE_FAILURE", "geocoding failed").WithDetails("OVER_QUERY_LIMIT"))
	assert.Equal(t, "geocoding failed", body["error"])
	assert.Equal(t, "OVER_QUERY_LIMIT", body["details"])

	body = Body(errors.New("secret internals"))
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body, "details")
}
