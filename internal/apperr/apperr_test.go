package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotOwned_HidesDetails(t *testing.T) {
	err := NotOwned("append_run_state")

	assert.Equal(t, CodeNotOwned, err.Code)
	assert.Equal(t, "NOT_OWNED: append_run_state: not accessible", err.Error())
	assert.False(t, err.Retryable)
}

func TestErrorsIs_ComparesCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotOwned("latest_run_state"))

	assert.True(t, errors.Is(wrapped, ErrNotOwned))
	assert.False(t, errors.Is(wrapped, ErrWriteFailed))
	assert.True(t, Is(wrapped, CodeNotOwned))
}

func TestWriteFailed_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WriteFailed("insert_evidence_items", cause, true)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEnsure(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Ensure("op", nil, CodeWriteFailed))
	})

	t.Run("categorized passes through", func(t *testing.T) {
		orig := NotOwned("op")
		assert.Same(t, orig, Ensure("op", orig, CodeWriteFailed))
	})

	t.Run("raw write error is wrapped", func(t *testing.T) {
		err := Ensure("op", errors.New("boom"), CodeWriteFailed)
		e, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, CodeWriteFailed, e.Code)
		assert.False(t, e.Retryable)
	})

	t.Run("raw error with unknown fallback is internal", func(t *testing.T) {
		err := Ensure("op", errors.New("boom"), CodeNotFound)
		assert.True(t, Is(err, CodeInternal))
	})
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not owned", NotOwned("op"), http.StatusForbidden},
		{"write failed", WriteFailed("op", nil, true), http.StatusServiceUnavailable},
		{"read failed", ReadFailed("op", nil, false), http.StatusServiceUnavailable},
		{"invalid", InvalidRequest("op", "bad"), http.StatusBadRequest},
		{"not found", NotFound("op", "role"), http.StatusNotFound},
		{"internal", Internal("op", nil), http.StatusInternalServerError},
		{"plain", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublic_NeverLeaksCause(t *testing.T) {
	secret := errors.New("pq: password authentication failed for user admin")

	internal := Public(Internal("op", secret))
	assert.Equal(t, CodeInternal, internal["code"])
	assert.NotContains(t, fmt.Sprint(internal), "password")

	write := Public(WriteFailed("op", secret, true))
	assert.Equal(t, true, write["retryable"])
	assert.NotContains(t, fmt.Sprint(write), "password")

	owned := Public(NotOwned("op"))
	assert.Equal(t, "not accessible", owned["message"])
	_, hasRetry := owned["retryable"]
	assert.False(t, hasRetry)
}
