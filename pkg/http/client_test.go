package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "botfarm/pkg/errors"
)

type headerSigner struct{}

func (headerSigner) SignRequest(req *http.Request) error {
	req.Header.Set("X-Signed", "yes")
	return nil
}

func TestClient_GetSignsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "yes", r.Header.Get("X-Signed"))
		require.Equal(t, "bar", r.URL.Query().Get("foo"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, headerSigner{})
	body, err := c.Get(context.Background(), "/path", map[string]string{"foo": "bar"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{http.StatusUnauthorized, apperrors.ErrAccessDenied},
		{http.StatusForbidden, apperrors.ErrAccessDenied},
		{http.StatusBadGateway, apperrors.ErrNetwork},
	}

	for _, tt := range tests {
		err := error(&APIError{StatusCode: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d should map to %v", tt.status, tt.want)
		}
	}

	// 4xx outside the mapped set stays a bare APIError.
	err := error(&APIError{StatusCode: http.StatusNotFound})
	if errors.Is(err, apperrors.ErrNetwork) || errors.Is(err, apperrors.ErrAccessDenied) {
		t.Error("404 should not map to a platform error class")
	}
}

func TestClient_PostBodyReplayedOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	_, err := c.Post(context.Background(), "/op", map[string]string{"id": "42"})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"id":"42"}`, bodies[0])
	// The retry must carry the same payload, not an empty body.
	assert.Equal(t, bodies[0], bodies[1])
}

func TestClient_ErrorStatusSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"denied"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	_, err := c.Get(context.Background(), "/path", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
}
