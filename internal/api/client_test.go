package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"tiquetera/internal/shared/config"
	"tiquetera/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.APIConfig{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second}, tokens, WithLogger(logger.Discard()))
}

func TestClientSendsTokenHeader(t *testing.T) {
	var gotAuth, gotPath, gotQuery, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[{"id":1,"name":"Antioquia"}]`))
	}, &fakeTokens{token: "abc123"})

	var out []map[string]interface{}
	err := c.Get(context.Background(), "/cities/", url.Values{"department_id": {"5"}}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Token abc123", gotAuth)
	assert.Equal(t, "/api/cities/", gotPath)
	assert.Equal(t, "department_id=5", gotQuery)
	assert.NotEmpty(t, gotRequestID)
	assert.Len(t, out, 1)
}

func TestClientAnonymousSkipsToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}, &fakeTokens{token: "abc123"})

	require.NoError(t, c.Get(context.Background(), "/departments/", nil, nil, Anonymous()))
	assert.Empty(t, gotAuth)
}

func TestClientUnauthorizedClearsSession(t *testing.T) {
	tokens := &fakeTokens{token: "expired"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token inválido."}`))
	}, tokens)

	err := c.Get(context.Background(), "/events/my/", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Token inválido.", err.Error())
	assert.Equal(t, 1, tokens.cleared)
	assert.Empty(t, tokens.token)
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"not found", http.StatusNotFound, `{"detail":"Not found."}`, ErrNotFound, "Not found."},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, ErrRateLimited, "slow down"},
		{"validation", http.StatusBadRequest, `{"email":["Ya existe un usuario con este email."],"username":["Requerido."]}`, ErrValidation, "Ya existe un usuario con este email."},
		{"non field", http.StatusBadRequest, `{"non_field_errors":["Las contraseñas no coinciden"]}`, ErrValidation, "Las contraseñas no coinciden"},
		{"html body", http.StatusInternalServerError, `<html>boom</html>`, nil, "backend returned HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, nil)

			err := c.Post(context.Background(), "/users/register/", map[string]string{"a": "b"}, nil)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, tt.msg, err.Error())
			assert.True(t, IsStatus(err, tt.status))
			assert.False(t, IsNetwork(err))
		})
	}
}

func TestClientFieldOrderPreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["taken"],"email":"bad email","detail":"Revise los campos"}`))
	}, nil)

	err := c.Post(context.Background(), "/users/register/", struct{}{}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Revise los campos", se.Message)
	require.Len(t, se.Fields, 2)
	assert.Equal(t, "username", se.Fields[0].Field)
	assert.Equal(t, "bad email", se.FieldMessage("email"))
	assert.Empty(t, se.FieldMessage("phone"))
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(config.APIConfig{BaseURL: base, Timeout: time.Second}, nil, WithLogger(logger.Discard()))
	err := c.Get(context.Background(), "/departments/", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsNetwork(err))
}

func TestClientRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)

	err := c.Get(context.Background(), "/departments/", nil, nil, Timeout(20*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}, nil)

	var out []string
	err := c.Get(context.Background(), "/departments/", nil, &out)
	require.Error(t, err)
	assert.False(t, IsNetwork(err))
}
