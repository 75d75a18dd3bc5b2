package catalogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tiquetera/internal/api"
	"tiquetera/internal/shared/config"
	"tiquetera/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryIDAcceptsNumbersAndStrings(t *testing.T) {
	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(`[{"id":5,"name":"Antioquia"},{"id":"CC","name":"Cédula"}]`), &entries))

	assert.Equal(t, ID("5"), entries[0].ID)
	n, ok := entries[0].ID.Int()
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	assert.Equal(t, ID("CC"), entries[1].ID)
	_, ok = entries[1].ID.Int()
	assert.False(t, ok)

	out, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":5,"name":"Antioquia"},{"id":"CC","name":"Cédula"}]`, string(out))

	out, err = json.Marshal(Entry{ID: "007"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"007","name":""}`, string(out))
}

func TestFind(t *testing.T) {
	e, ok := Find(DefaultDocumentTypes(), "PA")
	assert.True(t, ok)
	assert.Equal(t, "Pasaporte", e.Name)

	_, ok = Find(DefaultDocumentTypes(), "XX")
	assert.False(t, ok)
}

func TestBackendFetcher(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/departments/":
			w.Write([]byte(`[{"id":5,"name":"Antioquia"}]`))
		case "/api/cities/":
			w.Write([]byte(`[{"id":1,"name":"Medellín"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := api.NewClient(config.APIConfig{BaseURL: srv.URL + "/api", Timeout: time.Second}, staticToken("secret"), api.WithLogger(logger.Discard()))
	f := NewBackendFetcher(client, time.Second)
	ctx := context.Background()

	deps, err := f.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ID: "5", Name: "Antioquia"}}, deps)

	cities, err := f.Cities(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Medellín", cities[0].Name)

	_, err = f.DocumentTypes(ctx)
	assert.ErrorIs(t, err, api.ErrNotFound)

	assert.Equal(t, []string{"/api/departments/", "/api/cities/?department_id=5", "/api/catalogs/document-types/"}, seen)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }
func (s staticToken) Clear(context.Context) error           { return nil }
