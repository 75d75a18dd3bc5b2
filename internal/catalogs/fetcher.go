package catalogs

import (
	"context"
	"net/url"
	"time"

	"tiquetera/internal/api"
)

// Fetcher loads catalogs from the backend.
type Fetcher interface {
	Departments(ctx context.Context) ([]Entry, error)
	DocumentTypes(ctx context.Context) ([]Entry, error)
	Cities(ctx context.Context, departmentID string) ([]Entry, error)
}

// Backend is the part of api.Client the fetcher needs.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error
}

type backendFetcher struct {
	backend Backend
	timeout time.Duration
}

// NewBackendFetcher reads catalogs from the public catalog endpoints.
// Requests carry no token and are bounded by timeout.
func NewBackendFetcher(backend Backend, timeout time.Duration) Fetcher {
	return &backendFetcher{backend: backend, timeout: timeout}
}

func (f *backendFetcher) get(ctx context.Context, path string, query url.Values) ([]Entry, error) {
	var out []Entry
	if err := f.backend.Get(ctx, path, query, &out, api.Anonymous(), api.Timeout(f.timeout)); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

func (f *backendFetcher) Departments(ctx context.Context) ([]Entry, error) {
	return f.get(ctx, "/departments/", nil)
}

func (f *backendFetcher) DocumentTypes(ctx context.Context) ([]Entry, error) {
	return f.get(ctx, "/catalogs/document-types/", nil)
}

func (f *backendFetcher) Cities(ctx context.Context, departmentID string) ([]Entry, error) {
	return f.get(ctx, "/cities/", url.Values{"department_id": {departmentID}})
}
