package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opencolorado/datamap/internal/resilience"
)

// ErrNotFound is returned when the catalog has no package with the
// requested identifier.
var ErrNotFound = eris.New("catalog: package not found")

// Client defines the catalog operations the pipeline and mirror use.
type Client interface {
	// ListPackageIDs returns every package identifier in the catalog.
	ListPackageIDs(ctx context.Context) ([]string, error)
	// GetPackage fetches one package entity. Returns ErrNotFound for
	// unknown identifiers.
	GetPackage(ctx context.Context, id string) (*Package, error)
	// CreatePackage registers a new package.
	CreatePackage(ctx context.Context, pkg *Package) error
	// UpdatePackage replaces an existing package entity.
	UpdatePackage(ctx context.Context, pkg *Package) error
	// DeletePackage removes a package from the catalog.
	DeletePackage(ctx context.Context, id string) error
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithHTTPClient overrides the underlying HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithRetryConfig overrides the retry configuration.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	retry   resilience.RetryConfig
}

// New creates a catalog client for the given API base URL (e.g.
// "https://data.opencolorado.org/api/2"). The API key is only required
// for write operations.
func New(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 60 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListPackageIDs(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "/rest/package", nil)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list packages")
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, eris.Wrap(err, "catalog: decode package list")
	}
	return ids, nil
}

func (c *httpClient) GetPackage(ctx context.Context, id string) (*Package, error) {
	body, err := c.do(ctx, http.MethodGet, "/rest/package/"+id, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: get package %s", id)
	}

	var pkg Package
	if err := json.Unmarshal(body, &pkg); err != nil {
		return nil, eris.Wrapf(err, "catalog: decode package %s", id)
	}
	return &pkg, nil
}

func (c *httpClient) CreatePackage(ctx context.Context, pkg *Package) error {
	if _, err := c.do(ctx, http.MethodPost, "/rest/package", pkg); err != nil {
		return eris.Wrapf(err, "catalog: create package %s", pkg.Name)
	}
	return nil
}

func (c *httpClient) UpdatePackage(ctx context.Context, pkg *Package) error {
	name := pkg.Name
	if pkg.ID != "" {
		name = pkg.ID
	}
	if _, err := c.do(ctx, http.MethodPut, "/rest/package/"+name, pkg); err != nil {
		return eris.Wrapf(err, "catalog: update package %s", pkg.Name)
	}
	return nil
}

func (c *httpClient) DeletePackage(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/rest/package/"+id, nil); err != nil {
		return eris.Wrapf(err, "catalog: delete package %s", id)
	}
	return nil
}

// do performs one catalog request with retries on transient failures.
// Not-found responses short-circuit without retrying.
func (c *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, eris.Wrap(err, "encode payload")
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.apiKey)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "read response"), 0)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return nil, resilience.NewTransientError(
				fmt.Errorf("catalog: status %d from %s %s", resp.StatusCode, method, path),
				resp.StatusCode,
			)
		case resp.StatusCode >= 300:
			return nil, eris.Errorf("catalog: status %d from %s %s", resp.StatusCode, method, path)
		}

		return body, nil
	})
}
