package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencolorado/datamap/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		JitterFraction: 0,
	}
}

func newTestClient(srvURL string) Client {
	return New(srvURL, "test-key", WithRetryConfig(fastRetry()))
}

func TestListPackageIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/package", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode([]string{"denver-parcels", "boulder-trails"})
	}))
	defer srv.Close()

	ids, err := newTestClient(srv.URL).ListPackageIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"denver-parcels", "boulder-trails"}, ids)
}

func TestGetPackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/package/denver-parcels", r.URL.Path)
		json.NewEncoder(w).Encode(Package{
			Name:  "denver-parcels",
			Title: "Denver Parcels",
			Resources: []Resource{
				{URL: "http://example.org/parcels.zip", Format: "SHP"},
			},
		})
	}))
	defer srv.Close()

	pkg, err := newTestClient(srv.URL).GetPackage(context.Background(), "denver-parcels")
	require.NoError(t, err)
	assert.Equal(t, "Denver Parcels", pkg.Title)
	require.Len(t, pkg.Resources, 1)
}

func TestGetPackage_NotFound(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPackage(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1), calls.Load()) // not retried
}

func TestCreatePackage_SendsAuthAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var pkg Package
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pkg))
		assert.Equal(t, "drcog-trails", pkg.Name)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).CreatePackage(context.Background(), &Package{Name: "drcog-trails"})
	require.NoError(t, err)
}

func TestUpdatePackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/rest/package/abc-123", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).UpdatePackage(context.Background(), &Package{ID: "abc-123", Name: "drcog-trails"})
	require.NoError(t, err)
}

func TestDeletePackage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/rest/package/drcog-old", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeletePackage(context.Background(), "drcog-old")
	require.NoError(t, err)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]string{"a"})
	}))
	defer srv.Close()

	ids, err := newTestClient(srv.URL).ListPackageIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
	assert.Equal(t, int64(3), calls.Load())
}

func TestIsShapefile(t *testing.T) {
	cases := []struct {
		res  Resource
		want bool
	}{
		{Resource{Format: "SHP"}, true},
		{Resource{Format: "shapefile"}, true},
		{Resource{Mimetype: "application/x-shp"}, true},
		{Resource{MimetypeInner: "x-shapefile"}, true},
		{Resource{Name: "roads shapefile export"}, true},
		{Resource{Description: "Zipped SHP download"}, true},
		{Resource{Format: "CSV"}, false},
		{Resource{}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.res.IsShapefile(), "%+v", tc.res)
	}
}

func TestShapefileResource(t *testing.T) {
	pkg := Package{Resources: []Resource{
		{URL: "http://example.org/data.csv", Format: "CSV"},
		{URL: "http://example.org/data.zip", Format: "SHP"},
	}}

	res, ok := pkg.ShapefileResource()
	require.True(t, ok)
	assert.Equal(t, "http://example.org/data.zip", res.URL)

	_, ok = Package{}.ShapefileResource()
	assert.False(t, ok)
}
