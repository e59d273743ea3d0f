package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "standard ftp url",
			url:      "ftp://gis.example.gov/pub/shapefiles/parks.zip",
			wantHost: "gis.example.gov:21",
			wantPath: "/pub/shapefiles/parks.zip",
		},
		{
			name:     "ftp url with port",
			url:      "ftp://gis.example.gov:2121/data/trails.zip",
			wantHost: "gis.example.gov:2121",
			wantPath: "/data/trails.zip",
		},
		{
			name:     "ftp url with nested path",
			url:      "ftp://ftp.co.douglas.co.us/gis/published/2009/roads.zip",
			wantHost: "ftp.co.douglas.co.us:21",
			wantPath: "/gis/published/2009/roads.zip",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/parks.zip",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://gis.example.gov",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_DefaultTimeout(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
}

func TestFTPFetcher_DownloadBadURL(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})

	_, err := f.Download(context.Background(), "https://example.com/parks.zip")
	require.Error(t, err)

	_, err = f.DownloadToFile(context.Background(), "ftp://gis.example.gov", "out.zip")
	require.Error(t, err)
}
