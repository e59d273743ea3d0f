// Package fetcher downloads catalog resource archives over HTTP and FTP.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Router dispatches downloads to a scheme-specific fetcher. Catalog
// resource URLs are mostly http(s), with the occasional ftp mirror.
type Router struct {
	http Fetcher
	ftp  Fetcher
}

// NewRouter creates a Router over the given HTTP and FTP fetchers.
func NewRouter(httpF, ftpF Fetcher) *Router {
	return &Router{http: httpF, ftp: ftpF}
}

func (r *Router) pick(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return r.http, nil
	case "ftp":
		if r.ftp == nil {
			return nil, eris.New("fetcher: ftp not configured")
		}
		return r.ftp, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// Download dispatches on URL scheme.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile dispatches on URL scheme.
func (r *Router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.pick(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
