// Package fetcher retrieves source exports from local disk, HTTP or FTP and
// parses CSV, XLSX and JSON payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Opener resolves a source location to its content. Locations are local
// paths (relative ones are joined to BaseDir), http(s):// URLs or ftp:// URLs.
type Opener struct {
	BaseDir string
	TempDir string
	HTTP    Fetcher
	FTP     Fetcher
}

// NewOpener creates an Opener. A nil fetcher disables that scheme.
func NewOpener(baseDir, tempDir string, httpFetcher, ftpFetcher Fetcher) *Opener {
	return &Opener{
		BaseDir: baseDir,
		TempDir: tempDir,
		HTTP:    httpFetcher,
		FTP:     ftpFetcher,
	}
}

// IsRemote reports whether location is an http, https or ftp URL.
func IsRemote(location string) bool {
	switch scheme(location) {
	case "http", "https", "ftp":
		return true
	default:
		return false
	}
}

// Resolve returns the local path for a local location, or the location
// itself when it is remote.
func (o *Opener) Resolve(location string) string {
	if IsRemote(location) || filepath.IsAbs(location) || o.BaseDir == "" {
		return location
	}
	return filepath.Join(o.BaseDir, location)
}

// Exists reports whether a local location is present on disk. Remote
// locations are assumed to exist until fetched.
func (o *Opener) Exists(location string) (bool, error) {
	if IsRemote(location) {
		return true, nil
	}
	_, err := os.Stat(o.Resolve(location))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eris.Wrapf(err, "fetcher: stat %s", location)
}

// Open returns a reader over the content at location. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !IsRemote(location) {
		f, err := os.Open(o.Resolve(location))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", location)
		}
		return f, nil
	}

	f, err := o.fetcherFor(location)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("fetcher: downloading", zap.String("location", location))
	rc, err := f.Download(ctx, location)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", location)
	}
	return rc, nil
}

// Localize returns a local file path for location. Remote content is
// downloaded into TempDir and cleanup removes it; for local files cleanup
// is a no-op.
func (o *Opener) Localize(ctx context.Context, location string) (string, func(), error) {
	if !IsRemote(location) {
		return o.Resolve(location), func() {}, nil
	}

	f, err := o.fetcherFor(location)
	if err != nil {
		return "", nil, err
	}

	tmp, err := os.CreateTemp(o.TempDir, "source-*"+Ext(location))
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create temp file")
	}
	name := tmp.Name()
	_ = tmp.Close()
	cleanup := func() { _ = os.Remove(name) }

	n, err := f.DownloadToFile(ctx, location, name)
	if err != nil {
		cleanup()
		return "", nil, eris.Wrapf(err, "fetcher: download %s", location)
	}
	zap.L().Debug("fetcher: localized", zap.String("location", location), zap.Int64("bytes", n))

	return name, cleanup, nil
}

// Ext returns the lowercased file extension of a local path or URL path.
func Ext(location string) string {
	if IsRemote(location) {
		if u, err := url.Parse(location); err == nil {
			return strings.ToLower(path.Ext(u.Path))
		}
	}
	return strings.ToLower(filepath.Ext(location))
}

func (o *Opener) fetcherFor(location string) (Fetcher, error) {
	var f Fetcher
	switch scheme(location) {
	case "http", "https":
		f = o.HTTP
	case "ftp":
		f = o.FTP
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no fetcher configured for %s", location)
	}
	return f, nil
}

func scheme(location string) string {
	i := strings.Index(location, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(location[:i])
}
