package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bds-unify/internal/fetcher"
	"github.com/sells-group/bds-unify/internal/resilience"
	"github.com/sells-group/bds-unify/internal/source"
	"github.com/sells-group/bds-unify/internal/store"
)

func retryConfig() resilience.RetryConfig {
	r := cfg.Retry
	return resilience.FromRetryConfig(r.MaxAttempts, r.InitialBackoffMs, r.MaxBackoffMs, r.Multiplier, r.JitterFraction)
}

// initStore opens the configured store and applies migrations. Callers
// should defer st.Close().
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		Pool:        &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns},
		Retry:       retryConfig(),
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newOpener builds the opener used to read source exports from disk, HTTP
// and FTP.
func newOpener() *fetcher.Opener {
	s := cfg.Sources
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   s.UserAgent,
		Timeout:     s.Timeout(),
		MaxRetries:  s.MaxRetries,
		DefaultRate: rate.Limit(s.RatePerSec),
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: s.Timeout()})

	tempDir := s.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return fetcher.NewOpener(s.Dir, tempDir, httpFetcher, ftpFetcher)
}

// loadSpecs reads the source manifest, falling back to the built-in list.
func loadSpecs(manifest string) ([]source.Spec, error) {
	if manifest == "" {
		manifest = cfg.Sources.Manifest
	}
	return source.LoadManifest(manifest)
}
