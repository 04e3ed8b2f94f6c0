// Package storage opens a custody store from a connection URL.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/db"
	"github.com/jonathan/pathway-advisor/internal/sqlite"
)

var (
	_ custody.Store = (*db.DB)(nil)
	_ custody.Store = (*sqlite.Store)(nil)
)

// Options carries backend tuning that does not fit in the URL.
type Options struct {
	MaxConns int32
}

// Backend names the store implementation selected for a URL.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Detect returns the backend for url and, for SQLite, the file path.
func Detect(url string) (Backend, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return BackendPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url has no path: %q", url)
		}
		return BackendSQLite, path, nil
	case strings.HasPrefix(url, "file:"):
		path := strings.TrimPrefix(url, "file:")
		if path == "" {
			return "", "", fmt.Errorf("file url has no path: %q", url)
		}
		return BackendSQLite, path, nil
	case url == "":
		return "", "", fmt.Errorf("database url is required")
	default:
		return "", "", fmt.Errorf("unsupported database url scheme: %q", redact(url))
	}
}

// Open connects to the store named by url. The caller owns Close.
func Open(ctx context.Context, url string, opts Options) (custody.Store, error) {
	backend, target, err := Detect(url)
	if err != nil {
		return nil, err
	}

	if backend == BackendPostgres {
		pg, err := db.Connect(ctx, target, db.Options{MaxConns: opts.MaxConns})
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	lite, err := sqlite.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// redact strips anything after the scheme so credentials never reach logs.
func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "..."
	}
	if len(url) > 12 {
		return url[:12] + "..."
	}
	return url
}
