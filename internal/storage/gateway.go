// Package storage wraps the object-storage bucket that holds user files.
//
// The service never streams object content back to clients: reads go through
// time-limited signed URLs issued by SignedURL, and the only bytes that pass
// through the process are the ones written by Upload.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one object returned by List. Name is the absolute
// object path inside the bucket.
type ObjectInfo struct {
	Name    string
	Size    int64
	Updated time.Time
}

// SignOptions controls a signed URL. ContentDisposition and ContentType are
// optional response overrides applied by the backend when the URL is used.
type SignOptions struct {
	Method             string
	TTL                time.Duration
	ContentDisposition string
	ContentType        string
}

// GetURL returns options for a plain signed GET valid for ttl.
func GetURL(ttl time.Duration) SignOptions {
	return SignOptions{Method: http.MethodGet, TTL: ttl}
}

// Gateway is the narrow view of the bucket used by the HTTP handlers.
// All paths are absolute object paths (namespace prefix + relative name).
type Gateway interface {
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Upload(ctx context.Context, path string, content io.Reader) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, opts SignOptions) (string, error)
}
