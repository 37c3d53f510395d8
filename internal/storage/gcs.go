package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ServiceAccount holds the fields of a Google service account key that the
// gateway needs for signing.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

var _ Gateway = (*GCSGateway)(nil)

// GCSGateway stores objects in a single Google Cloud Storage bucket and signs
// V4 URLs with the service account key.
type GCSGateway struct {
	client         *gcs.Client
	bucket         *gcs.BucketHandle
	googleAccessID string
	privateKey     []byte
}

// NewGCSGateway builds a client from a service account JSON key.
func NewGCSGateway(ctx context.Context, bucket string, serviceAccountJSON []byte) (*GCSGateway, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(serviceAccountJSON, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account must contain client_email and private_key")
	}

	client, err := gcs.NewClient(ctx, option.WithCredentialsJSON(serviceAccountJSON))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return NewGCSGatewayFromClient(client, bucket, sa), nil
}

// NewGCSGatewayFromClient wraps an existing client.
func NewGCSGatewayFromClient(client *gcs.Client, bucket string, sa ServiceAccount) *GCSGateway {
	return &GCSGateway{
		client:         client,
		bucket:         client.Bucket(bucket),
		googleAccessID: sa.ClientEmail,
		privateKey:     []byte(sa.PrivateKey),
	}
}

func (g *GCSGateway) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.bucket.Object(path).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *GCSGateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	objects := []ObjectInfo{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, ObjectInfo{
			Name:    attrs.Name,
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}

	return objects, nil
}

func (g *GCSGateway) Upload(ctx context.Context, path string, content io.Reader) error {
	w := g.bucket.Object(path).NewWriter(ctx)
	if _, err := io.Copy(w, content); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSGateway) Delete(ctx context.Context, path string) error {
	err := g.bucket.Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (g *GCSGateway) SignedURL(_ context.Context, path string, opts SignOptions) (string, error) {
	params := url.Values{}
	if opts.ContentDisposition != "" {
		params.Set("response-content-disposition", opts.ContentDisposition)
	}
	if opts.ContentType != "" {
		params.Set("response-content-type", opts.ContentType)
	}

	return g.bucket.SignedURL(path, &gcs.SignedURLOptions{
		GoogleAccessID:  g.googleAccessID,
		PrivateKey:      g.privateKey,
		Method:          opts.Method,
		Expires:         time.Now().Add(opts.TTL),
		Scheme:          gcs.SigningSchemeV4,
		QueryParameters: params,
	})
}

func (g *GCSGateway) Close() error {
	return g.client.Close()
}
