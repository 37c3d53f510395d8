package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Options configures an S3 compatible backend (AWS S3, MinIO, ...).
type S3Options struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

var _ Gateway = (*S3Gateway)(nil)

// S3Gateway stores objects in one S3 bucket and issues presigned URLs.
type S3Gateway struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Gateway(ctx context.Context, bucket string, opts S3Options) (*S3Gateway, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			// S3 compatible stores do not all accept the default flexible checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewS3GatewayFromClient(client, bucket), nil
}

func NewS3GatewayFromClient(client *s3.Client, bucket string) *S3Gateway {
	return &S3Gateway{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (g *S3Gateway) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *S3Gateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})

	objects := []ObjectInfo{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Name:    aws.ToString(obj.Key),
				Size:    aws.ToInt64(obj.Size),
				Updated: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

func (g *S3Gateway) Upload(ctx context.Context, path string, content io.Reader) error {
	// PutObject needs a seekable body to compute the payload signature.
	if _, ok := content.(io.ReadSeeker); !ok {
		buf, err := io.ReadAll(content)
		if err != nil {
			return err
		}
		content = bytes.NewReader(buf)
	}

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(path),
		Body:        content,
		ContentType: aws.String(ContentType(path)),
	})
	return err
}

func (g *S3Gateway) Delete(ctx context.Context, path string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(path),
	})
	if err != nil && isS3NotFound(err) {
		return ErrNotFound
	}
	return err
}

func (g *S3Gateway) SignedURL(ctx context.Context, path string, opts SignOptions) (string, error) {
	expires := s3.WithPresignExpires(opts.TTL)

	switch opts.Method {
	case http.MethodGet, "":
		req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket:                     aws.String(g.bucket),
			Key:                        aws.String(path),
			ResponseContentDisposition: optionalString(opts.ContentDisposition),
			ResponseContentType:        optionalString(opts.ContentType),
		}, expires)
		if err != nil {
			return "", err
		}
		return req.URL, nil
	case http.MethodPut:
		req, err := g.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(g.bucket),
			Key:         aws.String(path),
			ContentType: optionalString(opts.ContentType),
		}, expires)
		if err != nil {
			return "", err
		}
		return req.URL, nil
	case http.MethodDelete:
		req, err := g.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.bucket),
			Key:    aws.String(path),
		}, expires)
		if err != nil {
			return "", err
		}
		return req.URL, nil
	default:
		return "", fmt.Errorf("unsupported signed url method %q", opts.Method)
	}
}

// isS3NotFound matches both the modeled HeadObject error and the generic
// NoSuchKey code other operations return.
func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
