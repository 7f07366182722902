package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps blobs as objects in one bucket. The object ETag is the version;
// conditional writes use If-Match and If-None-Match.
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store returns a store over bucket.
func NewS3Store(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Name returns "s3".
func (s *S3Store) Name() string { return "s3" }

// Get downloads the object at key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, Version, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, NoVersion, s.translate("get", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, NoVersion, fmt.Errorf("%w: read %s: %w", ErrTransient, key, err)
	}
	return data, Version(aws.ToString(out.ETag)), nil
}

// Put uploads data if the object's ETag equals ifMatch, or if the object is
// absent when ifMatch is NoVersion.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, ifMatch Version) (Version, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if ifMatch == NoVersion {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(string(ifMatch))
	}
	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		err = s.translate("put", key, err)
		if errors.Is(err, ErrNotFound) {
			// If-Match against a missing object answers 404.
			return NoVersion, ErrPreconditionFailed
		}
		return NoVersion, err
	}
	return Version(aws.ToString(out.ETag)), nil
}

// PutUnconditional overwrites the object at key.
func (s *S3Store) PutUnconditional(ctx context.Context, key string, data []byte) (Version, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return NoVersion, s.translate("put", key, err)
	}
	return Version(aws.ToString(out.ETag)), nil
}

// Delete removes the object at key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	if err := s.translate("delete", key, err); !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *S3Store) Close() error { return nil }

// translate maps SDK errors onto the blob error taxonomy.
func (s *S3Store) translate(op, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ErrNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ErrNotFound
		case "PreconditionFailed", "ConditionalRequestConflict":
			return ErrPreconditionFailed
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusPreconditionFailed, http.StatusConflict:
			return ErrPreconditionFailed
		}
	}
	return fmt.Errorf("%w: %s s3://%s/%s: %w", ErrTransient, op, s.bucket, key, err)
}
