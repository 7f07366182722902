package blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/promptrepo/internal/config"
)

// Backend identifies a blob store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendS3     Backend = "s3"
)

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	switch Backend(cfg.Backend) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisStore(rdb), nil
	case BackendS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("blob: s3 backend requires a bucket")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
		if err != nil {
			return nil, fmt.Errorf("blob: load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			}
			o.UsePathStyle = cfg.S3.UsePathStyle
		})
		return NewS3Store(client, cfg.S3.Bucket), nil
	default:
		return nil, fmt.Errorf("blob: unknown backend %q (use memory, sqlite, redis or s3)", cfg.Backend)
	}
}
