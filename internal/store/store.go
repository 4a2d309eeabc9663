// Package store provides the key-value persistence used for design history.
//
// Every backend stores opaque byte blobs under string keys. Get returns
// (nil, nil) when the key does not exist; Put is a full replacement. Open
// picks the backend from Config, the same way for every binary.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Backend names accepted in Config.Type.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeS3     = "s3"
	TypeDynamo = "dynamodb"
)

// KV is a minimal blob store. Implementations are safe for concurrent use.
type KV interface {
	// Get returns the blob stored under key, or nil, nil if there is none.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces the blob stored under key.
	Put(ctx context.Context, key string, data []byte) error
	// Close releases any underlying resources.
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Type   string `yaml:"type"`
	Path   string `yaml:"path"`   // directory for file, DSN for sqlite
	Bucket string `yaml:"bucket"` // s3
	Prefix string `yaml:"prefix"` // s3 key prefix
	Table  string `yaml:"table"`  // dynamodb
}

var (
	// ErrUnknownType is returned by Open for an unrecognised backend name.
	ErrUnknownType = errors.New("unknown storage type")
	// ErrTooLarge is returned by Put when a value exceeds what the backend
	// can hold in one record.
	ErrTooLarge = errors.New("value too large for storage backend")
)

// Open builds the backend described by cfg. awsCfg is used by the S3 and
// DynamoDB backends; when nil the default AWS configuration is loaded.
func Open(ctx context.Context, cfg Config, awsCfg *aws.Config) (KV, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		typ = TypeMemory
	}

	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return c, nil
	}

	var (
		kv  KV
		err error
	)
	evt := log.Info().Str("storageType", typ)
	switch typ {
	case TypeMemory:
		kv = NewMemoryStore()
	case TypeFile:
		dir := cfg.Path
		if dir == "" {
			dir = "./data"
		}
		evt = evt.Str("basePath", dir)
		kv, err = NewFileStore(dir)
	case TypeSQLite:
		dsn := cfg.Path
		if dsn == "" {
			dsn = "noksha.db"
		}
		evt = evt.Str("dataSourceName", dsn)
		kv, err = NewSQLiteStore(ctx, dsn)
	case TypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		c, aerr := loadAWS()
		if aerr != nil {
			return nil, aerr
		}
		evt = evt.Str("bucket", cfg.Bucket).Str("prefix", cfg.Prefix)
		kv = NewS3Store(s3.NewFromConfig(c), cfg.Bucket, cfg.Prefix)
	case TypeDynamo:
		if cfg.Table == "" {
			return nil, fmt.Errorf("dynamodb storage requires a table")
		}
		c, aerr := loadAWS()
		if aerr != nil {
			return nil, aerr
		}
		evt = evt.Str("table", cfg.Table)
		kv = NewDynamoStore(dynamodb.NewFromConfig(c), cfg.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	evt.Msg("Use storage")
	return kv, nil
}

// validateKey rejects keys that could escape a directory or bucket prefix.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q: must not be empty or a dot directory", key)
	}
	if path.Base(key) != key || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid key %q: must not be a path", key)
	}
	return nil
}
