package content

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the S3 call the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for content documents stored in S3.
type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates an S3 loader using the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates an S3 loader around an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	logger = logger.With().Str("component", "s3-content-loader").Logger()
	logger.Info().Str("bucket", bucket).Msg("S3 content loader initialised")
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Load reads the content document at key.
func (l *s3Loader) Load(ctx context.Context, key string) (*Home, error) {
	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	home, err := decodeMaybeGzip(result.Body, key)
	if err != nil {
		return nil, fmt.Errorf("S3 object %s: %w", key, err)
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("content loaded from S3")
	return home, nil
}

// fallbackLoader tries S3 first, then the local file system.
type fallbackLoader struct {
	s3Loader   Loader
	fileLoader Loader
	s3Prefix   string
	s3Enabled  bool
	logger     zerolog.Logger
}

// NewFallbackLoader creates a loader that tries S3 first, then falls back to local
// files. S3 keys are the prefix joined with the file's base path.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3Loader:   s3Loader,
		fileLoader: fileLoader,
		s3Prefix:   s3Prefix,
		s3Enabled:  s3Enabled,
		logger:     logger.With().Str("component", "fallback-content-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, filePath string) (*Home, error) {
	if l.s3Enabled && l.s3Loader != nil {
		key := l.s3Prefix + filepath.Base(filePath)
		home, err := l.s3Loader.Load(ctx, key)
		if err == nil {
			return home, nil
		}
		l.logger.Warn().
			Err(err).
			Str("s3_key", key).
			Str("local_fallback", filePath).
			Msg("S3 content load failed, falling back to local file")
	}

	home, err := l.fileLoader.Load(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load content from all sources: %w", err)
	}
	return home, nil
}
