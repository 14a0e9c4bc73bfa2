package content

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for local JSON files, optionally gzipped.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based content loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "content-loader").Logger(),
	}
}

// Load reads a content file. Files ending in .gz are decompressed.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Home, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open content file %s: %w", filePath, err)
	}
	defer file.Close()

	home, err := decodeMaybeGzip(file, filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read content file")
		return nil, fmt.Errorf("content file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("featured_categories", len(home.FeaturedCategories)).
		Msg("content file loaded")
	return home, nil
}

func decodeMaybeGzip(r io.Reader, name string) (*Home, error) {
	if !strings.HasSuffix(name, ".gz") {
		return decode(r)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	return decode(gz)
}
