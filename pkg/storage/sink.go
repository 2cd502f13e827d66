package storage

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactSink accepts named image artifacts ("processed", "overlay") for
// one sheet and returns a storage locator. The locator is audit trail
// only; the pipeline never reads it back or branches on it.
type ArtifactSink interface {
	Store(ctx context.Context, sheetID, name string, img image.Image) (string, error)
}

// FileSink writes artifacts beneath a directory as
// <dir>/<sheetID>_<name>.<ext>.
type FileSink struct {
	Dir string
	// Format is "png" or "jpeg"; empty means png.
	Format string
	// Quality applies to jpeg output; zero means 85.
	Quality int
}

// NewFileSink creates a filesystem sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir, Format: "png"}
}

// Store encodes the image and returns its file path.
func (s *FileSink) Store(_ context.Context, sheetID, name string, img image.Image) (string, error) {
	format := strings.ToLower(s.Format)
	if format == "" {
		format = "png"
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("%s_%s.%s", sheetID, name, ext))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer file.Close()

	switch format {
	case "png":
		err = png.Encode(file, img)
	case "jpeg":
		quality := s.Quality
		if quality <= 0 {
			quality = 85
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: quality})
	default:
		err = fmt.Errorf("unsupported artifact format: %s", format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}
	return path, nil
}
