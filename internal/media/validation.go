package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/models"
)

const (
	MaxImages = 5
	MaxVideos = 2

	maxImageBytes       = 10 << 20
	maxVideoBytes       = 100 << 20
	maxCertificateBytes = 10 << 20
)

var (
	// ErrUnsupportedType is returned when a file's content type is not allowed for its kind
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when a file exceeds its kind's size ceiling
	ErrTooLarge = errors.New("file is too large")
	// ErrEmptyFile is returned for zero-byte files
	ErrEmptyFile = errors.New("file is empty")
)

var allowedContentTypes = map[models.MediaKind]map[string]struct{}{
	models.MediaKindImage: {
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	},
	models.MediaKindVideo: {
		"video/mp4":       {},
		"video/quicktime": {},
		"video/webm":      {},
	},
	models.MediaKindCertificate: {
		"application/pdf": {},
		"image/jpeg":      {},
		"image/png":       {},
	},
}

var maxBytes = map[models.MediaKind]int64{
	models.MediaKindImage:       maxImageBytes,
	models.MediaKindVideo:       maxVideoBytes,
	models.MediaKindCertificate: maxCertificateBytes,
}

// Validate checks a file against the content rules of its kind
func Validate(f *File) error {
	if f == nil {
		return fmt.Errorf("file is required")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: unknown media kind %q", ErrUnsupportedType, f.Kind)
	}
	if f.Size <= 0 {
		return fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
	}

	contentType := strings.ToLower(strings.TrimSpace(f.ContentType))
	if _, ok := allowedContentTypes[f.Kind][contentType]; !ok {
		return fmt.Errorf("%s: %w for %s (%s)", f.Name, ErrUnsupportedType, f.Kind, contentType)
	}
	if f.Size > maxBytes[f.Kind] {
		return fmt.Errorf("%s: %w (%d bytes, limit %d)", f.Name, ErrTooLarge, f.Size, maxBytes[f.Kind])
	}
	return nil
}
