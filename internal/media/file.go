// Package media provides file handles for listing media and the per-kind
// content rules applied before anything is uploaded.
package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/models"
)

// File is a readable local file queued for a listing
type File struct {
	Name        string
	ContentType string
	Size        int64
	Kind        models.MediaKind

	open func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the file contents
func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.open == nil {
		return nil, fmt.Errorf("file has no content source")
	}
	return f.open()
}

// FromPath builds a File from a path on disk, sniffing its content type
func FromPath(path string, kind models.MediaKind) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	n, _ := io.ReadFull(fh, head)
	fh.Close()

	return &File{
		Name:        filepath.Base(path),
		ContentType: detectContentType(filepath.Base(path), head[:n]),
		Size:        info.Size(),
		Kind:        kind,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds an in-memory File. An empty contentType is sniffed.
func FromBytes(name, contentType string, kind models.MediaKind, data []byte) *File {
	if strings.TrimSpace(contentType) == "" {
		contentType = detectContentType(name, data)
	}
	buf := append([]byte(nil), data...)
	return &File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(buf)),
		Kind:        kind,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		},
	}
}

// The builtin mime table has no video entries
var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

func detectContentType(name string, head []byte) string {
	contentType := ""
	if len(head) > 0 {
		contentType = strings.ToLower(strings.TrimSpace(http.DetectContentType(head)))
		if i := strings.Index(contentType, ";"); i >= 0 {
			contentType = strings.TrimSpace(contentType[:i])
		}
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	// Sniffing cannot tell most video containers apart, fall back to the extension
	if contentType == "" || contentType == "application/octet-stream" || contentType == "text/plain" {
		ext := strings.ToLower(filepath.Ext(name))
		if known, ok := videoExtensions[ext]; ok {
			return known
		}
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
			if i := strings.Index(contentType, ";"); i >= 0 {
				contentType = strings.TrimSpace(contentType[:i])
			}
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType
}
