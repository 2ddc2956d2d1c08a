// Package upload validates incoming image files and stores them on local
// disk under collision-free names.
package upload

import (
	"fmt"
	"io"
	"math/rand"
	"mime"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"absensi/internal/apperr"
)

// FieldName is the multipart field that carries the image.
const FieldName = "image"

// DefaultMaxBytes caps a single uploaded image.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

var (
	ErrInvalidType = apperr.Validation("file must be an image of type jpeg/jpg/png")
	ErrTooLarge    = apperr.TooLarge("file exceeds the maximum upload size")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var allowedExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// Validate checks the declared content type, the extension and the size of
// an uploaded file. A type mismatch wins over a size violation.
func Validate(fh *multipart.FileHeader, maxBytes int64) error {
	if fh == nil {
		return ErrInvalidType
	}
	if !allowedTypes[mediaType(fh.Header.Get("Content-Type"))] {
		return ErrInvalidType
	}
	if !allowedExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		return ErrInvalidType
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if fh.Size > maxBytes {
		return ErrTooLarge
	}
	return nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// FileName builds "<field>-<epoch-ms>-<n><ext>".
func FileName(field string, now time.Time, n int, ext string) string {
	return fmt.Sprintf("%s-%d-%d%s", field, now.UnixMilli(), n, ext)
}

// Disk stores uploads in a directory served under URLPrefix.
type Disk struct {
	Dir       string
	URLPrefix string

	now    func() time.Time
	suffix func() int
}

// NewDisk ensures dir exists and returns a store for it.
func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{
		Dir:       dir,
		URLPrefix: urlPrefix,
		now:       time.Now,
		suffix:    func() int { return rand.Intn(1_000_000_000) },
	}, nil
}

// Save copies the file into Dir and returns its public path.
func (d *Disk) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	// O_EXCL turns the rare same-millisecond same-suffix clash into a retry.
	for attempt := 0; attempt < 3; attempt++ {
		name := FileName(FieldName, d.now(), d.suffix(), filepath.Ext(fh.Filename))
		dst, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create upload file: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return "", fmt.Errorf("write upload file: %w", err)
		}
		if err := dst.Close(); err != nil {
			return "", fmt.Errorf("close upload file: %w", err)
		}
		return path.Join(d.URLPrefix, name), nil
	}
	return "", fmt.Errorf("could not allocate a unique name for %q", fh.Filename)
}
